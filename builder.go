package credkit

import (
	"errors"

	"github.com/credkit/credkit/email"
	"github.com/credkit/credkit/internal"
	"github.com/credkit/credkit/internal/cache"
	"github.com/credkit/credkit/password"
	"github.com/credkit/credkit/store"
	"github.com/credkit/credkit/store/redisstore"
	"github.com/credkit/credkit/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine. Stores come either from WithRedis (the
// bundled redisstore implementations) or from WithStores (any
// implementations of the store contracts, e.g. store/postgres).
type Builder struct {
	config Config

	rdb           *redis.Client
	revocations   store.RevocationStore
	refreshTokens store.RefreshTokenStore
	otps          store.OTPStore

	accounts AccountStore
	hasher   PasswordHasher
	sender   email.Sender
	limiter  RateLimiter
	logger   zerolog.Logger

	built bool
}

// New returns a Builder with default configuration and a no-op logger.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis selects the bundled Redis store implementations over client.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.rdb = client
	return b
}

// WithStores supplies explicit store implementations, overriding WithRedis
// for the stores given. Any nil argument keeps the Redis default.
func (b *Builder) WithStores(rev store.RevocationStore, refresh store.RefreshTokenStore, otps store.OTPStore) *Builder {
	b.revocations = rev
	b.refreshTokens = refresh
	b.otps = otps
	return b
}

// WithAccountStore supplies the external account collaborator.
func (b *Builder) WithAccountStore(accounts AccountStore) *Builder {
	b.accounts = accounts
	return b
}

// WithPasswordHasher replaces the default bcrypt hasher.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithEmailSender supplies the delivery transport directly, overriding the
// configuration-driven selection.
func (b *Builder) WithEmailSender(s email.Sender) *Builder {
	b.sender = s
	return b
}

// WithOTPLimiter supplies the OTP issuance throttle, replacing the bundled
// Redis fixed-window limiter. Required when OTP.MaxRequests is nonzero and no
// Redis client is configured.
func (b *Builder) WithOTPLimiter(l RateLimiter) *Builder {
	b.limiter = l
	return b
}

// WithLogger supplies the engine's logger.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.logger = log
	return b
}

// Build validates the configuration and assembles the Engine.
//
// The signing-secret contract: production mode refuses to start without a
// persistent secret; permissive mode generates an ephemeral process-local
// one and logs a warning, because every previously issued token dies with
// the process and no other instance can validate what this one signs.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := b.config
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if len(cfg.JWT.Secret) == 0 {
		if cfg.Security.ProductionMode {
			return nil, errors.New("production mode requires a persistent signing secret")
		}
		secret, err := internal.NewSecret(32)
		if err != nil {
			return nil, err
		}
		cfg.JWT.Secret = secret
		b.logger.Warn().Msg("credkit: no signing secret configured, generated an ephemeral one; issued tokens will not survive a restart and cannot be validated by other instances")
	}

	signer, err := token.NewSigner(token.Config{
		Secret:        cfg.JWT.Secret,
		SigningMethod: token.SigningMethod(cfg.JWT.SigningMethod),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	revocations := b.revocations
	refreshTokens := b.refreshTokens
	otps := b.otps
	if revocations == nil || refreshTokens == nil || otps == nil {
		if b.rdb == nil {
			return nil, errors.New("a durable store is required: use WithRedis or WithStores")
		}
		retention := cfg.JWT.RefreshTTL + cfg.Blacklist.RetentionMargin
		if revocations == nil {
			revocations = redisstore.NewRevocationStore(b.rdb, cfg.Blacklist.KeyPrefix, retention)
		}
		if refreshTokens == nil {
			refreshTokens = redisstore.NewRefreshTokenStore(b.rdb, cfg.Blacklist.KeyPrefix)
		}
		if otps == nil {
			otps = redisstore.NewOTPStore(b.rdb, cfg.Blacklist.KeyPrefix)
		}
	}

	sender := b.sender
	if sender == nil {
		switch {
		case cfg.Email.MockMode:
			sender = email.NewMockSender(b.logger)
		case cfg.Email.APIKey != "":
			sender, err = email.NewAPISender(email.APIConfig{
				APIKey:    cfg.Email.APIKey,
				FromEmail: cfg.Email.FromEmail,
				FromName:  cfg.Email.FromName,
				Endpoint:  cfg.Email.Endpoint,
			})
			if err != nil {
				return nil, err
			}
		}
		// Neither configured: OTP issuance reports ErrEngineNotReady.
	}

	hasher := b.hasher
	if hasher == nil {
		hasher = password.NewBcrypt(password.DefaultCost)
	}

	// A configured throttle that nothing can enforce is refused outright:
	// silently dropping it would strip the per-recipient issuance cap.
	limiter := b.limiter
	if limiter == nil && cfg.OTP.MaxRequests > 0 {
		if b.rdb == nil {
			return nil, errors.New("otp throttling needs WithRedis or WithOTPLimiter; set OTP.MaxRequests to 0 to disable it")
		}
		limiter = newOTPLimiter(b.rdb, cfg.Blacklist.KeyPrefix, cfg.OTP.MaxRequests, cfg.OTP.TTL)
	}

	return &Engine{
		config:        cfg,
		log:           b.logger,
		signer:        signer,
		blacklist:     NewBlacklist(revocations, cache.NewSet()),
		refreshTokens: refreshTokens,
		otps:          otps,
		otpLimiter:    limiter,
		accounts:      b.accounts,
		hasher:        hasher,
		sender:        sender,
	}, nil
}
