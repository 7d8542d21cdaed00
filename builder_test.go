package credkit

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/credkit/credkit/store/redisstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBuildRequiresDurableStore(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("unit-test-secret")

	_, err := New().WithConfig(cfg).Build()
	require.Error(t, err)
}

func TestBuildAcceptsExplicitStores(t *testing.T) {
	_, client := newTestRedis(t)

	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("unit-test-secret")
	cfg.OTP.MaxRequests = 0
	retention := cfg.JWT.RefreshTTL + cfg.Blacklist.RetentionMargin

	engine, err := New().
		WithConfig(cfg).
		WithStores(
			redisstore.NewRevocationStore(client, "ck", retention),
			redisstore.NewRefreshTokenStore(client, "ck"),
			redisstore.NewOTPStore(client, "ck"),
		).
		Build()
	require.NoError(t, err)

	_, err = engine.IssuePair(context.Background(), "a@example.com")
	require.NoError(t, err)
}

func TestBuildRefusesUnenforceableThrottle(t *testing.T) {
	_, client := newTestRedis(t)

	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("unit-test-secret")
	cfg.OTP.MaxRequests = 2
	retention := cfg.JWT.RefreshTTL + cfg.Blacklist.RetentionMargin

	stores := func(b *Builder) *Builder {
		return b.WithStores(
			redisstore.NewRevocationStore(client, "ck", retention),
			redisstore.NewRefreshTokenStore(client, "ck"),
			redisstore.NewOTPStore(client, "ck"),
		)
	}

	// No Redis client and no injected limiter: the configured cap would be
	// silently unenforced, so Build refuses.
	_, err := stores(New().WithConfig(cfg)).Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "otp throttling")

	// Disabling the cap makes the same assembly valid.
	cfg.OTP.MaxRequests = 0
	_, err = stores(New().WithConfig(cfg)).Build()
	require.NoError(t, err)
}

// fixedWindowStub is an in-process RateLimiter for store-agnostic assemblies.
type fixedWindowStub struct {
	mu   sync.Mutex
	max  int
	seen map[string]int
}

func (l *fixedWindowStub) CheckRequest(_ context.Context, recipient string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = make(map[string]int)
	}
	l.seen[recipient]++
	if l.seen[recipient] > l.max {
		return ErrOTPRateLimited
	}
	return nil
}

func TestInjectedLimiterEnforcesCapWithoutRedis(t *testing.T) {
	_, client := newTestRedis(t)

	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("unit-test-secret")
	cfg.OTP.MaxRequests = 2
	retention := cfg.JWT.RefreshTTL + cfg.Blacklist.RetentionMargin

	sender := &captureSender{}
	engine, err := New().
		WithConfig(cfg).
		WithStores(
			redisstore.NewRevocationStore(client, "ck", retention),
			redisstore.NewRefreshTokenStore(client, "ck"),
			redisstore.NewOTPStore(client, "ck"),
		).
		WithOTPLimiter(&fixedWindowStub{max: cfg.OTP.MaxRequests}).
		WithAccountStore(newFakeAccountStore(&Account{ID: "u-1", Email: "a@example.com"})).
		WithEmailSender(sender).
		Build()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, engine.RequestOTP(ctx, "a@example.com"))
	require.NoError(t, engine.RequestOTP(ctx, "a@example.com"))

	err = engine.RequestOTP(ctx, "a@example.com")
	require.ErrorIs(t, err, ErrOTPRateLimited)
	require.Equal(t, 2, sender.count())
}

func TestBuildProductionRequiresSecret(t *testing.T) {
	_, client := newTestRedis(t)

	cfg := defaultConfig()
	cfg.Security.ProductionMode = true

	_, err := New().WithConfig(cfg).WithRedis(client).Build()
	require.Error(t, err)
}

func TestBuildGeneratesEphemeralSecretOutsideProduction(t *testing.T) {
	_, client := newTestRedis(t)

	var buf bytes.Buffer
	log := zerolog.New(&buf)

	engine, err := New().
		WithConfig(defaultConfig()).
		WithRedis(client).
		WithLogger(log).
		Build()
	require.NoError(t, err)
	require.Contains(t, buf.String(), "ephemeral")

	// The generated secret is usable for a full mint/verify round trip.
	ctx := context.Background()
	pair, err := engine.IssuePair(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = engine.Verify(ctx, pair.AccessToken, TypeAccess)
	require.NoError(t, err)
}

func TestBuilderSingleUse(t *testing.T) {
	_, client := newTestRedis(t)

	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("unit-test-secret")

	b := New().WithConfig(cfg).WithRedis(client)
	_, err := b.Build()
	require.NoError(t, err)

	_, err = b.Build()
	require.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"access not shorter than refresh", func(c *Config) { c.JWT.AccessTTL = c.JWT.RefreshTTL }},
		{"otp digits too short", func(c *Config) { c.OTP.Digits = 3 }},
		{"otp digits too long", func(c *Config) { c.OTP.Digits = 11 }},
		{"zero otp ttl", func(c *Config) { c.OTP.TTL = 0 }},
		{"negative otp cap", func(c *Config) { c.OTP.MaxRequests = -1 }},
		{"store timeout too small", func(c *Config) { c.StoreTimeout = 100 * time.Millisecond }},
		{"store timeout too large", func(c *Config) { c.StoreTimeout = time.Minute }},
		{"empty key prefix", func(c *Config) { c.Blacklist.KeyPrefix = "" }},
		{"negative retention margin", func(c *Config) { c.Blacklist.RetentionMargin = -time.Hour }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, client := newTestRedis(t)

			cfg := defaultConfig()
			cfg.JWT.Secret = []byte("unit-test-secret")
			tc.mutate(&cfg)

			_, err := New().WithConfig(cfg).WithRedis(client).Build()
			require.Error(t, err)
		})
	}
}
