package credkit

import (
	"errors"
	"time"
)

// Config groups the engine's configuration families. Zero values are filled
// from defaultConfig by the Builder; Build validates the result.
type Config struct {
	JWT          JWTConfig
	OTP          OTPConfig
	Blacklist    BlacklistConfig
	Email        EmailConfig
	Security     SecurityConfig
	StoreTimeout time.Duration
}

// JWTConfig configures the credential signer.
type JWTConfig struct {
	// Secret is the symmetric signing secret. Empty is fatal in production
	// mode; in permissive mode an ephemeral process-local secret is
	// generated instead, which invalidates all previously issued tokens on
	// restart and cannot validate tokens across instances.
	Secret        []byte
	SigningMethod string // "hs512" (default) or "hs256"
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// OTPConfig configures one-time-passcode challenges.
type OTPConfig struct {
	// Digits is the fixed code length. Codes are uniform random digits and
	// may carry leading zeros.
	Digits int
	// TTL bounds how long a challenge stays verifiable.
	TTL time.Duration
	// MaxRequests caps issuance per recipient within one TTL window. Zero
	// disables throttling.
	MaxRequests int
}

// BlacklistConfig configures the revocation store keyspace.
type BlacklistConfig struct {
	// KeyPrefix namespaces every Redis key written by the engine.
	KeyPrefix string
	// RetentionMargin extends how long revocation records outlive the
	// refresh TTL before the sweep may remove them.
	RetentionMargin time.Duration
}

// EmailConfig selects and configures the delivery transport. When MockMode
// is set the engine logs messages instead of delivering them; otherwise a
// provider APIKey is required before OTP issuance can work.
type EmailConfig struct {
	APIKey     string
	FromEmail  string
	FromName   string
	Endpoint   string
	MockMode   bool
	OTPSubject string
}

// SecurityConfig holds the startup-time security contract.
type SecurityConfig struct {
	// ProductionMode refuses ephemeral signing secrets and disables debug
	// operations such as PeekOTP.
	ProductionMode bool
}

// DefaultConfig returns the configuration the Builder starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs512",
			AccessTTL:     24 * time.Hour,
			RefreshTTL:    30 * 24 * time.Hour,
		},
		OTP: OTPConfig{
			Digits:      6,
			TTL:         10 * time.Minute,
			MaxRequests: 5,
		},
		Blacklist: BlacklistConfig{
			KeyPrefix:       "ck",
			RetentionMargin: 24 * time.Hour,
		},
		Email: EmailConfig{
			OTPSubject: "Your verification code",
		},
		StoreTimeout: 5 * time.Second,
	}
}

func (c *Config) validate() error {
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("invalid TTL configuration")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("otp digits must be between 4 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("otp ttl must be positive")
	}
	if c.OTP.MaxRequests < 0 {
		return errors.New("otp request cap must not be negative")
	}
	if c.StoreTimeout < time.Second || c.StoreTimeout > 30*time.Second {
		return errors.New("store timeout must be between 1s and 30s")
	}
	if c.Blacklist.KeyPrefix == "" {
		return errors.New("blacklist key prefix must not be empty")
	}
	if c.Blacklist.RetentionMargin < 0 {
		return errors.New("blacklist retention margin must not be negative")
	}
	return nil
}
