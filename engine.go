package credkit

import (
	"context"

	"github.com/credkit/credkit/email"
	"github.com/credkit/credkit/store"
	"github.com/credkit/credkit/token"
	"github.com/rs/zerolog"
)

// Engine orchestrates the credential lifecycle: token issuance and
// verification, refresh rotation with revocation, bulk user revocation, and
// the OTP challenge-response flow. An Engine is immutable after Build and
// safe for concurrent use; concurrency comes entirely from the hosting
// network layer, the engine holds no request queue of its own.
type Engine struct {
	config        Config
	log           zerolog.Logger
	signer        *token.Signer
	blacklist     *Blacklist
	refreshTokens store.RefreshTokenStore
	otps          store.OTPStore
	otpLimiter    RateLimiter
	accounts      AccountStore
	hasher        PasswordHasher
	sender        email.Sender
}

// Blacklist exposes the engine's revocation component for callers that need
// direct membership checks, e.g. middleware applying a stricter policy.
func (e *Engine) Blacklist() *Blacklist {
	return e.blacklist
}

// storeCtx bounds a durable-store operation with the configured timeout.
// A timed-out write is treated as failed, never as ambiguous success.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.StoreTimeout)
}
