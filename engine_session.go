package credkit

import (
	"context"
	"time"

	"github.com/credkit/credkit/store"
	"github.com/credkit/credkit/token"
)

// IssuePair mints an access/refresh token pair for subject and records the
// refresh token id in the per-user index.
func (e *Engine) IssuePair(ctx context.Context, subject string) (TokenPair, error) {
	if subject == "" {
		return TokenPair{}, ErrInvalidSubject
	}

	access, accessClaims, err := e.signer.Mint(subject, token.TypeAccess, e.config.JWT.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshClaims, err := e.signer.Mint(subject, token.TypeRefresh, e.config.JWT.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	rec := store.RefreshRecord{
		TokenID:   refreshClaims.ID,
		UserID:    subject,
		CreatedAt: refreshClaims.IssuedAt.Time,
	}
	if err := e.refreshTokens.Save(sctx, rec, e.config.JWT.RefreshTTL+e.config.Blacklist.RetentionMargin); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// Verify checks raw against the expected type and returns its claims.
//
// Revocation policy: only refresh tokens are individually revocable. Access
// tokens are short-lived and verified purely from their signature and
// expiry, keeping the hot path free of store lookups; invalidating a user's
// access immediately means revoking their refresh tokens and waiting out the
// access TTL.
func (e *Engine) Verify(ctx context.Context, raw string, expected TokenType) (*Claims, error) {
	claims, err := e.signer.Verify(raw, expected)
	if err != nil {
		return nil, err
	}

	if expected == TypeRefresh {
		sctx, cancel := e.storeCtx(ctx)
		defer cancel()

		revoked, err := e.blacklist.IsBlacklisted(sctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Rotate exchanges a valid refresh token for a fresh pair, invalidating the
// presented token. The presented id is claimed with a single atomic
// insert-if-absent: if the id is already blacklisted the exchange fails with
// ErrTokenRevoked. A replay of an already-rotated token lands exactly here,
// which is how stolen-and-reused refresh tokens are detected.
func (e *Engine) Rotate(ctx context.Context, rawRefresh string) (TokenPair, error) {
	claims, err := e.signer.Verify(rawRefresh, token.TypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	inserted, err := e.blacklist.AddIfAbsent(sctx, claims.ID, store.ReasonRotated)
	if err != nil {
		return TokenPair{}, err
	}
	if !inserted {
		e.log.Warn().
			Str("subject", claims.Subject).
			Str("token_id", claims.ID).
			Msg("credkit: refresh token replay rejected")
		return TokenPair{}, ErrTokenRevoked
	}

	// The old token is already dead; a failure past this point fails
	// closed and the client must authenticate again.
	pair, err := e.IssuePair(ctx, claims.Subject)
	if err != nil {
		e.log.Error().
			Str("subject", claims.Subject).
			Err(err).
			Msg("credkit: rotation failed after revoking the presented token")
		return TokenPair{}, err
	}
	return pair, nil
}

// Logout revokes the presented refresh token. Revoking an already-revoked
// token succeeds.
func (e *Engine) Logout(ctx context.Context, rawRefresh string) error {
	claims, err := e.signer.Verify(rawRefresh, token.TypeRefresh)
	if err != nil {
		return err
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	return e.blacklist.Add(sctx, claims.ID, store.ReasonLogout)
}

// RevokeAllForUser blacklists every refresh token id recorded for subject.
// The per-id writes are independently idempotent, so a partial failure is
// safely retried by calling again; there is no cross-record atomicity.
func (e *Engine) RevokeAllForUser(ctx context.Context, subject string) error {
	if subject == "" {
		return ErrInvalidSubject
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	records, err := e.refreshTokens.ListByUser(sctx, subject)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if err := e.blacklist.Add(sctx, rec.TokenID, store.ReasonUserRevokedAll); err != nil {
			return err
		}
	}
	return nil
}

// CleanupExpired sweeps revocation records whose token would have expired on
// calendar grounds and OTP challenges past expiry, returning the total
// removed. Housekeeping only: correctness never depends on the sweep.
func (e *Engine) CleanupExpired(ctx context.Context) (int, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	cutoff := time.Now().Add(-e.config.JWT.RefreshTTL - e.config.Blacklist.RetentionMargin)
	removed, err := e.blacklist.CleanupExpired(sctx, cutoff)
	if err != nil {
		return removed, err
	}

	otpRemoved, err := e.otps.CleanupExpired(sctx, time.Now())
	if err != nil {
		return removed, err
	}
	return removed + otpRemoved, nil
}
