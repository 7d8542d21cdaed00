// Package store defines the durable persistence contracts for the credential
// lifecycle: the revocation record set, the active refresh-token index, and
// the one-time-passcode challenges. Implementations live in the redisstore
// and postgres subpackages; the durable store is always the cross-process
// source of truth.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps any connectivity or timeout failure of a durable
// store. Callers treat it as retryable and never as ambiguous success.
var ErrUnavailable = errors.New("store unavailable")

// RevocationReason records why a token id was revoked.
type RevocationReason string

const (
	// ReasonLogout marks an id revoked by an explicit logout.
	ReasonLogout RevocationReason = "logout"
	// ReasonRotated marks the previous id of a successful rotation.
	ReasonRotated RevocationReason = "rotated"
	// ReasonUserRevokedAll marks ids swept by a bulk user revocation.
	ReasonUserRevokedAll RevocationReason = "user_revoked_all"
)

// RevocationRecord marks a token id permanently invalid. Records are never
// mutated and there is no un-revoke; they may be garbage-collected once the
// underlying token would have expired anyway.
type RevocationRecord struct {
	TokenID    string
	RecordedAt time.Time
	Reason     RevocationReason
}

// RevocationStore is the durable blacklist.
type RevocationStore interface {
	// Insert atomically records rec unless its token id is already present.
	// It returns true when this call inserted the record and false when the
	// id was already revoked. This single insert-if-absent operation is the
	// guard that closes the concurrent double-rotation race: two racing
	// rotations of the same token see exactly one true.
	Insert(ctx context.Context, rec RevocationRecord) (bool, error)

	// Contains reports whether tokenID has been revoked.
	Contains(ctx context.Context, tokenID string) (bool, error)

	// CleanupExpired removes records recorded before cutoff and returns the
	// number removed. Advisory housekeeping only: expired tokens already
	// fail signature-level expiry checks, the sweep just bounds growth.
	CleanupExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// RefreshRecord tracks one active (or superseded, until natural expiry)
// refresh token id for a user.
type RefreshRecord struct {
	TokenID   string
	UserID    string
	CreatedAt time.Time
}

// RefreshTokenStore is the per-user index of refresh token ids, consulted by
// bulk revocation.
type RefreshTokenStore interface {
	// Save records a freshly minted or rotated-in refresh token id.
	Save(ctx context.Context, rec RefreshRecord, ttl time.Duration) error

	// ListByUser returns every recorded refresh id for userID, including
	// already-rotated ids that have not yet aged out. Re-blacklisting those
	// is an idempotent no-op.
	ListByUser(ctx context.Context, userID string) ([]RefreshRecord, error)
}

// OTPChallenge is a single outstanding one-time passcode. Multiple
// challenges may coexist for the same recipient.
type OTPChallenge struct {
	ID        string
	Recipient string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// OTPStore persists time-boxed single-use codes keyed by recipient.
type OTPStore interface {
	Save(ctx context.Context, ch OTPChallenge) error

	// Consume atomically matches a non-expired challenge for recipient with
	// the submitted code and deletes it. It returns true exactly once per
	// stored challenge; a wrong code, an expired code, and an unknown
	// recipient are indistinguishable false results. An implementation may
	// delete the addressed challenge even when the miss is an expiry miss
	// (Redis does, Postgres leaves the row for the sweep), so Latest and
	// CleanupExpired observations after a miss differ between backends.
	Consume(ctx context.Context, recipient, code string, now time.Time) (bool, error)

	// Latest returns the most recently created outstanding challenge for
	// recipient, or nil when none exists. Debug use only.
	Latest(ctx context.Context, recipient string) (*OTPChallenge, error)

	// CleanupExpired removes challenges whose expiry precedes now and
	// returns the number removed. Expired codes fail Consume's time check
	// even when not yet removed.
	CleanupExpired(ctx context.Context, now time.Time) (int, error)
}
