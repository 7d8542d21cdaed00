package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/credkit/credkit/store"
)

// OTPStore is the Postgres-backed one-time-passcode store.
type OTPStore struct {
	db DBTX
}

// NewOTPStore constructs an OTPStore bound to db.
func NewOTPStore(db DBTX) *OTPStore {
	return &OTPStore{db: db}
}

// Save persists ch. Prior challenges for the same recipient are untouched.
func (s *OTPStore) Save(ctx context.Context, ch store.OTPChallenge) error {
	query := `
		INSERT INTO otp_challenges (id, recipient, code, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, ch.ID, ch.Recipient, ch.Code, ch.CreatedAt, ch.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// Consume deletes any non-expired challenge matching recipient and code in a
// single statement, so at most one verification attempt can succeed per
// stored challenge.
func (s *OTPStore) Consume(ctx context.Context, recipient, code string, now time.Time) (bool, error) {
	query := `
		DELETE FROM otp_challenges
		WHERE recipient = $1 AND code = $2 AND expires_at > $3
	`
	res, err := s.db.ExecContext(ctx, query, recipient, code, now)
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return affected > 0, nil
}

// Latest returns the most recently created challenge for recipient, or nil.
func (s *OTPStore) Latest(ctx context.Context, recipient string) (*store.OTPChallenge, error) {
	query := `
		SELECT id, code, created_at, expires_at
		FROM otp_challenges
		WHERE recipient = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	ch := store.OTPChallenge{Recipient: recipient}
	err := s.db.QueryRowContext(ctx, query, recipient).Scan(&ch.ID, &ch.Code, &ch.CreatedAt, &ch.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return &ch, nil
}

// CleanupExpired deletes challenges past their expiry.
func (s *OTPStore) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		DELETE FROM otp_challenges
		WHERE expires_at <= $1
	`
	res, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return int(affected), nil
}
