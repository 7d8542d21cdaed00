package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/credkit/credkit/store"
)

// RevocationStore is the Postgres-backed durable blacklist.
type RevocationStore struct {
	db DBTX
}

// NewRevocationStore constructs a RevocationStore bound to db.
func NewRevocationStore(db DBTX) *RevocationStore {
	return &RevocationStore{db: db}
}

// Insert records rec unless the token id is already present. ON CONFLICT DO
// NOTHING makes the insert-if-absent a single atomic statement.
func (s *RevocationStore) Insert(ctx context.Context, rec store.RevocationRecord) (bool, error) {
	query := `
		INSERT INTO revoked_tokens (token_id, recorded_at, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, rec.TokenID, rec.RecordedAt, string(rec.Reason))
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return affected > 0, nil
}

// Contains reports whether tokenID has a revocation record.
func (s *RevocationStore) Contains(ctx context.Context, tokenID string) (bool, error) {
	query := `
		SELECT 1
		FROM revoked_tokens
		WHERE token_id = $1
	`
	var one int
	if err := s.db.QueryRowContext(ctx, query, tokenID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return true, nil
}

// CleanupExpired deletes records recorded before cutoff.
func (s *RevocationStore) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM revoked_tokens
		WHERE recorded_at < $1
	`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return int(affected), nil
}
