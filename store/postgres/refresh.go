package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/credkit/credkit/store"
)

// RefreshTokenStore is the Postgres-backed per-user refresh id index.
type RefreshTokenStore struct {
	db DBTX
}

// NewRefreshTokenStore constructs a RefreshTokenStore bound to db.
func NewRefreshTokenStore(db DBTX) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

// Save records rec with an expiry of CreatedAt+ttl. Saving an id twice is a
// no-op; ids are immutable once recorded.
func (s *RefreshTokenStore) Save(ctx context.Context, rec store.RefreshRecord, ttl time.Duration) error {
	query := `
		INSERT INTO refresh_tokens (token_id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, rec.TokenID, rec.UserID, rec.CreatedAt, rec.CreatedAt.Add(ttl))
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// ListByUser returns every not-yet-expired refresh id recorded for userID.
func (s *RefreshTokenStore) ListByUser(ctx context.Context, userID string) ([]store.RefreshRecord, error) {
	query := `
		SELECT token_id, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND expires_at > $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	defer rows.Close()

	var records []store.RefreshRecord
	for rows.Next() {
		rec := store.RefreshRecord{UserID: userID}
		if err := rows.Scan(&rec.TokenID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return records, nil
}
