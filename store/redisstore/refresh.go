package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/credkit/credkit/store"
	"github.com/redis/go-redis/v9"
)

// RefreshTokenStore indexes refresh token ids per user in a Redis hash. The
// hash expires a full refresh lifetime after the most recent save, so ids
// age out together with the last token that could still reference them.
type RefreshTokenStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRefreshTokenStore returns a RefreshTokenStore writing under prefix.
func NewRefreshTokenStore(rdb *redis.Client, prefix string) *RefreshTokenStore {
	return &RefreshTokenStore{rdb: rdb, prefix: prefix}
}

func (s *RefreshTokenStore) key(userID string) string {
	return s.prefix + ":rt:" + userID
}

// Save records rec in the user's index and refreshes the index TTL.
func (s *RefreshTokenStore) Save(ctx context.Context, rec store.RefreshRecord, ttl time.Duration) error {
	key := s.key(rec.UserID)

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, rec.TokenID, strconv.FormatInt(rec.CreatedAt.Unix(), 10))
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// ListByUser returns every refresh id still present in the user's index.
func (s *RefreshTokenStore) ListByUser(ctx context.Context, userID string) ([]store.RefreshRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	records := make([]store.RefreshRecord, 0, len(fields))
	for tokenID, created := range fields {
		createdAt, err := strconv.ParseInt(created, 10, 64)
		if err != nil {
			continue
		}
		records = append(records, store.RefreshRecord{
			TokenID:   tokenID,
			UserID:    userID,
			CreatedAt: time.Unix(createdAt, 0).UTC(),
		})
	}
	return records, nil
}
