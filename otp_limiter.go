package credkit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles OTP issuance per recipient. CheckRequest returns
// ErrOTPRateLimited once the recipient has exhausted its window and nil when
// the request may proceed.
type RateLimiter interface {
	CheckRequest(ctx context.Context, recipient string) error
}

// otpLimiter is the Redis-backed RateLimiter: a fixed window per recipient,
// INCR the window counter, arm its expiry on first increment, reject above
// the cap.
type otpLimiter struct {
	rdb    *redis.Client
	prefix string
	max    int
	window time.Duration
}

func newOTPLimiter(rdb *redis.Client, prefix string, max int, window time.Duration) *otpLimiter {
	return &otpLimiter{rdb: rdb, prefix: prefix, max: max, window: window}
}

func (l *otpLimiter) key(recipient string) string {
	return l.prefix + ":otpl:" + recipient
}

func (l *otpLimiter) CheckRequest(ctx context.Context, recipient string) error {
	count, err := l.rdb.Incr(ctx, l.key(recipient)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, l.key(recipient), l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if count > int64(l.max) {
		return ErrOTPRateLimited
	}
	return nil
}
