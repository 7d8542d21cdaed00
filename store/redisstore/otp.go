package redisstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/credkit/credkit/store"
	"github.com/redis/go-redis/v9"
)

const otpRecordVersionV1 = 1

// otpGCMargin keeps an expired record around briefly so Consume's own time
// check, not Redis eviction, is the authority on expiry.
const otpGCMargin = time.Minute

// OTPStore persists one-time passcodes keyed by recipient and code.
type OTPStore struct {
	rdb    *redis.Client
	prefix string
}

// NewOTPStore returns an OTPStore writing under prefix.
func NewOTPStore(rdb *redis.Client, prefix string) *OTPStore {
	return &OTPStore{rdb: rdb, prefix: prefix}
}

func (s *OTPStore) key(recipient, code string) string {
	return s.prefix + ":otp:" + recipient + ":" + code
}

// Save persists ch. Prior challenges for the same recipient are untouched.
func (s *OTPStore) Save(ctx context.Context, ch store.OTPChallenge) error {
	encoded, err := encodeOTPChallenge(ch)
	if err != nil {
		return err
	}

	ttl := time.Until(ch.ExpiresAt) + otpGCMargin
	if ttl < time.Second {
		ttl = time.Second
	}

	if err := s.rdb.Set(ctx, s.key(ch.Recipient, ch.Code), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// Consume deletes the challenge matching recipient and code in one GETDEL,
// then applies the expiry check. The delete-first order makes the code
// single-use even under concurrent verification attempts: only one caller
// observes the record.
func (s *OTPStore) Consume(ctx context.Context, recipient, code string, now time.Time) (bool, error) {
	data, err := s.rdb.GetDel(ctx, s.key(recipient, code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	ch, err := decodeOTPChallenge(data)
	if err != nil {
		return false, nil
	}
	return ch.ExpiresAt.After(now), nil
}

// Latest returns the most recently created outstanding challenge for
// recipient, or nil when there is none.
func (s *OTPStore) Latest(ctx context.Context, recipient string) (*store.OTPChallenge, error) {
	var (
		cursor uint64
		latest *store.OTPChallenge
	)
	pattern := s.prefix + ":otp:" + recipient + ":*"

	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}

		for _, key := range keys {
			data, err := s.rdb.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
			}
			ch, err := decodeOTPChallenge(data)
			if err != nil {
				continue
			}
			if latest == nil || ch.CreatedAt.After(latest.CreatedAt) {
				latest = &ch
			}
		}

		cursor = next
		if cursor == 0 {
			return latest, nil
		}
	}
}

// CleanupExpired removes challenges already past expiry and returns the
// number removed.
func (s *OTPStore) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := s.prefix + ":otp:*"

	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}

		for _, key := range keys {
			data, err := s.rdb.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return removed, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
			}
			ch, err := decodeOTPChallenge(data)
			if err == nil && ch.ExpiresAt.After(now) {
				continue
			}
			if err := s.rdb.Del(ctx, key).Err(); err != nil {
				return removed, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
			}
			removed++
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func encodeOTPChallenge(ch store.OTPChallenge) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(otpRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, ch.CreatedAt.Unix()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, ch.ExpiresAt.Unix()); err != nil {
		return nil, err
	}
	for _, field := range []string{ch.ID, ch.Recipient, ch.Code} {
		if len(field) > 65535 {
			return nil, errors.New("otp challenge field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}
	return buf.Bytes(), nil
}

func decodeOTPChallenge(data []byte) (store.OTPChallenge, error) {
	var ch store.OTPChallenge

	reader := bytes.NewReader(data)
	version, err := reader.ReadByte()
	if err != nil {
		return ch, err
	}
	if version != otpRecordVersionV1 {
		return ch, errors.New("invalid otp record version")
	}

	var createdAt, expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return ch, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return ch, err
	}

	fields := make([]string, 3)
	for i := range fields {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return ch, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return ch, err
		}
		fields[i] = string(raw)
	}

	ch.ID, ch.Recipient, ch.Code = fields[0], fields[1], fields[2]
	ch.CreatedAt = time.Unix(createdAt, 0).UTC()
	ch.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return ch, nil
}
