// Package redisstore implements the store contracts on Redis. It follows a
// fixed key layout under a configurable prefix:
//
//	<prefix>:bl:<tokenID>            revocation record
//	<prefix>:rt:<userID>             hash of refresh token ids
//	<prefix>:otp:<recipient>:<code>  one-time passcode challenge
//
// Records are encoded as versioned binary blobs. Every write carries a TTL so
// Redis itself bounds storage growth; the CleanupExpired sweeps remain
// advisory.
package redisstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/credkit/credkit/store"
	"github.com/redis/go-redis/v9"
)

const revocationRecordVersionV1 = 1

const (
	reasonByteLogout         = 1
	reasonByteRotated        = 2
	reasonByteUserRevokedAll = 3
)

// RevocationStore is the Redis-backed durable blacklist.
type RevocationStore struct {
	rdb       *redis.Client
	prefix    string
	retention time.Duration
}

// NewRevocationStore returns a RevocationStore writing under prefix.
// retention bounds how long a record is kept; it must cover the longest
// refresh-token lifetime so a revocation outlives every token it refers to.
func NewRevocationStore(rdb *redis.Client, prefix string, retention time.Duration) *RevocationStore {
	return &RevocationStore{rdb: rdb, prefix: prefix, retention: retention}
}

func (s *RevocationStore) key(tokenID string) string {
	return s.prefix + ":bl:" + tokenID
}

// Insert records rec unless its id is already present. SET NX makes the
// insert-if-absent a single atomic operation keyed by token id.
func (s *RevocationStore) Insert(ctx context.Context, rec store.RevocationRecord) (bool, error) {
	encoded, err := encodeRevocationRecord(rec)
	if err != nil {
		return false, err
	}

	inserted, err := s.rdb.SetNX(ctx, s.key(rec.TokenID), encoded, s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return inserted, nil
}

// Contains reports whether tokenID has a revocation record.
func (s *RevocationStore) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return n > 0, nil
}

// CleanupExpired scans the blacklist keyspace and deletes records recorded
// before cutoff, returning the number deleted.
func (s *RevocationStore) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := s.prefix + ":bl:*"

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

			rec, err := decodeRevocationRecord(data)
			if err != nil {
				// Unreadable records are removed rather than kept forever.
				if delErr := s.rdb.Del(ctx, key).Err(); delErr != nil {
					return removed, fmt.Errorf("%w: %v", store.ErrUnavailable, delErr)
				}
				removed++
				continue
			}

			if rec.RecordedAt.Before(cutoff) {
				if err := s.rdb.Del(ctx, key).Err(); err != nil {
					return removed, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func encodeRevocationRecord(rec store.RevocationRecord) ([]byte, error) {
	reason, err := reasonToByte(rec.Reason)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(revocationRecordVersionV1)
	buf.WriteByte(reason)
	if err := binary.Write(&buf, binary.BigEndian, rec.RecordedAt.Unix()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRevocationRecord(data []byte) (store.RevocationRecord, error) {
	var rec store.RevocationRecord

	reader := bytes.NewReader(data)
	version, err := reader.ReadByte()
	if err != nil {
		return rec, err
	}
	if version != revocationRecordVersionV1 {
		return rec, errors.New("invalid revocation record version")
	}

	reasonByte, err := reader.ReadByte()
	if err != nil {
		return rec, err
	}
	reason, err := byteToReason(reasonByte)
	if err != nil {
		return rec, err
	}

	var recordedAt int64
	if err := binary.Read(reader, binary.BigEndian, &recordedAt); err != nil {
		return rec, err
	}

	rec.Reason = reason
	rec.RecordedAt = time.Unix(recordedAt, 0).UTC()
	return rec, nil
}

func reasonToByte(reason store.RevocationReason) (byte, error) {
	switch reason {
	case store.ReasonLogout:
		return reasonByteLogout, nil
	case store.ReasonRotated:
		return reasonByteRotated, nil
	case store.ReasonUserRevokedAll:
		return reasonByteUserRevokedAll, nil
	default:
		return 0, errors.New("unknown revocation reason")
	}
}

func byteToReason(b byte) (store.RevocationReason, error) {
	switch b {
	case reasonByteLogout:
		return store.ReasonLogout, nil
	case reasonByteRotated:
		return store.ReasonRotated, nil
	case reasonByteUserRevokedAll:
		return store.ReasonUserRevokedAll, nil
	default:
		return "", errors.New("unknown revocation reason byte")
	}
}
