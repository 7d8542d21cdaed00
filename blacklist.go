package credkit

import (
	"context"
	"time"

	"github.com/credkit/credkit/internal/cache"
	"github.com/credkit/credkit/store"
)

// Blacklist pairs the durable revocation store with an in-process membership
// cache. The durable store is authoritative; the cache only mirrors entries
// already confirmed durable and is discarded on restart. Writes always land
// in the durable store before the cache — the opposite order could lose a
// revocation on a crash while other processes never observed it.
type Blacklist struct {
	durable    store.RevocationStore
	membership *cache.Set
}

// NewBlacklist constructs a Blacklist over durable with the given membership
// cache. The cache is an explicitly injected component with process-wide
// lifetime, shared by everything that checks revocations in this process.
func NewBlacklist(durable store.RevocationStore, membership *cache.Set) *Blacklist {
	return &Blacklist{durable: durable, membership: membership}
}

// Add revokes tokenID with the given reason. Idempotent: revoking an
// already-revoked id is a no-op success.
func (b *Blacklist) Add(ctx context.Context, tokenID string, reason store.RevocationReason) error {
	_, err := b.AddIfAbsent(ctx, tokenID, reason)
	return err
}

// AddIfAbsent revokes tokenID and reports whether this call inserted the
// record. Rotation uses the single atomic insert-if-absent as both its
// precondition check and its write, so two racing rotations of the same
// token see exactly one true.
func (b *Blacklist) AddIfAbsent(ctx context.Context, tokenID string, reason store.RevocationReason) (bool, error) {
	inserted, err := b.durable.Insert(ctx, store.RevocationRecord{
		TokenID:    tokenID,
		RecordedAt: time.Now().UTC(),
		Reason:     reason,
	})
	if err != nil {
		return false, err
	}
	b.membership.Add(tokenID)
	return inserted, nil
}

// IsBlacklisted reports whether tokenID is revoked. Cache hits answer
// without touching the durable store; misses fall through and backfill the
// cache on a positive answer. There is no un-revoke, so a cached positive
// can never go stale.
func (b *Blacklist) IsBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	if b.membership.Contains(tokenID) {
		return true, nil
	}

	revoked, err := b.durable.Contains(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if revoked {
		b.membership.Add(tokenID)
	}
	return revoked, nil
}

// CleanupExpired removes durable records recorded before cutoff. The cache
// is left alone: it is bounded by process lifetime and entries for
// long-expired tokens are harmless.
func (b *Blacklist) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	return b.durable.CleanupExpired(ctx, cutoff)
}
