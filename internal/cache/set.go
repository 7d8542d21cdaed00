// Package cache provides the in-process membership cache that fronts the
// durable revocation store. The cache is a performance accelerant only: it is
// monotonic-append within a process lifetime, discarded on restart, and never
// the sole record of a revocation.
package cache

import "sync"

// Set is a concurrency-safe string membership set.
type Set struct {
	mu      sync.RWMutex
	members map[string]struct{}
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{members: make(map[string]struct{})}
}

// Add records id as a member. Adding an existing member is a no-op.
func (s *Set) Add(id string) {
	s.mu.Lock()
	s.members[id] = struct{}{}
	s.mu.Unlock()
}

// Contains reports whether id is a member.
func (s *Set) Contains(id string) bool {
	s.mu.RLock()
	_, ok := s.members[id]
	s.mu.RUnlock()
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	s.mu.RLock()
	n := len(s.members)
	s.mu.RUnlock()
	return n
}

// Reset discards all members. Entries are never removed individually: there
// is no un-revoke, so the set only grows or is reset wholesale.
func (s *Set) Reset() {
	s.mu.Lock()
	s.members = make(map[string]struct{})
	s.mu.Unlock()
}
