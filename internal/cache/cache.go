// SPDX-License-Identifier: MIT

// Package cache provides a TTL-bounded store for provider responses.
package cache

import (
	"sync"
	"time"
)

// Store provides thread-safe caching of raw response payloads with a fixed TTL.
// All implementations share the same contract: a write unconditionally
// overwrites the previous value for the key, and a stale entry behaves exactly
// like a missing one.
type Store interface {
	// Get retrieves a value. The second return is false when the key is
	// absent or its entry has outlived the store TTL.
	Get(key string) ([]byte, bool)
	// Set stores a value, overwriting any prior entry for the key.
	Set(key string, value []byte)
	// Delete removes a value.
	Delete(key string)
	// Clear removes all values.
	Clear()
	// Stats returns store counters.
	Stats() Stats
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64 // successful Get operations
	Misses      int64 // failed Get operations (absent or stale)
	Sets        int64 // Set operations
	Evictions   int64 // stale entries removed on read
	CurrentSize int   // current number of entries
}

type entry struct {
	value    []byte
	storedAt time.Time
}

// memoryStore is the in-memory implementation of Store.
// Stale entries are evicted lazily by the read that discovers them; there is
// no background sweep.
type memoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]*entry
	stats   Stats
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store whose entries expire ttl after
// they are written.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		ttl:     ttl,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// NewMemoryStoreWithClock is NewMemoryStore with an injectable clock, for
// deterministic TTL tests.
func NewMemoryStoreWithClock(ttl time.Duration, now func() time.Time) Store {
	return &memoryStore{
		ttl:     ttl,
		entries: make(map[string]*entry),
		now:     now,
	}
}

func (s *memoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[key]
	if !found {
		s.stats.Misses++
		return nil, false
	}
	if s.now().Sub(e.storedAt) >= s.ttl {
		delete(s.entries, key)
		s.stats.Evictions++
		s.stats.Misses++
		return nil, false
	}
	s.stats.Hits++
	return e.value, true
}

func (s *memoryStore) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{value: value, storedAt: s.now()}
	s.stats.Sets++
}

func (s *memoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *memoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

func (s *memoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.CurrentSize = len(s.entries)
	return stats
}

// NewNoOpStore creates a store that caches nothing. Useful for disabling
// caching without branching at call sites.
func NewNoOpStore() Store {
	return &noOpStore{}
}

type noOpStore struct{}

func (s *noOpStore) Get(key string) ([]byte, bool) { return nil, false }
func (s *noOpStore) Set(key string, value []byte)  {}
func (s *noOpStore) Delete(key string)             {}
func (s *noOpStore) Clear()                        {}
func (s *noOpStore) Stats() Stats                  { return Stats{} }
