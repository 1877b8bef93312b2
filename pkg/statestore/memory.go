package statestore

import (
	"context"
	"sync"
	"time"

	"github.com/soctierzero/soc-onboarding/pkg/metrics"
)

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// MemoryStore keeps state tokens in process memory. Fine for a single
// instance; use the Redis store when running more than one replica.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, state string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	s.entries[state] = memoryEntry{entry: entry, expiresAt: s.now().Add(s.ttl)}
	metrics.StateTokensActive.Set(float64(len(s.entries)))
	return nil
}

func (s *MemoryStore) Take(_ context.Context, state string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	stored, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	metrics.StateTokensActive.Set(float64(len(s.entries)))
	if !ok {
		return Entry{}, false, nil
	}
	return stored.entry, true, nil
}

// caller holds the lock
func (s *MemoryStore) evictExpired() {
	now := s.now()
	for state, stored := range s.entries {
		if now.After(stored.expiresAt) {
			delete(s.entries, state)
		}
	}
}
