package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the fallback Store used when Redis is not configured.
// Sufficient for a single replica; markers die with the process.
type MemoryStore struct {
	mu      sync.Mutex
	locks   map[string]time.Time
	records map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:   make(map[string]time.Time),
		records: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, held := s.locks[key]; held && time.Now().Before(deadline) {
		return false, nil
	}

	s.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (s *MemoryStore) Unlock(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, key)
	return nil
}

func (s *MemoryStore) Seen(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.records[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(s.records, key)
		return false, nil
	}

	return true, nil
}

func (s *MemoryStore) MarkSeen(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = time.Now().Add(ttl)
	return nil
}

// Cleanup drops expired markers and locks. Run runs it periodically.
func (s *MemoryStore) Cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, deadline := range s.records {
		if now.After(deadline) {
			delete(s.records, key)
		}
	}
	for key, deadline := range s.locks {
		if now.After(deadline) {
			delete(s.locks, key)
		}
	}
}

// Run sweeps expired entries until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}
