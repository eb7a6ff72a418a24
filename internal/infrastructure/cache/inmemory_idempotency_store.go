package cache

import (
	"context"
	"time"

	"github.com/freightport/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore keeps processed keys in process memory. It does
// not share state across instances.
type InMemoryIdempotencyStore struct {
	m *ttlMap
}

// NewInMemoryIdempotencyStore creates a store and starts its sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{m: newTTLMap()}
}

// MarkProcessed records key and reports whether it was not already recorded
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.m.setIfAbsent(key, "1", ttl), nil
}

// IsProcessed reports whether key is recorded and not expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	_, ok := s.m.get(key)
	return ok, nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.m.close()
	return nil
}

// Size returns the number of stored keys, expired ones included until swept
func (s *InMemoryIdempotencyStore) Size() int {
	return s.m.size()
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.m.sweep()
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
