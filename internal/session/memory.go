package session

import (
	"context"
	"log/slog"
	"time"

	"inventory-reservation-api/internal/cache"
)

// MemoryStore keeps checkout sessions in a TTL cache. Suitable for a single
// worker process and for tests; multi-worker deployments use RedisStore.
type MemoryStore struct {
	cache *cache.TTLCache
}

// NewMemoryStore creates an in-memory session store with the given TTL.
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	slog.Info("In-memory session store initialized", "ttl", ttl.String())
	return &MemoryStore{cache: cache.NewTTLCache(ttl, cleanupInterval)}
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*CheckoutSession, bool, error) {
	v, ok := m.cache.Get(sessionID)
	if !ok {
		return nil, false, nil
	}
	s, ok := v.(*CheckoutSession)
	if !ok {
		return nil, false, nil
	}
	return s, true, nil
}

func (m *MemoryStore) Put(ctx context.Context, s *CheckoutSession) error {
	m.cache.Set(s.SessionID, s)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.cache.Delete(sessionID)
	return nil
}

// Stop halts the backing cache's cleanup goroutine.
func (m *MemoryStore) Stop() {
	m.cache.Stop()
}
