package cache

import (
	"log/slog"
	"sync"
	"time"
)

// entry is a cached value with its expiry instant.
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// TTLCache is a thread-safe in-process cache with per-entry expiry. The
// reservation engine uses it as the fast path in front of the durable
// idempotency table, and the in-memory session store uses it as its backing
// map.
type TTLCache struct {
	mu      sync.RWMutex
	items   map[string]entry
	ttl     time.Duration
	ticker  *time.Ticker
	stopped chan struct{}
}

// NewTTLCache creates a cache whose entries live for ttl and are purged on
// the given cleanup interval.
func NewTTLCache(ttl, cleanupInterval time.Duration) *TTLCache {
	c := &TTLCache{
		items:   make(map[string]entry),
		ttl:     ttl,
		ticker:  time.NewTicker(cleanupInterval),
		stopped: make(chan struct{}),
	}
	go c.cleanupLoop()

	slog.Info("TTL cache initialized",
		"ttl", ttl.String(),
		"cleanup_interval", cleanupInterval.String())
	return c
}

// Set stores a value under key with the cache-wide TTL.
func (c *TTLCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with an explicit lifetime, overriding the
// cache-wide TTL for this entry.
func (c *TTLCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Get returns the value for key when present and not yet expired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Delete removes key from the cache.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// ActiveSize returns the number of non-expired entries.
func (c *TTLCache) ActiveSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	active := 0
	for _, e := range c.items {
		if now.Before(e.expiresAt) {
			active++
		}
	}
	return active
}

// Stats returns cache statistics for diagnostics endpoints.
func (c *TTLCache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	active := 0
	for _, e := range c.items {
		if now.Before(e.expiresAt) {
			active++
		}
	}
	return map[string]interface{}{
		"total_entries":  len(c.items),
		"active_entries": active,
		"ttl_duration":   c.ttl.String(),
	}
}

// Stop halts the cleanup goroutine.
func (c *TTLCache) Stop() {
	c.ticker.Stop()
	close(c.stopped)
	slog.Debug("TTL cache stopped")
}

func (c *TTLCache) cleanupLoop() {
	for {
		select {
		case <-c.ticker.C:
			c.purgeExpired()
		case <-c.stopped:
			return
		}
	}
}

func (c *TTLCache) purgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("TTL cache cleanup completed",
			"removed", removed,
			"remaining", len(c.items))
	}
}
