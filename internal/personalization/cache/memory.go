// Package cache holds the ResultCache backends used by the personalization engine.
package cache

import (
	"context"
	"sync"
	"time"

	"intelligence-workers/internal/common/metrics"
	"intelligence-workers/internal/personalization"
)

const backendMemory = "memory"

// DefaultTTL is how long a computed result stays fresh.
const DefaultTTL = 4 * time.Hour

// MemoryCache is a process-local ResultCache. Expired entries are treated as
// absent on read and swept on write. Values are copied in and out, so callers
// may modify what they get back.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]personalization.CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

func NewMemoryCache(ttl time.Duration, opts ...MemoryOption) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &MemoryCache{
		entries: make(map[string]personalization.CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (*personalization.PersonalizedImpact, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.Expired(c.now(), c.ttl) {
		metrics.ResultCacheLookups.WithLabelValues(backendMemory, "miss").Inc()
		return nil, false
	}
	metrics.ResultCacheLookups.WithLabelValues(backendMemory, "hit").Inc()
	return entry.Result.Clone(), true
}

func (c *MemoryCache) Put(_ context.Context, key string, result *personalization.PersonalizedImpact) {
	if result == nil {
		return
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if e.Expired(now, c.ttl) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = personalization.CacheEntry{Key: key, Result: result.Clone(), CachedAt: now}
}

// Len reports the number of stored entries, fresh or not yet swept.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ personalization.ResultCache = (*MemoryCache)(nil)
