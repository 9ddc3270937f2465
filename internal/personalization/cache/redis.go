package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"intelligence-workers/internal/common/logger"
	"intelligence-workers/internal/common/metrics"
	"intelligence-workers/internal/personalization"

	"github.com/redis/go-redis/v9"
)

const backendRedis = "redis"

// RedisCache shares results across worker replicas. Entries are stored as
// JSON with a server-side expiry; unreachable Redis or undecodable payloads
// are reported as misses so the engine recomputes.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration, log logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &RedisCache{client: client, ttl: ttl, logger: log, now: time.Now}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*personalization.PersonalizedImpact, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.ResultCacheLookups.WithLabelValues(backendRedis, "error").Inc()
			c.logger.Warn("result cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
			return nil, false
		}
		metrics.ResultCacheLookups.WithLabelValues(backendRedis, "miss").Inc()
		return nil, false
	}

	var entry personalization.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Result == nil {
		metrics.ResultCacheLookups.WithLabelValues(backendRedis, "error").Inc()
		c.logger.Warn("discarding corrupt result cache entry", map[string]interface{}{"key": key})
		return nil, false
	}
	// redis expiry is authoritative, but a TTL shortened since the write still applies
	if entry.Expired(c.now(), c.ttl) {
		metrics.ResultCacheLookups.WithLabelValues(backendRedis, "miss").Inc()
		return nil, false
	}

	metrics.ResultCacheLookups.WithLabelValues(backendRedis, "hit").Inc()
	return entry.Result, true
}

func (c *RedisCache) Put(ctx context.Context, key string, result *personalization.PersonalizedImpact) {
	if result == nil {
		return
	}
	data, err := json.Marshal(personalization.CacheEntry{Key: key, Result: result, CachedAt: c.now().UTC()})
	if err != nil {
		c.logger.Warn("result cache encode failed", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("result cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

var _ personalization.ResultCache = (*RedisCache)(nil)
