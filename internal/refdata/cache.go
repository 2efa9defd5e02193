package refdata

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/logger"
	"github.com/jmehdipour/judgment-gateway/internal/metrics"
)

const cacheKeyPrefix = "jgw:court-code:"

// Cache is the key/value store behind CachingResolver.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// CachingResolver caches successful lookups only. Unrecognised sites are
// re-checked every time so a newly configured site is picked up at once.
// Cache failures degrade to a direct lookup.
type CachingResolver struct {
	next  CourtCodeResolver
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachingResolver(next CourtCodeResolver, cache Cache, ttl time.Duration, log *zap.Logger) *CachingResolver {
	return &CachingResolver{next: next, cache: cache, ttl: ttl, log: logger.OrNop(log)}
}

var _ CourtCodeResolver = (*CachingResolver)(nil)

func (r *CachingResolver) Resolve(ctx context.Context, siteID string) (string, error) {
	key := cacheKeyPrefix + siteID

	code, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("court code cache read failed", zap.String("site", siteID), zap.Error(err))
	} else if ok {
		metrics.RefDataLookupsTotal.WithLabelValues("hit").Inc()
		return code, nil
	}

	code, err = r.next.Resolve(ctx, siteID)
	if err != nil {
		return "", err
	}

	if err := r.cache.Set(ctx, key, code, r.ttl); err != nil {
		r.log.Warn("court code cache write failed", zap.String("site", siteID), zap.Error(err))
	}

	return code, nil
}
