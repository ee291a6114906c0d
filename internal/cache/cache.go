// Package cache fronts POI-catalog lookups (CachingCatalog) with a
// Redis-backed layer; routing-provider lookups are not cached. The cache is opaque to the core: a miss or a
// down Redis never fails a request, it just falls through to the
// provider.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"planengine/internal/config"
	"planengine/internal/models"
	"planengine/internal/providers"
)

// Cache is a best-effort typed cache. Get returning (false, nil) means a
// clean miss; callers always fall through to the authoritative source.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// redisCache wraps a go-redis client.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis client with connection pooling and
// verifies connectivity before returning.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &redisCache{client: client, ttl: cfg.TTL}, nil
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache: unmarshal %q: %w", key, err)
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		return nil
	}
	return nil
}

// HealthCheck pings the underlying Redis client.
func HealthCheck(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx).Err()
}

// NullCache is a no-op Cache used when Redis is unavailable or disabled;
// every Get is a miss and every Set is a no-op.
type NullCache struct{}

func (NullCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (NullCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

// CachingCatalog fronts a providers.POICatalog with a best-effort cache
// keyed on the POI id. A cache miss or lookup error always falls
// through to the underlying catalog; the catalog remains the system of
// record.
type CachingCatalog struct {
	catalog providers.POICatalog
	cache   Cache
}

// NewCachingCatalog wraps catalog with cache.
func NewCachingCatalog(catalog providers.POICatalog, c Cache) *CachingCatalog {
	return &CachingCatalog{catalog: catalog, cache: c}
}

func (c *CachingCatalog) Get(ctx context.Context, id string) (models.POI, error) {
	key := "poi:" + id
	var poi models.POI
	if hit, err := c.cache.Get(ctx, key, &poi); err == nil && hit {
		return poi, nil
	}
	poi, err := c.catalog.Get(ctx, id)
	if err != nil {
		return models.POI{}, err
	}
	_ = c.cache.Set(ctx, key, poi, 0)
	return poi, nil
}

func (c *CachingCatalog) Search(ctx context.Context, filters map[string]interface{}) ([]models.POI, error) {
	return c.catalog.Search(ctx, filters)
}
