package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultCacheTTL applies when a caller passes a non-positive TTL
	DefaultCacheTTL = 5 * time.Minute
	// MaxCacheTTL caps how long anything derived from Postgres may be served
	MaxCacheTTL = 12 * time.Hour
)

// CacheService stores JSON values in Redis under the cache: prefix.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

// Get decodes the cached value into dest. A miss returns (false, nil).
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := c.client.Get(ctx, CacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues(family(key), "miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues(family(key), "error").Inc()
		return false, err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		metrics.CacheLookups.WithLabelValues(family(key), "error").Inc()
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	metrics.CacheLookups.WithLabelValues(family(key), "hit").Inc()
	return true, nil
}

// Set stores value for ttl, clamped to (0, MaxCacheTTL].
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CachePrefixed(key), jsonData, ttl).Err()
}

// Delete removes one or more keys.
func (c *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = CacheKeyPrefix + k
	}
	return c.client.Del(ctx, prefixed...).Err()
}

// CacheKey generates a cache key for a specific resource
func CacheKey(resource string, identifier string) string {
	return fmt.Sprintf("%s:%s", resource, identifier)
}

func CachePrefixed(key string) string {
	return CacheKeyPrefix + key
}

func family(key string) string {
	if idx := strings.Index(key, ":"); idx != -1 {
		return key[:idx]
	}
	return key
}
