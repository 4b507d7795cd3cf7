package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCacheService_SetGet(t *testing.T) {
	mr, client := setupRedis(t)
	cache := NewCacheService(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, CacheKey("things", "a"), cachedThing{Name: "a", Count: 2}, time.Minute))

	assert.True(t, mr.Exists("cache:things:a"))
	assert.Equal(t, time.Minute, mr.TTL("cache:things:a"))

	var got cachedThing
	hit, err := cache.Get(ctx, "things:a", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, cachedThing{Name: "a", Count: 2}, got)
}

func TestCacheService_Miss(t *testing.T) {
	_, client := setupRedis(t)
	cache := NewCacheService(client)

	var got cachedThing
	hit, err := cache.Get(context.Background(), "things:none", &got)

	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheService_TTLClamp(t *testing.T) {
	mr, client := setupRedis(t)
	cache := NewCacheService(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "zero", 1, 0))
	require.NoError(t, cache.Set(ctx, "huge", 1, 48*time.Hour))

	assert.Equal(t, DefaultCacheTTL, mr.TTL("cache:zero"))
	assert.Equal(t, MaxCacheTTL, mr.TTL("cache:huge"))
}

func TestCacheService_CorruptValue(t *testing.T) {
	mr, client := setupRedis(t)
	cache := NewCacheService(client)
	require.NoError(t, mr.Set("cache:things:bad", "{not json"))

	var got cachedThing
	hit, err := cache.Get(context.Background(), "things:bad", &got)

	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheService_RedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	cache := NewCacheService(client)
	mr.Close()

	var got cachedThing
	hit, err := cache.Get(context.Background(), "things:a", &got)

	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheService_Delete(t *testing.T) {
	mr, client := setupRedis(t)
	cache := NewCacheService(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "b", 2, time.Minute))
	require.NoError(t, cache.Delete(ctx, "a", "b"))
	require.NoError(t, cache.Delete(ctx))

	assert.False(t, mr.Exists("cache:a"))
	assert.False(t, mr.Exists("cache:b"))
}
