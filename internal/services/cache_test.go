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

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheService(client), mr
}

func TestCacheService_SetGet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Gameweek int     `json:"gameweek"`
		Score    float64 `json:"score"`
	}
	require.NoError(t, cache.Set(ctx, "k", payload{Gameweek: 7, Score: 61.5}, time.Minute))

	var got payload
	require.NoError(t, cache.Get(ctx, "k", &got))
	assert.Equal(t, payload{Gameweek: 7, Score: 61.5}, got)

	exists, err := cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, cache.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestCacheService_InvalidatePrefix(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "fpl:bootstrap", 1, 0))
	require.NoError(t, cache.Set(ctx, "fpl:history:5", 2, 0))
	require.NoError(t, cache.Set(ctx, "optimization:abc", 3, 0))

	removed, err := cache.InvalidatePrefix(ctx, "fpl:")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	exists, err := cache.Exists(ctx, "optimization:abc")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOptimizationCacheKey_IsStable(t *testing.T) {
	a, err := OptimizationCacheKey(map[string]int{"budget": 100})
	require.NoError(t, err)
	b, err := OptimizationCacheKey(map[string]int{"budget": 100})
	require.NoError(t, err)
	c, err := OptimizationCacheKey(map[string]int{"budget": 90})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "optimization:")
}
