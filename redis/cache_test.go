package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client), mr
}

type item struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func TestCache_SetGetDelete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", item{Name: "a", N: 2}, time.Minute))

	var got item
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, item{Name: "a", N: 2}, got)

	require.NoError(t, cache.Delete(ctx, "k"))
	found, err = cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Expires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", item{N: 1}, time.Second))
	mr.FastForward(2 * time.Second)

	var got item
	found, _ := cache.Get(ctx, "k", &got)
	assert.False(t, found)
}

func TestCache_Versions(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	assert.Zero(t, cache.GetVersion(ctx, "v"))
	assert.Equal(t, int64(1), cache.IncrementVersion(ctx, "v"))
	assert.Equal(t, int64(2), cache.IncrementVersion(ctx, "v"))
	assert.Equal(t, int64(2), cache.GetVersion(ctx, "v"))
}

func TestCache_NilClientIsNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, "k", 1, time.Minute))
	found, err := cache.Get(ctx, "k", new(int))
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, NewCache(nil).Delete(ctx, "k"))
	assert.Zero(t, NewCache(nil).IncrementVersion(ctx, "v"))
}
