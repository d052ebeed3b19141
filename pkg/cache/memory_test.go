package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weights struct {
	A int `json:"a"`
	B int `json:"b"`
}

func TestMemoryCacheTypedValues(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "w", weights{A: 1, B: 2}, 0))

	var got weights
	require.NoError(t, mc.Get(ctx, "w", &got))
	assert.Equal(t, weights{A: 1, B: 2}, got)

	require.NoError(t, mc.Set(ctx, "s", "plain", 0))
	var s string
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "plain", s)

	err := mc.Get(ctx, "missing", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.Zero(t, mc.Len())
}

func TestMemoryCacheReplaceOnlyExisting(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.Replace(ctx, "k", "v1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "k", "v1", time.Minute))
	ok, err = mc.Replace(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mc.Get(ctx, "k", &s))
	assert.Equal(t, "v2", s)
}

func TestMemoryCacheTryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Set(ctx, "b", "2", 0))

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s)) // a is now most recent
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &s))
	assert.Equal(t, "1", s)
	assert.Equal(t, 2, mc.Len())
}

func TestMemoryCacheOverwriteKeepsSize(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Set(ctx, "a", "2", 0))
	require.NoError(t, mc.Delete(ctx, "missing"))

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	assert.Equal(t, "2", s)
	assert.Equal(t, 1, mc.Len())
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "congress:AAPL:1:20", Key("congress", "AAPL", 1, 20))
	assert.Equal(t, "prefs", Key("prefs"))
	assert.Equal(t, HashKey("Nancy Pelosi"), HashKey("Nancy Pelosi"))
	assert.Len(t, HashKey("Nancy Pelosi"), 16)
	assert.NotEqual(t, HashKey("a"), HashKey("b"))
}

func TestMemoryCacheSweeperDropsExpired(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryCleanup(10 * time.Millisecond))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", 5*time.Millisecond))
	assert.Eventually(t, func() bool { return mc.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLayeredCacheMemoryOptions(t *testing.T) {
	lc := NewLayeredCache(nil,
		WithLayeredMemorySize(5),
		WithLayeredMemoryTTL(2*time.Second),
		WithLayeredMemoryCleanup(time.Minute),
	)
	defer lc.l1.Close()

	assert.Equal(t, 2*time.Second, lc.memoryTTL)
	assert.Equal(t, 5, lc.l1.maxSize)
	assert.Equal(t, time.Second, lc.ttl(time.Second))
	assert.Equal(t, 2*time.Second, lc.ttl(0))
}
