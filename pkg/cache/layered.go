package cache

import (
	"context"
	"time"
)

// LayeredCache reads through an in-process LRU in front of Redis. Writes go
// to Redis first. L1 entries live at most memoryTTL, which bounds how long
// another replica's write stays invisible here. Locks always go to Redis.
type LayeredCache struct {
	l1        *MemoryCache
	l2        *RedisCache
	memoryTTL time.Duration
}

// NewLayeredCache wraps redisCache with a memory layer.
func NewLayeredCache(redisCache *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{MemoryMaxSize: 1000, MemoryTTL: 30 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		l1:        NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize), WithMemoryCleanup(cfg.MemoryCleanup)),
		l2:        redisCache,
		memoryTTL: cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) ttl(expiration time.Duration) time.Duration {
	if expiration > 0 && expiration < lc.memoryTTL {
		return expiration
	}
	return lc.memoryTTL
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
		_ = lc.l1.Delete(ctx, key)
		return err
	}
	_ = lc.l1.Set(ctx, key, value, lc.ttl(expiration))
	return nil
}

// Replace checks existence in Redis, never in the memory layer.
func (lc *LayeredCache) Replace(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := lc.l2.Replace(ctx, key, value, expiration)
	if err != nil || !ok {
		_ = lc.l1.Delete(ctx, key)
		return ok, err
	}
	_ = lc.l1.Set(ctx, key, value, lc.ttl(expiration))
	return true, nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.l1.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.l2.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, dest, lc.memoryTTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.l2.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.l2.Unlock(ctx, key)
}

// Close stops the memory layer and closes Redis.
func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}

var _ Service = (*LayeredCache)(nil)
