// Package cache provides the key/value store behind preferences, run state
// and remote response caching: Redis, an in-process LRU, and both layered.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
	// ErrLockNotHeld is returned by Unlock when the lock expired or belongs to someone else.
	ErrLockNotHeld = errors.New("cache: lock not held")
)

// Service is the cache contract. Strings and []byte are stored verbatim,
// everything else as JSON.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Replace overwrites key only if it exists and reports whether it did.
	Replace(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
