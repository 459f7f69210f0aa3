package cache

import (
	"context"
	"time"
)

// Cache is the contract for the cache layer.
// Cho phép swap implementation (Redis, in-memory)
type Cache interface {
	// Get reads key and unmarshals it into dest.
	// found = false on a cache miss; dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value under key with a TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys
	Delete(ctx context.Context, keys ...string) error
}

// Locker hands out short-lived exclusive leases keyed by name.
type Locker interface {
	// TryLock acquires key for ttl. ok is false when someone else holds it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}
