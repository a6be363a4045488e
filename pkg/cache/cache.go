// Package cache provides best-effort key/value persistence for session state.
//
// The Cache interface abstracts a namespaced TTL store. The Redis
// implementation is the production backend; the in-process Memory
// implementation serves tests and deployments without Redis. Callers must
// treat the cache as unreliable: a miss or an error always has an
// in-process fallback path.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Cache is a namespaced key/value store with per-entry TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value stored under namespace/key.
	// Returns ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, namespace, key string) ([]byte, error)

	// Set stores value under namespace/key with the given TTL.
	// A zero TTL means no expiry.
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error

	// Delete removes the value stored under namespace/key.
	// Deleting an absent key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// Available reports whether the backend is reachable.
	Available() bool

	// Close releases resources held by the cache.
	Close() error
}

// cacheKey builds the full storage key for a namespace/key pair.
func cacheKey(namespace, key string) string {
	return "voicewire:" + namespace + ":" + key
}
