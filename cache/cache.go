// Package cache provides pluggable byte-value caches with TTL semantics,
// used primarily for memoizing model responses. Two backends are included:
// an in-memory store for tests and single-process deployments, and a Redis
// store for shared deployments.
package cache

import (
	"context"
	"time"
)

// Store is a key/value cache with per-entry TTL. Implementations must be safe
// for concurrent use. A zero TTL means the entry does not expire.
type Store interface {
	// Get returns the cached value for key. The second return reports
	// whether the key was present (a miss is not an error).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
