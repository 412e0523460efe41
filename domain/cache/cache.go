// Package cache defines the port for storing previously computed plans.
package cache

import (
	"context"
	"time"
)

// Cache stores encoded plans under derived keys.
// Implementations may be in-memory, embedded, or shared across processes.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single entry.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by the cache.
	Clear(ctx context.Context) error
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
	// Size is the number of live entries, when the backend tracks it.
	Size int64
	// MaxSize is zero for unbounded backends.
	MaxSize int64
}

// StatsProvider is implemented by caches that count hits and misses.
type StatsProvider interface {
	Stats() Stats
}
