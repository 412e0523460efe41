package cache

import "errors"

// Domain errors for plan caching.
var (
	// ErrInvalidKey is returned for an empty key.
	ErrInvalidKey = errors.New("cache: invalid key")

	// ErrCacheFull is returned when a bounded cache cannot evict to make room.
	ErrCacheFull = errors.New("cache: full")

	// ErrConnectionFailed is returned when the backend cannot be reached.
	ErrConnectionFailed = errors.New("cache: connection failed")

	// ErrOperationTimeout is returned when a backend call times out.
	ErrOperationTimeout = errors.New("cache: operation timeout")

	// ErrCorruptEntry is returned when a stored value does not decode to a plan.
	ErrCorruptEntry = errors.New("cache: corrupt entry")
)
