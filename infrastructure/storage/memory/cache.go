package memory

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/htn-go/domain/cache"
)

// DefaultCacheSize bounds the in-memory plan cache.
const DefaultCacheSize = 1000

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
	// used is a logical clock; the lowest value is evicted first.
	used uint64
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache is an in-process plan cache with TTL expiry and LRU eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	maxSize int
	now     func() time.Time
	tick    uint64
	hits    int64
	misses  int64
}

// CacheOption configures the cache.
type CacheOption func(*Cache)

// WithMaxSize bounds the number of entries. Values below one keep the default.
func WithMaxSize(size int) CacheOption {
	return func(c *Cache) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithClock replaces the time source used for expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]*cacheEntry),
		maxSize: DefaultCacheSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements cache.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(c.now()) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return nil, false, nil
	}

	c.tick++
	e.used = c.tick
	c.hits++
	return append([]byte(nil), e.value...), true, nil
}

// Set implements cache.Cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evict()
		if len(c.entries) >= c.maxSize {
			return cache.ErrCacheFull
		}
	}

	c.tick++
	e := &cacheEntry{value: append([]byte(nil), value...), used: c.tick}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// Delete implements cache.Cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Clear implements cache.Cache.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	return nil
}

// Stats implements cache.StatsProvider.
func (c *Cache) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return cache.Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    int64(len(c.entries)),
		MaxSize: int64(c.maxSize),
	}
}

// Cleanup drops expired entries and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// evict removes expired entries, or the least recently used one if none
// expired. Must be called with the lock held.
func (c *Cache) evict() {
	now := c.now()
	var (
		oldest   string
		oldestAt uint64
		dropped  bool
	)
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			dropped = true
			continue
		}
		if oldest == "" || e.used < oldestAt {
			oldest, oldestAt = k, e.used
		}
	}
	if !dropped && oldest != "" {
		delete(c.entries, oldest)
	}
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
