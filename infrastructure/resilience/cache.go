package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/htn-go/domain/cache"
)

// Cache guards a cache backend. Reads, deletes and overwrites are retried;
// Clear runs once.
type Cache struct {
	next cache.Cache
	exec *Executor
}

// NewCache wraps next with a resilient executor.
func NewCache(next cache.Cache, opts ...Option) *Cache {
	return &Cache{next: next, exec: NewExecutorWithOptions(opts...)}
}

// Get implements cache.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, cache.ErrInvalidKey
	}
	res, err := c.exec.execute(ctx, true, func(ctx context.Context) (result, error) {
		v, ok, err := c.next.Get(ctx, key)
		return result{value: v, found: ok}, err
	})
	if err != nil {
		return nil, false, err
	}
	return res.value, res.found, nil
}

// Set implements cache.Cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return cache.ErrInvalidKey
	}
	_, err := c.exec.execute(ctx, true, func(ctx context.Context) (result, error) {
		return result{}, c.next.Set(ctx, key, value, ttl)
	})
	return err
}

// Delete implements cache.Cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return cache.ErrInvalidKey
	}
	_, err := c.exec.execute(ctx, true, func(ctx context.Context) (result, error) {
		return result{}, c.next.Delete(ctx, key)
	})
	return err
}

// Clear implements cache.Cache.
func (c *Cache) Clear(ctx context.Context) error {
	_, err := c.exec.execute(ctx, false, func(ctx context.Context) (result, error) {
		return result{}, c.next.Clear(ctx)
	})
	return err
}

// Stats forwards to the wrapped cache when it counts hits and misses.
func (c *Cache) Stats() cache.Stats {
	if sp, ok := c.next.(cache.StatsProvider); ok {
		return sp.Stats()
	}
	return cache.Stats{}
}

// Executor returns the executor guarding the backend.
func (c *Cache) Executor() *Executor { return c.exec }

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
