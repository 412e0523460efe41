package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/htn-go/domain/cache"
)

// clearBatch is the SCAN page size and DEL batch size used by Clear.
const clearBatch = 100

// Cache is a Redis-backed implementation of cache.Cache.
type Cache struct {
	client    *redis.Client
	keyPrefix string
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewCache connects to Redis and creates a plan cache.
func NewCache(cfg Config, opts ...ConfigOption) (*Cache, error) {
	client, cfg, err := Connect(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewCacheFromClient(client, cfg.KeyPrefix), nil
}

// NewCacheFromClient creates a cache from an existing Redis client.
func NewCacheFromClient(client *redis.Client, keyPrefix string) *Cache {
	return &Cache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (c *Cache) prefixKey(key string) string {
	return c.keyPrefix + "cache:" + key
}

// Get retrieves a value from the cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	result, err := c.client.Get(ctx, c.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, wrapError(err)
	}

	c.hits.Add(1)
	return result, true, nil
}

// Set stores a value in the cache. A zero ttl keeps the entry until deleted.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}
	if ttl < 0 {
		ttl = 0
	}

	return wrapError(c.client.Set(ctx, c.prefixKey(key), value, ttl).Err())
}

// Delete removes a value from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapError(c.client.Del(ctx, c.prefixKey(key)).Err())
}

// Clear removes all entries with the cache prefix.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	iter := c.client.Scan(ctx, 0, c.prefixKey("*"), clearBatch).Iterator()

	keys := make([]string, 0, clearBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= clearBatch {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return wrapError(err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return wrapError(err)
	}

	if len(keys) > 0 {
		return wrapError(c.client.Del(ctx, keys...).Err())
	}
	return nil
}

// Stats returns hit and miss counts. Size is not tracked for Redis.
func (c *Cache) Stats() cache.Stats {
	return cache.Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
func (c *Cache) Client() *redis.Client {
	return c.client
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
