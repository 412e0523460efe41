package badger

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/htn-go/domain/cache"
)

const cacheNamespace = "cache:"

// Cache is a BadgerDB-backed implementation of cache.Cache. Expiry uses
// badger's native entry TTL.
type Cache struct {
	db     *DB
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a plan cache on an open database.
func NewCache(db *DB) *Cache {
	return &Cache{db: db}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := c.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.db.key(cacheNamespace, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	c.hits.Add(1)
	return value, true, nil
}

// Set stores a value in the cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	return c.db.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(c.db.key(cacheNamespace, key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes a value from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.db.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(c.db.key(cacheNamespace, key))
	})
}

// Clear removes all entries under the cache namespace.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.db.DropPrefix(c.db.key(cacheNamespace))
}

// Stats returns cache statistics. Size counts live keys.
func (c *Cache) Stats() cache.Stats {
	var size int64

	_ = c.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = c.db.key(cacheNamespace)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			size++
		}
		return nil
	})

	return cache.Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   size,
	}
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
