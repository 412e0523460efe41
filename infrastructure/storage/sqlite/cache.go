package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/htn-go/domain/cache"
)

// Cache is a SQLite-backed implementation of cache.Cache. Expired rows are
// treated as misses and removed on read or by Cleanup.
type Cache struct {
	db        *sql.DB
	keyPrefix string
	now       func() time.Time
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewCache creates a plan cache on an open, migrated database.
func NewCache(db *sql.DB, keyPrefix string) *Cache {
	return &Cache{db: db, keyPrefix: keyPrefix, now: time.Now}
}

func (c *Cache) prefixKey(key string) string {
	return c.keyPrefix + key
}

// Get retrieves a value from the cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	k := c.prefixKey(key)
	var value []byte
	var expiresAt sql.NullInt64

	err := c.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM plan_cache WHERE key = ?", k,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if expiresAt.Valid && expiresAt.Int64 <= c.now().UnixNano() {
		_, _ = c.db.ExecContext(ctx, "DELETE FROM plan_cache WHERE key = ?", k)
		c.misses.Add(1)
		return nil, false, nil
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

	now := c.now()
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(ttl).UnixNano(), Valid: true}
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO plan_cache (key, value, expires_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		c.prefixKey(key), value, expiresAt, now.UnixNano(),
	)
	return err
}

// Delete removes a value from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, "DELETE FROM plan_cache WHERE key = ?", c.prefixKey(key))
	return err
}

// Clear removes every entry under the key prefix.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM plan_cache WHERE substr(key, 1, ?) = ?",
		len(c.keyPrefix), c.keyPrefix,
	)
	return err
}

// Cleanup removes expired entries and returns how many were removed.
func (c *Cache) Cleanup(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	result, err := c.db.ExecContext(ctx,
		"DELETE FROM plan_cache WHERE expires_at IS NOT NULL AND expires_at <= ?",
		c.now().UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Stats returns cache statistics.
func (c *Cache) Stats() cache.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var size int64
	_ = c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM plan_cache WHERE substr(key, 1, ?) = ?",
		len(c.keyPrefix), c.keyPrefix,
	).Scan(&size)

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
