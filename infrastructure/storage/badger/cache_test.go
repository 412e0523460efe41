package badger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/htn-go/domain/cache"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/badger"
)

func newTestDB(t *testing.T, opts ...badger.Option) *badger.DB {
	t.Helper()

	db, err := badger.Open(badger.Config{InMemory: true}, opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCache_SetAndGet(t *testing.T) {
	c := badger.NewCache(newTestDB(t))
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	val, found, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || string(val) != "value1" {
		t.Errorf("Get() = %q, %v, want value1, true", val, found)
	}

	_, found, err = c.Get(ctx, "missing")
	if err != nil || found {
		t.Errorf("Get(missing) = %v, %v, want not found without error", found, err)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, size 1", stats)
	}
}

func TestCache_InvalidKey(t *testing.T) {
	c := badger.NewCache(newTestDB(t))
	if err := c.Set(context.Background(), "", []byte("v"), 0); !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("Set() error = %v, want ErrInvalidKey", err)
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	db := newTestDB(t)
	c := badger.NewCache(db)
	snapshots := badger.NewSnapshotStore(db)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := c.Get(ctx, "a"); found {
		t.Error("Get() found deleted key")
	}

	_ = snapshots.Save(ctx, snapshot("agent-1"))
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, found, _ := c.Get(ctx, "b"); found {
		t.Error("Get() found key after Clear")
	}
	if _, err := snapshots.Get(ctx, "agent-1"); err != nil {
		t.Errorf("Clear() removed a snapshot: %v", err)
	}
}

func TestCache_KeyPrefixIsolation(t *testing.T) {
	db := newTestDB(t, badger.WithKeyPrefix("one:"))
	c := badger.NewCache(db)
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), 0)
	if _, found, _ := c.Get(ctx, "k"); !found {
		t.Error("Get() did not find key written with the same prefix")
	}
}

func TestCache_ContextCancelled(t *testing.T) {
	c := badger.NewCache(newTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v, want context.Canceled", err)
	}
}
