package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/htn-go/domain/cache"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache_SetAndGet(t *testing.T) {
	t.Parallel()

	c := memory.NewCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("plan"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, found, err := c.Get(ctx, "k")
	if err != nil || !found || string(got) != "plan" {
		t.Fatalf("Get() = %q, %v, %v, want plan", got, found, err)
	}

	got[0] = 'X'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "plan" {
		t.Errorf("Get() returned shared storage, now %q", again)
	}

	if _, found, _ := c.Get(ctx, "missing"); found {
		t.Error("Get() found a missing key")
	}
	if stats := c.Stats(); stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("Stats() = %+v, want 2 hits and 1 miss", stats)
	}
}

func TestCache_InvalidKey(t *testing.T) {
	t.Parallel()

	err := memory.NewCache().Set(context.Background(), "", []byte("x"), 0)
	if !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("Set() error = %v, want ErrInvalidKey", err)
	}
}

func TestCache_TTL(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := memory.NewCache(memory.WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("a"), time.Minute)
	_ = c.Set(ctx, "forever", []byte("b"), 0)

	clock.Advance(59 * time.Second)
	if _, found, _ := c.Get(ctx, "short"); !found {
		t.Error("entry expired early")
	}

	clock.Advance(time.Second)
	if _, found, _ := c.Get(ctx, "short"); found {
		t.Error("entry outlived its ttl")
	}
	if _, found, _ := c.Get(ctx, "forever"); !found {
		t.Error("entry without ttl expired")
	}
}

func TestCache_Cleanup(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := memory.NewCache(memory.WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("a"), time.Second)
	_ = c.Set(ctx, "b", []byte("b"), time.Second)
	_ = c.Set(ctx, "c", []byte("c"), 0)
	clock.Advance(2 * time.Second)

	if removed := c.Cleanup(); removed != 2 {
		t.Errorf("Cleanup() = %d, want 2", removed)
	}
	if size := c.Stats().Size; size != 1 {
		t.Errorf("Size = %d, want 1", size)
	}
}

func TestCache_LRUEviction(t *testing.T) {
	t.Parallel()

	c := memory.NewCache(memory.WithMaxSize(2))
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("a"), 0)
	_ = c.Set(ctx, "b", []byte("b"), 0)
	_, _, _ = c.Get(ctx, "a")
	if err := c.Set(ctx, "c", []byte("c"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, found, _ := c.Get(ctx, "b"); found {
		t.Error("least recently used entry survived eviction")
	}
	for _, k := range []string{"a", "c"} {
		if _, found, _ := c.Get(ctx, k); !found {
			t.Errorf("entry %s was evicted", k)
		}
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	t.Parallel()

	c := memory.NewCache()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("a"), 0)
	_ = c.Set(ctx, "b", []byte("b"), 0)

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := c.Get(ctx, "a"); found {
		t.Error("deleted entry still present")
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if size := c.Stats().Size; size != 0 {
		t.Errorf("Size = %d after Clear, want 0", size)
	}
}

func TestCache_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := memory.NewCache()
	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v, want context.Canceled", err)
	}
}
