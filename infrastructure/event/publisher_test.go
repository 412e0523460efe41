package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	domainevent "github.com/felixgeelhaar/htn-go/domain/event"
	infraevent "github.com/felixgeelhaar/htn-go/infrastructure/event"
)

// mockEventStore implements event.Store for testing.
type mockEventStore struct {
	events  []domainevent.Event
	appends int
	mu      sync.Mutex
	err     error
}

func (s *mockEventStore) Append(_ context.Context, events ...domainevent.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.appends++
	s.events = append(s.events, events...)
	return nil
}

func (s *mockEventStore) LoadEvents(_ context.Context, _ string) ([]domainevent.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domainevent.Event(nil), s.events...), nil
}

func (s *mockEventStore) LoadEventsFrom(ctx context.Context, agentID string, _ uint64) ([]domainevent.Event, error) {
	return s.LoadEvents(ctx, agentID)
}

func (s *mockEventStore) Subscribe(_ context.Context, _ string) (<-chan domainevent.Event, error) {
	ch := make(chan domainevent.Event)
	close(ch)
	return ch, nil
}

func (s *mockEventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *mockEventStore) Appends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends
}

func (s *mockEventStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func activated(agentID string) domainevent.Event {
	return domainevent.Must(agentID, domainevent.TypeTaskActivated, domainevent.TaskPayload{Task: "open_door"})
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	t.Run("publishes events immediately without buffering", func(t *testing.T) {
		t.Parallel()

		store := &mockEventStore{}
		pub := infraevent.NewPublisher(store)

		if err := pub.Publish(context.Background(), activated("agent-1")); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if store.Len() != 1 {
			t.Errorf("store has %d events, want 1", store.Len())
		}
	})

	t.Run("publishes empty events", func(t *testing.T) {
		t.Parallel()

		store := &mockEventStore{}
		pub := infraevent.NewPublisher(store)

		if err := pub.Publish(context.Background()); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if store.Appends() != 0 {
			t.Errorf("store saw %d appends, want 0", store.Appends())
		}
	})

	t.Run("rejects invalid events", func(t *testing.T) {
		t.Parallel()

		store := &mockEventStore{}
		pub := infraevent.NewPublisher(store)

		err := pub.Publish(context.Background(), activated("agent-1"), domainevent.Event{Type: domainevent.TypeTaskFailed})
		if !errors.Is(err, domainevent.ErrInvalidEvent) {
			t.Errorf("Publish() error = %v, want ErrInvalidEvent", err)
		}
		if store.Len() != 0 {
			t.Errorf("store has %d events, want 0", store.Len())
		}
	})

	t.Run("buffers events until buffer size reached", func(t *testing.T) {
		t.Parallel()

		store := &mockEventStore{}
		pub := infraevent.NewPublisher(store, infraevent.WithBufferSize(3))

		for i := 0; i < 2; i++ {
			if err := pub.Publish(context.Background(), activated("agent-1")); err != nil {
				t.Fatalf("Publish() error = %v", err)
			}
		}
		if store.Len() != 0 {
			t.Errorf("store has %d events before flush, want 0", store.Len())
		}
		if pub.Buffered() != 2 {
			t.Errorf("Buffered() = %d, want 2", pub.Buffered())
		}

		if err := pub.Publish(context.Background(), activated("agent-1")); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if store.Len() != 3 {
			t.Errorf("store has %d events after flush, want 3", store.Len())
		}
		if store.Appends() != 1 {
			t.Errorf("store saw %d appends, want 1", store.Appends())
		}
	})

	t.Run("returns error from store", func(t *testing.T) {
		t.Parallel()

		store := &mockEventStore{}
		store.SetError(errors.New("store error"))
		pub := infraevent.NewPublisher(store)

		if err := pub.Publish(context.Background(), activated("agent-1")); err == nil {
			t.Error("Publish() should return error")
		}
	})
}

func TestPublisher_Flush(t *testing.T) {
	t.Parallel()

	t.Run("flushes buffered events", func(t *testing.T) {
		t.Parallel()

		store := &mockEventStore{}
		pub := infraevent.NewPublisher(store, infraevent.WithBufferSize(10))

		for i := 0; i < 3; i++ {
			_ = pub.Publish(context.Background(), activated("agent-1"))
		}
		if err := pub.Flush(context.Background()); err != nil {
			t.Fatalf("Flush() error = %v", err)
		}
		if store.Len() != 3 {
			t.Errorf("store has %d events after flush, want 3", store.Len())
		}
	})

	t.Run("keeps buffer when store fails", func(t *testing.T) {
		t.Parallel()

		store := &mockEventStore{}
		pub := infraevent.NewPublisher(store, infraevent.WithBufferSize(10))
		_ = pub.Publish(context.Background(), activated("agent-1"))

		store.SetError(errors.New("flush error"))
		if err := pub.Flush(context.Background()); err == nil {
			t.Fatal("Flush() should return error")
		}
		if pub.Buffered() != 1 {
			t.Errorf("Buffered() = %d after failed flush, want 1", pub.Buffered())
		}

		store.SetError(nil)
		if err := pub.Flush(context.Background()); err != nil {
			t.Fatalf("Flush() retry error = %v", err)
		}
		if store.Len() != 1 {
			t.Errorf("store has %d events after retry, want 1", store.Len())
		}
	})
}

func TestPublisher_Close(t *testing.T) {
	t.Parallel()

	t.Run("flushes buffer on close", func(t *testing.T) {
		t.Parallel()

		store := &mockEventStore{}
		pub := infraevent.NewPublisher(store, infraevent.WithBufferSize(10))
		for i := 0; i < 3; i++ {
			_ = pub.Publish(context.Background(), activated("agent-1"))
		}

		if err := pub.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if store.Len() != 3 {
			t.Errorf("store has %d events after close, want 3", store.Len())
		}
	})

	t.Run("rejects publish after close", func(t *testing.T) {
		t.Parallel()

		pub := infraevent.NewPublisher(&mockEventStore{})
		if err := pub.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := pub.Close(); err != nil {
			t.Errorf("second Close() error = %v", err)
		}
		err := pub.Publish(context.Background(), activated("agent-1"))
		if !errors.Is(err, infraevent.ErrPublisherClosed) {
			t.Errorf("Publish() error = %v, want ErrPublisherClosed", err)
		}
	})
}
