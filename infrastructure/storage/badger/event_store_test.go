package badger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/htn-go/domain/agent"
	"github.com/felixgeelhaar/htn-go/domain/event"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/badger"
)

func ev(agentID string, typ event.Type) event.Event {
	return event.Event{AgentID: agentID, Type: typ, Timestamp: time.Now()}
}

func snapshot(id string) agent.Snapshot {
	return agent.Snapshot{AgentID: id, Phase: agent.PhasePlanned, Goal: "g", Plan: []string{"a", "b"}}
}

func TestEventStore_AppendAndLoad(t *testing.T) {
	store := badger.NewEventStore(newTestDB(t))
	ctx := context.Background()

	if err := store.Append(ctx, ev("a", event.TypePlanCreated), ev("b", event.TypePlanCreated)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Append(ctx, ev("a", event.TypeTaskActivated), ev("a", event.TypeTaskSucceeded)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	events, err := store.LoadEvents(ctx, "a")
	if err != nil {
		t.Fatalf("LoadEvents() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("LoadEvents() returned %d events, want 3", len(events))
	}
	for i, e := range events {
		if e.Sequence != uint64(i+1) {
			t.Errorf("event %d Sequence = %d, want %d", i, e.Sequence, i+1)
		}
	}
	if events[2].Type != event.TypeTaskSucceeded {
		t.Errorf("last Type = %s, want %s", events[2].Type, event.TypeTaskSucceeded)
	}

	from, _ := store.LoadEventsFrom(ctx, "a", 2)
	if len(from) != 2 || from[0].Sequence != 2 {
		t.Errorf("LoadEventsFrom(2) = %d events, want 2 starting at 2", len(from))
	}

	agents, _ := store.ListAgents(ctx)
	if len(agents) != 2 || agents[0] != "a" || agents[1] != "b" {
		t.Errorf("ListAgents() = %v, want [a b]", agents)
	}
}

func TestEventStore_AppendInvalidEvent(t *testing.T) {
	store := badger.NewEventStore(newTestDB(t))
	err := store.Append(context.Background(), event.Event{AgentID: "a"})
	if !errors.Is(err, event.ErrInvalidEvent) {
		t.Errorf("Append() error = %v, want ErrInvalidEvent", err)
	}
}

func TestEventStore_Query(t *testing.T) {
	store := badger.NewEventStore(newTestDB(t))
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_ = store.Append(ctx, ev("a", event.TypeTaskActivated), ev("a", event.TypeTaskSucceeded))
	}

	tests := []struct {
		name string
		opts event.QueryOptions
		want int
	}{
		{"all", event.QueryOptions{}, 8},
		{"by type", event.QueryOptions{Types: []event.Type{event.TypeTaskSucceeded}}, 4},
		{"limit", event.QueryOptions{Limit: 3}, 3},
		{"offset and limit", event.QueryOptions{Offset: 6, Limit: 5}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, "a", tt.opts)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Query() returned %d events, want %d", len(got), tt.want)
			}
		})
	}

	if n, _ := store.CountEvents(ctx, "a"); n != 8 {
		t.Errorf("CountEvents() = %d, want 8", n)
	}
}

func TestEventStore_Subscribe(t *testing.T) {
	store := badger.NewEventStore(newTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := store.Subscribe(ctx, "a")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = store.Append(context.Background(), ev("a", event.TypePlanCompleted))
	}()

	select {
	case e := <-ch:
		if e.Type != event.TypePlanCompleted {
			t.Errorf("received Type = %s, want %s", e.Type, event.TypePlanCompleted)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestEventStore_DeleteAgent(t *testing.T) {
	store := badger.NewEventStore(newTestDB(t))
	ctx := context.Background()
	_ = store.Append(ctx, ev("a", event.TypePlanCreated), ev("b", event.TypePlanCreated))

	if err := store.DeleteAgent(ctx, "a"); err != nil {
		t.Fatalf("DeleteAgent() error = %v", err)
	}
	if n, _ := store.CountEvents(ctx, "a"); n != 0 {
		t.Errorf("CountEvents(a) = %d, want 0", n)
	}
	if n, _ := store.CountEvents(ctx, "b"); n != 1 {
		t.Errorf("CountEvents(b) = %d, want 1", n)
	}
}

func TestSnapshotStore(t *testing.T) {
	store := badger.NewSnapshotStore(newTestDB(t))
	ctx := context.Background()

	if err := store.Save(ctx, snapshot("b")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	_ = store.Save(ctx, snapshot("a"))

	got, err := store.Get(ctx, "b")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Phase != agent.PhasePlanned || len(got.Plan) != 2 {
		t.Errorf("Get() = %+v, want planned with two steps", got)
	}

	list, _ := store.List(ctx)
	if len(list) != 2 || list[0].AgentID != "a" {
		t.Errorf("List() = %+v, want a then b", list)
	}

	_ = store.Delete(ctx, "b")
	if _, err := store.Get(ctx, "b"); !errors.Is(err, agent.ErrSnapshotNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSnapshotNotFound", err)
	}
}
