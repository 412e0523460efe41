package event_test

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/htn-go/domain/event"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	e, err := event.NewEvent("agent-1", event.TypePlanCreated, event.PlanCreatedPayload{
		Goal:  "leave_room_a",
		Steps: []string{"goto_door", "open_door"},
		Cost:  2,
	})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	if e.ID == "" || e.AgentID != "agent-1" || e.Type != event.TypePlanCreated || e.Version != 1 {
		t.Errorf("NewEvent() = %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("NewEvent() Timestamp should not be zero")
	}

	var got event.PlanCreatedPayload
	if err := e.UnmarshalPayload(&got); err != nil {
		t.Fatalf("UnmarshalPayload() error = %v", err)
	}
	if got.Goal != "leave_room_a" || len(got.Steps) != 2 {
		t.Errorf("UnmarshalPayload() = %+v", got)
	}
}

func TestNewEventUnmarshalable(t *testing.T) {
	t.Parallel()

	if _, err := event.NewEvent("agent-1", event.TypePlanFailed, make(chan int)); err == nil {
		t.Error("NewEvent() should fail for a channel payload")
	}
}

func TestMustPanicsOnBadPayload(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("Must() did not panic")
		}
	}()
	event.Must("agent-1", event.TypePlanFailed, func() {})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		e    event.Event
		ok   bool
	}{
		{"valid", event.Event{AgentID: "a", Type: event.TypeTaskActivated}, true},
		{"no agent", event.Event{Type: event.TypeTaskActivated}, false},
		{"no type", event.Event{AgentID: "a"}, false},
	}
	for _, tt := range tests {
		err := tt.e.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v", tt.name, err)
		}
		if err != nil && !errors.Is(err, event.ErrInvalidEvent) {
			t.Errorf("%s: Validate() = %v, want ErrInvalidEvent", tt.name, err)
		}
	}
}

func TestQueryOptionsMatches(t *testing.T) {
	t.Parallel()

	now := time.Now()
	e := event.Event{Type: event.TypeTaskFailed, Timestamp: now}

	tests := []struct {
		name string
		opts event.QueryOptions
		want bool
	}{
		{"no filters", event.QueryOptions{}, true},
		{"matching type", event.QueryOptions{Types: []event.Type{event.TypeTaskSucceeded, event.TypeTaskFailed}}, true},
		{"other type", event.QueryOptions{Types: []event.Type{event.TypePlanCreated}}, false},
		{"after from", event.QueryOptions{From: now.Add(-time.Second)}, true},
		{"before from", event.QueryOptions{From: now.Add(time.Second)}, false},
		{"after to", event.QueryOptions{To: now.Add(-time.Second)}, false},
	}
	for _, tt := range tests {
		if got := tt.opts.Matches(e); got != tt.want {
			t.Errorf("%s: Matches() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestQueryOptionsPage(t *testing.T) {
	t.Parallel()

	events := make([]event.Event, 5)
	for i := range events {
		events[i].Sequence = uint64(i + 1)
	}

	tests := []struct {
		name      string
		opts      event.QueryOptions
		wantFirst uint64
		wantLen   int
	}{
		{"all", event.QueryOptions{}, 1, 5},
		{"limit", event.QueryOptions{Limit: 2}, 1, 2},
		{"offset", event.QueryOptions{Offset: 3}, 4, 2},
		{"offset and limit", event.QueryOptions{Offset: 1, Limit: 2}, 2, 2},
		{"offset past end", event.QueryOptions{Offset: 9}, 0, 0},
	}
	for _, tt := range tests {
		got := tt.opts.Page(events)
		if len(got) != tt.wantLen {
			t.Errorf("%s: len = %d, want %d", tt.name, len(got), tt.wantLen)
			continue
		}
		if tt.wantLen > 0 && got[0].Sequence != tt.wantFirst {
			t.Errorf("%s: first = %d, want %d", tt.name, got[0].Sequence, tt.wantFirst)
		}
	}
}

func TestAllTypesUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[event.Type]bool)
	for _, typ := range event.AllTypes() {
		if seen[typ] {
			t.Errorf("duplicate type %s", typ)
		}
		seen[typ] = true
	}
}
