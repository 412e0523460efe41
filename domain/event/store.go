package event

import (
	"context"
	"time"
)

// Store persists agent event streams.
type Store interface {
	// Append persists events atomically, assigning per-agent sequence numbers
	// in order of appearance.
	Append(ctx context.Context, events ...Event) error

	// LoadEvents returns an agent's events in sequence order.
	LoadEvents(ctx context.Context, agentID string) ([]Event, error)

	// LoadEventsFrom returns events with a sequence of at least fromSeq.
	LoadEventsFrom(ctx context.Context, agentID string, fromSeq uint64) ([]Event, error)

	// Subscribe streams new events for an agent until ctx is cancelled.
	Subscribe(ctx context.Context, agentID string) (<-chan Event, error)
}

// Querier is an optional interface for stores that support filtered reads.
type Querier interface {
	Query(ctx context.Context, agentID string, opts QueryOptions) ([]Event, error)
	CountEvents(ctx context.Context, agentID string) (int64, error)
	ListAgents(ctx context.Context) ([]string, error)
}

// QueryOptions configures event queries.
type QueryOptions struct {
	// Types filters to specific event types (empty means all).
	Types []Type

	// From and To bound the timestamp; zero means unbounded.
	From time.Time
	To   time.Time

	// Limit is the maximum number of events to return (0 = no limit).
	Limit int

	// Offset is the number of events to skip.
	Offset int
}

// Matches reports whether e passes the type and time filters.
func (o QueryOptions) Matches(e Event) bool {
	if len(o.Types) > 0 {
		found := false
		for _, t := range o.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !o.From.IsZero() && e.Timestamp.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && e.Timestamp.After(o.To) {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already filtered slice.
func (o QueryOptions) Page(events []Event) []Event {
	if o.Offset > 0 {
		if o.Offset >= len(events) {
			return nil
		}
		events = events[o.Offset:]
	}
	if o.Limit > 0 && len(events) > o.Limit {
		events = events[:o.Limit]
	}
	return events
}
