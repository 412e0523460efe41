package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/htn-go/domain/event"
)

// subscriberBuffer is the channel capacity of each subscription. Events are
// dropped for subscribers that fall this far behind.
const subscriberBuffer = 100

// EventStore is an in-memory implementation of event.Store.
type EventStore struct {
	events      map[string][]event.Event // agentID -> events
	subscribers map[string][]chan event.Event
	sequences   map[string]uint64 // agentID -> last sequence
	mu          sync.RWMutex
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events:      make(map[string][]event.Event),
		subscribers: make(map[string][]chan event.Event),
		sequences:   make(map[string]uint64),
	}
}

// Append persists one or more events atomically. Nothing is stored if any
// event is invalid.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.sequences[e.AgentID]++
		e.Sequence = s.sequences[e.AgentID]
		s.events[e.AgentID] = append(s.events[e.AgentID], e)

		for _, sub := range s.subscribers[e.AgentID] {
			select {
			case sub <- e:
			default:
			}
		}
	}
	return nil
}

// LoadEvents retrieves all events for an agent in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, agentID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, agentID, 0)
}

// LoadEventsFrom retrieves events starting from a specific sequence number.
func (s *EventStore) LoadEventsFrom(ctx context.Context, agentID string, fromSeq uint64) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []event.Event{}
	for _, e := range s.events[agentID] {
		if e.Sequence >= fromSeq {
			result = append(result, e)
		}
	}
	return result, nil
}

// Subscribe returns a channel that receives new events for an agent. The
// channel is closed when ctx is done.
func (s *EventStore) Subscribe(ctx context.Context, agentID string) (<-chan event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan event.Event, subscriberBuffer)
	s.subscribers[agentID] = append(s.subscribers[agentID], ch)

	go func() {
		<-ctx.Done()
		s.unsubscribe(agentID, ch)
	}()

	return ch, nil
}

// unsubscribe closes ch unless Clear or DeleteAgent already did.
func (s *EventStore) unsubscribe(agentID string, ch chan event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscribers[agentID]
	for i, sub := range subs {
		if sub == ch {
			s.subscribers[agentID] = slices.Delete(subs, i, i+1)
			close(ch)
			break
		}
	}
	if len(s.subscribers[agentID]) == 0 {
		delete(s.subscribers, agentID)
	}
}

// Query retrieves events matching the given options.
func (s *EventStore) Query(ctx context.Context, agentID string, opts event.QueryOptions) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.Event
	for _, e := range s.events[agentID] {
		if opts.Matches(e) {
			result = append(result, e)
		}
	}
	result = opts.Page(result)
	if result == nil {
		result = []event.Event{}
	}
	return result, nil
}

// CountEvents returns the number of events for an agent.
func (s *EventStore) CountEvents(ctx context.Context, agentID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.events[agentID])), nil
}

// ListAgents returns the IDs of agents with events, sorted.
func (s *EventStore) ListAgents(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make([]string, 0, len(s.events))
	for id := range s.events {
		agents = append(agents, id)
	}
	slices.Sort(agents)
	return agents, nil
}

// DeleteAgent removes all events for an agent and closes its subscriptions.
func (s *EventStore) DeleteAgent(ctx context.Context, agentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subscribers[agentID] {
		close(ch)
	}
	delete(s.subscribers, agentID)
	delete(s.events, agentID)
	delete(s.sequences, agentID)
	return nil
}

// Clear removes all events from the store and closes every subscription.
func (s *EventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, subs := range s.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}

	s.events = make(map[string][]event.Event)
	s.subscribers = make(map[string][]chan event.Event)
	s.sequences = make(map[string]uint64)
}

// Len returns the total number of events across all agents.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, events := range s.events {
		count += len(events)
	}
	return count
}

var (
	_ event.Store   = (*EventStore)(nil)
	_ event.Querier = (*EventStore)(nil)
)
