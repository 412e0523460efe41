package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/htn-go/domain/event"
)

const (
	eventsNamespace = "events:"
	seqNamespace    = "seq:"
)

// EventStore is a BadgerDB-backed implementation of event.Store.
//
// Keys:
//
//	prefix events:<agentID>:<sequence as 8 big-endian bytes>
//	prefix seq:<agentID>
type EventStore struct {
	db          *DB
	subscribers map[string][]chan event.Event
	mu          sync.RWMutex
}

// NewEventStore creates an event store on an open database.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{
		db:          db,
		subscribers: make(map[string][]chan event.Event),
	}
}

func (s *EventStore) streamPrefix(agentID string) []byte {
	return s.db.key(eventsNamespace, agentID, ":")
}

func (s *EventStore) eventKey(agentID string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(s.streamPrefix(agentID), seq)
}

func (s *EventStore) seqKey(agentID string) []byte {
	return s.db.key(seqNamespace, agentID)
}

// Append persists one or more events in a single transaction.
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

	stored := make([]event.Event, 0, len(events))
	err := s.db.db.Update(func(txn *badger.Txn) error {
		seqs := make(map[string]uint64)
		for _, e := range events {
			seq, ok := seqs[e.AgentID]
			if !ok {
				var err error
				if seq, err = s.loadSeq(txn, e.AgentID); err != nil {
					return err
				}
			}
			seq++
			seqs[e.AgentID] = seq

			if e.ID == "" {
				e.ID = uuid.NewString()
			}
			e.Sequence = seq

			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := txn.Set(s.eventKey(e.AgentID, seq), data); err != nil {
				return err
			}
			stored = append(stored, e)
		}

		for agentID, seq := range seqs {
			if err := txn.Set(s.seqKey(agentID), binary.BigEndian.AppendUint64(nil, seq)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(stored)
	return nil
}

func (s *EventStore) loadSeq(txn *badger.Txn, agentID string) (uint64, error) {
	item, err := txn.Get(s.seqKey(agentID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) == 8 {
			seq = binary.BigEndian.Uint64(val)
		}
		return nil
	})
	return seq, err
}

// scan visits an agent's events from fromSeq in order until visit returns false.
func (s *EventStore) scan(agentID string, fromSeq uint64, visit func(event.Event) bool) error {
	return s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.streamPrefix(agentID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(s.eventKey(agentID, fromSeq)); it.Valid(); it.Next() {
			var e event.Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return err
			}
			if !visit(e) {
				return nil
			}
		}
		return nil
	})
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

	events := []event.Event{}
	err := s.scan(agentID, fromSeq, func(e event.Event) bool {
		events = append(events, e)
		return true
	})
	return events, err
}

// Subscribe returns a channel that receives new events for an agent.
func (s *EventStore) Subscribe(ctx context.Context, agentID string) (<-chan event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	ch := make(chan event.Event, 100)
	s.subscribers[agentID] = append(s.subscribers[agentID], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.unsubscribe(agentID, ch)
	}()

	return ch, nil
}

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

func (s *EventStore) notify(events []event.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range events {
		for _, ch := range s.subscribers[e.AgentID] {
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// Query retrieves events matching the given options.
func (s *EventStore) Query(ctx context.Context, agentID string, opts event.QueryOptions) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := []event.Event{}
	skip := opts.Offset
	err := s.scan(agentID, 0, func(e event.Event) bool {
		if !opts.Matches(e) {
			return true
		}
		if skip > 0 {
			skip--
			return true
		}
		events = append(events, e)
		return opts.Limit <= 0 || len(events) < opts.Limit
	})
	return events, err
}

// CountEvents returns the number of events for an agent.
func (s *EventStore) CountEvents(ctx context.Context, agentID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.streamPrefix(agentID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// ListAgents returns the IDs of agents with events, in key order.
func (s *EventStore) ListAgents(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := s.db.key(seqNamespace)
	agents := []string{}

	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			agents = append(agents, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return agents, err
}

// DeleteAgent removes an agent's events and closes its subscriptions.
func (s *EventStore) DeleteAgent(ctx context.Context, agentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	for _, ch := range s.subscribers[agentID] {
		close(ch)
	}
	delete(s.subscribers, agentID)
	s.mu.Unlock()

	if err := s.db.db.DropPrefix(s.streamPrefix(agentID)); err != nil {
		return err
	}
	return s.db.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.seqKey(agentID))
	})
}

// Close closes every subscription. The database is closed by its owner.
func (s *EventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, subs := range s.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	s.subscribers = make(map[string][]chan event.Event)
	return nil
}

var (
	_ event.Store   = (*EventStore)(nil)
	_ event.Querier = (*EventStore)(nil)
)
