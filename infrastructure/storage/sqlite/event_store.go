package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/htn-go/domain/event"
)

// EventStore is a SQLite-backed implementation of event.Store. Subscriptions
// only see events appended through this process.
type EventStore struct {
	db          *sql.DB
	subscribers map[string][]chan event.Event
	mu          sync.RWMutex
}

// NewEventStore creates an event store on an open, migrated database.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{
		db:          db,
		subscribers: make(map[string][]chan event.Event),
	}
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (id, agent_id, type, sequence, timestamp, data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	seqs := make(map[string]uint64)
	stored := make([]event.Event, 0, len(events))
	for _, e := range events {
		seq, ok := seqs[e.AgentID]
		if !ok {
			var last sql.NullInt64
			err := tx.QueryRowContext(ctx,
				"SELECT MAX(sequence) FROM events WHERE agent_id = ?", e.AgentID,
			).Scan(&last)
			if err != nil {
				return err
			}
			seq = uint64(last.Int64)
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
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.AgentID, string(e.Type), e.Sequence, e.Timestamp.UnixNano(), data,
		); err != nil {
			return err
		}
		stored = append(stored, e)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.notify(stored)
	return nil
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	defer func() { _ = rows.Close() }()

	events := []event.Event{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e event.Event
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
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

	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM events WHERE agent_id = ? AND sequence >= ? ORDER BY sequence",
		agentID, fromSeq,
	)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
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

	var b strings.Builder
	b.WriteString("SELECT data FROM events WHERE agent_id = ?")
	args := []any{agentID}

	if len(opts.Types) > 0 {
		b.WriteString(" AND type IN (")
		for i, t := range opts.Types {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, string(t))
		}
		b.WriteString(")")
	}
	if !opts.From.IsZero() {
		b.WriteString(" AND timestamp >= ?")
		args = append(args, opts.From.UnixNano())
	}
	if !opts.To.IsZero() {
		b.WriteString(" AND timestamp <= ?")
		args = append(args, opts.To.UnixNano())
	}

	b.WriteString(" ORDER BY sequence")

	// SQLite requires LIMIT when using OFFSET.
	if opts.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		b.WriteString(" LIMIT -1")
	}
	if opts.Offset > 0 {
		b.WriteString(" OFFSET ?")
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// CountEvents returns the number of events for an agent.
func (s *EventStore) CountEvents(ctx context.Context, agentID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE agent_id = ?", agentID,
	).Scan(&count)
	return count, err
}

// ListAgents returns the IDs of agents with events, sorted.
func (s *EventStore) ListAgents(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT agent_id FROM events ORDER BY agent_id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	agents := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		agents = append(agents, id)
	}
	return agents, rows.Err()
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

	_, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE agent_id = ?", agentID)
	return err
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
