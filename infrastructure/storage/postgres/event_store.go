package postgres

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/htn-go/domain/event"
)

const eventColumns = "id, agent_id, type, timestamp, payload, sequence, version"

// EventStore is a PostgreSQL-backed implementation of event.Store.
// Subscriptions only see events appended through this process.
type EventStore struct {
	pool        *pgxpool.Pool
	schema      string
	subscribers map[string][]chan event.Event
	mu          sync.RWMutex
}

// NewEventStore creates a PostgreSQL event store.
func NewEventStore(pool *pgxpool.Pool, schema string) *EventStore {
	return &EventStore{
		pool:        pool,
		schema:      schemaOrDefault(schema),
		subscribers: make(map[string][]chan event.Event),
	}
}

func (s *EventStore) tableName() string {
	return fmt.Sprintf("%s.events", s.schema)
}

// Append persists one or more events atomically.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	seqs := make(map[string]uint64)
	for _, e := range events {
		if _, ok := seqs[e.AgentID]; ok {
			continue
		}
		var last *int64
		err := tx.QueryRow(ctx,
			fmt.Sprintf("SELECT MAX(sequence) FROM %s WHERE agent_id = $1", s.tableName()),
			e.AgentID,
		).Scan(&last)
		if err != nil {
			return wrapError(err)
		}
		if last != nil {
			seqs[e.AgentID] = uint64(*last)
		} else {
			seqs[e.AgentID] = 0
		}
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		s.tableName(), eventColumns,
	)

	stored := make([]event.Event, 0, len(events))
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Version == 0 {
			e.Version = 1
		}
		seqs[e.AgentID]++
		e.Sequence = seqs[e.AgentID]

		if _, err := tx.Exec(ctx, insert,
			e.ID, e.AgentID, string(e.Type), e.Timestamp, []byte(e.Payload), int64(e.Sequence), e.Version,
		); err != nil {
			return wrapError(err)
		}
		stored = append(stored, e)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapError(err)
	}

	s.notify(stored)
	return nil
}

// LoadEvents retrieves all events for an agent in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, agentID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, agentID, 0)
}

// LoadEventsFrom retrieves events starting from a specific sequence number.
func (s *EventStore) LoadEventsFrom(ctx context.Context, agentID string, fromSeq uint64) ([]event.Event, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE agent_id = $1 AND sequence >= $2 ORDER BY sequence ASC",
		eventColumns, s.tableName(),
	)

	rows, err := s.pool.Query(ctx, query, agentID, int64(fromSeq))
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

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

// Query retrieves events matching the given options.
func (s *EventStore) Query(ctx context.Context, agentID string, opts event.QueryOptions) ([]event.Event, error) {
	query, args := s.buildQuerySQL(agentID, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountEvents returns the number of events for an agent.
func (s *EventStore) CountEvents(ctx context.Context, agentID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE agent_id = $1", s.tableName()),
		agentID,
	).Scan(&count)
	if err != nil {
		return 0, wrapError(err)
	}
	return count, nil
}

// ListAgents returns the IDs of agents with events, sorted.
func (s *EventStore) ListAgents(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT DISTINCT agent_id FROM %s ORDER BY agent_id", s.tableName()),
	)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	agents := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapError(err)
		}
		agents = append(agents, id)
	}
	return agents, rows.Err()
}

// DeleteAgent removes an agent's events and closes its subscriptions.
func (s *EventStore) DeleteAgent(ctx context.Context, agentID string) error {
	s.mu.Lock()
	for _, ch := range s.subscribers[agentID] {
		close(ch)
	}
	delete(s.subscribers, agentID)
	s.mu.Unlock()

	_, err := s.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE agent_id = $1", s.tableName()),
		agentID,
	)
	return wrapError(err)
}

// Close closes every subscription. The pool is closed by its owner.
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

// buildQuerySQL constructs the filtered SELECT for Query.
func (s *EventStore) buildQuerySQL(agentID string, opts event.QueryOptions) (string, []any) {
	args := []any{agentID}
	conditions := []string{"agent_id = $1"}

	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		conditions = append(conditions, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if !opts.From.IsZero() {
		args = append(args, opts.From)
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if !opts.To.IsZero() {
		args = append(args, opts.To)
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY sequence ASC",
		eventColumns, s.tableName(), joinConditions(conditions),
	)

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return query, args
}

func joinConditions(conditions []string) string {
	return strings.Join(conditions, " AND ")
}

func scanEvents(rows pgx.Rows) ([]event.Event, error) {
	events := []event.Event{}
	for rows.Next() {
		var (
			e        event.Event
			typ      string
			payload  []byte
			sequence int64
		)
		if err := rows.Scan(&e.ID, &e.AgentID, &typ, &e.Timestamp, &payload, &sequence, &e.Version); err != nil {
			return nil, wrapError(err)
		}
		e.Type = event.Type(typ)
		e.Payload = payload
		e.Sequence = uint64(sequence)
		events = append(events, e)
	}
	return events, rows.Err()
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

var (
	_ event.Store   = (*EventStore)(nil)
	_ event.Querier = (*EventStore)(nil)
)
