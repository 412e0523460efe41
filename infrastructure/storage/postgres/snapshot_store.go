package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/htn-go/domain/agent"
)

// SnapshotStore is a PostgreSQL-backed implementation of agent.SnapshotStore.
type SnapshotStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewSnapshotStore creates a PostgreSQL snapshot store.
func NewSnapshotStore(pool *pgxpool.Pool, schema string) *SnapshotStore {
	return &SnapshotStore{pool: pool, schema: schemaOrDefault(schema)}
}

func (s *SnapshotStore) tableName() string {
	return fmt.Sprintf("%s.snapshots", s.schema)
}

// Save inserts or replaces a snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap agent.Snapshot) error {
	if snap.AgentID == "" {
		return agent.ErrInvalidAgentID
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (agent_id, phase, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (agent_id) DO UPDATE SET phase = $2, data = $3, updated_at = $4
	`, s.tableName())

	_, err = s.pool.Exec(ctx, query, snap.AgentID, string(snap.Phase), data, snap.UpdatedAt)
	return wrapError(err)
}

// Get retrieves the snapshot of an agent.
func (s *SnapshotStore) Get(ctx context.Context, agentID string) (agent.Snapshot, error) {
	if agentID == "" {
		return agent.Snapshot{}, agent.ErrInvalidAgentID
	}

	var data []byte
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE agent_id = $1", s.tableName()),
		agentID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return agent.Snapshot{}, agent.ErrSnapshotNotFound
	}
	if err != nil {
		return agent.Snapshot{}, wrapError(err)
	}

	var snap agent.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return agent.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// List returns every snapshot ordered by agent ID.
func (s *SnapshotStore) List(ctx context.Context) ([]agent.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT data FROM %s ORDER BY agent_id", s.tableName()),
	)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	out := []agent.Snapshot{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, wrapError(err)
		}
		var snap agent.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Delete removes a snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, agentID string) error {
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE agent_id = $1", s.tableName()),
		agentID,
	)
	return wrapError(err)
}

var _ agent.SnapshotStore = (*SnapshotStore)(nil)
