package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/htn-go/domain/agent"
)

// SnapshotStore is a SQLite-backed implementation of agent.SnapshotStore.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore creates a snapshot store on an open, migrated database.
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save inserts or replaces a snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap agent.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap.AgentID == "" {
		return agent.ErrInvalidAgentID
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (agent_id, phase, data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(agent_id) DO UPDATE SET
		   phase = excluded.phase,
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		snap.AgentID, string(snap.Phase), data, snap.UpdatedAt.UnixNano(),
	)
	return err
}

// Get retrieves the snapshot of an agent.
func (s *SnapshotStore) Get(ctx context.Context, agentID string) (agent.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return agent.Snapshot{}, err
	}
	if agentID == "" {
		return agent.Snapshot{}, agent.ErrInvalidAgentID
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM snapshots WHERE agent_id = ?", agentID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return agent.Snapshot{}, agent.ErrSnapshotNotFound
	}
	if err != nil {
		return agent.Snapshot{}, err
	}

	var snap agent.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return agent.Snapshot{}, err
	}
	return snap, nil
}

// List returns every snapshot ordered by agent ID.
func (s *SnapshotStore) List(ctx context.Context) ([]agent.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT data FROM snapshots ORDER BY agent_id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []agent.Snapshot{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var snap agent.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Delete removes a snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, agentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE agent_id = ?", agentID)
	return err
}

var _ agent.SnapshotStore = (*SnapshotStore)(nil)
