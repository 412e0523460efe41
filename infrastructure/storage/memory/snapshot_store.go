package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/felixgeelhaar/htn-go/domain/agent"
)

// SnapshotStore is an in-memory implementation of agent.SnapshotStore.
// Snapshots are stored encoded so callers never share slices with the store.
type SnapshotStore struct {
	snapshots map[string][]byte
	mu        sync.RWMutex
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string][]byte),
	}
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

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snap.AgentID] = data
	return nil
}

// Get retrieves the snapshot of an agent.
func (s *SnapshotStore) Get(ctx context.Context, agentID string) (agent.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return agent.Snapshot{}, err
	}
	if agentID == "" {
		return agent.Snapshot{}, agent.ErrInvalidAgentID
	}

	s.mu.RLock()
	data, ok := s.snapshots[agentID]
	s.mu.RUnlock()

	if !ok {
		return agent.Snapshot{}, agent.ErrSnapshotNotFound
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

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agent.Snapshot, 0, len(s.snapshots))
	for _, data := range s.snapshots {
		var snap agent.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AgentID < out[j].AgentID
	})
	return out, nil
}

// Delete removes a snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, agentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, agentID)
	return nil
}

// Len returns the number of stored snapshots.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

var _ agent.SnapshotStore = (*SnapshotStore)(nil)
