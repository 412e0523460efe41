package badger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/htn-go/domain/agent"
)

const snapshotNamespace = "snapshots:"

// SnapshotStore is a BadgerDB-backed implementation of agent.SnapshotStore.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a snapshot store on an open database.
func NewSnapshotStore(db *DB) *SnapshotStore {
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
	return s.db.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.db.key(snapshotNamespace, snap.AgentID), data)
	})
}

// Get retrieves the snapshot of an agent.
func (s *SnapshotStore) Get(ctx context.Context, agentID string) (agent.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return agent.Snapshot{}, err
	}
	if agentID == "" {
		return agent.Snapshot{}, agent.ErrInvalidAgentID
	}

	var snap agent.Snapshot
	err := s.db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.db.key(snapshotNamespace, agentID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return agent.Snapshot{}, agent.ErrSnapshotNotFound
	}
	if err != nil {
		return agent.Snapshot{}, err
	}
	return snap, nil
}

// List returns every snapshot ordered by agent ID.
func (s *SnapshotStore) List(ctx context.Context) ([]agent.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []agent.Snapshot{}
	err := s.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.db.key(snapshotNamespace)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var snap agent.Snapshot
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			})
			if err != nil {
				return err
			}
			out = append(out, snap)
		}
		return nil
	})
	return out, err
}

// Delete removes a snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, agentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.db.key(snapshotNamespace, agentID))
	})
}

var _ agent.SnapshotStore = (*SnapshotStore)(nil)
