package redis

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/htn-go/domain/agent"
)

// SnapshotStore is a Redis-backed implementation of agent.SnapshotStore.
// Each snapshot is a JSON string; a set indexes the stored agent IDs.
type SnapshotStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewSnapshotStore connects to Redis and creates a snapshot store.
func NewSnapshotStore(cfg Config, opts ...ConfigOption) (*SnapshotStore, error) {
	client, cfg, err := Connect(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewSnapshotStoreFromClient(client, cfg.KeyPrefix), nil
}

// NewSnapshotStoreFromClient creates a snapshot store from an existing client.
func NewSnapshotStoreFromClient(client *redis.Client, keyPrefix string) *SnapshotStore {
	return &SnapshotStore{client: client, keyPrefix: keyPrefix}
}

func (s *SnapshotStore) snapshotKey(agentID string) string {
	return s.keyPrefix + "snapshot:" + agentID
}

func (s *SnapshotStore) indexKey() string {
	return s.keyPrefix + "snapshots"
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

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.snapshotKey(snap.AgentID), data, 0)
		pipe.SAdd(ctx, s.indexKey(), snap.AgentID)
		return nil
	})
	return wrapError(err)
}

// Get retrieves the snapshot of an agent.
func (s *SnapshotStore) Get(ctx context.Context, agentID string) (agent.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return agent.Snapshot{}, err
	}
	if agentID == "" {
		return agent.Snapshot{}, agent.ErrInvalidAgentID
	}

	data, err := s.client.Get(ctx, s.snapshotKey(agentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return agent.Snapshot{}, agent.ErrSnapshotNotFound
	}
	if err != nil {
		return agent.Snapshot{}, wrapError(err)
	}

	var snap agent.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return agent.Snapshot{}, err
	}
	return snap, nil
}

// List returns every indexed snapshot ordered by agent ID. Index entries
// whose snapshot has disappeared are skipped.
func (s *SnapshotStore) List(ctx context.Context) ([]agent.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, wrapError(err)
	}
	slices.Sort(ids)

	out := make([]agent.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Get(ctx, id)
		if errors.Is(err, agent.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Delete removes a snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, agentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.snapshotKey(agentID))
		pipe.SRem(ctx, s.indexKey(), agentID)
		return nil
	})
	return wrapError(err)
}

// Close closes the Redis connection.
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}

var _ agent.SnapshotStore = (*SnapshotStore)(nil)
