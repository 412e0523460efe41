package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/htn-go/domain/world"
)

// Snapshot is the persisted execution state of an agent.
type Snapshot struct {
	AgentID     string      `json:"agent_id"`
	Name        string      `json:"name"`
	Phase       Phase       `json:"phase"`
	Goal        string      `json:"goal,omitempty"`
	CurrentTask string      `json:"current_task,omitempty"`
	// Plan is nil when no plan is assigned, and empty once it has been consumed.
	Plan      []string    `json:"plan"`
	Markers   []string    `json:"markers,omitempty"`
	World     world.State `json:"world"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SnapshotStore persists agent snapshots.
type SnapshotStore interface {
	// Save inserts or replaces the snapshot for s.AgentID.
	Save(ctx context.Context, s Snapshot) error

	// Get returns ErrSnapshotNotFound when nothing is stored.
	Get(ctx context.Context, agentID string) (Snapshot, error)

	// List returns all snapshots ordered by agent ID.
	List(ctx context.Context) ([]Snapshot, error)

	// Delete removes the snapshot. Missing snapshots are not an error.
	Delete(ctx context.Context, agentID string) error
}

// Snapshot captures the agent's execution state.
func (a *Agent) Snapshot() Snapshot {
	s := Snapshot{
		AgentID:     a.id,
		Name:        a.name,
		Phase:       a.phase,
		Goal:        a.goal,
		CurrentTask: a.current,
		Markers:     a.Markers(),
		World:       a.world.Clone(),
		UpdatedAt:   a.updatedAt,
	}
	if a.stack != nil {
		s.Plan = append([]string{}, a.stack.Items()...)
	}
	return s
}

// Restore replaces the execution state with s. Tasks, goals and the
// evaluator come from configuration and are left untouched.
func (a *Agent) Restore(s Snapshot) error {
	if s.AgentID != a.id {
		return fmt.Errorf("%w: snapshot for %s restored into %s", ErrInvalidSnapshot, s.AgentID, a.id)
	}
	if !s.Phase.IsValid() {
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidSnapshot, s.Phase)
	}
	if s.Phase.Status() != StatusNone && s.CurrentTask == "" {
		return fmt.Errorf("%w: phase %s without a current task", ErrInvalidSnapshot, s.Phase)
	}

	a.phase = s.Phase
	a.goal = s.Goal
	a.current = s.CurrentTask
	a.stack = nil
	if s.Plan != nil {
		a.AssignPlan(s.Goal, s.Plan)
	}
	clear(a.markers)
	for _, m := range s.Markers {
		a.markers[m] = struct{}{}
	}
	a.world = s.World.Clone()
	a.updatedAt = s.UpdatedAt
	return nil
}
