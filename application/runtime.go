// Package application provides the tick-driven runtime that plans for agents
// and steps their execution.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/htn-go/domain/agent"
	"github.com/felixgeelhaar/htn-go/domain/event"
	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/domain/world"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
	"github.com/felixgeelhaar/htn-go/infrastructure/statemachine"
	"github.com/felixgeelhaar/htn-go/infrastructure/telemetry"
)

// Runtime plans for agents and advances their execution once per tick.
type Runtime struct {
	registry  task.Registry
	planner   plan.Planner
	world     world.State
	publisher event.Publisher
	snapshots agent.SnapshotStore
	metrics   telemetry.Metrics

	entries []*entry
	index   map[string]*entry
	ticks   uint64
	mu      sync.Mutex
}

type entry struct {
	agent  *agent.Agent
	interp *statemachine.Interpreter
}

// Config contains configuration for the runtime.
type Config struct {
	Registry  task.Registry
	Planner   plan.Planner
	World     world.State
	Publisher event.Publisher
	Snapshots agent.SnapshotStore
	Metrics   telemetry.Metrics
}

// TickReport summarizes one update cycle.
type TickReport struct {
	Tick uint64

	// Planned lists the agents that received a plan this tick.
	Planned []string

	// PlanFailures maps agent names to why planning failed this tick.
	PlanFailures map[string]error

	// Transitions counts phase changes across all agents.
	Transitions int

	// Events counts the events published.
	Events int

	Duration time.Duration
}

// NewRuntime creates a runtime with the given configuration.
func NewRuntime(config Config) (*Runtime, error) {
	if config.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if config.Planner == nil {
		return nil, errors.New("planner is required")
	}

	r := &Runtime{
		registry:  config.Registry,
		planner:   config.Planner,
		world:     config.World.Clone(),
		publisher: config.Publisher,
		snapshots: config.Snapshots,
		metrics:   config.Metrics,
		index:     make(map[string]*entry),
	}
	if r.metrics == nil {
		r.metrics = telemetry.NoopMetricsProvider{}
	}
	return r, nil
}

// AddAgent registers an agent. When a snapshot store is configured and holds
// a snapshot for the agent, execution resumes from it.
func (r *Runtime) AddAgent(ctx context.Context, a *agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[a.ID()]; ok {
		return fmt.Errorf("%w: %s", agent.ErrAgentExists, a.ID())
	}

	if r.snapshots != nil {
		snap, err := r.snapshots.Get(ctx, a.ID())
		switch {
		case err == nil:
			if err := a.Restore(snap); err != nil {
				return fmt.Errorf("restore %s: %w", a.Name(), err)
			}
			logging.Info().
				Add(logging.AgentID(a.ID())).
				Add(logging.Agent(a.Name())).
				Add(logging.Phase(string(a.Phase()))).
				Msg("agent resumed from snapshot")
		case errors.Is(err, agent.ErrSnapshotNotFound):
		default:
			return fmt.Errorf("load snapshot %s: %w", a.Name(), err)
		}
	}

	interp, err := statemachine.New(statemachine.NewContext(a, r.registry))
	if err != nil {
		return err
	}

	e := &entry{agent: a, interp: interp}
	r.entries = append(r.entries, e)
	r.index[a.ID()] = e
	return nil
}

// Agent returns the agent with the given ID.
func (r *Runtime) Agent(id string) (*agent.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return e.agent, true
}

// Agents returns the agents in registration order.
func (r *Runtime) Agents() []*agent.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*agent.Agent, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.agent
	}
	return out
}

// World returns a copy of the global facts.
func (r *Runtime) World() world.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.Clone()
}

// SetWorld replaces the global facts used by later planning passes.
func (r *Runtime) SetWorld(w world.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world = w.Clone()
}

// UpdateWorld mutates the global facts in place.
func (r *Runtime) UpdateWorld(fn func(w *world.State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.world)
}

// SetFacts merges pairs into the global facts. Repeated keys are logged and
// the last value wins.
func (r *Runtime) SetFacts(pairs ...world.Pair) {
	facts, duplicates := world.FromPairs(pairs...)
	for _, key := range duplicates {
		logging.Warn().
			Add(logging.Key(key)).
			Msg("duplicate fact, last value wins")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.Append(facts)
}

// Ticks returns the number of completed ticks.
func (r *Runtime) Ticks() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

// Report records the outcome of an agent's running task. The transition it
// triggers is applied on the next tick.
func (r *Runtime) Report(ctx context.Context, id string, status agent.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", agent.ErrAgentNotFound, id)
	}

	current := e.agent.CurrentTask()
	if err := e.interp.Report(status); err != nil {
		return err
	}
	if status.IsResolved() {
		r.metrics.RecordTaskOutcome(ctx, current, status == agent.StatusSuccess)
	}

	_, err := r.flush(ctx, e)
	return err
}

// Assign gives an unplanned agent a fixed sequence of steps and activates the first.
func (r *Runtime) Assign(ctx context.Context, id string, steps []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", agent.ErrAgentNotFound, id)
	}

	if err := e.interp.Assign(&plan.Plan{Steps: steps}); err != nil {
		return err
	}
	if err := e.interp.Advance(); err != nil {
		return err
	}

	_, err := r.flush(ctx, e)
	return err
}

// Tick runs one update cycle: a planning pass over agents that need a plan,
// then at most one execution transition for every other agent. Planning
// failures leave the agent unplanned and are reported, not returned.
func (r *Runtime) Tick(ctx context.Context) (TickReport, error) {
	if err := ctx.Err(); err != nil {
		return TickReport{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	r.ticks++
	report := TickReport{Tick: r.ticks, PlanFailures: make(map[string]error)}

	planned := make(map[string]bool)
	for _, e := range r.entries {
		if !e.agent.NeedsPlan() {
			continue
		}
		planned[e.agent.ID()] = true
		if err := r.planFor(ctx, e); err != nil {
			report.PlanFailures[e.agent.Name()] = err
			continue
		}
		report.Planned = append(report.Planned, e.agent.Name())
	}

	for _, e := range r.entries {
		if planned[e.agent.ID()] {
			continue
		}
		if _, err := e.interp.Step(); err != nil {
			logging.Error().
				Add(logging.AgentID(e.agent.ID())).
				Add(logging.Agent(e.agent.Name())).
				Add(logging.Phase(string(e.agent.Phase()))).
				Add(logging.ErrorField(err)).
				Msg("execution step failed")
		}
	}

	var errs []error
	for _, e := range r.entries {
		stats, err := r.flush(ctx, e)
		report.Events += stats.events
		report.Transitions += stats.transitions
		if err != nil {
			errs = append(errs, err)
		}
	}

	report.Duration = time.Since(start)
	r.metrics.RecordTick(ctx, len(r.entries), report.Duration)

	logging.Debug().
		Add(logging.Tick(report.Tick)).
		Add(logging.Int("planned", len(report.Planned))).
		Add(logging.Int("plan_failures", len(report.PlanFailures))).
		Add(logging.Int("transitions", report.Transitions)).
		Add(logging.Duration(report.Duration)).
		Msg("tick complete")

	return report, errors.Join(errs...)
}

// planFor runs the planner for an unplanned agent and, on success, installs
// the plan and activates its first step.
func (r *Runtime) planFor(ctx context.Context, e *entry) error {
	a := e.agent
	ictx := e.interp.Context()

	p, err := r.planner.Plan(ctx, a.Request(r.world))
	if err != nil {
		if errors.Is(err, plan.ErrMalformedTaskGraph) {
			logging.Error().
				Add(logging.AgentID(a.ID())).
				Add(logging.Agent(a.Name())).
				Add(logging.ErrorField(err)).
				Msg("planner produced a malformed task graph")
		} else {
			logging.Debug().
				Add(logging.Agent(a.Name())).
				Add(logging.ErrorField(err)).
				Msg("planning failed, agent stays unplanned")
		}
		if errors.Is(err, plan.ErrSearchBudgetExceeded) {
			ictx.Events = append(ictx.Events, event.Must(a.ID(), event.TypeSearchBudgetExceeded,
				event.SearchBudgetExceededPayload{}))
		}
		ictx.Events = append(ictx.Events, event.Must(a.ID(), event.TypePlanFailed,
			event.PlanFailedPayload{Error: err.Error()}))
		return err
	}

	if p.Stats.BudgetExceeded {
		ictx.Events = append(ictx.Events, event.Must(a.ID(), event.TypeSearchBudgetExceeded,
			event.SearchBudgetExceededPayload{
				Iterations: p.Stats.Iterations,
				Leaves:     p.Stats.Leaves,
				Recovered:  true,
			}))
	}

	if err := e.interp.Assign(p); err != nil {
		return err
	}
	logging.Info().
		Add(logging.Agent(a.Name())).
		Add(logging.Goal(p.Goal)).
		Add(logging.Steps(p.Steps)).
		Add(logging.Cost(p.Cost)).
		Msg("plan assigned")
	return e.interp.Advance()
}

type flushStats struct {
	events      int
	transitions int
}

// flush publishes an agent's pending events, records its transitions and
// saves its snapshot when anything changed.
func (r *Runtime) flush(ctx context.Context, e *entry) (flushStats, error) {
	events := e.interp.Drain()
	if len(events) == 0 {
		return flushStats{}, nil
	}

	stats := flushStats{events: len(events)}
	for _, ev := range events {
		if ev.Type != event.TypePhaseChanged {
			continue
		}
		var p event.PhaseChangedPayload
		if err := ev.UnmarshalPayload(&p); err == nil {
			stats.transitions++
			r.metrics.RecordTransition(ctx, e.agent.Name(), p.From, p.To)
		}
	}

	var errs []error
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, events...); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", e.agent.Name(), err))
		}
	}
	if r.snapshots != nil {
		if err := r.snapshots.Save(ctx, e.agent.Snapshot()); err != nil {
			errs = append(errs, fmt.Errorf("save snapshot %s: %w", e.agent.Name(), err))
		}
	}
	return stats, errors.Join(errs...)
}

// Close flushes and closes the publisher.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		e.interp.Stop()
	}
	if r.publisher != nil {
		return r.publisher.Close()
	}
	return nil
}
