// Package behavior provides host-side task behaviors. A behavior watches
// running agents for the marker its task definition attaches and reports an
// outcome back to the host.
package behavior

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/htn-go/domain/agent"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/domain/world"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
)

// Host exposes agents and accepts reported outcomes. application.Runtime satisfies it.
type Host interface {
	Agents() []*agent.Agent
	Report(ctx context.Context, id string, status agent.Status) error
}

// Behavior resolves running tasks carrying its marker.
type Behavior interface {
	Marker() string
	// Run inspects the host once and returns the number of outcomes reported.
	Run(ctx context.Context, h Host) (int, error)
}

// Define builds a task definition that attaches the behavior's marker.
func Define(b Behavior, pre world.Requirements, post world.State, opts ...task.DefinitionOption) *task.StaticDefinition {
	return task.NewDefinition(pre, post, append(opts, task.WithMarker(b.Marker()))...)
}

// running returns the agents currently running a task marked with marker.
func running(h Host, marker string) []*agent.Agent {
	var out []*agent.Agent
	for _, a := range h.Agents() {
		if a.Phase() == agent.PhaseRunning && a.HasMarker(marker) {
			out = append(out, a)
		}
	}
	return out
}

// Debug logs a message and immediately reports success.
type Debug struct {
	marker  string
	message string
}

// NewDebug creates a Debug behavior. An empty message logs the task name.
func NewDebug(marker, message string) *Debug {
	return &Debug{marker: marker, message: message}
}

// Marker returns the marker the behavior watches.
func (d *Debug) Marker() string { return d.marker }

// Run reports Success for every running agent carrying the marker.
func (d *Debug) Run(ctx context.Context, h Host) (int, error) {
	var errs []error
	n := 0
	for _, a := range running(h, d.marker) {
		msg := d.message
		if msg == "" {
			msg = a.CurrentTask()
		}
		logging.Info().
			Add(logging.Component("behavior.debug")).
			Add(logging.Agent(a.Name())).
			Add(logging.Task(a.CurrentTask())).
			Msg(msg)

		if err := h.Report(ctx, a.ID(), agent.StatusSuccess); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Wait reports success once an agent has been observed running the marked
// task for a number of ticks.
type Wait struct {
	marker string
	ticks  int

	mu   sync.Mutex
	seen map[string]int
}

// NewWait creates a Wait behavior. Ticks below one are treated as one.
func NewWait(marker string, ticks int) *Wait {
	if ticks < 1 {
		ticks = 1
	}
	return &Wait{marker: marker, ticks: ticks, seen: make(map[string]int)}
}

// Marker returns the marker the behavior watches.
func (w *Wait) Marker() string { return w.marker }

// Run counts one tick for every running agent with the marker and reports
// Success for those that reached the configured count.
func (w *Wait) Run(ctx context.Context, h Host) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	active := running(h, w.marker)
	current := make(map[string]bool, len(active))

	var errs []error
	n := 0
	for _, a := range active {
		current[a.ID()] = true
		w.seen[a.ID()]++
		if w.seen[a.ID()] < w.ticks {
			continue
		}
		delete(w.seen, a.ID())
		if err := h.Report(ctx, a.ID(), agent.StatusSuccess); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}

	// Forget agents that left the task before finishing the wait.
	for id := range w.seen {
		if !current[id] {
			delete(w.seen, id)
		}
	}
	return n, errors.Join(errs...)
}

// Pending returns how many ticks id has been waiting.
func (w *Wait) Pending(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seen[id]
}

// Set runs several behaviors in order.
type Set []Behavior

// Run runs every behavior and sums the reported outcomes.
func (s Set) Run(ctx context.Context, h Host) (int, error) {
	var errs []error
	total := 0
	for _, b := range s {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := b.Run(ctx, h)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}
