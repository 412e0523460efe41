package statemachine

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/htn-go/domain/agent"
	"github.com/felixgeelhaar/htn-go/domain/event"
	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
)

// Interpreter wraps the statekit interpreter with agent-specific functionality.
// It keeps the agent's phase in step with the machine state.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter for the execution machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// New builds the machine and an interpreter for ctx, started and restored to
// the agent's current phase.
func New(ctx *Context) (*Interpreter, error) {
	machine, err := NewAgentMachine()
	if err != nil {
		return nil, fmt.Errorf("build machine: %w", err)
	}
	i := NewInterpreter(machine, ctx)
	i.Start()
	if p := ctx.Agent.Phase(); p != agent.PhaseUnplanned {
		if err := i.Restore(p); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Start enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// Phase returns the current phase.
func (i *Interpreter) Phase() agent.Phase {
	state := i.interp.State()
	return agent.Phase(state.Value)
}

// Matches reports whether the machine is in phase p.
func (i *Interpreter) Matches(p agent.Phase) bool {
	return i.interp.Matches(statekit.StateID(p))
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// Send moves the machine to phase to. Moves outside the lifecycle table and
// moves refused by a guard return agent.ErrInvalidTransition.
func (i *Interpreter) Send(to agent.Phase, payload any) error {
	from := i.Phase()
	if !agent.CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s", agent.ErrInvalidTransition, from, to)
	}

	i.interp.Send(statekit.Event{
		Type:    EventForTransition(from, to),
		Payload: payload,
	})

	got := i.Phase()
	if got != to {
		return fmt.Errorf("%w: %s to %s refused", agent.ErrInvalidTransition, from, to)
	}

	i.ctx.Agent.SetPhase(got)
	i.ctx.record(event.TypePhaseChanged, event.PhaseChangedPayload{From: string(from), To: string(got)})
	logging.Info().
		Add(logging.AgentID(i.ctx.Agent.ID())).
		Add(logging.Agent(i.ctx.Agent.Name())).
		Add(logging.FromPhase(string(from))).
		Add(logging.ToPhase(string(got))).
		Add(logging.Task(i.ctx.Agent.CurrentTask())).
		Msg("phase changed")
	return nil
}

// Assign hands a fresh plan to an unplanned agent.
func (i *Interpreter) Assign(p *plan.Plan) error {
	if p == nil {
		return errors.New("statemachine: nil plan")
	}
	return i.Send(agent.PhasePlanned, p)
}

// Advance activates the next registered step, or completes the plan when no
// step is left. Unregistered steps are dropped.
func (i *Interpreter) Advance() error {
	a := i.ctx.Agent
	for {
		next, ok := a.PeekNext()
		if !ok || i.ctx.Registry == nil || i.ctx.Registry.Has(next) {
			break
		}
		a.DropNext()
		i.ctx.record(event.TypeTaskUnknown, event.TaskPayload{Task: next, Remaining: a.Remaining()})
		logging.Warn().
			Add(logging.AgentID(a.ID())).
			Add(logging.Task(next)).
			Msg("dropping unregistered task")
	}

	if _, ok := a.PeekNext(); ok {
		return i.Send(agent.PhaseRunning, nil)
	}
	return i.Send(agent.PhaseUnplanned, nil)
}

// Report records the outcome of the running task. Reporting Running is a no-op.
func (i *Interpreter) Report(status agent.Status) error {
	switch status {
	case agent.StatusRunning:
		if i.Phase() != agent.PhaseRunning {
			return fmt.Errorf("%w: no running task", agent.ErrInvalidStatus)
		}
		return nil
	case agent.StatusSuccess:
		return i.Send(agent.PhaseSucceeded, nil)
	case agent.StatusFailure:
		return i.Send(agent.PhaseFailed, nil)
	default:
		return fmt.Errorf("%w: %q", agent.ErrInvalidStatus, status)
	}
}

// Reset discards a failed plan.
func (i *Interpreter) Reset() error {
	return i.Send(agent.PhaseUnplanned, nil)
}

// Step applies the one transition the current phase calls for: running waits,
// planned and succeeded advance, failed resets, unplanned waits for a plan.
// It reports whether a transition happened.
func (i *Interpreter) Step() (bool, error) {
	switch i.Phase() {
	case agent.PhasePlanned, agent.PhaseSucceeded:
		return true, i.Advance()
	case agent.PhaseFailed:
		return true, i.Reset()
	default:
		return false, nil
	}
}

// Drain returns and clears the events recorded since the last call.
func (i *Interpreter) Drain() []event.Event {
	events := i.ctx.Events
	i.ctx.Events = nil
	return events
}

// Restore puts the machine in phase p without running any actions, used when
// resuming an agent from a snapshot.
func (i *Interpreter) Restore(p agent.Phase) error {
	if !p.IsValid() {
		return fmt.Errorf("%w: phase %q", agent.ErrInvalidSnapshot, p)
	}

	snapshot := statekit.Snapshot[*Context]{
		MachineID:    MachineID,
		CurrentState: statekit.StateID(p),
		Context:      i.ctx,
		CreatedAt:    time.Now(),
	}
	if err := i.interp.Restore(snapshot); err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}

	i.ctx.Agent.SetPhase(p)
	return nil
}
