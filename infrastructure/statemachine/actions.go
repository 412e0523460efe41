package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/htn-go/domain/event"
	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
)

// In statekit, actions receive a pointer to the context. Since our context is
// *Context, actions receive **Context.

func usable(ctx **Context) (*Context, bool) {
	if ctx == nil || *ctx == nil || (*ctx).Agent == nil {
		return nil, false
	}
	return *ctx, true
}

func (c *Context) definition(name string) task.Definition {
	if c.Registry == nil {
		return nil
	}
	def, _ := c.Registry.Get(name)
	return def
}

// logStateEntry logs when entering a state.
func logStateEntry(ctx **Context, e statekit.Event) {
	c, ok := usable(ctx)
	if !ok {
		return
	}
	logging.Debug().
		Add(logging.AgentID(c.Agent.ID())).
		Add(logging.Str("event", string(e.Type))).
		Add(logging.Task(c.Agent.CurrentTask())).
		Msg("entered execution state")
}

// assignPlan installs the plan carried by the PLANNED payload.
func assignPlan(ctx **Context, e statekit.Event) {
	c, ok := usable(ctx)
	if !ok {
		return
	}
	p, ok := e.Payload.(*plan.Plan)
	if !ok || p == nil {
		return
	}

	c.Agent.AssignPlan(p.Goal, p.Steps)
	c.record(event.TypePlanCreated, event.PlanCreatedPayload{
		Goal:       p.Goal,
		Steps:      p.Steps,
		Cost:       p.Cost,
		Iterations: p.Stats.Iterations,
	})
}

// finish deactivates the current task, if any.
func (c *Context) finish() string {
	current := c.Agent.CurrentTask()
	if current == "" {
		return ""
	}
	c.Agent.Finish(c.definition(current))
	c.record(event.TypeTaskDeactivated, event.TaskPayload{Task: current, Remaining: c.Agent.Remaining()})
	return current
}

// advance deactivates the previous task and activates the next step.
func advance(ctx **Context, _ statekit.Event) {
	c, ok := usable(ctx)
	if !ok {
		return
	}
	c.finish()

	next, ok := c.Agent.PeekNext()
	if !ok {
		return
	}
	c.Agent.Begin(c.definition(next))
	c.record(event.TypeTaskActivated, event.TaskPayload{Task: next, Remaining: c.Agent.Remaining()})
}

// complete ends a fully consumed plan.
func complete(ctx **Context, _ statekit.Event) {
	c, ok := usable(ctx)
	if !ok {
		return
	}
	goalName := c.Agent.Goal()
	last := c.finish()
	c.Agent.Clear()
	c.record(event.TypePlanCompleted, event.PlanEndedPayload{Goal: goalName, LastTask: last})
}

func succeed(ctx **Context, _ statekit.Event) {
	c, ok := usable(ctx)
	if !ok {
		return
	}
	c.record(event.TypeTaskSucceeded, event.TaskPayload{Task: c.Agent.CurrentTask(), Remaining: c.Agent.Remaining()})
}

func fail(ctx **Context, _ statekit.Event) {
	c, ok := usable(ctx)
	if !ok {
		return
	}
	c.record(event.TypeTaskFailed, event.TaskPayload{Task: c.Agent.CurrentTask(), Remaining: c.Agent.Remaining()})
}

// abort drops what is left of a failed plan.
func abort(ctx **Context, _ statekit.Event) {
	c, ok := usable(ctx)
	if !ok {
		return
	}
	goalName := c.Agent.Goal()
	dropped := c.Agent.Remaining()
	last := c.finish()
	c.Agent.Clear()
	c.record(event.TypePlanAborted, event.PlanEndedPayload{Goal: goalName, LastTask: last, Dropped: dropped})
}
