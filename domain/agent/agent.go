// Package agent models a planning agent: its tasks, goals, world overlay and
// the execution state of its current plan.
package agent

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/htn-go/domain/goal"
	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/domain/world"
)

// namespace seeds stable IDs derived from agent names.
var namespace = uuid.MustParse("5b0f6c1e-3f56-4b8e-9a53-2d3c2a0c7e41")

// IDFor returns the stable ID of a named agent, so configured agents keep
// their identity across runs.
func IDFor(name string) string {
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// Agent owns available tasks, goals and, once planned, a stack of primitive
// task names. It is not safe for concurrent use; the runtime serializes access.
type Agent struct {
	id        string
	name      string
	tasks     []task.Task
	goals     []goal.Goal
	evaluator goal.Evaluator
	world     world.State

	phase     Phase
	goal      string
	stack     *plan.Stack
	current   string
	markers   map[string]struct{}
	updatedAt time.Time
}

// Option configures an agent.
type Option func(*Agent)

// WithTasks sets the tasks the agent may plan with.
func WithTasks(tasks ...task.Task) Option {
	return func(a *Agent) {
		a.tasks = append(a.tasks, tasks...)
	}
}

// WithGoals sets the agent's goals in priority order.
func WithGoals(goals ...goal.Goal) Option {
	return func(a *Agent) {
		a.goals = append(a.goals, goals...)
	}
}

// WithEvaluator sets the goal selection policy.
func WithEvaluator(e goal.Evaluator) Option {
	return func(a *Agent) {
		a.evaluator = e
	}
}

// WithWorld sets the agent-local facts that override global ones.
func WithWorld(w world.State) Option {
	return func(a *Agent) {
		a.world = w.Clone()
	}
}

// New creates an agent with a random ID.
func New(name string, opts ...Option) *Agent {
	a, _ := NewWithID(uuid.NewString(), name, opts...)
	return a
}

// NewWithID creates an agent with a caller-chosen ID.
func NewWithID(id, name string, opts ...Option) (*Agent, error) {
	if id == "" {
		return nil, ErrInvalidAgentID
	}
	a := &Agent{
		id:        id,
		name:      name,
		evaluator: goal.Top(),
		phase:     PhaseUnplanned,
		markers:   make(map[string]struct{}),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.name == "" {
		a.name = id
	}
	return a, nil
}

// ID implements task.Target.
func (a *Agent) ID() string { return a.id }

// Name returns the display name.
func (a *Agent) Name() string { return a.name }

// Tasks returns a copy of the available tasks.
func (a *Agent) Tasks() []task.Task { return slices.Clone(a.tasks) }

// AddTask makes another task available for planning.
func (a *Agent) AddTask(t task.Task) {
	a.tasks = append(a.tasks, t)
}

// Goals returns a copy of the goals.
func (a *Agent) Goals() []goal.Goal { return slices.Clone(a.goals) }

// AddGoal appends a goal at the lowest priority.
func (a *Agent) AddGoal(g goal.Goal) {
	a.goals = append(a.goals, g)
}

// Evaluator returns the goal selection policy.
func (a *Agent) Evaluator() goal.Evaluator { return a.evaluator }

// World returns a copy of the local overlay.
func (a *Agent) World() world.State { return a.world.Clone() }

// SetWorld replaces the local overlay.
func (a *Agent) SetWorld(w world.State) {
	a.world = w.Clone()
	a.touch()
}

// SetFact sets a single local fact.
func (a *Agent) SetFact(key string, value world.Predicate) {
	a.world.Set(key, value)
	a.touch()
}

// Request builds the planning input for this agent against the global world.
// Local facts win on conflict.
func (a *Agent) Request(global world.State) plan.Request {
	return plan.Request{
		World:     global.Concat(a.world),
		Tasks:     a.Tasks(),
		Goals:     a.Goals(),
		Evaluator: a.evaluator,
		Agent:     a.name,
	}
}

// Phase returns the lifecycle position.
func (a *Agent) Phase() Phase { return a.phase }

// SetPhase records the lifecycle position. Validation belongs to the state machine.
func (a *Agent) SetPhase(p Phase) {
	a.phase = p
	a.touch()
}

// Status returns the observable state of the current task.
func (a *Agent) Status() Status { return a.phase.Status() }

// NeedsPlan reports whether the agent should be picked up by a planning pass.
func (a *Agent) NeedsPlan() bool {
	return a.phase == PhaseUnplanned && a.stack == nil && a.current == ""
}

// HasPlan reports whether a plan is assigned, including one whose stack has
// been fully consumed while its last task is still current.
func (a *Agent) HasPlan() bool {
	return a.stack != nil
}

// Plan returns the remaining steps, excluding the current task.
func (a *Agent) Plan() []string { return a.stack.Items() }

// Remaining returns the number of steps left on the stack.
func (a *Agent) Remaining() int { return a.stack.Len() }

// Goal returns the name of the goal the current plan reaches.
func (a *Agent) Goal() string { return a.goal }

// CurrentTask returns the active task name, empty when none.
func (a *Agent) CurrentTask() string { return a.current }

// AssignPlan replaces the plan stack. The current task, if any, is left as is.
func (a *Agent) AssignPlan(goalName string, steps []string) {
	a.goal = goalName
	a.stack = plan.NewStack(steps...)
	a.touch()
}

// PeekNext returns the next step without consuming it.
func (a *Agent) PeekNext() (string, bool) { return a.stack.Peek() }

// DropNext discards the next step, used for steps that cannot be activated.
func (a *Agent) DropNext() (string, bool) {
	name, ok := a.stack.Pop()
	if ok {
		a.touch()
	}
	return name, ok
}

// Begin pops the next step and activates it through def.
func (a *Agent) Begin(def task.Definition) (string, bool) {
	name, ok := a.stack.Pop()
	if !ok {
		return "", false
	}
	a.current = name
	if def != nil {
		def.Activate(a)
	}
	a.touch()
	return name, true
}

// Finish deactivates the current task through def and clears it. It is a
// no-op without a current task, so hooks run at most once per activation.
func (a *Agent) Finish(def task.Definition) (string, bool) {
	if a.current == "" {
		return "", false
	}
	name := a.current
	if def != nil {
		def.Deactivate(a)
	}
	a.current = ""
	a.touch()
	return name, true
}

// Clear drops the plan, the current task and every marker.
func (a *Agent) Clear() {
	a.goal = ""
	a.stack = nil
	a.current = ""
	clear(a.markers)
	a.touch()
}

// Attach implements task.Target.
func (a *Agent) Attach(marker string) {
	a.markers[marker] = struct{}{}
}

// Detach implements task.Target.
func (a *Agent) Detach(marker string) {
	delete(a.markers, marker)
}

// HasMarker reports whether marker is attached.
func (a *Agent) HasMarker(marker string) bool {
	_, ok := a.markers[marker]
	return ok
}

// Markers returns the attached markers, sorted.
func (a *Agent) Markers() []string {
	out := make([]string, 0, len(a.markers))
	for m := range a.markers {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// UpdatedAt returns when execution state last changed.
func (a *Agent) UpdatedAt() time.Time { return a.updatedAt }

func (a *Agent) touch() {
	a.updatedAt = time.Now()
}

var _ task.Target = (*Agent)(nil)
