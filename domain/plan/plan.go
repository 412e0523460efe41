// Package plan defines planning requests, their results and the Planner port.
package plan

import (
	"context"

	"github.com/felixgeelhaar/htn-go/domain/goal"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/domain/world"
)

// Request is the input to a planning attempt.
type Request struct {
	// World is the starting state, already merged with any agent-local facts.
	World world.State

	// Tasks are the tasks the agent may use.
	Tasks []task.Task

	// Goals are the agent's goals in priority order.
	Goals []goal.Goal

	// Evaluator selects the active goal. Nil means goal.Top().
	Evaluator goal.Evaluator

	// Agent names the requester for logs and telemetry.
	Agent string
}

// Evaluation returns the request's evaluator, defaulting to Top.
func (r Request) Evaluation() goal.Evaluator {
	if r.Evaluator == nil {
		return goal.Top()
	}
	return r.Evaluator
}

// Stats describes the work done by one search.
type Stats struct {
	Iterations     int  `json:"iterations"`
	Nodes          int  `json:"nodes"`
	Leaves         int  `json:"leaves"`
	BudgetExceeded bool `json:"budget_exceeded"`
}

// Plan is the result of a successful planning attempt.
type Plan struct {
	// Goal is the name of the goal the plan reaches.
	Goal string `json:"goal"`

	// Path lists the chosen tasks from root to leaf before decomposition.
	Path []string `json:"path"`

	// Steps lists the primitive task names in execution order.
	Steps []string `json:"steps"`

	// Cost is the accumulated cost of the winning leaf.
	Cost float64 `json:"cost"`

	Stats Stats `json:"stats"`
}

// Len returns the number of primitive steps.
func (p *Plan) Len() int {
	return len(p.Steps)
}

// Stack returns a stack over the plan's steps.
func (p *Plan) Stack() *Stack {
	return NewStack(p.Steps...)
}

// Planner produces plans.
type Planner interface {
	Plan(ctx context.Context, req Request) (*Plan, error)
}

// PlannerFunc adapts a function to Planner.
type PlannerFunc func(ctx context.Context, req Request) (*Plan, error)

// Plan implements Planner.
func (f PlannerFunc) Plan(ctx context.Context, req Request) (*Plan, error) {
	return f(ctx, req)
}
