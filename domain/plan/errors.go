package plan

import (
	"errors"
	"fmt"
)

// Planning errors.
var (
	// ErrPlanningFailed indicates no plan could be produced. Callers leave the
	// agent unplanned and retry on a later cycle.
	ErrPlanningFailed = errors.New("plan: planning failed")

	// ErrNoGoal indicates the goal evaluator selected nothing.
	ErrNoGoal = fmt.Errorf("%w: no goal selectable", ErrPlanningFailed)

	// ErrNoLeaf indicates the search found no goal-reaching node.
	ErrNoLeaf = fmt.Errorf("%w: no goal-reaching leaf", ErrPlanningFailed)

	// ErrSearchBudgetExceeded indicates the iteration ceiling was reached.
	ErrSearchBudgetExceeded = errors.New("plan: search budget exceeded")

	// ErrMalformedTaskGraph indicates a search tree invariant was violated
	// while unwinding a leaf. It signals a bug, not a planning outcome.
	ErrMalformedTaskGraph = errors.New("plan: malformed task graph")
)
