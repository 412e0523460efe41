// Package planner implements the forward-search HTN planner and the
// decorators that add caching and observability around it.
package planner

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/htn-go/domain/goal"
	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
)

// ctxCheckInterval is how many pops happen between cancellation checks.
const ctxCheckInterval = 64

// Search is an iterative depth-first planner over registry-resolved tasks.
type Search struct {
	registry task.Registry
	config   Config
}

// NewSearch creates a planner that resolves tasks through registry.
func NewSearch(registry task.Registry, opts ...Option) *Search {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Search{
		registry: registry,
		config:   cfg.normalized(),
	}
}

// Config returns the effective search limits.
func (s *Search) Config() Config {
	return s.config
}

// Plan searches for the lowest-cost task sequence reaching the selected goal.
func (s *Search) Plan(ctx context.Context, req plan.Request) (*plan.Plan, error) {
	g, ok := req.Evaluation().Next(req.Goals, req.World)
	if !ok {
		logging.Warn().
			Add(logging.Agent(req.Agent)).
			Add(logging.Int("goals", len(req.Goals))).
			Msg("no goal selectable")
		return nil, plan.ErrNoGoal
	}

	p, _, err := s.search(ctx, req, g)
	return p, err
}

// search returns the stats of the run even when no plan was found.
func (s *Search) search(ctx context.Context, req plan.Request, g goal.Goal) (*plan.Plan, plan.Stats, error) {
	candidates := s.resolve(req)
	maxDepth := s.config.depthLimit(len(req.Tasks))

	a := newArena(64)
	defer a.reset()
	a.add(node{world: req.World.Clone(), parent: noParent})

	queue := []int{0}
	var leaves []int
	var stats plan.Stats

	for len(queue) > 0 {
		if stats.Iterations >= s.config.MaxIterations {
			stats.BudgetExceeded = true
			break
		}
		if stats.Iterations%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}
		stats.Iterations++

		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		n := a.at(i)

		// The root is never a leaf: a plan holds at least one task.
		if n.parent != noParent && g.Requirements.Validate(n.world) {
			leaves = append(leaves, i)
			continue
		}
		if n.depth >= maxDepth {
			continue
		}
		if a.oscillates(i) {
			continue
		}

		for _, c := range candidates {
			if !c.Preconditions.Validate(n.world) {
				continue
			}
			w := n.world.Concat(c.Postconditions)
			child := a.add(node{
				task:   c.Task,
				world:  w,
				cost:   n.cost + c.Cost(w),
				depth:  n.depth + 1,
				parent: i,
			})
			queue = append(queue, child)
		}
	}

	stats.Nodes = a.len()
	stats.Leaves = len(leaves)

	if stats.BudgetExceeded {
		logging.Warn().
			Add(logging.Agent(req.Agent)).
			Add(logging.Goal(g.Name)).
			Add(logging.Iterations(stats.Iterations)).
			Add(logging.Leaves(stats.Leaves)).
			Msg("search budget exceeded, using leaves found so far")
	}

	if len(leaves) == 0 {
		logging.Debug().
			Add(logging.Agent(req.Agent)).
			Add(logging.Goal(g.Name)).
			Add(logging.Nodes(stats.Nodes)).
			Msg("no goal-reaching leaf")
		if stats.BudgetExceeded {
			return nil, stats, errors.Join(plan.ErrNoLeaf, plan.ErrSearchBudgetExceeded)
		}
		return nil, stats, plan.ErrNoLeaf
	}

	best := leaves[0]
	for _, l := range leaves[1:] {
		if a.at(l).cost < a.at(best).cost {
			best = l
		}
	}

	seq, err := a.unwind(best)
	if err != nil {
		logging.Error().
			Add(logging.Agent(req.Agent)).
			Add(logging.Goal(g.Name)).
			Add(logging.ErrorField(err)).
			Msg("search tree corrupted while unwinding plan")
		return nil, stats, err
	}

	result := &plan.Plan{
		Goal:  g.Name,
		Path:  task.Names(seq),
		Steps: task.Flatten(seq),
		Cost:  a.at(best).cost,
		Stats: stats,
	}

	logging.Debug().
		Add(logging.Agent(req.Agent)).
		Add(logging.Goal(g.Name)).
		Add(logging.Steps(result.Steps)).
		Add(logging.Cost(result.Cost)).
		Add(logging.Iterations(stats.Iterations)).
		Msg("plan found")

	return result, stats, nil
}

// resolve maps the request's tasks to registry definitions, skipping the
// ones that cannot be resolved.
func (s *Search) resolve(req plan.Request) []*task.Resolution {
	out := make([]*task.Resolution, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		if t == nil {
			continue
		}
		r, err := task.Resolve(s.registry, t)
		if err != nil {
			logging.Warn().
				Add(logging.Agent(req.Agent)).
				Add(logging.Task(t.Name())).
				Add(logging.ErrorField(err)).
				Msg("task not usable, skipping")
			continue
		}
		out = append(out, r)
	}
	return out
}

var _ plan.Planner = (*Search)(nil)
