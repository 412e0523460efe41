package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/htn-go/domain/cache"
	"github.com/felixgeelhaar/htn-go/domain/goal"
	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/domain/world"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
	"github.com/felixgeelhaar/htn-go/infrastructure/telemetry"
)

// DefaultCacheTTL is how long a cached plan stays valid.
const DefaultCacheTTL = 5 * time.Minute

// Cached memoizes plans keyed by goal, world and task list. Cache failures
// are logged and fall through to the wrapped planner.
type Cached struct {
	next      plan.Planner
	cache     cache.Cache
	ttl       time.Duration
	metrics   telemetry.Metrics
	registry  task.Registry
	namespace string
}

// CachedOption configures the caching decorator.
type CachedOption func(*Cached)

// WithTTL sets the entry lifetime. Zero keeps plans until evicted.
func WithTTL(ttl time.Duration) CachedOption {
	return func(c *Cached) {
		c.ttl = ttl
	}
}

// WithCacheMetrics records hits and misses.
func WithCacheMetrics(m telemetry.Metrics) CachedOption {
	return func(c *Cached) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithRegistry folds each task's resolved conditions, steps and cost into the
// key, so redefining a task misses instead of serving the old plan. Costs from
// a CostFunc are sampled on the task's own outcome; use WithNamespace when
// such a function changes.
func WithRegistry(reg task.Registry) CachedOption {
	return func(c *Cached) {
		c.registry = reg
	}
}

// WithNamespace scopes every key, typically with a scenario fingerprint.
// Changing it retires all earlier entries in a shared backend.
func WithNamespace(ns string) CachedOption {
	return func(c *Cached) {
		c.namespace = ns
	}
}

// NewCached wraps next with a plan cache.
func NewCached(next plan.Planner, c cache.Cache, opts ...CachedOption) *Cached {
	p := &Cached{
		next:    next,
		cache:   c,
		ttl:     DefaultCacheTTL,
		metrics: telemetry.NoopMetricsProvider{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan implements plan.Planner. The goal is chosen before the lookup so a
// random evaluator still produces a stable key for what is actually planned.
func (c *Cached) Plan(ctx context.Context, req plan.Request) (*plan.Plan, error) {
	g, ok := req.Evaluation().Next(req.Goals, req.World)
	if !ok {
		return nil, plan.ErrNoGoal
	}

	key := c.keyFor(req, g)

	if p, hit := c.lookup(ctx, req.Agent, key); hit {
		c.metrics.RecordCacheHit(ctx, req.Agent)
		return p, nil
	}
	c.metrics.RecordCacheMiss(ctx, req.Agent)

	single := req
	single.Goals = []goal.Goal{g}
	single.Evaluator = goal.Top()

	p, err := c.next.Plan(ctx, single)
	if err != nil {
		return nil, err
	}

	c.store(ctx, req.Agent, key, p)
	return p, nil
}

func (c *Cached) lookup(ctx context.Context, agentName, key string) (*plan.Plan, bool) {
	data, found, err := c.cache.Get(ctx, key)
	if err != nil {
		logging.Warn().
			Add(logging.Agent(agentName)).
			Add(logging.Key(key)).
			Add(logging.ErrorField(err)).
			Msg("plan cache read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}

	p, err := cache.Decode(data)
	if err != nil {
		logging.Warn().
			Add(logging.Agent(agentName)).
			Add(logging.Key(key)).
			Add(logging.ErrorField(err)).
			Msg("dropping corrupt plan cache entry")
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}

	logging.Debug().
		Add(logging.Agent(agentName)).
		Add(logging.Goal(p.Goal)).
		Add(logging.Cached(true)).
		Msg("plan served from cache")
	return p, true
}

func (c *Cached) store(ctx context.Context, agentName, key string, p *plan.Plan) {
	data, err := cache.Encode(p)
	if err == nil {
		err = c.cache.Set(ctx, key, data, c.ttl)
	}
	if err != nil {
		logging.Warn().
			Add(logging.Agent(agentName)).
			Add(logging.Key(key)).
			Add(logging.ErrorField(err)).
			Msg("plan cache write failed")
	}
}

func (c *Cached) keyFor(req plan.Request, g goal.Goal) string {
	tasks := make([]string, len(req.Tasks))
	for i, t := range req.Tasks {
		tasks[i] = c.describe(t, req.World)
	}
	return cache.Key(c.namespace, g, req.World, tasks)
}

// describe renders what the search can observe of t.
func (c *Cached) describe(t task.Task, w world.State) string {
	desc := t.Name() + "=" + strings.Join(task.Steps(t), ",")
	if c.registry == nil {
		return desc
	}
	r, err := task.Resolve(c.registry, t)
	if err != nil {
		return desc + "|unresolved"
	}
	return fmt.Sprintf("%s|pre=%s|post=%s|cost=%g",
		desc, r.Preconditions.String(), r.Postconditions.String(), r.Cost(w.Concat(r.Postconditions)))
}

var _ plan.Planner = (*Cached)(nil)
