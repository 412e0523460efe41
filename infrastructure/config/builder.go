package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/felixgeelhaar/htn-go/domain/agent"
	domainconfig "github.com/felixgeelhaar/htn-go/domain/config"
	"github.com/felixgeelhaar/htn-go/domain/goal"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/domain/world"
	"github.com/felixgeelhaar/htn-go/infrastructure/behavior"
	"github.com/felixgeelhaar/htn-go/infrastructure/expression"
	"github.com/felixgeelhaar/htn-go/infrastructure/planner"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/memory"
)

// Builder builds runtime components from a scenario.
type Builder struct {
	scenario *domainconfig.Scenario
}

// NewBuilder creates a new scenario builder.
func NewBuilder(s *domainconfig.Scenario) *Builder {
	return &Builder{scenario: s}
}

// BuildResult contains the components built from a scenario.
type BuildResult struct {
	// World is the global fact set.
	World world.State
	// Registry holds every task definition.
	Registry *memory.TaskRegistry
	// Tasks maps task and macro names to their task values.
	Tasks map[string]task.Task
	// Agents are ready to add to a runtime.
	Agents []*agent.Agent
	// Behaviors resolve tasks on the host, one per behavior-backed task.
	Behaviors behavior.Set
	// PlannerOptions configure the forward search.
	PlannerOptions []planner.Option
}

// Build builds the components. Each component error is wrapped with ErrBuildFailed.
func (b *Builder) Build() (*BuildResult, error) {
	s := b.scenario
	result := &BuildResult{
		Registry: memory.NewTaskRegistry(),
		Tasks:    make(map[string]task.Task),
	}

	w, err := world.FromMap(s.World)
	if err != nil {
		return nil, fmt.Errorf("%w: world: %w", domainconfig.ErrBuildFailed, err)
	}
	result.World = w
	result.PlannerOptions = b.plannerOptions()

	for _, tc := range s.Tasks {
		if err := b.buildTask(result, tc); err != nil {
			return nil, fmt.Errorf("%w: task %s: %w", domainconfig.ErrBuildFailed, tc.Name, err)
		}
	}

	if err := b.buildMacros(result); err != nil {
		return nil, fmt.Errorf("%w: %w", domainconfig.ErrBuildFailed, err)
	}

	for _, ac := range s.Agents {
		a, err := b.buildAgent(result, ac)
		if err != nil {
			return nil, fmt.Errorf("%w: agent %s: %w", domainconfig.ErrBuildFailed, ac.Name, err)
		}
		result.Agents = append(result.Agents, a)
	}

	return result, nil
}

// Build is a convenience for NewBuilder(s).Build().
func Build(s *domainconfig.Scenario) (*BuildResult, error) {
	return NewBuilder(s).Build()
}

// Fingerprint hashes the parts of s that shape a plan: tasks, macros and
// planner limits. Plan caches use it as their namespace.
func Fingerprint(s *domainconfig.Scenario) string {
	data, err := json.Marshal(struct {
		Planner domainconfig.PlannerConfig `json:"planner"`
		Tasks   []domainconfig.TaskConfig  `json:"tasks"`
		Macros  []domainconfig.MacroConfig `json:"macros"`
	}{s.Planner, s.Tasks, s.Macros})
	if err != nil {
		// Unencodable facts only make the namespace less specific.
		data = []byte(s.Name + "\x00" + s.Version)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func (b *Builder) plannerOptions() []planner.Option {
	p := b.scenario.Planner
	var opts []planner.Option
	if p.MaxIterations > 0 {
		opts = append(opts, planner.WithMaxIterations(p.MaxIterations))
	}
	if p.MaxDepth > 0 {
		opts = append(opts, planner.WithMaxDepth(p.MaxDepth))
	}
	if p.DepthFromTasks {
		opts = append(opts, planner.WithDepthFromTasks())
	}
	return opts
}

// requirements merges equality facts with explicit constraints. Constraints win per key.
func requirements(pre map[string]any, cs []domainconfig.ConstraintConfig) (world.Requirements, error) {
	facts, err := world.FromMap(pre)
	if err != nil {
		return world.Requirements{}, err
	}
	req := world.RequirementsOf(facts)
	for _, c := range cs {
		op, err := world.ParseOperator(c.Op)
		if err != nil {
			return world.Requirements{}, err
		}
		constraint, err := world.NewConstraint(op, c.Value)
		if err != nil {
			return world.Requirements{}, fmt.Errorf("%s: %w", c.Key, err)
		}
		req.Add(world.Requirement{Key: c.Key, Constraint: constraint})
	}
	return req, nil
}

func (b *Builder) buildTask(result *BuildResult, tc domainconfig.TaskConfig) error {
	pre, err := requirements(tc.Pre, tc.Require)
	if err != nil {
		return err
	}
	post, err := world.FromMap(tc.Post)
	if err != nil {
		return err
	}

	var opts []task.DefinitionOption
	switch {
	case tc.CostExpr != "":
		n, err := expression.NewNumber(tc.CostExpr, 1)
		if err != nil {
			return err
		}
		opts = append(opts, task.WithCostFunc(n.Cost))
	case tc.Cost != nil:
		opts = append(opts, task.WithCost(*tc.Cost))
	default:
		opts = append(opts, task.WithCost(domainconfig.DefaultTaskCost))
	}
	if tc.Marker != "" {
		opts = append(opts, task.WithMarker(tc.Marker))
	}

	var bh behavior.Behavior
	switch tc.Behavior.Type {
	case "debug":
		bh = behavior.NewDebug(markerFor(tc), tc.Behavior.Message)
	case "wait":
		bh = behavior.NewWait(markerFor(tc), tc.Behavior.Ticks)
	}

	def := task.NewDefinition(pre, post, opts...)
	if bh != nil {
		def = behavior.Define(bh, pre, post, opts...)
		// One behavior per marker, otherwise a shared marker would report twice.
		if !slices.ContainsFunc(result.Behaviors, func(b behavior.Behavior) bool { return b.Marker() == bh.Marker() }) {
			result.Behaviors = append(result.Behaviors, bh)
		}
	}

	if err := result.Registry.Register(tc.Name, def); err != nil {
		return err
	}
	result.Tasks[tc.Name] = task.NewPrimitive(tc.Name, pre, post)
	return nil
}

// markerFor keeps an explicit marker and otherwise derives one per task so
// behaviors only see their own task.
func markerFor(tc domainconfig.TaskConfig) string {
	if tc.Marker != "" {
		return tc.Marker
	}
	return "task:" + tc.Name
}

// buildMacros resolves macros in dependency order; macros may reference
// macros declared later in the file.
func (b *Builder) buildMacros(result *BuildResult) error {
	pending := slices.Clone(b.scenario.Macros)
	for len(pending) > 0 {
		var next []domainconfig.MacroConfig
		for _, m := range pending {
			steps := make([]task.Task, 0, len(m.Steps))
			ready := true
			for _, name := range m.Steps {
				t, ok := result.Tasks[name]
				if !ok {
					ready = false
					break
				}
				steps = append(steps, t)
			}
			if !ready {
				next = append(next, m)
				continue
			}
			macro := task.NewMacro(m.Name, steps...)
			result.Tasks[macro.Name()] = macro
		}
		if len(next) == len(pending) {
			return fmt.Errorf("macro %s: %w", domainconfig.MacroName(next[0]), task.ErrUnknownTask)
		}
		pending = next
	}
	return nil
}

func (b *Builder) buildAgent(result *BuildResult, ac domainconfig.AgentConfig) (*agent.Agent, error) {
	local, err := world.FromMap(ac.World)
	if err != nil {
		return nil, err
	}

	tasks := make([]task.Task, 0, len(ac.Tasks))
	for _, name := range ac.Tasks {
		t, ok := result.Tasks[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", task.ErrUnknownTask, name)
		}
		tasks = append(tasks, t)
	}

	goals := make([]goal.Goal, 0, len(ac.Goals))
	when := make(map[string]string)
	for _, gc := range ac.Goals {
		req, err := requirements(gc.Requires, gc.Require)
		if err != nil {
			return nil, fmt.Errorf("goal %s: %w", gc.Name, err)
		}
		goals = append(goals, goal.New(gc.Name, req, gc.Utility))
		if gc.When != "" {
			when[gc.Name] = gc.When
		}
	}
	goal.SortByUtility(goals)

	evaluator, err := evaluatorFor(ac, when)
	if err != nil {
		return nil, err
	}

	return agent.NewWithID(agent.IDFor(ac.Name), ac.Name,
		agent.WithTasks(tasks...),
		agent.WithGoals(goals...),
		agent.WithEvaluator(evaluator),
		agent.WithWorld(local),
	)
}

func evaluatorFor(ac domainconfig.AgentConfig, when map[string]string) (goal.Evaluator, error) {
	e, err := goal.ParseEvaluation(ac.Evaluation)
	if err != nil {
		return nil, err
	}
	switch e {
	case goal.EvaluationRandom:
		if ac.Seed != nil {
			return goal.Random(*ac.Seed), nil
		}
		return goal.Random(), nil
	case goal.EvaluationCustom:
		sel, err := expression.NewSelector(when)
		if err != nil {
			return nil, err
		}
		return sel, nil
	default:
		return goal.Top(), nil
	}
}
