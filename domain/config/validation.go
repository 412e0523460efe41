package config

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/htn-go/domain/goal"
	"github.com/felixgeelhaar/htn-go/domain/world"
)

// ValidationError represents a scenario validation error.
type ValidationError struct {
	// Path is the field path to the invalid value.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates scenarios.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the scenario and returns any errors.
func (v *Validator) Validate(s *Scenario) ValidationErrors {
	v.errors = nil

	v.validateRequired(s)
	v.validateFacts("world", s.World)
	v.validatePlanner(s.Planner)
	v.validateCache(s.Cache)
	v.validateStorage(s.Storage)
	v.validateLogging(s.Logging)
	v.validateTelemetry(s.Telemetry)

	names := v.validateTasks(s.Tasks)
	v.validateMacros(s.Macros, names)
	v.validateAgents(s.Agents, names)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(s *Scenario) {
	if s.Name == "" {
		v.addError("name", "name is required")
	}
	if s.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateFacts(path string, facts map[string]any) {
	for k, val := range facts {
		if k == "" {
			v.addError(path, "fact name must not be empty")
			continue
		}
		if _, err := world.PredicateOf(val); err != nil {
			v.addError(path+"."+k, err.Error())
		}
	}
}

func (v *Validator) validateConstraints(path string, cs []ConstraintConfig) {
	for i, c := range cs {
		p := fmt.Sprintf("%s[%d]", path, i)
		if c.Key == "" {
			v.addError(p+".key", "key is required")
		}
		op, err := world.ParseOperator(c.Op)
		if err != nil {
			v.addError(p+".op", fmt.Sprintf("invalid operator: %s", c.Op))
			continue
		}
		if _, err := world.NewConstraint(op, c.Value); err != nil {
			v.addError(p+".value", err.Error())
		}
	}
}

func (v *Validator) validatePlanner(p PlannerConfig) {
	if p.MaxIterations < 0 {
		v.addError("planner.max_iterations", "max_iterations must be non-negative")
	}
	if p.MaxDepth < 0 {
		v.addError("planner.max_depth", "max_depth must be non-negative")
	}
}

func (v *Validator) validateCache(c CacheConfig) {
	switch c.Backend {
	case "", "none", "memory", "badger", "sqlite":
	case "redis":
		if c.Address == "" {
			v.addError("cache.address", "address is required for redis cache")
		}
	default:
		v.addError("cache.backend", fmt.Sprintf("unknown cache backend: %s", c.Backend))
	}
	if c.Backend == "sqlite" && c.DSN == "" {
		v.addError("cache.dsn", "dsn is required for sqlite cache")
	}
	if c.TTL < 0 {
		v.addError("cache.ttl", "ttl must be non-negative")
	}
	if c.MaxSize < 0 {
		v.addError("cache.max_size", "max_size must be non-negative")
	}
	r := c.Resilience
	if r.Retry.MaxAttempts < 0 {
		v.addError("cache.resilience.retry.max_attempts", "max_attempts must be non-negative")
	}
	if r.CircuitBreaker.Threshold < 0 {
		v.addError("cache.resilience.circuit_breaker.threshold", "threshold must be non-negative")
	}
	if r.Bulkhead.MaxConcurrent < 0 {
		v.addError("cache.resilience.bulkhead.max_concurrent", "max_concurrent must be non-negative")
	}
}

func (v *Validator) validateStorage(s StorageConfig) {
	switch s.Backend {
	case "", "memory", "badger":
	case "sqlite", "postgres":
		if s.DSN == "" {
			v.addError("storage.dsn", fmt.Sprintf("dsn is required for %s storage", s.Backend))
		}
	case "redis":
		if s.Address == "" {
			v.addError("storage.address", "address is required for redis storage")
		}
	default:
		v.addError("storage.backend", fmt.Sprintf("unknown storage backend: %s", s.Backend))
	}
}

func (v *Validator) validateLogging(l LoggingConfig) {
	switch strings.ToLower(l.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", l.Level))
	}
	switch l.Format {
	case "", "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", l.Format))
	}
}

func (v *Validator) validateTelemetry(t TelemetryConfig) {
	switch t.Exporter {
	case "", "noop", "stdout":
	case "otlp":
		if t.Endpoint == "" {
			v.addError("telemetry.endpoint", "endpoint is required for otlp exporter")
		}
	default:
		v.addError("telemetry.exporter", fmt.Sprintf("unknown exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("telemetry.sample_rate", "sample_rate must be between 0 and 1")
	}
}

// validateTasks returns the set of declared task names.
func (v *Validator) validateTasks(tasks []TaskConfig) map[string]bool {
	names := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		path := fmt.Sprintf("tasks[%d]", i)
		if t.Name == "" {
			v.addError(path+".name", "task name is required")
		} else if names[t.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate task: %s", t.Name))
		}
		names[t.Name] = true

		v.validateFacts(path+".pre", t.Pre)
		v.validateFacts(path+".post", t.Post)
		v.validateConstraints(path+".require", t.Require)

		if t.Cost != nil && *t.Cost < 0 {
			v.addError(path+".cost", "cost must be non-negative")
		}
		if t.Cost != nil && t.CostExpr != "" {
			v.addError(path+".cost_expr", "cost and cost_expr are mutually exclusive")
		}

		switch t.Behavior.Type {
		case "", "none", "debug":
		case "wait":
			if t.Behavior.Ticks < 0 {
				v.addError(path+".behavior.ticks", "ticks must be non-negative")
			}
		default:
			v.addError(path+".behavior.type", fmt.Sprintf("unknown behavior: %s", t.Behavior.Type))
		}
	}
	return names
}

// MacroName returns the name a macro is registered under.
func MacroName(m MacroConfig) string {
	if m.Name != "" {
		return m.Name
	}
	return strings.Join(m.Steps, "+")
}

// validateMacros adds macro names to known and rejects undefined or cyclic steps.
func (v *Validator) validateMacros(macros []MacroConfig, known map[string]bool) {
	steps := make(map[string][]string, len(macros))
	for i, m := range macros {
		path := fmt.Sprintf("macros[%d]", i)
		if len(m.Steps) == 0 {
			v.addError(path+".steps", "macro needs at least one step")
			continue
		}
		name := MacroName(m)
		if known[name] {
			v.addError(path+".name", fmt.Sprintf("duplicate task: %s", name))
			continue
		}
		known[name] = true
		steps[name] = m.Steps
	}

	for i, m := range macros {
		path := fmt.Sprintf("macros[%d]", i)
		for j, s := range m.Steps {
			if !known[s] {
				v.addError(fmt.Sprintf("%s.steps[%d]", path, j), fmt.Sprintf("unknown task: %s", s))
			}
		}
		if len(m.Steps) > 0 && cyclic(MacroName(m), steps, map[string]bool{}) {
			v.addError(path+".steps", fmt.Sprintf("macro %s contains itself", MacroName(m)))
		}
	}
}

func cyclic(name string, steps map[string][]string, visiting map[string]bool) bool {
	if visiting[name] {
		return true
	}
	visiting[name] = true
	defer delete(visiting, name)
	for _, s := range steps[name] {
		if _, isMacro := steps[s]; isMacro && cyclic(s, steps, visiting) {
			return true
		}
	}
	return false
}

func (v *Validator) validateAgents(agents []AgentConfig, known map[string]bool) {
	names := make(map[string]bool, len(agents))
	for i, a := range agents {
		path := fmt.Sprintf("agents[%d]", i)
		if a.Name == "" {
			v.addError(path+".name", "agent name is required")
		} else if names[a.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate agent: %s", a.Name))
		}
		names[a.Name] = true

		for j, t := range a.Tasks {
			if !known[t] {
				v.addError(fmt.Sprintf("%s.tasks[%d]", path, j), fmt.Sprintf("unknown task: %s", t))
			}
		}

		if _, err := goal.ParseEvaluation(a.Evaluation); err != nil {
			v.addError(path+".evaluation", fmt.Sprintf("invalid evaluation: %s", a.Evaluation))
		}

		v.validateFacts(path+".world", a.World)

		for j, g := range a.Goals {
			gp := fmt.Sprintf("%s.goals[%d]", path, j)
			if g.Name == "" {
				v.addError(gp+".name", "goal name is required")
			}
			v.validateFacts(gp+".requires", g.Requires)
			v.validateConstraints(gp+".require", g.Require)
		}
	}
}
