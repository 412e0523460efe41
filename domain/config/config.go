// Package config provides domain models for planning scenarios.
package config

import "time"

// Scenario is a complete planning setup: global facts, task library, agents
// and the infrastructure they run on.
type Scenario struct {
	// Name is a human-readable name for this scenario.
	Name string `json:"name" yaml:"name"`
	// Version is the scenario schema version.
	Version string `json:"version" yaml:"version"`
	// Description describes the scenario.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// World contains the global facts shared by every agent.
	World map[string]any `json:"world,omitempty" yaml:"world,omitempty"`
	// Planner tunes the forward search.
	Planner PlannerConfig `json:"planner,omitempty" yaml:"planner,omitempty"`
	// Cache configures the plan cache.
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// Storage configures event and snapshot persistence.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
	// Logging configures the global logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Telemetry configures tracing and metrics.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`

	// Tasks are the primitive task definitions.
	Tasks []TaskConfig `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	// Macros are ordered composites of tasks.
	Macros []MacroConfig `json:"macros,omitempty" yaml:"macros,omitempty"`
	// Agents are the planning agents.
	Agents []AgentConfig `json:"agents,omitempty" yaml:"agents,omitempty"`
}

// PlannerConfig tunes the forward search.
type PlannerConfig struct {
	// MaxIterations bounds expansions per planning call (default 10000).
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	// MaxDepth bounds plan length (default 16).
	MaxDepth int `json:"max_depth,omitempty" yaml:"max_depth,omitempty"`
	// DepthFromTasks uses the agent's task count as the depth bound.
	DepthFromTasks bool `json:"depth_from_tasks,omitempty" yaml:"depth_from_tasks,omitempty"`
}

// CacheConfig configures the plan cache.
type CacheConfig struct {
	// Backend is none, memory, badger, redis or sqlite. Empty means none.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// TTL is how long a cached plan stays valid. Zero never expires.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// MaxSize bounds the memory backend.
	MaxSize int `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	// Dir is the badger data directory. Empty runs in memory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Address is the redis address.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Password is the redis password.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	// DB is the redis database number.
	DB int `json:"db,omitempty" yaml:"db,omitempty"`
	// DSN is the sqlite data source.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// KeyPrefix namespaces cache keys.
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	// Resilience guards remote backends.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
}

// StorageConfig configures event and snapshot persistence.
type StorageConfig struct {
	// Backend is memory, sqlite, badger, postgres or redis. Empty means memory.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// DSN is the sqlite data source or postgres connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Dir is the badger data directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Address is the redis address. Redis stores snapshots only.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Schema is the postgres schema.
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// ResilienceConfig contains resilience settings.
type ResilienceConfig struct {
	// Timeout bounds a single backend call.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Retry configures retry behavior.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// Bulkhead configures bulkhead behavior.
	Bulkhead BulkheadConfig `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum retry attempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Threshold is consecutive failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// BulkheadConfig configures bulkhead behavior.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum concurrent calls.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is json or console.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// NoColor disables console colors.
	NoColor bool `json:"no_color,omitempty" yaml:"no_color,omitempty"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	// Exporter is noop, stdout or otlp.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP collector address.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS for OTLP.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is in [0, 1].
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	// ServiceName overrides the resource service name.
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	// Metrics enables the otel metrics recorder.
	Metrics bool `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// DefaultTaskCost is the cost of a task that sets neither cost nor cost_expr.
const DefaultTaskCost = 1.0

// TaskConfig defines a primitive task.
type TaskConfig struct {
	// Name is the registry name.
	Name string `json:"name" yaml:"name"`
	// Pre maps facts to required values.
	Pre map[string]any `json:"pre,omitempty" yaml:"pre,omitempty"`
	// Require holds non-equality constraints.
	Require []ConstraintConfig `json:"require,omitempty" yaml:"require,omitempty"`
	// Post maps facts to the values the task produces.
	Post map[string]any `json:"post,omitempty" yaml:"post,omitempty"`
	// Cost is the static cost (default DefaultTaskCost).
	Cost *float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
	// CostExpr is an expression over the world evaluated as the cost.
	CostExpr string `json:"cost_expr,omitempty" yaml:"cost_expr,omitempty"`
	// Marker is attached to the agent while the task runs.
	Marker string `json:"marker,omitempty" yaml:"marker,omitempty"`
	// Behavior resolves the task on the host.
	Behavior BehaviorConfig `json:"behavior,omitempty" yaml:"behavior,omitempty"`
}

// ConstraintConfig is a single fact comparison.
type ConstraintConfig struct {
	// Key is the fact name.
	Key string `json:"key" yaml:"key"`
	// Op is equals, has, greater or less.
	Op string `json:"op" yaml:"op"`
	// Value is the comparison value. Unused by has.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`
}

// BehaviorConfig selects a host-side behavior for a task.
type BehaviorConfig struct {
	// Type is none, debug or wait. Empty means none.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	// Message is logged by debug.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	// Ticks is how long wait runs.
	Ticks int `json:"ticks,omitempty" yaml:"ticks,omitempty"`
}

// MacroConfig defines an ordered composite task.
type MacroConfig struct {
	// Name is how agents refer to the macro. Empty joins the step names.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Steps are task or macro names in execution order.
	Steps []string `json:"steps" yaml:"steps"`
}

// AgentConfig defines a planning agent.
type AgentConfig struct {
	// Name identifies the agent. IDs derive from it.
	Name string `json:"name" yaml:"name"`
	// Tasks are the task and macro names the agent may plan with.
	Tasks []string `json:"tasks" yaml:"tasks"`
	// Goals are tried in order of the evaluation policy.
	Goals []GoalConfig `json:"goals" yaml:"goals"`
	// Evaluation is top, random or custom (default top).
	Evaluation string `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
	// Seed makes random evaluation repeatable.
	Seed *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	// World holds agent-local facts that override global ones.
	World map[string]any `json:"world,omitempty" yaml:"world,omitempty"`
}

// GoalConfig defines a goal.
type GoalConfig struct {
	// Name identifies the goal.
	Name string `json:"name" yaml:"name"`
	// Requires maps facts to required values.
	Requires map[string]any `json:"requires,omitempty" yaml:"requires,omitempty"`
	// Require holds non-equality constraints.
	Require []ConstraintConfig `json:"require,omitempty" yaml:"require,omitempty"`
	// Utility orders goals. Higher first.
	Utility float64 `json:"utility,omitempty" yaml:"utility,omitempty"`
	// When is an expression gating the goal under custom evaluation.
	When string `json:"when,omitempty" yaml:"when,omitempty"`
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	// Handle null
	if string(b) == "null" {
		return nil
	}

	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
