package application

import (
	"github.com/felixgeelhaar/htn-go/domain/agent"
	"github.com/felixgeelhaar/htn-go/domain/event"
	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/domain/task"
	"github.com/felixgeelhaar/htn-go/domain/world"
	"github.com/felixgeelhaar/htn-go/infrastructure/telemetry"
)

// Option configures the runtime.
type Option func(*Config)

// WithRegistry sets the task registry.
func WithRegistry(r task.Registry) Option {
	return func(c *Config) {
		c.Registry = r
	}
}

// WithPlanner sets the planner.
func WithPlanner(p plan.Planner) Option {
	return func(c *Config) {
		c.Planner = p
	}
}

// WithWorld sets the initial global facts.
func WithWorld(w world.State) Option {
	return func(c *Config) {
		c.World = w
	}
}

// WithPublisher sets where execution events are published.
func WithPublisher(p event.Publisher) Option {
	return func(c *Config) {
		c.Publisher = p
	}
}

// WithSnapshots sets the store agents are saved to and resumed from.
func WithSnapshots(s agent.SnapshotStore) Option {
	return func(c *Config) {
		c.Snapshots = s
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// NewRuntimeWithOptions creates a runtime with functional options.
func NewRuntimeWithOptions(opts ...Option) (*Runtime, error) {
	config := Config{}
	for _, opt := range opts {
		opt(&config)
	}
	return NewRuntime(config)
}
