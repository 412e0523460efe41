package task

import "github.com/felixgeelhaar/htn-go/domain/world"

// Target is whatever a task acts upon when it becomes current. Hooks
// typically attach a behavior marker on activation and remove it on
// deactivation.
type Target interface {
	ID() string
	Attach(marker string)
	Detach(marker string)
}

// Definition describes how a named task behaves at planning and execution time.
type Definition interface {
	// Preconditions must validate against a world before the task is eligible.
	Preconditions() world.Requirements

	// Postconditions are merged into the world when the task is applied.
	Postconditions() world.State

	// Cost is evaluated against the world produced by the task.
	Cost(w world.State) float64

	// Activate runs once when the task becomes the target's current task.
	Activate(t Target)

	// Deactivate runs once when the task stops being current.
	Deactivate(t Target)
}

// CostFunc derives a cost from the post-task world.
type CostFunc func(w world.State) float64

// Hook is a side-effect invoked on activation or deactivation.
type Hook func(t Target)

// StaticDefinition is a Definition with fixed conditions and optional hooks.
type StaticDefinition struct {
	pre        world.Requirements
	post       world.State
	cost       CostFunc
	activate   Hook
	deactivate Hook
}

// DefinitionOption configures a StaticDefinition.
type DefinitionOption func(*StaticDefinition)

// WithCost sets a constant cost.
func WithCost(c float64) DefinitionOption {
	return func(d *StaticDefinition) {
		d.cost = func(world.State) float64 { return c }
	}
}

// WithCostFunc sets a world-dependent cost.
func WithCostFunc(fn CostFunc) DefinitionOption {
	return func(d *StaticDefinition) {
		d.cost = fn
	}
}

// WithMarker attaches marker to the target on activation and detaches it on deactivation.
func WithMarker(marker string) DefinitionOption {
	return func(d *StaticDefinition) {
		d.activate = func(t Target) { t.Attach(marker) }
		d.deactivate = func(t Target) { t.Detach(marker) }
	}
}

// WithHooks sets custom activation and deactivation hooks. Nil hooks are ignored.
func WithHooks(activate, deactivate Hook) DefinitionOption {
	return func(d *StaticDefinition) {
		d.activate = activate
		d.deactivate = deactivate
	}
}

// NewDefinition creates a static definition. Cost defaults to zero.
func NewDefinition(pre world.Requirements, post world.State, opts ...DefinitionOption) *StaticDefinition {
	d := &StaticDefinition{pre: pre, post: post.Clone()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DefinitionFor lifts a primitive's declared conditions into a definition.
func DefinitionFor(p Primitive, opts ...DefinitionOption) *StaticDefinition {
	return NewDefinition(p.Preconditions(), p.Postconditions(), opts...)
}

// Preconditions implements Definition.
func (d *StaticDefinition) Preconditions() world.Requirements { return d.pre }

// Postconditions implements Definition.
func (d *StaticDefinition) Postconditions() world.State { return d.post.Clone() }

// Cost implements Definition.
func (d *StaticDefinition) Cost(w world.State) float64 {
	if d.cost == nil {
		return 0
	}
	return d.cost(w)
}

// Activate implements Definition.
func (d *StaticDefinition) Activate(t Target) {
	if d.activate != nil {
		d.activate(t)
	}
}

// Deactivate implements Definition.
func (d *StaticDefinition) Deactivate(t Target) {
	if d.deactivate != nil {
		d.deactivate(t)
	}
}

var _ Definition = (*StaticDefinition)(nil)
