// Package task defines plannable tasks and the registry of their runtime definitions.
package task

import (
	"strings"

	"github.com/felixgeelhaar/htn-go/domain/world"
)

// Task is either a Primitive or a Macro.
type Task interface {
	// Name identifies the task. Primitive names key the registry.
	Name() string

	// Preconditions are the requirements that must hold before the task starts.
	Preconditions() world.Requirements

	// Postconditions are the facts the task establishes.
	Postconditions() world.State

	// Decompose flattens the task into its primitives, depth-first.
	Decompose() []Primitive

	isTask()
}

// Primitive is an atomic, directly executable task.
type Primitive struct {
	name string
	pre  world.Requirements
	post world.State
}

// NewPrimitive creates a primitive task with declared conditions.
func NewPrimitive(name string, pre world.Requirements, post world.State) Primitive {
	return Primitive{name: name, pre: pre, post: post.Clone()}
}

// Named creates a primitive that carries only its name; its conditions come
// from the registry definition of the same name.
func Named(name string) Primitive {
	return Primitive{name: name}
}

// Name implements Task.
func (p Primitive) Name() string { return p.name }

// Preconditions implements Task.
func (p Primitive) Preconditions() world.Requirements { return p.pre }

// Postconditions implements Task.
func (p Primitive) Postconditions() world.State { return p.post.Clone() }

// Decompose implements Task.
func (p Primitive) Decompose() []Primitive { return []Primitive{p} }

func (Primitive) isTask() {}

// Macro is an ordered composite of tasks.
type Macro struct {
	name  string
	steps []Task
}

// NewMacro creates a macro task. An empty name is derived from the step names.
func NewMacro(name string, steps ...Task) Macro {
	s := make([]Task, len(steps))
	copy(s, steps)
	if name == "" {
		names := make([]string, len(s))
		for i, t := range s {
			names[i] = t.Name()
		}
		name = strings.Join(names, "+")
	}
	return Macro{name: name, steps: s}
}

// Name implements Task.
func (m Macro) Name() string { return m.name }

// Children returns the direct sub-tasks in order.
func (m Macro) Children() []Task {
	out := make([]Task, len(m.steps))
	copy(out, m.steps)
	return out
}

// Preconditions merges the steps' preconditions taken in reverse order, so the
// first step's requirements override those of later steps.
func (m Macro) Preconditions() world.Requirements {
	var out world.Requirements
	for i := len(m.steps) - 1; i >= 0; i-- {
		out = out.Concat(m.steps[i].Preconditions())
	}
	return out
}

// Postconditions merges the steps' postconditions in order; later steps win.
func (m Macro) Postconditions() world.State {
	out := world.New()
	for _, s := range m.steps {
		out.Append(s.Postconditions())
	}
	return out
}

// Decompose implements Task.
func (m Macro) Decompose() []Primitive {
	var out []Primitive
	for _, s := range m.steps {
		out = append(out, s.Decompose()...)
	}
	return out
}

func (Macro) isTask() {}

// Steps returns the primitive names of a task in execution order.
func Steps(t Task) []string {
	prims := t.Decompose()
	names := make([]string, len(prims))
	for i, p := range prims {
		names[i] = p.Name()
	}
	return names
}

// Flatten decomposes a sequence of tasks into one ordered list of primitive names.
func Flatten(tasks []Task) []string {
	var out []string
	for _, t := range tasks {
		out = append(out, Steps(t)...)
	}
	return out
}

// Names returns the top-level names of tasks.
func Names(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name()
	}
	return out
}
