package task

import (
	"fmt"

	"github.com/felixgeelhaar/htn-go/domain/world"
)

// Registry maps task names to definitions. It is written during setup and
// read concurrently by planning and execution afterwards.
type Registry interface {
	// Register inserts or replaces a definition.
	Register(name string, def Definition) error

	// Get returns the definition for name.
	Get(name string) (Definition, bool)

	// Has reports whether name is registered.
	Has(name string) bool

	// Names returns the registered names in sorted order.
	Names() []string

	// Len returns the number of registered definitions.
	Len() int
}

// Resolution is a task whose conditions and cost come from registry definitions.
type Resolution struct {
	Task           Task
	Preconditions  world.Requirements
	Postconditions world.State
	defs           []Definition
}

// Cost sums the cost of every resolved primitive against w.
func (r *Resolution) Cost(w world.State) float64 {
	var total float64
	for _, d := range r.defs {
		total += d.Cost(w)
	}
	return total
}

// Resolve looks up the definition of every primitive inside t. A macro
// combines its steps with the same ordering rules as Macro.Preconditions
// and Macro.Postconditions.
func Resolve(reg Registry, t Task) (*Resolution, error) {
	switch v := t.(type) {
	case Primitive:
		def, ok := reg.Get(v.Name())
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTask, v.Name())
		}
		return &Resolution{
			Task:           v,
			Preconditions:  def.Preconditions(),
			Postconditions: def.Postconditions(),
			defs:           []Definition{def},
		}, nil
	case Macro:
		if len(v.steps) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyMacro, v.Name())
		}
		steps := make([]*Resolution, len(v.steps))
		for i, s := range v.steps {
			r, err := Resolve(reg, s)
			if err != nil {
				return nil, fmt.Errorf("macro %s: %w", v.Name(), err)
			}
			steps[i] = r
		}
		out := &Resolution{Task: v, Postconditions: world.New()}
		for i := len(steps) - 1; i >= 0; i-- {
			out.Preconditions = out.Preconditions.Concat(steps[i].Preconditions)
		}
		for _, r := range steps {
			out.Postconditions.Append(r.Postconditions)
			out.defs = append(out.defs, r.defs...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownTask, t)
	}
}
