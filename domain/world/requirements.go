package world

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Operator names a comparison applied to a single fact.
type Operator string

// Requirement operators.
const (
	// OpEquals holds when the fact is present with an identical value.
	OpEquals Operator = "equals"
	// OpHas holds when the fact is present, whatever its value.
	OpHas Operator = "has"
	// OpGreater holds when the fact is numeric and above the threshold.
	OpGreater Operator = "greater"
	// OpLess holds when the fact is numeric and below the threshold.
	OpLess Operator = "less"
)

// ParseOperator converts a configuration name into an Operator.
func ParseOperator(s string) (Operator, error) {
	switch Operator(strings.ToLower(strings.TrimSpace(s))) {
	case OpEquals, "eq", "":
		return OpEquals, nil
	case OpHas, "exists":
		return OpHas, nil
	case OpGreater, "gt":
		return OpGreater, nil
	case OpLess, "lt":
		return OpLess, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
	}
}

// Constraint is a single comparison against one fact.
type Constraint struct {
	Op        Operator
	Value     Predicate
	Threshold float64
}

// NewConstraint builds a constraint from configuration values. Numeric
// operators require value to be a number or a numeric string.
func NewConstraint(op Operator, value any) (Constraint, error) {
	switch op {
	case OpEquals:
		p, err := PredicateOf(value)
		if err != nil {
			return Constraint{}, err
		}
		return Constraint{Op: OpEquals, Value: p}, nil
	case OpHas:
		return Constraint{Op: OpHas}, nil
	case OpGreater, OpLess:
		p, err := PredicateOf(value)
		if err != nil {
			return Constraint{}, err
		}
		f, ok := p.Float()
		if !ok {
			return Constraint{}, fmt.Errorf("%w: %v", ErrInvalidThreshold, value)
		}
		return Constraint{Op: op, Threshold: f}, nil
	default:
		return Constraint{}, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
}

// Holds evaluates the constraint against a fact lookup result.
func (c Constraint) Holds(value Predicate, present bool) bool {
	if !present {
		return false
	}
	switch c.Op {
	case OpEquals:
		return value.Equal(c.Value)
	case OpHas:
		return true
	case OpGreater:
		f, ok := value.Float()
		return ok && f > c.Threshold
	case OpLess:
		f, ok := value.Float()
		return ok && f < c.Threshold
	default:
		return false
	}
}

// String renders the constraint.
func (c Constraint) String() string {
	switch c.Op {
	case OpEquals:
		return "== " + c.Value.String()
	case OpHas:
		return "exists"
	case OpGreater:
		return "> " + strconv.FormatFloat(c.Threshold, 'g', -1, 64)
	case OpLess:
		return "< " + strconv.FormatFloat(c.Threshold, 'g', -1, 64)
	default:
		return string(c.Op)
	}
}

// Requirement binds a constraint to a fact name.
type Requirement struct {
	Key        string
	Constraint Constraint
}

// Equals requires key to be present with value.
func Equals(key string, value Predicate) Requirement {
	return Requirement{Key: key, Constraint: Constraint{Op: OpEquals, Value: value}}
}

// Present requires key to be present with any value.
func Present(key string) Requirement {
	return Requirement{Key: key, Constraint: Constraint{Op: OpHas}}
}

// Greater requires key to hold a number above threshold.
func Greater(key string, threshold float64) Requirement {
	return Requirement{Key: key, Constraint: Constraint{Op: OpGreater, Threshold: threshold}}
}

// Less requires key to hold a number below threshold.
func Less(key string, threshold float64) Requirement {
	return Requirement{Key: key, Constraint: Constraint{Op: OpLess, Threshold: threshold}}
}

// Requirements is a keyed set of constraints, at most one per fact.
// Like State it is a value type.
type Requirements struct {
	constraints map[string]Constraint
}

// NewRequirements builds a requirement set; later entries for the same key win.
func NewRequirements(items ...Requirement) Requirements {
	r := Requirements{constraints: make(map[string]Constraint, len(items))}
	for _, it := range items {
		r.constraints[it.Key] = it.Constraint
	}
	return r
}

// RequirementsOf turns every fact of s into an equals constraint, so
// RequirementsOf(s).Validate(w) == w.Validate(s).
func RequirementsOf(s State) Requirements {
	r := Requirements{constraints: make(map[string]Constraint, s.Len())}
	for k, v := range s.entries {
		r.constraints[k] = Constraint{Op: OpEquals, Value: v}
	}
	return r
}

// Add inserts or replaces the constraint for a key.
func (r *Requirements) Add(item Requirement) *Requirements {
	if r.constraints == nil {
		r.constraints = make(map[string]Constraint)
	}
	r.constraints[item.Key] = item.Constraint
	return r
}

// Get returns the constraint for key.
func (r Requirements) Get(key string) (Constraint, bool) {
	c, ok := r.constraints[key]
	return c, ok
}

// Len returns the number of constraints.
func (r Requirements) Len() int {
	return len(r.constraints)
}

// Keys returns the constrained fact names in sorted order.
func (r Requirements) Keys() []string {
	keys := make([]string, 0, len(r.constraints))
	for k := range r.constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate reports whether every constraint holds against w.
func (r Requirements) Validate(w State) bool {
	for k, c := range r.constraints {
		v, ok := w.Lookup(k)
		if !c.Holds(v, ok) {
			return false
		}
	}
	return true
}

// Concat returns a new set where other's constraints replace r's on the same key.
func (r Requirements) Concat(other Requirements) Requirements {
	out := Requirements{constraints: make(map[string]Constraint, len(r.constraints)+len(other.constraints))}
	for k, c := range r.constraints {
		out.constraints[k] = c
	}
	for k, c := range other.constraints {
		out.constraints[k] = c
	}
	return out
}

// Items returns the requirements in sorted key order.
func (r Requirements) Items() []Requirement {
	items := make([]Requirement, 0, len(r.constraints))
	for _, k := range r.Keys() {
		items = append(items, Requirement{Key: k, Constraint: r.constraints[k]})
	}
	return items
}

// String renders the constraints in sorted key order.
func (r Requirements) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte(' ')
		b.WriteString(r.constraints[k].String())
	}
	b.WriteByte('}')
	return b.String()
}
