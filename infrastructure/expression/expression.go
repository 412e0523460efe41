// Package expression compiles expr-lang expressions evaluated against world
// facts: boolean conditions, numeric costs and goal selection rules.
package expression

import (
	"errors"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/felixgeelhaar/htn-go/domain/world"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
)

// ErrEmptyExpression is returned when compiling blank source.
var ErrEmptyExpression = errors.New("expression: empty source")

type kind int

const (
	kindBool kind = iota
	kindNumber
)

type cacheKey struct {
	source string
	kind   kind
}

// Compiled programs are immutable and shared across conditions with the same source.
var (
	programs   = make(map[cacheKey]*vm.Program)
	programsMu sync.RWMutex
)

func compile(source string, k kind) (*vm.Program, error) {
	if source == "" {
		return nil, ErrEmptyExpression
	}

	key := cacheKey{source: source, kind: k}
	programsMu.RLock()
	p, ok := programs[key]
	programsMu.RUnlock()
	if ok {
		return p, nil
	}

	opts := []expr.Option{expr.AllowUndefinedVariables()}
	switch k {
	case kindBool:
		opts = append(opts, expr.AsBool())
	case kindNumber:
		opts = append(opts, expr.AsFloat64())
	}

	p, err := expr.Compile(source, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}

	programsMu.Lock()
	programs[key] = p
	programsMu.Unlock()
	return p, nil
}

// CacheSize returns the number of compiled programs held.
func CacheSize() int {
	programsMu.RLock()
	defer programsMu.RUnlock()
	return len(programs)
}

// Condition is a compiled boolean expression over world facts.
type Condition struct {
	source  string
	program *vm.Program
}

// NewCondition compiles source, for example `near_door && !door_open`.
func NewCondition(source string) (*Condition, error) {
	p, err := compile(source, kindBool)
	if err != nil {
		return nil, err
	}
	return &Condition{source: source, program: p}, nil
}

// Source returns the expression text.
func (c *Condition) Source() string { return c.source }

// Eval evaluates the condition against w. Missing facts are nil.
func (c *Condition) Eval(w world.State) (bool, error) {
	out, err := expr.Run(c.program, w.Map())
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", c.source, err)
	}
	v, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: got %T, want bool", c.source, out)
	}
	return v, nil
}

// Holds is Eval that treats evaluation errors as false.
func (c *Condition) Holds(w world.State) bool {
	v, err := c.Eval(w)
	if err != nil {
		logging.Warn().
			Add(logging.Component("expression")).
			Add(logging.ErrorField(err)).
			Msg("condition evaluation failed")
		return false
	}
	return v
}

// Number is a compiled numeric expression over world facts.
type Number struct {
	source   string
	program  *vm.Program
	fallback float64
}

// NewNumber compiles source, for example `distance * 2 + 1`. Fallback is
// returned by Cost when evaluation fails.
func NewNumber(source string, fallback float64) (*Number, error) {
	p, err := compile(source, kindNumber)
	if err != nil {
		return nil, err
	}
	return &Number{source: source, program: p, fallback: fallback}, nil
}

// Source returns the expression text.
func (n *Number) Source() string { return n.source }

// Eval evaluates the expression against w.
func (n *Number) Eval(w world.State) (float64, error) {
	out, err := expr.Run(n.program, w.Map())
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", n.source, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("evaluate %q: got %T, want float64", n.source, out)
	}
	return v, nil
}

// Cost satisfies task.CostFunc.
func (n *Number) Cost(w world.State) float64 {
	v, err := n.Eval(w)
	if err != nil {
		logging.Warn().
			Add(logging.Component("expression")).
			Add(logging.ErrorField(err)).
			Msg("cost evaluation failed, using fallback")
		return n.fallback
	}
	return v
}
