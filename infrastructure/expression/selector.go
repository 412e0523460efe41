package expression

import (
	"fmt"

	"github.com/felixgeelhaar/htn-go/domain/goal"
	"github.com/felixgeelhaar/htn-go/domain/world"
)

// Selector picks the first goal whose `when` condition holds. Goals without
// a condition always qualify.
type Selector struct {
	when map[string]*Condition
}

// NewSelector compiles a condition per goal name.
func NewSelector(when map[string]string) (*Selector, error) {
	s := &Selector{when: make(map[string]*Condition, len(when))}
	for name, src := range when {
		c, err := NewCondition(src)
		if err != nil {
			return nil, fmt.Errorf("goal %s: %w", name, err)
		}
		s.when[name] = c
	}
	return s, nil
}

// Next implements goal.Evaluator.
func (s *Selector) Next(goals []goal.Goal, w world.State) (goal.Goal, bool) {
	for _, g := range goals {
		c, ok := s.when[g.Name]
		if !ok || c.Holds(w) {
			return g, true
		}
	}
	return goal.Goal{}, false
}

var _ goal.Evaluator = (*Selector)(nil)
