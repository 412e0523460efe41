package goal

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/felixgeelhaar/htn-go/domain/world"
)

// Evaluation names a built-in goal selection policy.
type Evaluation string

// Built-in policies.
const (
	EvaluationTop    Evaluation = "top"
	EvaluationRandom Evaluation = "random"
	EvaluationCustom Evaluation = "custom"
)

// ParseEvaluation converts a configuration name into an Evaluation.
func ParseEvaluation(s string) (Evaluation, error) {
	switch e := Evaluation(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return EvaluationTop, nil
	case EvaluationTop, EvaluationRandom, EvaluationCustom:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEvaluation, s)
	}
}

// Evaluator selects the active goal for a planning attempt.
type Evaluator interface {
	Next(goals []Goal, w world.State) (Goal, bool)
}

// SelectorFunc adapts a function to Evaluator.
type SelectorFunc func(goals []Goal, w world.State) (Goal, bool)

// Next implements Evaluator.
func (f SelectorFunc) Next(goals []Goal, w world.State) (Goal, bool) {
	return f(goals, w)
}

// Custom delegates selection to fn.
func Custom(fn func(goals []Goal, w world.State) (Goal, bool)) Evaluator {
	return SelectorFunc(fn)
}

type top struct{}

// Top selects the first goal in list order.
func Top() Evaluator {
	return top{}
}

func (top) Next(goals []Goal, _ world.State) (Goal, bool) {
	if len(goals) == 0 {
		return Goal{}, false
	}
	return goals[0], true
}

// RandomEvaluator picks a goal uniformly at random.
type RandomEvaluator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Random returns a uniform evaluator. With a seed the sequence is reproducible.
func Random(seed ...uint64) *RandomEvaluator {
	var src rand.Source
	if len(seed) > 0 {
		src = rand.NewPCG(seed[0], seed[0]^0x9e3779b97f4a7c15)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomEvaluator{rng: rand.New(src)}
}

// Next implements Evaluator.
func (r *RandomEvaluator) Next(goals []Goal, _ world.State) (Goal, bool) {
	if len(goals) == 0 {
		return Goal{}, false
	}
	r.mu.Lock()
	i := r.rng.IntN(len(goals))
	r.mu.Unlock()
	return goals[i], true
}

// Deterministic reports whether e always makes the same choice for the same
// inputs. Custom selectors are assumed to be pure.
func Deterministic(e Evaluator) bool {
	_, random := e.(*RandomEvaluator)
	return !random
}

var (
	_ Evaluator = top{}
	_ Evaluator = (*RandomEvaluator)(nil)
	_ Evaluator = SelectorFunc(nil)
)
