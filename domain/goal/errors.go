package goal

import "errors"

// Domain errors for goals.
var (
	// ErrUnknownEvaluation indicates an unrecognized goal selection policy name.
	ErrUnknownEvaluation = errors.New("goal: unknown evaluation")
)
