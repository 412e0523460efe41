package world

import "errors"

// Domain errors for world state and requirements.
var (
	// ErrUnsupportedValue indicates a value that cannot become a predicate.
	ErrUnsupportedValue = errors.New("world: unsupported predicate value")

	// ErrUnknownOperator indicates an unrecognized requirement operator.
	ErrUnknownOperator = errors.New("world: unknown requirement operator")

	// ErrInvalidThreshold indicates a numeric requirement without a numeric threshold.
	ErrInvalidThreshold = errors.New("world: invalid numeric threshold")
)
