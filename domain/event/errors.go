package event

import "errors"

// Domain errors for event store operations.
var (
	// ErrAgentNotFound is returned when a store has no events for an agent.
	ErrAgentNotFound = errors.New("event: agent not found")

	// ErrInvalidEvent is returned when an event is malformed.
	ErrInvalidEvent = errors.New("event: invalid event")

	// ErrConnectionFailed is returned when the store backend cannot be reached.
	ErrConnectionFailed = errors.New("event: store connection failed")

	// ErrOperationTimeout is returned when a store operation exceeds its deadline.
	ErrOperationTimeout = errors.New("event: operation timeout")

	// ErrSubscriptionClosed is returned when a subscription channel is closed.
	ErrSubscriptionClosed = errors.New("event: subscription closed")
)
