package task

import "errors"

// Domain errors for tasks.
var (
	// ErrUnknownTask indicates a task name with no registered definition.
	ErrUnknownTask = errors.New("task: unknown task")

	// ErrInvalidTaskName indicates an empty or malformed task name.
	ErrInvalidTaskName = errors.New("task: invalid task name")

	// ErrEmptyMacro indicates a macro without steps.
	ErrEmptyMacro = errors.New("task: macro has no steps")

	// ErrNilDefinition indicates an attempt to register a nil definition.
	ErrNilDefinition = errors.New("task: nil definition")
)
