package config

import "errors"

// Domain errors for configuration operations.
var (
	// ErrConfigNotFound indicates the scenario file was not found.
	ErrConfigNotFound = errors.New("config: scenario file not found")

	// ErrInvalidFormat indicates the scenario could not be decoded.
	ErrInvalidFormat = errors.New("config: invalid format")

	// ErrUnsupportedFormat indicates the file format is not supported.
	ErrUnsupportedFormat = errors.New("config: unsupported format")

	// ErrValidationFailed indicates scenario validation failed.
	ErrValidationFailed = errors.New("config: validation failed")

	// ErrMissingEnvVar indicates a required environment variable is not set.
	ErrMissingEnvVar = errors.New("config: required environment variable not set")

	// ErrBuildFailed indicates the runtime could not be built from a scenario.
	ErrBuildFailed = errors.New("config: build failed")
)
