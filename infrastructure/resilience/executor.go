// Package resilience guards plan cache backends using fortify.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
	"github.com/felixgeelhaar/htn-go/infrastructure/telemetry"
)

// result is what every guarded backend call produces.
type result struct {
	value []byte
	found bool
}

// Executor runs backend calls with bulkhead, timeout, circuit breaker and retry.
type Executor struct {
	name     string
	bulkhead bulkhead.Bulkhead[result]
	breaker  circuitbreaker.CircuitBreaker[result]
	retry    retry.Retry[result]
	timeout  time.Duration
	metrics  telemetry.Metrics

	mu   sync.Mutex
	open bool
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// Name identifies the guarded backend in logs and metrics.
	Name string

	// MaxConcurrent limits concurrent backend calls.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failures before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts for reads and idempotent writes.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between retries.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// Timeout bounds a single guarded call.
	Timeout time.Duration

	// Metrics receives circuit breaker state changes.
	Metrics telemetry.Metrics
}

// DefaultExecutorConfig returns a configuration suited to a network cache.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Name:                    "plan-cache",
		MaxConcurrent:           16,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       50 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		Timeout:                 2 * time.Second,
		Metrics:                 telemetry.NoopMetricsProvider{},
	}
}

// NewExecutor creates a new resilient executor.
func NewExecutor(config ExecutorConfig) *Executor {
	// Ensure non-negative values for uint32 conversion
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 16
	}
	threshold := config.CircuitBreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	attempts := config.RetryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = telemetry.NoopMetricsProvider{}
	}

	return &Executor{
		name: config.Name,
		bulkhead: bulkhead.New[result](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[result](circuitbreaker.Config{
			MaxRequests: uint32(maxConcurrent), // #nosec G115 -- bounds checked above
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		retry: retry.New[result](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.RetryBackoffMultiplier,
		}),
		timeout: config.Timeout,
		metrics: metrics,
	}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultExecutorConfig())
}

// execute runs fn. Composition order: Bulkhead → Timeout → Circuit Breaker → Retry (idempotent only)
func (e *Executor) execute(ctx context.Context, idempotent bool, fn func(context.Context) (result, error)) (result, error) {
	res, err := e.bulkhead.Execute(ctx, func(ctx context.Context) (result, error) {
		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		return e.breaker.Execute(ctx, func(ctx context.Context) (result, error) {
			if idempotent {
				return e.retry.Do(ctx, fn)
			}
			return fn(ctx)
		})
	})
	e.observe(ctx)
	return res, err
}

// observe records circuit breaker transitions between open and not open.
func (e *Executor) observe(ctx context.Context) {
	open := e.breaker.State().String() == "open"
	e.mu.Lock()
	changed := open != e.open
	e.open = open
	e.mu.Unlock()
	if !changed {
		return
	}
	e.metrics.RecordCircuitBreakerStateChange(ctx, e.name, open)
	logging.Warn().
		Add(logging.Component("resilience")).
		Add(logging.Str("backend", e.name)).
		Add(logging.Bool("open", open)).
		Msg("circuit breaker state changed")
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (e *Executor) CircuitBreakerState() circuitbreaker.State {
	return e.breaker.State()
}
