package resilience

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/htn-go/infrastructure/telemetry"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	metrics := telemetry.NoopMetricsProvider{}
	tests := []struct {
		name  string
		opt   Option
		check func(ExecutorConfig) bool
	}{
		{"WithName", WithName("badger"), func(c ExecutorConfig) bool { return c.Name == "badger" }},
		{"WithMaxConcurrent", WithMaxConcurrent(20), func(c ExecutorConfig) bool { return c.MaxConcurrent == 20 }},
		{"WithCircuitBreakerThreshold", WithCircuitBreakerThreshold(10), func(c ExecutorConfig) bool { return c.CircuitBreakerThreshold == 10 }},
		{"WithCircuitBreakerTimeout", WithCircuitBreakerTimeout(time.Minute), func(c ExecutorConfig) bool { return c.CircuitBreakerTimeout == time.Minute }},
		{"WithRetryAttempts", WithRetryAttempts(5), func(c ExecutorConfig) bool { return c.RetryMaxAttempts == 5 }},
		{"WithRetryDelay", WithRetryDelay(time.Second), func(c ExecutorConfig) bool { return c.RetryInitialDelay == time.Second }},
		{"WithTimeout", WithTimeout(5 * time.Second), func(c ExecutorConfig) bool { return c.Timeout == 5*time.Second }},
		{"WithMetrics", WithMetrics(metrics), func(c ExecutorConfig) bool { return c.Metrics == metrics }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			config := DefaultExecutorConfig()
			tt.opt(&config)
			if !tt.check(config) {
				t.Errorf("%s did not apply: %+v", tt.name, config)
			}
		})
	}
}

func TestNewExecutorWithOptions(t *testing.T) {
	t.Parallel()

	executor := NewExecutorWithOptions(
		WithName("redis"),
		WithMaxConcurrent(4),
		WithTimeout(time.Second),
	)
	if executor == nil {
		t.Fatal("NewExecutorWithOptions() returned nil")
	}
	if executor.name != "redis" {
		t.Errorf("name = %s, want redis", executor.name)
	}
	if executor.timeout != time.Second {
		t.Errorf("timeout = %v, want 1s", executor.timeout)
	}
}
