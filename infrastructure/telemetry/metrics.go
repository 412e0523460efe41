// Package telemetry records OpenTelemetry metrics for planning and execution.
package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Planning outcomes used as the "outcome" attribute.
const (
	OutcomePlanned = "planned"
	OutcomeFailed  = "failed"
	OutcomeCached  = "cached"
)

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordPlanning(ctx context.Context, agent, outcome string, iterations int, duration time.Duration)
	RecordBudgetExceeded(ctx context.Context, agent string)
	RecordCacheHit(ctx context.Context, agent string)
	RecordCacheMiss(ctx context.Context, agent string)
	RecordTransition(ctx context.Context, agent, from, to string)
	RecordTaskOutcome(ctx context.Context, taskName string, success bool)
	RecordTick(ctx context.Context, agents int, duration time.Duration)
	RecordError(ctx context.Context, errorType string, details map[string]string)
	RecordCircuitBreakerStateChange(ctx context.Context, name string, isOpen bool)
}

// MetricsProvider records metrics through an OpenTelemetry meter.
type MetricsProvider struct {
	meter metric.Meter

	plans          metric.Int64Counter
	budgetExceeded metric.Int64Counter
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
	transitions    metric.Int64Counter
	taskOutcomes   metric.Int64Counter
	ticks          metric.Int64Counter
	errors         metric.Int64Counter

	planningDuration metric.Float64Histogram
	searchIterations metric.Int64Histogram
	tickDuration     metric.Float64Histogram

	circuitBreakerOpen metric.Int64UpDownCounter

	attrs   []attribute.KeyValue
	initErr error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName defaults to the module path.
	MeterName    string
	MeterVersion string

	// MeterProvider overrides the global provider.
	MeterProvider metric.MeterProvider

	// Attributes are attached to every measurement.
	Attributes []attribute.KeyValue
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/htn-go",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates the instruments. Instrument errors are reported
// by Error and leave the provider usable with whatever was created.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config.MeterName = DefaultMetricsConfig().MeterName
	}
	provider := config.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	mp := &MetricsProvider{
		meter: provider.Meter(config.MeterName, metric.WithInstrumentationVersion(config.MeterVersion)),
		attrs: config.Attributes,
	}
	mp.initErr = mp.initInstruments()
	return mp
}

func (mp *MetricsProvider) initInstruments() error {
	var errs []error
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := mp.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, err)
		return c
	}

	mp.plans = counter("htn.planning.attempts", "Number of planning attempts", "{attempt}")
	mp.budgetExceeded = counter("htn.planning.budget_exceeded", "Searches that hit the iteration ceiling", "{search}")
	mp.cacheHits = counter("htn.cache.hits", "Number of plan cache hits", "{hit}")
	mp.cacheMisses = counter("htn.cache.misses", "Number of plan cache misses", "{miss}")
	mp.transitions = counter("htn.agent.transitions", "Number of execution phase transitions", "{transition}")
	mp.taskOutcomes = counter("htn.task.outcomes", "Tasks reported as succeeded or failed", "{task}")
	mp.ticks = counter("htn.runtime.ticks", "Number of runtime ticks", "{tick}")
	mp.errors = counter("htn.errors", "Number of errors", "{error}")

	var err error
	mp.planningDuration, err = mp.meter.Float64Histogram("htn.planning.duration",
		metric.WithDescription("Duration of planning calls"), metric.WithUnit("ms"))
	errs = append(errs, err)

	mp.searchIterations, err = mp.meter.Int64Histogram("htn.planning.iterations",
		metric.WithDescription("Nodes popped per search"), metric.WithUnit("{node}"))
	errs = append(errs, err)

	mp.tickDuration, err = mp.meter.Float64Histogram("htn.runtime.tick.duration",
		metric.WithDescription("Duration of runtime ticks"), metric.WithUnit("ms"))
	errs = append(errs, err)

	mp.circuitBreakerOpen, err = mp.meter.Int64UpDownCounter("htn.circuitbreaker.open",
		metric.WithDescription("Number of open circuit breakers"), metric.WithUnit("{circuit}"))
	errs = append(errs, err)

	return errors.Join(errs...)
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

func (mp *MetricsProvider) with(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append(attrs, mp.attrs...)...)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// RecordPlanning records one planning call.
func (mp *MetricsProvider) RecordPlanning(ctx context.Context, agent, outcome string, iterations int, duration time.Duration) {
	opt := mp.with(attribute.String("agent.name", agent), attribute.String("outcome", outcome))
	mp.plans.Add(ctx, 1, opt)
	mp.planningDuration.Record(ctx, ms(duration), opt)
	if outcome != OutcomeCached {
		mp.searchIterations.Record(ctx, int64(iterations), opt)
	}
}

// RecordBudgetExceeded records a search cut short by its iteration ceiling.
func (mp *MetricsProvider) RecordBudgetExceeded(ctx context.Context, agent string) {
	mp.budgetExceeded.Add(ctx, 1, mp.with(attribute.String("agent.name", agent)))
}

// RecordCacheHit records a plan cache hit.
func (mp *MetricsProvider) RecordCacheHit(ctx context.Context, agent string) {
	mp.cacheHits.Add(ctx, 1, mp.with(attribute.String("agent.name", agent)))
}

// RecordCacheMiss records a plan cache miss.
func (mp *MetricsProvider) RecordCacheMiss(ctx context.Context, agent string) {
	mp.cacheMisses.Add(ctx, 1, mp.with(attribute.String("agent.name", agent)))
}

// RecordTransition records an execution phase change.
func (mp *MetricsProvider) RecordTransition(ctx context.Context, agent, from, to string) {
	mp.transitions.Add(ctx, 1, mp.with(
		attribute.String("agent.name", agent),
		attribute.String("phase.from", from),
		attribute.String("phase.to", to),
	))
}

// RecordTaskOutcome records a reported task result.
func (mp *MetricsProvider) RecordTaskOutcome(ctx context.Context, taskName string, success bool) {
	mp.taskOutcomes.Add(ctx, 1, mp.with(attribute.String("task.name", taskName), attribute.Bool("success", success)))
}

// RecordTick records one runtime tick.
func (mp *MetricsProvider) RecordTick(ctx context.Context, agents int, duration time.Duration) {
	opt := mp.with(attribute.Int("agents", agents))
	mp.ticks.Add(ctx, 1, opt)
	mp.tickDuration.Record(ctx, ms(duration), opt)
}

// RecordError records an error.
func (mp *MetricsProvider) RecordError(ctx context.Context, errorType string, details map[string]string) {
	attrs := []attribute.KeyValue{attribute.String("error.type", errorType)}
	for k, v := range details {
		attrs = append(attrs, attribute.String(k, v))
	}
	mp.errors.Add(ctx, 1, mp.with(attrs...))
}

// RecordCircuitBreakerStateChange tracks open breakers.
func (mp *MetricsProvider) RecordCircuitBreakerStateChange(ctx context.Context, name string, isOpen bool) {
	delta := int64(-1)
	if isOpen {
		delta = 1
	}
	mp.circuitBreakerOpen.Add(ctx, delta, mp.with(attribute.String("breaker.name", name)))
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

func (NoopMetricsProvider) RecordPlanning(context.Context, string, string, int, time.Duration) {}
func (NoopMetricsProvider) RecordBudgetExceeded(context.Context, string)                      {}
func (NoopMetricsProvider) RecordCacheHit(context.Context, string)                            {}
func (NoopMetricsProvider) RecordCacheMiss(context.Context, string)                           {}
func (NoopMetricsProvider) RecordTransition(context.Context, string, string, string)          {}
func (NoopMetricsProvider) RecordTaskOutcome(context.Context, string, bool)                   {}
func (NoopMetricsProvider) RecordTick(context.Context, int, time.Duration)                    {}
func (NoopMetricsProvider) RecordError(context.Context, string, map[string]string)            {}
func (NoopMetricsProvider) RecordCircuitBreakerStateChange(context.Context, string, bool)     {}

var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetricsProvider{}
)
