package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	cfg := DefaultMetricsConfig()
	cfg.MeterProvider = provider
	mp := NewMetricsProvider(cfg)
	if err := mp.Error(); err != nil {
		t.Fatalf("NewMetricsProvider() error = %v", err)
	}
	return reader, mp
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sum(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		var total int64
		for _, dp := range data.DataPoints {
			total += dp.Value
		}
		return total
	default:
		t.Fatalf("metric %s has data %T, want int64 sum", m.Name, m.Data)
		return 0
	}
}

func TestRecordPlanning(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordPlanning(ctx, "hero", OutcomePlanned, 12, 3*time.Millisecond)
	mp.RecordPlanning(ctx, "hero", OutcomeFailed, 40, time.Millisecond)
	mp.RecordPlanning(ctx, "hero", OutcomeCached, 0, 0)

	metrics := collect(t, reader)
	if got := sum(t, metrics["htn.planning.attempts"]); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}

	hist, ok := metrics["htn.planning.iterations"].Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("iterations data = %T, want int64 histogram", metrics["htn.planning.iterations"].Data)
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("iterations recorded %d times, want 2 (cache hits skip it)", count)
	}
}

func TestCounters(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordCacheHit(ctx, "hero")
	mp.RecordCacheHit(ctx, "hero")
	mp.RecordCacheMiss(ctx, "hero")
	mp.RecordBudgetExceeded(ctx, "hero")
	mp.RecordTransition(ctx, "hero", "planned", "running")
	mp.RecordTaskOutcome(ctx, "open_door", true)
	mp.RecordTick(ctx, 2, time.Millisecond)
	mp.RecordError(ctx, "snapshot", map[string]string{"agent.name": "hero"})

	metrics := collect(t, reader)
	tests := []struct {
		name string
		want int64
	}{
		{"htn.cache.hits", 2},
		{"htn.cache.misses", 1},
		{"htn.planning.budget_exceeded", 1},
		{"htn.agent.transitions", 1},
		{"htn.task.outcomes", 1},
		{"htn.runtime.ticks", 1},
		{"htn.errors", 1},
	}
	for _, tt := range tests {
		if got := sum(t, metrics[tt.name]); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestCircuitBreakerGauge(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordCircuitBreakerStateChange(ctx, "plan-cache", true)
	mp.RecordCircuitBreakerStateChange(ctx, "plan-cache", true)
	mp.RecordCircuitBreakerStateChange(ctx, "plan-cache", false)

	if got := sum(t, collect(t, reader)["htn.circuitbreaker.open"]); got != 1 {
		t.Errorf("open breakers = %d, want 1", got)
	}
}

func TestDefaultAttributes(t *testing.T) {
	t.Parallel()

	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	mp := NewMetricsProvider(MetricsConfig{
		MeterProvider: provider,
		Attributes:    []attribute.KeyValue{attribute.String("scenario", "rooms")},
	})
	mp.RecordCacheHit(context.Background(), "hero")

	data := collect(t, reader)["htn.cache.hits"].Data.(metricdata.Sum[int64])
	if v, ok := data.DataPoints[0].Attributes.Value("scenario"); !ok || v.AsString() != "rooms" {
		t.Errorf("scenario attribute = %v, %v, want rooms", v, ok)
	}
}

func TestNoopMetricsProvider(t *testing.T) {
	t.Parallel()

	var m Metrics = NoopMetricsProvider{}
	m.RecordPlanning(context.Background(), "hero", OutcomePlanned, 1, time.Millisecond)
	m.RecordTick(context.Background(), 0, 0)
}
