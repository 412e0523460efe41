package planner

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/felixgeelhaar/htn-go/domain/goal"
	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/domain/world"
	"github.com/felixgeelhaar/htn-go/infrastructure/telemetry"
)

func observedFixture(t *testing.T) (*tracetest.SpanRecorder, *sdkmetric.ManualReader, *Observed) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	cfg := telemetry.DefaultMetricsConfig()
	cfg.MeterProvider = mp
	metrics := telemetry.NewMetricsProvider(cfg)

	return sr, reader, NewObserved(NewSearch(doorRegistry(t)), tp.Tracer("test"), metrics)
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestObservedRecordsSpan(t *testing.T) {
	t.Parallel()

	sr, reader, o := observedFixture(t)
	req := doorRequest()
	req.Agent = "hero"

	if _, err := o.Plan(context.Background(), req); err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "planner.plan" {
		t.Errorf("span name = %s, want planner.plan", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", span.Status().Code)
	}

	attrs := make(map[string]string)
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["agent.name"] != "hero" || attrs["plan.goal"] != "leave_room_a" {
		t.Errorf("span attributes = %v", attrs)
	}

	if got := counterValue(t, reader, "htn.planning.attempts"); got != 1 {
		t.Errorf("planning attempts = %d, want 1", got)
	}
}

func TestObservedRecordsFailure(t *testing.T) {
	t.Parallel()

	sr, reader, o := observedFixture(t)
	req := doorRequest()
	req.Goals = []goal.Goal{goal.FromState("fly", world.Of(world.P("flying", world.Bool(true))), 1)}

	_, err := o.Plan(context.Background(), req)
	if !errors.Is(err, plan.ErrPlanningFailed) {
		t.Fatalf("Plan() error = %v, want ErrPlanningFailed", err)
	}

	span := sr.Ended()[0]
	if span.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", span.Status().Code)
	}
	if len(span.Events()) == 0 {
		t.Error("span has no recorded error event")
	}
	if got := counterValue(t, reader, "htn.planning.attempts"); got != 1 {
		t.Errorf("planning attempts = %d, want 1", got)
	}
}

func TestObservedNilDependencies(t *testing.T) {
	t.Parallel()

	o := NewObserved(NewSearch(doorRegistry(t)), nil, nil)
	if _, err := o.Plan(context.Background(), doorRequest()); err != nil {
		t.Errorf("Plan() error = %v", err)
	}
}
