package planner

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/infrastructure/telemetry"
)

// Observed wraps a planner with a span and planning metrics per call.
type Observed struct {
	next    plan.Planner
	tracer  trace.Tracer
	metrics telemetry.Metrics
}

// NewObserved wraps next. Nil tracer or metrics disable that half.
func NewObserved(next plan.Planner, tracer trace.Tracer, metrics telemetry.Metrics) *Observed {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if metrics == nil {
		metrics = telemetry.NoopMetricsProvider{}
	}
	return &Observed{next: next, tracer: tracer, metrics: metrics}
}

// Plan implements plan.Planner.
func (o *Observed) Plan(ctx context.Context, req plan.Request) (*plan.Plan, error) {
	ctx, span := o.tracer.Start(ctx, "planner.plan", trace.WithAttributes(
		attribute.String("agent.name", req.Agent),
		attribute.Int("planner.tasks", len(req.Tasks)),
		attribute.Int("planner.goals", len(req.Goals)),
	))
	defer span.End()

	start := time.Now()
	p, err := o.next.Plan(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, plan.ErrSearchBudgetExceeded) {
			o.metrics.RecordBudgetExceeded(ctx, req.Agent)
		}
		o.metrics.RecordPlanning(ctx, req.Agent, telemetry.OutcomeFailed, 0, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if p.Stats.BudgetExceeded {
		o.metrics.RecordBudgetExceeded(ctx, req.Agent)
	}
	o.metrics.RecordPlanning(ctx, req.Agent, telemetry.OutcomePlanned, p.Stats.Iterations, elapsed)

	span.SetAttributes(
		attribute.String("plan.goal", p.Goal),
		attribute.StringSlice("plan.steps", p.Steps),
		attribute.Float64("plan.cost", p.Cost),
		attribute.Int("planner.iterations", p.Stats.Iterations),
		attribute.Int("planner.nodes", p.Stats.Nodes),
		attribute.Bool("planner.budget_exceeded", p.Stats.BudgetExceeded),
	)
	span.SetStatus(codes.Ok, "")
	return p, nil
}

var _ plan.Planner = (*Observed)(nil)
