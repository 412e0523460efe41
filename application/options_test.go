package application_test

import (
	"testing"

	"github.com/felixgeelhaar/htn-go/application"
	"github.com/felixgeelhaar/htn-go/domain/world"
	infraevent "github.com/felixgeelhaar/htn-go/infrastructure/event"
	"github.com/felixgeelhaar/htn-go/infrastructure/planner"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/memory"
	"github.com/felixgeelhaar/htn-go/infrastructure/telemetry"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	registry := memory.NewTaskRegistry()
	search := planner.NewSearch(registry)
	publisher := infraevent.NewPublisher(memory.NewEventStore())
	snapshots := memory.NewSnapshotStore()
	metrics := telemetry.NoopMetricsProvider{}
	w := world.Of(world.P("door_open", world.Bool(false)))

	config := &application.Config{}
	for _, opt := range []application.Option{
		application.WithRegistry(registry),
		application.WithPlanner(search),
		application.WithWorld(w),
		application.WithPublisher(publisher),
		application.WithSnapshots(snapshots),
		application.WithMetrics(metrics),
	} {
		opt(config)
	}

	if config.Registry != registry {
		t.Error("WithRegistry should set the registry")
	}
	if config.Planner != search {
		t.Error("WithPlanner should set the planner")
	}
	if !config.World.Equal(w) {
		t.Error("WithWorld should set the world")
	}
	if config.Publisher != publisher {
		t.Error("WithPublisher should set the publisher")
	}
	if config.Snapshots != snapshots {
		t.Error("WithSnapshots should set the snapshot store")
	}
	if config.Metrics != metrics {
		t.Error("WithMetrics should set the metrics recorder")
	}
}

func TestNewRuntimeWithOptions(t *testing.T) {
	t.Parallel()

	registry := memory.NewTaskRegistry()
	rt, err := application.NewRuntimeWithOptions(
		application.WithRegistry(registry),
		application.WithPlanner(planner.NewSearch(registry)),
	)
	if err != nil {
		t.Fatalf("NewRuntimeWithOptions() error = %v", err)
	}
	if len(rt.Agents()) != 0 {
		t.Errorf("Agents() = %d, want 0", len(rt.Agents()))
	}

	if _, err := application.NewRuntimeWithOptions(); err == nil {
		t.Error("NewRuntimeWithOptions() without dependencies should fail")
	}
}
