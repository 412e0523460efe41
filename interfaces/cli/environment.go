package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/htn-go/application"
	domainconfig "github.com/felixgeelhaar/htn-go/domain/config"
	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/infrastructure/config"
	infraevent "github.com/felixgeelhaar/htn-go/infrastructure/event"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
	"github.com/felixgeelhaar/htn-go/infrastructure/observability"
	"github.com/felixgeelhaar/htn-go/infrastructure/planner"
	"github.com/felixgeelhaar/htn-go/infrastructure/telemetry"
)

// envOptions adjusts how a scenario is opened.
type envOptions struct {
	strictEnv bool
	// db replaces the scenario storage with a sqlite file.
	db string
	// runtime opens storage and creates the runtime; plan only needs the planner.
	runtime bool
}

// environment is a loaded scenario with its infrastructure opened.
type environment struct {
	path     string
	scenario *domainconfig.Scenario
	build    *config.BuildResult
	planner  plan.Planner
	runtime  *application.Runtime
	stores   *config.Stores
	tracing  *observability.Provider
	metrics  telemetry.Metrics

	closers []func() error
}

func (a *App) openEnvironment(ctx context.Context, path string, o envOptions) (*environment, error) {
	loader := config.NewLoaderWithOptions(config.WithStrictEnv(o.strictEnv))
	s, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	if o.db != "" {
		s.Storage = domainconfig.StorageConfig{Backend: "sqlite", DSN: sqliteDSN(o.db)}
	}

	a.initLogging(s.Logging)

	build, err := config.Build(s)
	if err != nil {
		return nil, err
	}

	env := &environment{path: path, scenario: s, build: build}
	if err := env.open(ctx, a, o); err != nil {
		_ = env.close(ctx)
		return nil, err
	}
	return env, nil
}

func (e *environment) open(ctx context.Context, a *App, o envOptions) error {
	s := e.scenario

	tracing, err := config.OpenTracing(ctx, s.Telemetry, a.stderr)
	if err != nil {
		return err
	}
	e.tracing = tracing
	e.metrics = config.Metrics(s.Telemetry)

	c, closeCache, err := config.OpenCache(s.Cache, e.metrics)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	e.closers = append(e.closers, closeCache)

	var p plan.Planner = planner.NewSearch(e.build.Registry, e.build.PlannerOptions...)
	if c != nil {
		p = planner.NewCached(p, c,
			planner.WithRegistry(e.build.Registry),
			planner.WithNamespace(config.Fingerprint(s)),
			planner.WithTTL(s.Cache.TTL.Duration()),
			planner.WithCacheMetrics(e.metrics),
		)
	}
	e.planner = planner.NewObserved(p, tracing.Tracer(), e.metrics)

	if !o.runtime {
		return nil
	}

	stores, err := config.OpenStorage(ctx, s.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	e.stores = stores

	rt, err := application.NewRuntimeWithOptions(
		application.WithRegistry(e.build.Registry),
		application.WithPlanner(e.planner),
		application.WithWorld(e.build.World),
		application.WithPublisher(infraevent.NewPublisher(stores.Events)),
		application.WithSnapshots(stores.Snapshots),
		application.WithMetrics(e.metrics),
	)
	if err != nil {
		return err
	}
	e.runtime = rt

	for _, ag := range e.build.Agents {
		if err := rt.AddAgent(ctx, ag); err != nil {
			return err
		}
	}
	return nil
}

// step runs one tick and then lets behaviors report on running tasks.
func (e *environment) step(ctx context.Context) (application.TickReport, int, error) {
	report, err := e.runtime.Tick(ctx)
	if err != nil {
		return report, 0, err
	}
	n, err := e.build.Behaviors.Run(ctx, e.runtime)
	return report, n, err
}

// close releases everything in reverse order of opening.
func (e *environment) close(ctx context.Context) error {
	var errs []error
	if e.runtime != nil {
		if err := e.runtime.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.stores != nil {
		if err := e.stores.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if e.tracing != nil {
		if err := e.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initLogging applies the scenario's logging settings under the CLI flags.
func (a *App) initLogging(l domainconfig.LoggingConfig) {
	cfg := config.Logging(l)
	if a.logLevel != "" {
		cfg.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Format = a.logFormat
	}
	if a.noColor {
		cfg.NoColor = true
	}
	cfg.Output = a.stderr
	logging.Init(cfg)
}

func sqliteDSN(path string) string {
	return "file:" + path + "?mode=rwc"
}
