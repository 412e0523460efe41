package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/htn-go/domain/agent"
	"github.com/felixgeelhaar/htn-go/domain/cache"
	domainconfig "github.com/felixgeelhaar/htn-go/domain/config"
	"github.com/felixgeelhaar/htn-go/domain/event"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
	"github.com/felixgeelhaar/htn-go/infrastructure/observability"
	"github.com/felixgeelhaar/htn-go/infrastructure/resilience"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/badger"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/memory"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/redis"
	"github.com/felixgeelhaar/htn-go/infrastructure/storage/sqlite"
	"github.com/felixgeelhaar/htn-go/infrastructure/telemetry"
)

// Stores holds the event and snapshot persistence chosen by a scenario.
type Stores struct {
	Events    event.Store
	Snapshots agent.SnapshotStore
	Backend   string

	closers []func() error
}

// Close releases the stores in reverse order of opening.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Stores) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// OpenStorage opens the configured storage backend. Redis keeps snapshots
// only, so its events stay in memory.
func OpenStorage(ctx context.Context, c domainconfig.StorageConfig) (*Stores, error) {
	s := &Stores{Backend: c.Backend}

	switch c.Backend {
	case "", "memory":
		s.Backend = "memory"
		s.Events = memory.NewEventStore()
		s.Snapshots = memory.NewSnapshotStore()

	case "sqlite":
		db, err := sqlite.Open(sqlite.DefaultConfig(), sqlite.WithDSN(c.DSN), sqlite.WithAutoMigrate())
		if err != nil {
			return nil, err
		}
		events := sqlite.NewEventStore(db)
		s.Events = events
		s.Snapshots = sqlite.NewSnapshotStore(db)
		s.onClose(db.Close)
		s.onClose(events.Close)

	case "badger":
		opts := []badger.Option{badger.WithDir(c.Dir)}
		if c.Dir == "" {
			opts = []badger.Option{badger.WithInMemory()}
		}
		db, err := badger.Open(badger.DefaultConfig(), opts...)
		if err != nil {
			return nil, err
		}
		events := badger.NewEventStore(db)
		s.Events = events
		s.Snapshots = badger.NewSnapshotStore(db)
		s.onClose(db.Close)
		s.onClose(events.Close)

	case "postgres":
		pool, err := postgres.Connect(ctx, postgres.DefaultConfig(), postgresOptions(c)...)
		if err != nil {
			return nil, err
		}
		schema := c.Schema
		if schema == "" {
			schema = postgres.DefaultConfig().Schema
		}
		events := postgres.NewEventStore(pool, schema)
		s.Events = events
		s.Snapshots = postgres.NewSnapshotStore(pool, schema)
		s.onClose(func() error { pool.Close(); return nil })
		s.onClose(events.Close)

	case "redis":
		snapshots, err := redis.NewSnapshotStore(redis.DefaultConfig(), redis.WithAddress(c.Address))
		if err != nil {
			return nil, err
		}
		s.Events = memory.NewEventStore()
		s.Snapshots = snapshots
		s.onClose(snapshots.Close)

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %s", domainconfig.ErrBuildFailed, c.Backend)
	}

	logging.Debug().
		Add(logging.Component("storage")).
		Add(logging.Str("backend", s.Backend)).
		Msg("storage opened")
	return s, nil
}

func postgresOptions(c domainconfig.StorageConfig) []postgres.ConfigOption {
	opts := []postgres.ConfigOption{postgres.WithDSN(c.DSN), postgres.WithAutoMigrate(true)}
	if c.Schema != "" {
		opts = append(opts, postgres.WithSchema(c.Schema))
	}
	return opts
}

// OpenCache opens the configured plan cache. A nil cache means caching is
// off. Redis is wrapped with retries, a circuit breaker and a bulkhead.
func OpenCache(c domainconfig.CacheConfig, metrics telemetry.Metrics) (cache.Cache, func() error, error) {
	noop := func() error { return nil }

	switch c.Backend {
	case "", "none":
		return nil, noop, nil

	case "memory":
		var opts []memory.CacheOption
		if c.MaxSize > 0 {
			opts = append(opts, memory.WithMaxSize(c.MaxSize))
		}
		return memory.NewCache(opts...), noop, nil

	case "badger":
		opts := []badger.Option{badger.WithDir(c.Dir)}
		if c.Dir == "" {
			opts = []badger.Option{badger.WithInMemory()}
		}
		if c.KeyPrefix != "" {
			opts = append(opts, badger.WithKeyPrefix(c.KeyPrefix))
		}
		db, err := badger.Open(badger.DefaultConfig(), opts...)
		if err != nil {
			return nil, noop, err
		}
		return badger.NewCache(db), db.Close, nil

	case "sqlite":
		db, err := sqlite.Open(sqlite.DefaultConfig(), sqlite.WithDSN(c.DSN), sqlite.WithAutoMigrate())
		if err != nil {
			return nil, noop, err
		}
		return sqlite.NewCache(db, c.KeyPrefix), db.Close, nil

	case "redis":
		opts := []redis.ConfigOption{
			redis.WithAddress(c.Address),
			redis.WithPassword(c.Password),
			redis.WithDB(c.DB),
		}
		if c.KeyPrefix != "" {
			opts = append(opts, redis.WithKeyPrefix(c.KeyPrefix))
		}
		rc, err := redis.NewCache(redis.DefaultConfig(), opts...)
		if err != nil {
			return nil, noop, err
		}
		return resilience.NewCache(rc, resilienceOptions(c.Resilience, metrics)...), rc.Close, nil

	default:
		return nil, noop, fmt.Errorf("%w: unknown cache backend %s", domainconfig.ErrBuildFailed, c.Backend)
	}
}

func resilienceOptions(r domainconfig.ResilienceConfig, metrics telemetry.Metrics) []resilience.Option {
	opts := []resilience.Option{resilience.WithName("plan-cache")}
	if metrics != nil {
		opts = append(opts, resilience.WithMetrics(metrics))
	}
	if r.Timeout > 0 {
		opts = append(opts, resilience.WithTimeout(r.Timeout.Duration()))
	}
	if r.Retry.MaxAttempts > 0 {
		opts = append(opts, resilience.WithRetryAttempts(r.Retry.MaxAttempts))
	}
	if r.Retry.InitialDelay > 0 {
		opts = append(opts, resilience.WithRetryDelay(r.Retry.InitialDelay.Duration()))
	}
	if r.CircuitBreaker.Threshold > 0 {
		opts = append(opts, resilience.WithCircuitBreakerThreshold(r.CircuitBreaker.Threshold))
	}
	if r.CircuitBreaker.Timeout > 0 {
		opts = append(opts, resilience.WithCircuitBreakerTimeout(r.CircuitBreaker.Timeout.Duration()))
	}
	if r.Bulkhead.MaxConcurrent > 0 {
		opts = append(opts, resilience.WithMaxConcurrent(r.Bulkhead.MaxConcurrent))
	}
	return opts
}

// OpenTracing creates the tracer provider. Stdout spans go to w, or stderr
// when w is nil so plan output stays clean.
func OpenTracing(ctx context.Context, t domainconfig.TelemetryConfig, w io.Writer) (*observability.Provider, error) {
	exporter, err := observability.ParseExporter(t.Exporter)
	if err != nil {
		return nil, err
	}

	var opts []observability.Option
	if t.ServiceName != "" {
		opts = append(opts, observability.WithServiceName(t.ServiceName))
	}
	if t.SampleRate > 0 {
		opts = append(opts, observability.WithSampleRate(t.SampleRate))
	}
	switch exporter {
	case observability.ExporterOTLP:
		opts = append(opts, observability.WithOTLP(t.Endpoint, t.Insecure), observability.WithGlobal())
	case observability.ExporterStdout:
		if w == nil {
			w = os.Stderr
		}
		opts = append(opts, observability.WithStdout(w), observability.WithGlobal())
	}
	return observability.New(ctx, opts...)
}

// Metrics returns the otel recorder when metrics are enabled, otherwise a no-op.
func Metrics(t domainconfig.TelemetryConfig) telemetry.Metrics {
	if !t.Metrics {
		return telemetry.NoopMetricsProvider{}
	}
	cfg := telemetry.DefaultMetricsConfig()
	if t.ServiceName != "" {
		cfg.Attributes = append(cfg.Attributes, attribute.String("service.name", t.ServiceName))
	}
	return telemetry.NewMetricsProvider(cfg)
}

// Logging converts scenario logging settings, keeping defaults for empty fields.
func Logging(l domainconfig.LoggingConfig) logging.Config {
	cfg := logging.DefaultConfig()
	if l.Level != "" {
		cfg.Level = l.Level
	}
	if l.Format != "" {
		cfg.Format = l.Format
	}
	cfg.NoColor = l.NoColor
	return cfg
}
