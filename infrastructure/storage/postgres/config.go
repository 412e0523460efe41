// Package postgres provides PostgreSQL-backed event and snapshot stores.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/htn-go/domain/event"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	// DSN, when set, replaces the keyword fields below (URL or keyword/value form).
	DSN string

	// Host is the database server hostname.
	Host string

	// Port is the database server port.
	Port int

	// Database is the database name.
	Database string

	// User is the database username.
	User string

	// Password is the database password.
	Password string

	// SSLMode configures SSL (disable, require, verify-ca, verify-full).
	SSLMode string

	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32

	// MinConns is the minimum number of connections in the pool.
	MinConns int32

	// MaxConnLifetime is the maximum lifetime of a connection.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum idle time for a connection.
	MaxConnIdleTime time.Duration

	// ConnectTimeout is the timeout for establishing connections.
	ConnectTimeout time.Duration

	// Schema is the schema holding the tables (defaults to "public").
	Schema string

	// AutoMigrate creates the tables on Connect.
	AutoMigrate bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		Database:        "htn",
		User:            "postgres",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		Schema:          "public",
		AutoMigrate:     true,
	}
}

// ConnectionString returns a PostgreSQL keyword/value connection string.
func (c Config) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode,
	)
}

// ConfigOption configures the PostgreSQL connection.
type ConfigOption func(*Config)

// WithDSN sets a complete connection string.
func WithDSN(dsn string) ConfigOption {
	return func(c *Config) {
		c.DSN = dsn
	}
}

// WithHost sets the database host.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithPort sets the database port.
func WithPort(port int) ConfigOption {
	return func(c *Config) {
		c.Port = port
	}
}

// WithDatabase sets the database name.
func WithDatabase(db string) ConfigOption {
	return func(c *Config) {
		c.Database = db
	}
}

// WithCredentials sets the database credentials.
func WithCredentials(user, password string) ConfigOption {
	return func(c *Config) {
		c.User = user
		c.Password = password
	}
}

// WithSSLMode sets the SSL mode.
func WithSSLMode(mode string) ConfigOption {
	return func(c *Config) {
		c.SSLMode = mode
	}
}

// WithPoolSize sets the connection pool size.
func WithPoolSize(min, max int32) ConfigOption {
	return func(c *Config) {
		c.MinConns = min
		c.MaxConns = max
	}
}

// WithSchema sets the schema to use.
func WithSchema(schema string) ConfigOption {
	return func(c *Config) {
		c.Schema = schema
	}
}

// WithAutoMigrate toggles table creation on Connect.
func WithAutoMigrate(enabled bool) ConfigOption {
	return func(c *Config) {
		c.AutoMigrate = enabled
	}
}

// Connect opens a connection pool, verifies it and optionally migrates.
func Connect(ctx context.Context, cfg Config, opts ...ConfigOption) (*pgxpool.Pool, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(event.ErrConnectionFailed, err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, pool, cfg.Schema); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pool, nil
}

func schemaOrDefault(schema string) string {
	if schema == "" {
		return "public"
	}
	return schema
}

// schemaSQL returns the DDL for the events and snapshots tables.
func schemaSQL(schema string) string {
	s := schemaOrDefault(schema)
	return fmt.Sprintf(`
		CREATE SCHEMA IF NOT EXISTS %[1]s;

		CREATE TABLE IF NOT EXISTS %[1]s.events (
			id        TEXT PRIMARY KEY,
			agent_id  TEXT NOT NULL,
			type      TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			payload   JSONB,
			sequence  BIGINT NOT NULL,
			version   INTEGER NOT NULL DEFAULT 1,
			UNIQUE (agent_id, sequence)
		);

		CREATE INDEX IF NOT EXISTS events_agent_type_idx ON %[1]s.events (agent_id, type);

		CREATE TABLE IF NOT EXISTS %[1]s.snapshots (
			agent_id   TEXT PRIMARY KEY,
			phase      TEXT NOT NULL,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`, s)
}

// Migrate creates the tables in schema if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if _, err := pool.Exec(ctx, schemaSQL(schema)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// wrapError maps driver errors onto the event package's errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(event.ErrOperationTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	return errors.Join(event.ErrConnectionFailed, err)
}
