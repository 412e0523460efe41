// Package badger provides BadgerDB-backed implementations of the plan cache,
// the event store and the snapshot store. All three share one database.
package badger

import (
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
)

// Config configures BadgerDB storage.
type Config struct {
	// Dir is the directory to store data in.
	Dir string

	// InMemory uses in-memory storage (useful for testing).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// ValueLogFileSize sets the size of value log files in bytes.
	ValueLogFileSize int64

	// NumVersionsToKeep sets the number of versions to keep per key.
	NumVersionsToKeep int

	// GCDiscardRatio is the discard ratio for value log GC.
	GCDiscardRatio float64

	// GCInterval is the interval between GC runs. Zero disables GC.
	GCInterval time.Duration

	// KeyPrefix is added to all keys.
	KeyPrefix string

	// Logger is the badger logger. Nil silences badger.
	Logger badger.Logger
}

// Option configures BadgerDB storage.
type Option func(*Config)

// WithDir sets the data directory.
func WithDir(dir string) Option {
	return func(c *Config) {
		c.Dir = dir
	}
}

// WithInMemory enables in-memory storage.
func WithInMemory() Option {
	return func(c *Config) {
		c.InMemory = true
	}
}

// WithSyncWrites enables synchronous writes.
func WithSyncWrites() Option {
	return func(c *Config) {
		c.SyncWrites = true
	}
}

// WithGCInterval sets the GC interval.
func WithGCInterval(d time.Duration) Option {
	return func(c *Config) {
		c.GCInterval = d
	}
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// WithLogger sets the badger logger.
func WithLogger(logger badger.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		ValueLogFileSize:  1 << 26, // 64MB
		NumVersionsToKeep: 1,
		GCDiscardRatio:    0.5,
		GCInterval:        5 * time.Minute,
		KeyPrefix:         "htn:",
	}
}

// ErrConnectionFailed indicates the database could not be opened.
var ErrConnectionFailed = errors.New("badger: connection failed")

// DB is an open database shared by the stores in this package.
type DB struct {
	db        *badger.DB
	keyPrefix string
	gcStop    chan struct{}
	gcWg      sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Open opens a BadgerDB database and starts value log GC.
func Open(cfg Config, opts ...Option) (*DB, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	bopts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		bopts = bopts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	bopts = bopts.WithSyncWrites(cfg.SyncWrites)
	if cfg.ValueLogFileSize > 0 {
		bopts = bopts.WithValueLogFileSize(cfg.ValueLogFileSize)
	}
	if cfg.NumVersionsToKeep > 0 {
		bopts = bopts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	}
	bopts = bopts.WithLogger(cfg.Logger)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	d := &DB{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
		gcStop:    make(chan struct{}),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		d.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return d, nil
}

func (d *DB) startGC(interval time.Duration, discardRatio float64) {
	d.gcWg.Add(1)
	go func() {
		defer d.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-d.gcStop:
				return
			case <-ticker.C:
				runs := 0
				for d.db.RunValueLogGC(discardRatio) == nil {
					runs++
				}
				if runs > 0 {
					logging.Debug().
						Add(logging.Component("badger")).
						Add(logging.Int("gc_runs", runs)).
						Msg("value log garbage collected")
				}
			}
		}
	}()
}

// Badger returns the underlying database.
func (d *DB) Badger() *badger.DB {
	return d.db
}

func (d *DB) key(parts ...string) []byte {
	k := d.keyPrefix
	for _, p := range parts {
		k += p
	}
	return []byte(k)
}

// Close stops GC and closes the database. It is safe to call more than once.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		close(d.gcStop)
		d.gcWg.Wait()
		d.closeErr = d.db.Close()
	})
	return d.closeErr
}
