package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/htn-go/domain/world"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
)

// Watcher reloads a scenario's global facts whenever its file changes.
// Tasks and agents are only read at startup.
type Watcher struct {
	path     string
	loader   *Loader
	onReload func(world.State)
	debounce time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}
	mu      sync.Mutex
	running bool
	reloads atomic.Int64
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the file must be quiet before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatchLoader sets the loader used on reload.
func WithWatchLoader(l *Loader) WatcherOption {
	return func(w *Watcher) {
		w.loader = l
	}
}

// NewWatcher creates a watcher for the scenario at path. onReload receives
// the new global facts.
func NewWatcher(path string, onReload func(world.State), opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		loader:   NewLoader(),
		onReload: onReload,
		debounce: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. The parent directory is watched so editors that
// replace the file on save are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	w.watcher = fw
	w.done = make(chan struct{})
	w.running = true
	go w.run(ctx, fw, w.done)

	logging.Info().
		Add(logging.Component("watcher")).
		Add(logging.Path(w.path)).
		Msg("watching scenario")
	return nil
}

// Stop stops watching and waits for the loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	fw, done := w.watcher, w.done
	w.mu.Unlock()

	err := fw.Close()
	<-done
	return err
}

// Reloads returns how many reloads succeeded.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.Warn().
				Add(logging.Component("watcher")).
				Add(logging.ErrorField(err)).
				Msg("watch error")

		case <-timer.C:
			w.reload()
		}
	}
}

// reload keeps the previous facts when the file does not load.
func (w *Watcher) reload() {
	s, err := w.loader.LoadFile(w.path)
	if err != nil {
		logging.Warn().
			Add(logging.Component("watcher")).
			Add(logging.Path(w.path)).
			Add(logging.ErrorField(err)).
			Msg("scenario reload failed, keeping previous world")
		return
	}
	facts, err := world.FromMap(s.World)
	if err != nil {
		logging.Warn().
			Add(logging.Component("watcher")).
			Add(logging.ErrorField(err)).
			Msg("scenario world invalid, keeping previous world")
		return
	}

	w.reloads.Add(1)
	logging.Info().
		Add(logging.Component("watcher")).
		Add(logging.Path(w.path)).
		Add(logging.Int("facts", facts.Len())).
		Msg("world reloaded")
	if w.onReload != nil {
		w.onReload(facts)
	}
}
