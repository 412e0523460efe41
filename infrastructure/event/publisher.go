// Package event delivers agent events to a store, optionally buffered.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/htn-go/domain/event"
	"github.com/felixgeelhaar/htn-go/infrastructure/logging"
)

// DefaultCloseTimeout bounds the final flush in Close.
const DefaultCloseTimeout = 5 * time.Second

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("event: publisher closed")

// Publisher publishes events to an event store.
type Publisher struct {
	store        event.Store
	buffer       []event.Event
	bufSize      int
	closeTimeout time.Duration
	closed       bool
	mu           sync.Mutex
}

// PublisherOption configures the publisher.
type PublisherOption func(*Publisher)

// WithBufferSize holds up to size events before writing them in one append.
// Zero writes every Publish call through.
func WithBufferSize(size int) PublisherOption {
	return func(p *Publisher) {
		p.bufSize = size
	}
}

// WithCloseTimeout bounds the flush performed by Close.
func WithCloseTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.closeTimeout = d
	}
}

// NewPublisher creates a new event publisher.
func NewPublisher(store event.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:        store,
		closeTimeout: DefaultCloseTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize < 0 {
		p.bufSize = 0
	}
	if p.bufSize > 0 {
		p.buffer = make([]event.Event, 0, p.bufSize)
	}
	return p
}

// Publish validates events and sends them to the store. Invalid events
// reject the whole batch.
func (p *Publisher) Publish(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, events[i].Type, err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	if p.bufSize == 0 {
		return p.store.Append(ctx, events...)
	}

	p.buffer = append(p.buffer, events...)
	if len(p.buffer) >= p.bufSize {
		return p.flush(ctx)
	}
	return nil
}

// Buffered returns the number of events waiting for a flush.
func (p *Publisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// Flush writes all buffered events to the store.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flush(ctx)
}

// flush must be called with mu held. The buffer is kept on failure so a
// later flush can retry.
func (p *Publisher) flush(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	if err := p.store.Append(ctx, p.buffer...); err != nil {
		logging.Warn().
			Add(logging.Component("publisher")).
			Add(logging.Int("buffered", len(p.buffer))).
			Add(logging.ErrorField(err)).
			Msg("event flush failed")
		return err
	}

	p.buffer = p.buffer[:0]
	return nil
}

// Close flushes remaining events. Further Publish calls fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), p.closeTimeout)
	defer cancel()
	return p.flush(ctx)
}

var _ event.Publisher = (*Publisher)(nil)
