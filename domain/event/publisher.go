package event

import "context"

// Publisher delivers events to a store.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}
