// Package eventbus is a minimal in-process publish/subscribe bus used to
// decouple the calculation services from observers such as metrics and
// discrepancy alerting.
package eventbus

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// Handler handles a published event.
type Handler func(ctx context.Context, event any) error

// ErrNilEvent is returned when a nil event is published.
var ErrNilEvent = errors.New("eventbus: nil event")

// Bus delivers events synchronously to subscribed handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Publish dispatches an event to all handlers of its type. Handlers run in
// subscription order; all are invoked even when one fails, and their errors
// are joined.
func (b *Bus) Publish(ctx context.Context, event any) error {
	if event == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[typeName(event)]...)
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the event type T.
func Subscribe[T any](b *Bus, handler func(ctx context.Context, event T) error) {
	if b == nil || handler == nil {
		return
	}
	name := reflect.TypeOf((*T)(nil)).Elem().String()
	wrapped := func(ctx context.Context, event any) error {
		typed, ok := event.(T)
		if !ok {
			return nil
		}
		return handler(ctx, typed)
	}

	b.mu.Lock()
	b.handlers[name] = append(b.handlers[name], wrapped)
	b.mu.Unlock()
}

func typeName(event any) string {
	t := reflect.TypeOf(event)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}
