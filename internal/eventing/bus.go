package eventing

import (
	"context"
	"reflect"
	"sync"
)

// Handler consumes one published event.
type Handler func(ctx context.Context, event any) error

// InMemoryBus is a synchronous in-process event bus keyed by the
// event's concrete type. Handlers run on the publisher's goroutine,
// in subscription order; the first handler error stops delivery.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]Handler
}

// NewInMemoryBus constructs an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[reflect.Type][]Handler)}
}

// TypeOf returns the subscription key for an event type.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Subscribe registers a handler for one event type.
func (b *InMemoryBus) Subscribe(eventType reflect.Type, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers the event to every handler subscribed to its type.
func (b *InMemoryBus) Publish(ctx context.Context, event any) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[reflect.TypeOf(event)]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
