// internal/events/bus.go
package events

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type entry struct {
	id      string
	handler Handler
}

// Bus is a synchronous in-process event broker.
//
// Publish delivers to every subscriber registered at the moment of the call, in
// subscription order, on the caller's goroutine. Nothing is queued or retained: an
// event published to a topic without subscribers is dropped.
type Bus struct {
	mu        sync.RWMutex
	handlers  map[EventType][]entry
	logger    *zap.Logger
	delivered uint64
}

// NewBus creates a new event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]entry),
		logger:   logger.Named("event_bus"),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.handlers[eventType] = append(b.handlers[eventType], entry{id: id, handler: handler})

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{
		id:       id,
		eventBus: b,
		typ:      eventType,
	}
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish delivers event to the current subscribers of its type. Handler errors are
// logged and do not stop delivery to the remaining subscribers.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	// Copy so handlers may subscribe or unsubscribe while we deliver.
	handlers := append([]entry(nil), b.handlers[event.Type()]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("No subscribers, event dropped",
			zap.String("event_type", string(event.Type())))
		return
	}

	for _, h := range handlers {
		if err := h.handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", h.id),
				zap.Error(err))
		}
		atomic.AddUint64(&b.delivered, 1)
	}
}

// UnsubscribeAll removes every handler registered for eventType and returns how many
// were removed.
func (b *Bus) UnsubscribeAll(eventType EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.handlers[eventType])
	delete(b.handlers, eventType)

	b.logger.Debug("All handlers unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.Int("removed", n))
	return n
}

// unsubscribe removes a handler subscription.
func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if h.id != id {
			continue
		}
		// Fresh slice: an in-flight Publish may still be iterating the old one.
		rest := make([]entry, 0, len(handlers)-1)
		rest = append(rest, handlers[:i]...)
		rest = append(rest, handlers[i+1:]...)
		if len(rest) == 0 {
			delete(b.handlers, eventType)
		} else {
			b.handlers[eventType] = rest
		}
		break
	}

	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Topics returns the sorted names of topics that currently have subscribers.
func (b *Bus) Topics() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := make([]string, 0, len(b.handlers))
	for t := range b.handlers {
		topics = append(topics, string(t))
	}
	sort.Strings(topics)
	return topics
}

// Stats returns statistics about the event bus.
func (b *Bus) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := make(map[string]interface{})
	stats["event_types"] = len(b.handlers)
	stats["delivered"] = atomic.LoadUint64(&b.delivered)

	handlerCounts := make(map[string]int)
	for eventType, handlers := range b.handlers {
		handlerCounts[string(eventType)] = len(handlers)
	}
	stats["handlers_per_type"] = handlerCounts

	return stats
}
