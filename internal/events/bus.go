// Package events provides the in-process pub/sub bus for refresh lifecycle
// events.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a category of event
type EventType string

const (
	// StatementsRefreshed fires after a successful upstream fetch and merge.
	StatementsRefreshed EventType = "statements.refreshed"
	// StaleServed fires when a failed fetch fell back to stored data.
	StaleServed EventType = "statements.stale_served"
	// BatchCompleted fires when a batch refresh run finishes.
	BatchCompleted EventType = "statements.batch_completed"
)

// Event is a single published occurrence.
type Event struct {
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data,omitempty"`
}

// Handler processes a published event. Handlers run on the publisher's
// goroutine and must not block.
type Handler func(event *Event)

// Bus is a lightweight in-process pub/sub bus. Subscriptions can be released;
// websocket clients subscribe per connection.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventType][]subscription
	log      zerolog.Logger
}

type subscription struct {
	id      int
	handler Handler
}

// NewBus creates an event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscription),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for an event type and returns a function that
// removes the registration. Calling it more than once is harmless.
func (b *Bus) Subscribe(eventType EventType, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[eventType]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Emit publishes an event to all handlers registered for its type.
func (b *Bus) Emit(eventType EventType, source string, data EventData) {
	event := &Event{
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	b.mu.RLock()
	subs := b.handlers[eventType]
	b.mu.RUnlock()

	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("source", source).
		Int("handlers", len(subs)).
		Msg("Emitting event")

	for _, sub := range subs {
		sub.handler(event)
	}
}
