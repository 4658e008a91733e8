package events

import (
	"sync"
)

// Handler consumes one event. A returned error does not stop dispatch
// to the remaining handlers.
type Handler func(Event) error

// Bus carries the session's output to its observers: every view
// recompute, detected play, and queue transition is published here, and
// the scoreboard renderer and the spectator fanout server subscribe.
//
// Dispatch is synchronous, in registration order, on the publisher's
// goroutine — for a session event that means the session goroutine, so
// handlers that block (a slow spectator socket) must hand off to their
// own channel rather than stall reconciliation.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for one event type. Handlers are
// expected to be registered during wiring, before the session starts
// publishing.
func (b *Bus) Subscribe(eventType EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish dispatches an event to every handler registered for its type.
// Handler errors are swallowed so one broken observer (a dead fanout
// client, a closed render target) cannot starve the rest of the view.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(e); err != nil {
			_ = err
		}
	}
}
