// Package events is the typed domain event bus (component L), grounded
// on the Generativebots-ocx-backend-go-svc fabric.LocalEventBus
// publish/subscribe shape: an in-process, type-keyed pub/sub with async
// handler dispatch and an unsubscribe closure, adapted to this engine's
// closed event-type enumeration and to zerolog for handler-error
// logging in place of slog.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Type enumerates the domain events the engine emits, per §6.
type Type string

const (
	TypeNeuronCreated   Type = "neuron:created"
	TypeNeuronUpdated   Type = "neuron:updated"
	TypeNeuronDeleted   Type = "neuron:deleted"
	TypeSynapseFormed   Type = "synapse:formed"
	TypeLearningProgress Type = "learning:progress"
	TypeLearningComplete Type = "learning:complete"
	TypeSyncStateChanged Type = "sync:state_changed"
	TypeSyncConflict    Type = "sync:conflict"
	TypeMemoryCleared   Type = "memory:cleared"
	TypeError           Type = "error"
)

// Event is one published domain event.
type Event struct {
	Type      Type
	EntityID  string
	Payload   map[string]any
	Timestamp time.Time
}

// Handler processes one event. A returned error is logged, never
// propagated to the publisher — handlers run isolated from each other
// and from Publish's caller.
type Handler func(ctx context.Context, ev Event) error

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus is an in-process, type-keyed publish/subscribe dispatcher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]subscriber
	nextID      uint64
	closed      bool
	log         zerolog.Logger
}

// New constructs an empty Bus.
func New(log zerolog.Logger) *Bus {
	return &Bus{subscribers: make(map[Type][]subscriber), log: log}
}

// Subscribe registers handler for eventType and returns a function that
// removes it.
func (b *Bus) Subscribe(eventType Type, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subscribers[eventType]
		for i, s := range list {
			if s.id == id {
				b.subscribers[eventType] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// Publish dispatches ev to every subscriber of ev.Type, each in its own
// goroutine, and returns immediately.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subscribers[ev.Type] {
		h := s.handler
		go func() {
			if err := h(ctx, ev); err != nil {
				b.log.Warn().Err(err).Str("event_type", string(ev.Type)).Msg("event handler failed")
			}
		}()
	}
}

// Close marks the bus closed; subsequent Publish calls are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
