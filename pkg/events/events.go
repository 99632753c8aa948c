// Package events carries the notifications the sync engine produces for the
// surrounding application.
//
// Events are typed structs delivered synchronously, on the task loop, to
// every subscriber. Use [On] to subscribe to a single event type:
//
//	events.On(bus, func(e events.ApplicationError) {
//	    logger.Error("sync failed", "code", e.Code, "err", e.Err)
//	})
package events

import (
	"sync"

	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/registry"
	"github.com/matzehuels/graphsync/pkg/resource"
	"github.com/matzehuels/graphsync/pkg/selection"
)

// Event is implemented by every event type in this package.
type Event interface {
	// Name is a stable identifier for logs and wire formats.
	Name() string
}

// EntitiesLoaded is published once all entity collections were fetched.
type EntitiesLoaded struct {
	Collections []registry.Collection
}

// RelationsLoaded is published once the relation collection was fetched.
type RelationsLoaded struct {
	Relations []resource.Resource
}

// ResourcesLoaded is published after all backend resources were loaded and
// right before the diagram is populated.
type ResourcesLoaded struct {
	SessionID string
}

// SelectionChanged is published on every selection tracker change.
type SelectionChanged struct {
	Selection selection.Selection
}

// ApplicationError is published for every failure the engine could not
// recover from. Code is one of the LOAD/CREATE/DELETE/SAVE failure codes.
type ApplicationError struct {
	Code errors.Code
	Err  error
}

func (EntitiesLoaded) Name() string   { return "graphEntitiesLoaded" }
func (RelationsLoaded) Name() string  { return "graphEntityRelationsLoaded" }
func (ResourcesLoaded) Name() string  { return "graphResourcesLoaded" }
func (SelectionChanged) Name() string { return "graphSelection" }
func (ApplicationError) Name() string { return "applicationError" }

// Error returns the underlying error message.
func (e ApplicationError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return e.Err.Error()
}

// NewApplicationError wraps err with code.
func NewApplicationError(code errors.Code, err error, format string, args ...any) ApplicationError {
	return ApplicationError{Code: code, Err: errors.Wrap(code, err, format, args...)}
}

// =============================================================================
// Bus
// =============================================================================

// Bus delivers events to subscribers in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn func(Event)
}

// NewBus creates a bus with no subscribers.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for every event and returns a function removing it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// On subscribes fn to events of type T only.
func On[T Event](b *Bus, fn func(T)) (unsubscribe func()) {
	return b.Subscribe(func(e Event) {
		if typed, ok := e.(T); ok {
			fn(typed)
		}
	})
}
