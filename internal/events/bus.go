package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for in-process broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its concrete type.
// Usage: bus.Publish(AnimationSpawnedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case AnimationSpawnedEvent:
		event.Publish(b.dispatcher, e)
	case AnimationFinishedEvent:
		event.Publish(b.dispatcher, e)
	case AnimationRetiredEvent:
		event.Publish(b.dispatcher, e)
	case AnimationFaultEvent:
		event.Publish(b.dispatcher, e)
	case FrameRenderedEvent:
		event.Publish(b.dispatcher, e)
	case ShowLoadedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type named by its parameter and
// returns an unsubscribe function. Unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e AnimationRetiredEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(AnimationSpawnedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(AnimationFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(AnimationRetiredEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(AnimationFaultEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameRenderedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ShowLoadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
