package events

import "github.com/kelindar/event"

// Bus broadcasts capture events in process. Each subscriber has its own
// queue, so a slow subscriber delays only itself.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// On subscribes fn to events of type T and returns the unsubscribe
// function.
func On[T Event](b *Bus, fn func(T)) func() {
	return event.Subscribe(b.dispatcher, fn)
}

// Publish delivers ev to the subscribers of its concrete type. Types not
// declared in this package are dropped.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case CaptureStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case FrameSelectedEvent:
		event.Publish(b.dispatcher, e)
	case TimingChangedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureErrorEvent:
		event.Publish(b.dispatcher, e)
	case CaptureMetricsEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe accepts a func taking one of the event types, for example
// bus.Subscribe(func(e FrameSelectedEvent) {...}). Any other handler is
// ignored and the returned function does nothing.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CaptureStateChangedEvent):
		return On(b, h)
	case func(FrameSelectedEvent):
		return On(b, h)
	case func(TimingChangedEvent):
		return On(b, h)
	case func(CaptureErrorEvent):
		return On(b, h)
	case func(CaptureMetricsEvent):
		return On(b, h)
	case func(LogEntryEvent):
		return On(b, h)
	}
	return func() {}
}
