package events

// SubscribeToChannel delivers events of type T to ch for select-loop
// consumers such as SSE handlers. Events are dropped while ch is full so a
// slow client never stalls the publisher.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return On(bus, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// SubscribeCaptureEvents delivers capture state, frame selection, timing
// and error events to ch. The returned function removes all four
// subscriptions.
func SubscribeCaptureEvents(bus *Bus, ch chan<- any) func() {
	return unsubscribeAll(
		SubscribeToChannel[CaptureStateChangedEvent](bus, ch),
		SubscribeToChannel[FrameSelectedEvent](bus, ch),
		SubscribeToChannel[TimingChangedEvent](bus, ch),
		SubscribeToChannel[CaptureErrorEvent](bus, ch),
	)
}

func unsubscribeAll(fns ...func()) func() {
	return func() {
		for _, fn := range fns {
			fn()
		}
	}
}
