package core

import "collectvault/core/events"

const eventFeedDepth = 256

// eventFeed keeps a bounded backlog of emitted events for RPC consumers.
// Writers already hold the node mutex, so no extra locking is needed.
type eventFeed struct {
	depth  int
	buffer []events.Event
}

func newEventFeed(depth int) *eventFeed {
	return &eventFeed{depth: depth}
}

// Emit implements events.Emitter.
func (f *eventFeed) Emit(evt events.Event) {
	f.buffer = append(f.buffer, evt)
	if len(f.buffer) > f.depth {
		f.buffer = f.buffer[len(f.buffer)-f.depth:]
	}
}

// Recent returns the buffered events, oldest first.
func (f *eventFeed) Recent() []events.Event {
	out := make([]events.Event, len(f.buffer))
	copy(out, f.buffer)
	return out
}
