package events

import "padipay/core/types"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Renderable is implemented by events that convert into the wire
// representation streamed to subscribers and written to the audit log.
type Renderable interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, audit log).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder collects emitted events in order. Tests use it to assert on the
// exact event stream.
type Recorder struct {
	Events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(e Event) {
	if e == nil {
		return
	}
	r.Events = append(r.Events, e)
}

// Types returns the recorded event types in emission order.
func (r *Recorder) Types() []string {
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.EventType())
	}
	return out
}

// Render converts an event into its wire form. Events without a wire
// representation yield nil.
func Render(e Event) *types.Event {
	if r, ok := e.(Renderable); ok {
		return r.Event()
	}
	return nil
}
