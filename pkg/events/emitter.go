package events

import "sync"

// Type names an emitted event.
type Type string

// Events emitted by the connection lifecycle.
const (
	PreConnect Type = "preConnect"
	Open       Type = "open"
	Data       Type = "data"
	Send       Type = "send"
	Close      Type = "close"
	Error      Type = "error"
	Abort      Type = "abort"
	Reconnect  Type = "reconnect"
	Ping       Type = "ping"
	Pong       Type = "pong"
)

// Handler receives an event payload. The payload type depends on the
// event: data and send carry the message, error and abort carry an
// error, close carries a Reason, the rest carry nil.
type Handler func(payload any)

// Reason describes a close event.
type Reason struct {
	// Code is the transport close code, if known.
	Code int

	// Text is the close reason text, if any.
	Text string

	// Manual indicates the closure was manually initiated.
	Manual bool
}

// subscriber pairs a handler with its removal handle.
type subscriber struct {
	id uint64
	fn Handler
}

// Emitter is an ordered multi-subscriber event registry.
type Emitter struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Type][]subscriber
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		subs: make(map[Type][]subscriber),
	}
}

// On registers fn for event and returns a handle for Off.
func (e *Emitter) On(event Type, fn Handler) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.subs[event] = append(e.subs[event], subscriber{id: id, fn: fn})
	return id
}

// Once registers fn to run a single time for event.
func (e *Emitter) Once(event Type, fn Handler) uint64 {
	var id uint64
	id = e.On(event, func(payload any) {
		e.Off(event, id)
		fn(payload)
	})
	return id
}

// Off removes the subscription with the given handle.
// Returns true if a subscription was removed.
func (e *Emitter) Off(event Type, id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subs[event]
	for i, s := range subs {
		if s.id == id {
			e.subs[event] = append(subs[:i:i], subs[i+1:]...)
			if len(e.subs[event]) == 0 {
				delete(e.subs, event)
			}
			return true
		}
	}
	return false
}

// Emit invokes all subscribers for event in registration order.
// Handlers run outside the emitter lock and may subscribe or
// unsubscribe reentrantly.
func (e *Emitter) Emit(event Type, payload any) {
	e.mu.Lock()
	subs := make([]subscriber, len(e.subs[event]))
	copy(subs, e.subs[event])
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(payload)
	}
}

// ListenerCount returns the number of subscribers for event.
func (e *Emitter) ListenerCount(event Type) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs[event])
}

// RemoveAll drops every subscription.
func (e *Emitter) RemoveAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = make(map[Type][]subscriber)
}
