package client

import (
	"time"

	"github.com/tautline/taut-go/pkg/events"
	"github.com/tautline/taut-go/pkg/transport"
	"github.com/tautline/taut-go/pkg/wire"
)

// OnOpen sets the primary open handler, replacing any prior one.
func (c *Client) OnOpen(fn func()) {
	c.mu.Lock()
	c.onOpenFn = fn
	c.mu.Unlock()
}

// OnClose sets the primary close handler, replacing any prior one.
func (c *Client) OnClose(fn func(reason events.Reason)) {
	c.mu.Lock()
	c.onCloseFn = fn
	c.mu.Unlock()
}

// OnData sets the primary data handler, replacing any prior one. A
// non-nil error return aborts the connection with the wrapped error.
func (c *Client) OnData(fn func(msg transport.Message) error) {
	c.mu.Lock()
	c.onDataFn = fn
	c.mu.Unlock()
}

// OnError sets the primary error handler, replacing any prior one.
func (c *Client) OnError(fn func(err error)) {
	c.mu.Lock()
	c.onErrorFn = fn
	c.mu.Unlock()
}

// On subscribes fn to event alongside any other subscribers and
// returns a handle for Off.
func (c *Client) On(event events.Type, fn events.Handler) uint64 {
	return c.emitter.On(event, fn)
}

// Once subscribes fn to run a single time for event.
func (c *Client) Once(event events.Type, fn events.Handler) uint64 {
	return c.emitter.Once(event, fn)
}

// Off removes the subscription with the given handle.
func (c *Client) Off(event events.Type, id uint64) bool {
	return c.emitter.Off(event, id)
}

// Active reports whether the connection is open and not paused.
func (c *Client) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

// Beating reports whether the heartbeat loop is running.
func (c *Client) Beating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beating
}

// Paused reports whether delivery and sends are suspended.
func (c *Client) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReadyState returns the live transport's ready state, or
// StateClosed when no transport exists.
func (c *Client) ReadyState() transport.ReadyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr == nil {
		return transport.StateClosed
	}
	return c.tr.ReadyState()
}

// Binary returns the current payload decoding mode.
func (c *Client) Binary() transport.BinaryType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binary
}

// SetBinary changes the payload decoding mode, propagating to the
// live transport when one exists.
func (c *Client) SetBinary(t transport.BinaryType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binary = t
	if c.tr != nil {
		c.tr.SetBinaryType(t)
	}
}

// BufferedAmount returns the transport's unsent byte count when a
// transport is open, otherwise the approximate serialized size of the
// outbound queue contents.
func (c *Client) BufferedAmount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr != nil && c.tr.ReadyState() == transport.StateOpen {
		return c.tr.BufferedAmount()
	}
	var total int
	for _, item := range c.outq.Snapshot() {
		total += wire.PayloadSize(item)
	}
	return total
}

// Protocol returns the negotiated sub-protocol, or the empty string
// before negotiation.
func (c *Client) Protocol() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr == nil {
		return ""
	}
	return c.tr.Protocol()
}

// Extensions returns the negotiated transport extensions.
func (c *Client) Extensions() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tr == nil {
		return ""
	}
	return c.tr.Extensions()
}

// Retries returns the consumed reconnection attempt count.
func (c *Client) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

// Uptime returns the cumulative open-and-unpaused duration since the
// last manual disconnect.
func (c *Client) Uptime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up.read(time.Now())
}

// URL returns the most recently resolved target address.
func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prevURL
}

// Stats is a point-in-time snapshot of client counters.
type Stats struct {
	// State is the lifecycle state name.
	State string

	// Paused reports suspended delivery.
	Paused bool

	// Beating reports a running heartbeat loop.
	Beating bool

	// Retries is the consumed reconnection attempt count.
	Retries int

	// Uptime is the cumulative open-and-unpaused duration.
	Uptime time.Duration

	// OutboundQueued and InboundQueued are current queue lengths.
	OutboundQueued int
	InboundQueued  int

	// OutboundDropped and InboundDropped count items discarded at
	// queue capacity.
	OutboundDropped int64
	InboundDropped  int64

	// URL is the most recently resolved target address.
	URL string
}

// Stats returns a snapshot of the client's counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		State:           c.state.String(),
		Paused:          c.paused,
		Beating:         c.beating,
		Retries:         c.retries,
		Uptime:          c.up.read(time.Now()),
		OutboundQueued:  c.outq.Len(),
		InboundQueued:   c.inq.Len(),
		OutboundDropped: c.outq.Dropped(),
		InboundDropped:  c.inq.Dropped(),
		URL:             c.prevURL,
	}
}
