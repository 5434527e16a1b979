package client

import (
	"fmt"
	"time"

	"github.com/tautline/taut-go/pkg/events"
	"github.com/tautline/taut-go/pkg/log"
	"github.com/tautline/taut-go/pkg/timers"
	"github.com/tautline/taut-go/pkg/transport"
	"github.com/tautline/taut-go/pkg/wire"
)

// Send transmits data over the open connection, JSON-encoding unless
// a custom encoder is supplied. While the connection is down or
// paused, the raw payload is queued for later flush (or dropped when
// buffering is disabled or the queue is full). A pending outbound
// backlog at or above the flush threshold is flushed first. A nil
// payload only triggers that flush; nothing is transmitted or queued
// for it.
//
// Encoding and transmit failures abort the connection; the error is
// also returned.
func (c *Client) Send(data any, encoder ...wire.Encoder) error {
	enc := wire.JSONEncoder
	if len(encoder) > 0 && encoder[0] != nil {
		enc = encoder[0]
	}

	var out calls
	c.mu.Lock()
	err := c.sendLocked(&out, data, enc)
	c.mu.Unlock()
	out.run()
	return err
}

// sendLocked implements Send. Caller must hold c.mu.
func (c *Client) sendLocked(out *calls, data any, enc wire.Encoder) error {
	if c.activeLocked() && c.tr.ReadyState() == transport.StateOpen {
		c.flushOutboundLocked(out)
		if c.tr == nil {
			// Flush failure tore the connection down; the new
			// payload has nowhere to go.
			return nil
		}
		if data == nil {
			return nil
		}

		payload, err := enc(data)
		if err != nil {
			wrapped := fmt.Errorf("encode payload: %w", err)
			c.abortLocked(out, wrapped, nil)
			return wrapped
		}
		if err := c.tr.Send(payload); err != nil {
			wrapped := fmt.Errorf("send payload: %w", err)
			c.abortLocked(out, wrapped, nil)
			return wrapped
		}
		out.add(func() { c.emitter.Emit(events.Send, data) })
		return nil
	}

	if data != nil && c.cfg.Buffer.Enabled {
		if c.outq.Push(data) {
			c.logBufferLocked("outbound", "enqueue", c.outq.Len())
		} else {
			c.logBufferLocked("outbound", "drop", c.outq.Len())
		}
	}
	return nil
}

// flushOutboundLocked drains the outbound queue when it holds at
// least the configured minimum, sending each payload with the
// default encoder. A failing payload aborts the connection and is
// discarded along with the rest of the drained batch.
// Caller must hold c.mu.
func (c *Client) flushOutboundLocked(out *calls) {
	if !c.cfg.Buffer.Enabled {
		return
	}
	if c.tr == nil || c.tr.ReadyState() != transport.StateOpen || c.paused {
		return
	}

	items := c.outq.DrainAtLeast()
	if len(items) == 0 {
		return
	}
	c.logBufferLocked("outbound", "flush", len(items))

	for _, item := range items {
		payload, err := wire.JSONEncoder(item)
		if err != nil {
			c.abortLocked(out, fmt.Errorf("encode queued payload: %w", err), nil)
			return
		}
		if err := c.tr.Send(payload); err != nil {
			c.abortLocked(out, fmt.Errorf("flush payload: %w", err), nil)
			return
		}
		item := item
		out.add(func() { c.emitter.Emit(events.Send, item) })
	}
}

// transportData handles the transport data callback.
func (c *Client) transportData(tok *attemptToken, msg transport.Message) {
	var out calls
	c.mu.Lock()
	if tok != c.token {
		c.mu.Unlock()
		return
	}

	if c.paused {
		if c.cfg.Buffer.Enabled {
			if c.inq.Push(msg) {
				c.logBufferLocked("inbound", "enqueue", c.inq.Len())
			} else {
				c.logBufferLocked("inbound", "drop", c.inq.Len())
			}
		}
		c.mu.Unlock()
		return
	}

	out.add(func() { c.emitter.Emit(events.Data, msg) })

	// Any message answers a single outstanding ping; the heartbeat
	// loop only accepts the literal pong frame.
	if c.pingOutstanding || (c.beating && wire.IsPong(msg.Data)) {
		c.timers.Disarm(timers.Ping)
		c.pingOutstanding = false
		c.logControlLocked("pong", log.DirectionIn)
		out.add(func() { c.emitter.Emit(events.Pong, nil) })
	}

	// Flush any inbound backlog strictly above the threshold before
	// handing the fresh message to the primary handler.
	if c.cfg.Buffer.Enabled {
		backlog := c.inq.DrainAbove()
		if len(backlog) > 0 {
			c.logBufferLocked("inbound", "flush", len(backlog))
		}
		for _, m := range backlog {
			c.deliverLocked(&out, m)
		}
	}

	if fn := c.onDataFn; fn != nil {
		out.add(func() {
			if err := fn(msg); err != nil {
				c.Abort(fmt.Errorf("data handler: %w", err), nil)
			}
		})
	}

	c.mu.Unlock()
	out.run()
}

// deliverLocked schedules delivery of a buffered inbound message.
// Caller must hold c.mu.
func (c *Client) deliverLocked(out *calls, msg transport.Message) {
	out.add(func() { c.emitter.Emit(events.Data, msg) })
	if fn := c.onDataFn; fn != nil {
		out.add(func() {
			if err := fn(msg); err != nil {
				c.Abort(fmt.Errorf("data handler: %w", err), nil)
			}
		})
	}
}

// logBufferLocked records queue activity. Caller must hold c.mu.
func (c *Client) logBufferLocked(queue, action string, length int) {
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		AttemptID: c.tokenIDLocked(),
		Direction: log.DirectionLocal,
		Category:  log.CategoryBuffer,
		URL:       c.prevURL,
		Buffer:    &log.BufferEvent{Queue: queue, Action: action, Length: length},
	})
}
