package client

import (
	"fmt"

	"github.com/tautline/taut-go/pkg/events"
	"github.com/tautline/taut-go/pkg/log"
	"github.com/tautline/taut-go/pkg/timers"
	"github.com/tautline/taut-go/pkg/wire"
)

// Ping sends a single liveness probe and arms its response deadline.
// Any inbound message before the deadline counts as the answer. On a
// missed deadline the strict flag decides between an abort and a
// plain disconnect. A no-op unless the connection is active and no
// probe is already outstanding.
func (c *Client) Ping() {
	var out calls
	c.mu.Lock()
	c.pingLocked(&out)
	c.mu.Unlock()
	out.run()
}

// StartBeat begins the periodic heartbeat loop. Each interval sends
// the ping frame and arms a response deadline answered only by the
// literal pong frame. A missed heartbeat deadline forces a transport
// replacement regardless of the strict flag, and the loop resumes on
// the new connection. A no-op while inactive or while a single ping
// is outstanding.
func (c *Client) StartBeat() {
	var out calls
	c.mu.Lock()
	c.startBeatLocked(&out)
	c.mu.Unlock()
	out.run()
}

// StopBeat halts the heartbeat loop.
func (c *Client) StopBeat() {
	c.mu.Lock()
	c.stopBeatLocked()
	c.mu.Unlock()
}

// pingLocked implements Ping. Caller must hold c.mu.
func (c *Client) pingLocked(out *calls) {
	if !c.activeLocked() || c.pingOutstanding {
		return
	}

	if err := c.tr.Send(wire.PingPayload); err != nil {
		c.abortLocked(out, fmt.Errorf("send ping: %w", err), nil)
		return
	}
	c.logControlLocked("ping", log.DirectionOut)
	out.add(func() { c.emitter.Emit(events.Ping, nil) })

	c.pingOutstanding = true
	tok := c.token
	c.timers.Arm(timers.Ping, c.cfg.Ping.Timeout, func() { c.pingExpired(tok) })
}

// pingExpired runs when a single ping goes unanswered.
func (c *Client) pingExpired(tok *attemptToken) {
	var out calls
	c.mu.Lock()
	if tok != c.token {
		c.mu.Unlock()
		return
	}

	c.pingOutstanding = false
	if c.cfg.Ping.Strict {
		c.abortLocked(&out, pingTimeoutMessage, nil)
	} else {
		c.disconnectLocked(&out)
	}
	c.mu.Unlock()
	out.run()
}

// startBeatLocked implements StartBeat. Caller must hold c.mu.
func (c *Client) startBeatLocked(out *calls) {
	if !c.activeLocked() || c.pingOutstanding {
		return
	}

	c.beating = true
	tok := c.token
	c.beatProbeLocked(out, tok)
	c.timers.ArmRepeat(timers.Heartbeat, c.cfg.Ping.Heartbeat, func() { c.beatTick(tok) })
}

// stopBeatLocked implements StopBeat. Caller must hold c.mu.
func (c *Client) stopBeatLocked() {
	c.timers.Disarm(timers.Heartbeat)
	if !c.pingOutstanding {
		// The ping slot holds the pending beat deadline; a single
		// outstanding probe keeps its own.
		c.timers.Disarm(timers.Ping)
	}
	c.beating = false
}

// beatProbeLocked sends one heartbeat ping and arms its deadline.
// Caller must hold c.mu.
func (c *Client) beatProbeLocked(out *calls, tok *attemptToken) {
	if c.tr == nil {
		return
	}

	if err := c.tr.Send(wire.PingPayload); err != nil {
		c.abortLocked(out, fmt.Errorf("send ping: %w", err), nil)
		return
	}
	c.logControlLocked("ping", log.DirectionOut)
	out.add(func() { c.emitter.Emit(events.Ping, nil) })

	c.timers.Arm(timers.Ping, c.cfg.Ping.Timeout, func() { c.beatExpired(tok) })
}

// beatTick runs on every heartbeat interval.
func (c *Client) beatTick(tok *attemptToken) {
	var out calls
	c.mu.Lock()
	if tok != c.token || !c.beating {
		c.mu.Unlock()
		return
	}
	c.beatProbeLocked(&out, tok)
	c.mu.Unlock()
	out.run()
}

// beatExpired runs when a heartbeat ping goes unanswered. The
// transport is replaced and the heartbeat resumes once the new
// connection opens.
func (c *Client) beatExpired(tok *attemptToken) {
	var out calls
	c.mu.Lock()
	if tok != c.token {
		c.mu.Unlock()
		return
	}

	c.resumeBeat = true
	c.cycling = true
	c.disconnectLocked(&out)
	c.connectLocked(&out)
	c.mu.Unlock()
	out.run()
}
