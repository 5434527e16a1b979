package client

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tautline/taut-go/pkg/buffer"
	"github.com/tautline/taut-go/pkg/events"
	"github.com/tautline/taut-go/pkg/log"
	"github.com/tautline/taut-go/pkg/timers"
	"github.com/tautline/taut-go/pkg/transport"
	"github.com/tautline/taut-go/pkg/wire"
)

// Client errors.
var (
	// ErrAborted wraps non-error abort reasons.
	ErrAborted = errors.New("connection aborted")
)

// pingTimeoutMessage is the fixed abort reason for a missed pong.
const pingTimeoutMessage = "No response received on ping."

// State represents the connection lifecycle state. Paused is a
// sub-state of Open tracked separately.
type State uint8

const (
	// StateIdle indicates the client has never connected.
	StateIdle State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateOpen indicates an established connection.
	StateOpen

	// StateClosed indicates the connection is down. A closed client
	// may transition back to connecting via reconnection.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// AddressProvider resolves the target address for a connection
// attempt. It receives the current retry count and the previously
// resolved address (empty on the first attempt).
type AddressProvider func(retryCount int, previousURL string) (string, error)

// StaticAddress returns a provider that always resolves to url.
func StaticAddress(url string) AddressProvider {
	return func(int, string) (string, error) {
		return url, nil
	}
}

// attemptToken is the per-attempt cancellation token. Callbacks
// capture the token they were scheduled under; once the client moves
// to a new token (or none), stale callbacks become no-ops.
type attemptToken struct {
	id string
}

// calls collects work to run after the client lock is released, so
// user handlers may re-enter the client.
type calls struct {
	fns []func()
}

func (c *calls) add(fn func()) {
	c.fns = append(c.fns, fn)
}

func (c *calls) run() {
	for _, fn := range c.fns {
		fn()
	}
}

// Client is the connection lifecycle manager. It owns at most one
// live transport handle and coordinates reconnection, buffering,
// liveness probing, and flow control around it.
type Client struct {
	mu sync.Mutex

	cfg      Config
	provider AddressProvider
	factory  transport.Factory
	logger   log.Logger

	state  State
	paused bool
	binary transport.BinaryType

	tr    transport.Transport
	token *attemptToken

	// Retry state
	retries int
	cycling bool
	prevURL string

	timers  *timers.Store
	emitter *events.Emitter

	outq *buffer.Queue[any]
	inq  *buffer.Queue[transport.Message]

	// up spans the whole session; sessionUp restarts on every
	// successful open and feeds reconnect eligibility.
	up        uptimeAccumulator
	sessionUp uptimeAccumulator

	pingOutstanding bool
	beating         bool
	resumeBeat      bool

	// Exclusive primary handler slots; each setter replaces the
	// prior wiring, last writer wins.
	onOpenFn  func()
	onCloseFn func(reason events.Reason)
	onDataFn  func(msg transport.Message) error
	onErrorFn func(err error)
}

// New creates a client targeting a static address.
func New(url string, opts *Options) *Client {
	return NewWithProvider(StaticAddress(url), opts)
}

// NewWithProvider creates a client with a dynamic address provider,
// invoked once per connection attempt with the current retry count
// and the previously resolved address.
func NewWithProvider(provider AddressProvider, opts *Options) *Client {
	cfg := newConfig(opts)

	factory := transport.DefaultFactory
	var logger log.Logger = log.NoopLogger{}
	if opts != nil {
		if opts.Factory != nil {
			factory = opts.Factory
		}
		if opts.Logger != nil {
			logger = opts.Logger
		}
	}

	c := &Client{
		cfg:      cfg,
		provider: provider,
		factory:  factory,
		logger:   logger,
		state:    StateIdle,
		binary:   cfg.Binary,
		timers:   timers.NewStore(),
		emitter:  events.NewEmitter(),
		outq:     buffer.NewQueue[any](cfg.Buffer.Max, cfg.Buffer.Min),
		inq:      buffer.NewQueue[transport.Message](cfg.Buffer.Max, cfg.Buffer.Min),
	}

	if cfg.Immediate {
		c.Connect()
	}
	return c
}

// Connect establishes a new transport, tearing down any existing one
// first. Resolution or construction failures are routed through the
// abort path, never returned.
func (c *Client) Connect() {
	var out calls
	c.mu.Lock()
	c.connectLocked(&out)
	c.mu.Unlock()
	out.run()
}

// Disconnect closes the transport and cleans up. It is an idempotent
// no-op when no transport exists. Unless this closure is part of an
// automatic reconnect cycle, both buffers, the retry counter, and
// the uptime accumulator are reset.
func (c *Client) Disconnect() {
	var out calls
	c.mu.Lock()
	c.disconnectLocked(&out)
	c.mu.Unlock()
	out.run()
}

// Pause suspends delivery and sends. Inbound messages and outbound
// payloads are queued (or dropped at capacity) until Resume.
func (c *Client) Pause() {
	c.mu.Lock()
	c.pauseLocked()
	c.mu.Unlock()
}

// Resume clears the paused state and synchronizes both buffers.
func (c *Client) Resume() {
	var out calls
	c.mu.Lock()
	c.resumeLocked(&out)
	c.mu.Unlock()
	out.run()
}

// Reconnect schedules an automatic reconnection. It is a no-op while
// a retry is already pending or once the retry budget is exhausted.
func (c *Client) Reconnect() {
	var out calls
	c.mu.Lock()
	c.reconnectLocked(&out)
	c.mu.Unlock()
	out.run()
}

// Abort tears the connection down with signaling. A non-nil payload
// is first announced to the remote peer when the transport is open.
// An error reason is re-emitted as an error event; any other reason
// is wrapped into ErrAborted and emitted as an abort event. Aborting
// while paused, or after the transport and token are already cleared,
// is a no-op. With the retry policy's OnAbort flag set, Abort
// reconnects instead of signaling.
func (c *Client) Abort(reason any, payload any) {
	var out calls
	c.mu.Lock()
	c.abortLocked(&out, reason, payload)
	c.mu.Unlock()
	out.run()
}

// connectLocked implements Connect. Caller must hold c.mu.
func (c *Client) connectLocked(out *calls) {
	if c.tr != nil {
		c.disconnectLocked(out)
	}

	out.add(func() { c.emitter.Emit(events.PreConnect, nil) })
	c.setStateLocked(StateConnecting)

	url, err := c.provider(c.retries, c.prevURL)
	if err != nil {
		c.token = &attemptToken{id: uuid.NewString()}
		c.abortLocked(out, fmt.Errorf("resolve address: %w", err), nil)
		return
	}
	c.prevURL = url

	tok := &attemptToken{id: uuid.NewString()}
	c.token = tok

	t, err := c.factory(url, transport.Options{
		Protocols:  c.cfg.Protocols,
		BinaryType: c.binary,
	})
	if err != nil {
		c.abortLocked(out, fmt.Errorf("create transport: %w", err), nil)
		return
	}

	c.tr = t
	t.OnOpen(func() { c.transportOpen(tok) })
	t.OnClose(func(code int, reason string) { c.transportClosed(tok, code, reason) })
	t.OnData(func(msg transport.Message) { c.transportData(tok, msg) })
	t.OnError(func(err error) { c.transportError(tok, err) })
	t.Start()
}

// disconnectLocked implements Disconnect. Caller must hold c.mu.
func (c *Client) disconnectLocked(out *calls) {
	if c.tr == nil {
		return
	}

	manual := !c.cycling
	c.cycling = false

	t := c.tr
	c.teardownLocked(time.Now(), false)
	c.setStateLocked(StateClosed)
	_ = t.Close()

	reason := events.Reason{Manual: manual}
	out.add(func() { c.emitter.Emit(events.Close, reason) })
	if fn := c.onCloseFn; fn != nil {
		out.add(func() { fn(reason) })
	}

	if manual {
		c.outq.Clear()
		c.inq.Clear()
		c.retries = 0
		c.up.reset()
		c.sessionUp.reset()
	}
}

// pauseLocked implements Pause. Caller must hold c.mu.
func (c *Client) pauseLocked() {
	c.paused = true
	now := time.Now()
	c.up.halt(now)
	c.sessionUp.halt(now)

	// Keep-alive and pending retry timers survive a pause.
	c.timers.Disarm(timers.Ping)
	c.timers.Disarm(timers.Heartbeat)
	c.pingOutstanding = false
}

// resumeLocked implements Resume. Caller must hold c.mu.
func (c *Client) resumeLocked(out *calls) {
	if !c.paused {
		return
	}
	c.paused = false

	now := time.Now()
	if c.state == StateOpen {
		c.up.start(now)
		c.sessionUp.start(now)
	}

	// Synchronize: inbound above threshold first, then outbound.
	for _, msg := range c.inq.DrainAbove() {
		c.deliverLocked(out, msg)
	}
	c.flushOutboundLocked(out)

	// A heartbeat loop suspended by the pause starts over.
	if c.beating {
		c.startBeatLocked(out)
	}
}

// reconnectLocked implements Reconnect. Caller must hold c.mu.
func (c *Client) reconnectLocked(out *calls) {
	if c.timers.Active(timers.Retry) {
		return
	}
	if c.cfg.Retry.Exhausted(c.retries) {
		return
	}

	c.retries++
	// Mark the upcoming closure as reconnection-driven so buffers
	// and the retry counter survive the cycle.
	c.cycling = true

	delay := c.cfg.Retry.Delay(c.retries)
	c.timers.Arm(timers.Retry, delay, c.retryExpired)
}

// retryExpired runs when the pending retry delay elapses.
func (c *Client) retryExpired() {
	var out calls
	c.mu.Lock()
	out.add(func() { c.emitter.Emit(events.Reconnect, nil) })

	if c.tr == nil {
		c.cycling = false
		c.connectLocked(&out)
	} else {
		// Replace the existing transport, open or already closed.
		// disconnectLocked consumes the cycling flag so buffers and
		// the retry counter survive the teardown.
		c.disconnectLocked(&out)
		c.connectLocked(&out)
	}
	c.mu.Unlock()
	out.run()
}

// abortLocked implements Abort. Caller must hold c.mu.
func (c *Client) abortLocked(out *calls, reason any, payload any) {
	if c.cfg.Retry.OnAbort {
		c.reconnectLocked(out)
		return
	}
	if c.paused || c.token == nil {
		return
	}

	// Signal the remote peer before local teardown.
	if payload != nil && c.tr != nil && c.tr.ReadyState() == transport.StateOpen {
		if msg, err := wire.AbortMessage(payload); err == nil {
			_ = c.tr.Send(msg)
			c.logControlLocked("abort", log.DirectionOut)
		}
	}

	t := c.tr
	c.teardownLocked(time.Now(), false)
	c.setStateLocked(StateClosed)
	if t != nil {
		_ = t.Close()
		reason := events.Reason{Manual: false}
		out.add(func() { c.emitter.Emit(events.Close, reason) })
		if fn := c.onCloseFn; fn != nil {
			out.add(func() { fn(reason) })
		}
	}

	if err, ok := reason.(error); ok {
		c.logErrorLocked(err)
		out.add(func() { c.emitter.Emit(events.Error, err) })
		if fn := c.onErrorFn; fn != nil {
			out.add(func() { fn(err) })
		}
		return
	}

	var wrapped error
	if reason == nil {
		wrapped = ErrAborted
	} else {
		wrapped = fmt.Errorf("%w: %v", ErrAborted, reason)
	}
	c.logErrorLocked(wrapped)
	out.add(func() { c.emitter.Emit(events.Abort, wrapped) })
}

// transportOpen handles the transport open callback.
func (c *Client) transportOpen(tok *attemptToken) {
	var out calls
	c.mu.Lock()
	if tok != c.token {
		c.mu.Unlock()
		return
	}

	now := time.Now()
	c.setStateLocked(StateOpen)
	c.sessionUp.reset()
	if !c.paused {
		c.up.start(now)
		c.sessionUp.start(now)
	}

	if c.cfg.Timeout > 0 {
		c.timers.Arm(timers.KeepAlive, c.cfg.Timeout, func() { c.keepAliveExpired(tok) })
	}

	out.add(func() { c.emitter.Emit(events.Open, nil) })
	if fn := c.onOpenFn; fn != nil {
		out.add(fn)
	}

	if !c.paused {
		c.flushOutboundLocked(&out)
	}
	if c.resumeBeat {
		c.resumeBeat = false
		c.startBeatLocked(&out)
	}

	c.mu.Unlock()
	out.run()
}

// transportClosed handles the transport close callback for remote or
// abnormal closures. Locally initiated closures arrive with a stale
// token and are ignored here; the initiator already signaled them.
func (c *Client) transportClosed(tok *attemptToken, code int, text string) {
	var out calls
	c.mu.Lock()
	if tok != c.token {
		c.mu.Unlock()
		return
	}

	c.teardownLocked(time.Now(), true)
	c.setStateLocked(StateClosed)

	reason := events.Reason{Code: code, Text: text, Manual: false}
	out.add(func() { c.emitter.Emit(events.Close, reason) })
	if fn := c.onCloseFn; fn != nil {
		out.add(func() { fn(reason) })
	}

	c.maybeReconnectLocked(&out)
	c.mu.Unlock()
	out.run()
}

// transportError handles the transport error callback.
func (c *Client) transportError(tok *attemptToken, err error) {
	var out calls
	c.mu.Lock()
	if tok != c.token {
		c.mu.Unlock()
		return
	}

	c.logErrorLocked(err)
	out.add(func() { c.emitter.Emit(events.Error, err) })
	if fn := c.onErrorFn; fn != nil {
		out.add(func() { fn(err) })
	}

	c.maybeReconnectLocked(&out)
	c.mu.Unlock()
	out.run()
}

// keepAliveExpired forces a transport replacement after prolonged
// inactivity. The cycle preserves buffers and the retry counter the
// same way automatic reconnection does.
func (c *Client) keepAliveExpired(tok *attemptToken) {
	var out calls
	c.mu.Lock()
	if tok != c.token {
		c.mu.Unlock()
		return
	}

	c.cycling = true
	c.disconnectLocked(&out)
	c.connectLocked(&out)
	c.mu.Unlock()
	out.run()
}

// maybeReconnectLocked re-evaluates automatic reconnect eligibility
// after a non-manual closure or a transport error.
func (c *Client) maybeReconnectLocked(out *calls) {
	uptime := c.sessionUp.read(time.Now())
	if c.cfg.Retry.Eligible(false, c.cfg.RetryEnabled, c.retries, uptime) {
		c.reconnectLocked(out)
	}
}

// teardownLocked releases the transport handle and attempt token and
// cancels timers. With keepRetry set, a pending retry timer survives
// (remote closures must not cancel an already-scheduled reconnect).
// Caller must hold c.mu.
func (c *Client) teardownLocked(now time.Time, keepRetry bool) {
	c.tr = nil
	c.token = nil
	if keepRetry {
		c.timers.Disarm(timers.Ping)
		c.timers.Disarm(timers.Heartbeat)
		c.timers.Disarm(timers.KeepAlive)
	} else {
		c.timers.DisarmAll()
	}
	c.up.halt(now)
	c.sessionUp.halt(now)
	c.pingOutstanding = false
	c.beating = false
}

// setStateLocked transitions the state machine and logs the change.
// Caller must hold c.mu.
func (c *Client) setStateLocked(next State) {
	if c.state == next {
		return
	}
	prev := c.state
	c.state = next
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		AttemptID: c.tokenIDLocked(),
		Direction: log.DirectionLocal,
		Category:  log.CategoryState,
		URL:       c.prevURL,
		StateChange: &log.StateChangeEvent{
			From:    prev.String(),
			To:      next.String(),
			Retries: c.retries,
		},
	})
}

// activeLocked reports whether the connection is open and unpaused.
// Caller must hold c.mu.
func (c *Client) activeLocked() bool {
	return c.state == StateOpen && !c.paused && c.tr != nil
}

// tokenIDLocked returns the current attempt ID, if any.
// Caller must hold c.mu.
func (c *Client) tokenIDLocked() string {
	if c.token == nil {
		return ""
	}
	return c.token.id
}

// logErrorLocked records an error event. Caller must hold c.mu.
func (c *Client) logErrorLocked(err error) {
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		AttemptID: c.tokenIDLocked(),
		Direction: log.DirectionLocal,
		Category:  log.CategoryError,
		URL:       c.prevURL,
		Error:     &log.ErrorEventData{Message: err.Error()},
	})
}

// logControlLocked records a control message event.
// Caller must hold c.mu.
func (c *Client) logControlLocked(kind string, dir log.Direction) {
	c.logger.Log(log.Event{
		Timestamp:  time.Now(),
		AttemptID:  c.tokenIDLocked(),
		Direction:  dir,
		Category:   log.CategoryControl,
		URL:        c.prevURL,
		ControlMsg: &log.ControlMsgEvent{Kind: kind},
	})
}
