package client

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tautline/taut-go/pkg/events"
	"github.com/tautline/taut-go/pkg/transport"
	"github.com/tautline/taut-go/pkg/wire"
)

const testURL = "ws://127.0.0.1:9999/ws"

var allEvents = []events.Type{
	events.PreConnect, events.Open, events.Data, events.Send,
	events.Close, events.Error, events.Abort, events.Reconnect,
	events.Ping, events.Pong,
}

func newTestClient(t *testing.T, opts *Options) (*Client, *fakeFactory, *eventRecorder) {
	t.Helper()

	factory := &fakeFactory{}
	if opts == nil {
		opts = &Options{}
	}
	opts.Factory = factory.create

	c := New(testURL, opts)
	rec := &eventRecorder{}
	for _, ev := range allEvents {
		c.On(ev, rec.record(string(ev)))
	}
	return c, factory, rec
}

// openTestClient connects and completes the handshake.
func openTestClient(t *testing.T, opts *Options) (*Client, *fakeFactory, *eventRecorder) {
	t.Helper()

	c, factory, rec := newTestClient(t, opts)
	c.Connect()
	require.Equal(t, 1, factory.count())
	factory.last().open()
	require.True(t, c.Active())
	return c, factory, rec
}

func durp(d time.Duration) *time.Duration { return &d }
func intp(v int) *int                     { return &v }
func boolp(v bool) *bool                  { return &v }

// retryOpts builds a policy with a flat delay and no uptime gate, so
// reconnect tests stay fast and deterministic.
func retryOpts(amount int, delay time.Duration) *RetryOptions {
	return &RetryOptions{
		Amount:      intp(amount),
		StartDelay:  durp(delay),
		DelayFactor: &[]float64{1.0}[0],
		MinUpTime:   durp(0),
	}
}

func TestConnectLifecycleEvents(t *testing.T) {
	c, factory, rec := newTestClient(t, nil)

	c.Connect()
	assert.Equal(t, StateConnecting, c.State())

	factory.last().open()
	assert.Equal(t, []string{"preConnect", "open"}, rec.names())
	assert.True(t, c.Active())
	assert.Equal(t, testURL, c.URL())
	assert.Equal(t, "v1.probe", c.Protocol())
	assert.Equal(t, transport.StateOpen, c.ReadyState())
}

func TestConnectReplacesExistingTransport(t *testing.T) {
	c, factory, rec := openTestClient(t, nil)

	c.Connect()
	require.Equal(t, 2, factory.count())
	assert.True(t, factory.at(0).wasClosed())

	// The old transport came down as a manual closure.
	closes := rec.payloads("close")
	require.Len(t, closes, 1)
	assert.True(t, closes[0].(events.Reason).Manual)

	factory.last().open()
	assert.True(t, c.Active())
}

func TestManualDisconnectResetsState(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{Retry: retryOpts(3, 10*time.Millisecond)})

	c.Disconnect()

	assert.True(t, factory.last().wasClosed())
	assert.Equal(t, StateClosed, c.State())
	assert.False(t, c.Active())
	assert.Zero(t, c.Retries())
	assert.Zero(t, c.Uptime())

	closes := rec.payloads("close")
	require.Len(t, closes, 1)
	assert.True(t, closes[0].(events.Reason).Manual)

	// Manual closures never trigger reconnection.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, factory.count())
}

func TestDisconnectWithoutTransportIsNoOp(t *testing.T) {
	c, _, rec := newTestClient(t, nil)

	c.Disconnect()
	assert.Empty(t, rec.names())
	assert.Equal(t, StateIdle, c.State())
}

func TestSendBuffersWhileDown(t *testing.T) {
	c, _, rec := newTestClient(t, &Options{
		Buffer: &BufferOptions{Max: intp(2)},
	})

	require.NoError(t, c.Send(map[string]int{"seq": 1}))
	require.NoError(t, c.Send(map[string]int{"seq": 2}))
	require.NoError(t, c.Send(map[string]int{"seq": 3}))

	stats := c.Stats()
	assert.Equal(t, 2, stats.OutboundQueued)
	assert.Equal(t, int64(1), stats.OutboundDropped, "overflow drops the newest payload")
	assert.Empty(t, rec.payloads("send"), "nothing transmitted yet")
	assert.Positive(t, c.BufferedAmount())
}

func TestFlushOnOpen(t *testing.T) {
	c, factory, rec := newTestClient(t, nil)

	require.NoError(t, c.Send(map[string]int{"seq": 1}))
	require.NoError(t, c.Send(map[string]int{"seq": 2}))

	c.Connect()
	factory.last().open()

	frames := factory.last().sentFrames()
	require.Len(t, frames, 2)
	assert.JSONEq(t, `{"seq":1}`, string(frames[0]))
	assert.JSONEq(t, `{"seq":2}`, string(frames[1]))
	assert.Len(t, rec.payloads("send"), 2)
	assert.Zero(t, c.Stats().OutboundQueued)
}

func TestSendWhileOpen(t *testing.T) {
	c, factory, rec := openTestClient(t, nil)

	require.NoError(t, c.Send("raw payload"))

	frames := factory.last().sentFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, "raw payload", string(frames[0]))
	assert.Equal(t, []any{"raw payload"}, rec.payloads("send"))
}

func TestSendNilPayloadTransmitsNothing(t *testing.T) {
	c, factory, rec := openTestClient(t, nil)

	require.NoError(t, c.Send(nil))
	assert.Empty(t, factory.last().sentFrames())
	assert.Zero(t, rec.count("send"))
	assert.Zero(t, c.Stats().OutboundQueued)

	c.Disconnect()
	require.NoError(t, c.Send(nil))
	assert.Zero(t, c.Stats().OutboundQueued, "nil is never queued")
}

func TestSendCustomEncoder(t *testing.T) {
	c, factory, _ := openTestClient(t, nil)

	upper := func(v any) ([]byte, error) {
		return []byte(fmt.Sprintf("custom:%v", v)), nil
	}
	require.NoError(t, c.Send("x", upper))

	frames := factory.last().sentFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, "custom:x", string(frames[0]))
}

func TestSendEncodeFailureAborts(t *testing.T) {
	c, factory, rec := openTestClient(t, nil)

	err := c.Send(make(chan int))
	require.Error(t, err)

	assert.True(t, factory.last().wasClosed())
	assert.Equal(t, 1, rec.count("error"))
	assert.Equal(t, 1, rec.count("close"))
	assert.False(t, c.Active())
}

func TestDataDelivery(t *testing.T) {
	c, factory, rec := openTestClient(t, nil)

	var handled []string
	c.OnData(func(msg transport.Message) error {
		handled = append(handled, string(msg.Data))
		return nil
	})

	factory.last().receive([]byte("one"))
	factory.last().receive([]byte("two"))

	assert.Equal(t, []string{"one", "two"}, handled)
	assert.Equal(t, 2, rec.count("data"))
}

func TestDataHandlerErrorAborts(t *testing.T) {
	c, factory, rec := openTestClient(t, nil)

	c.OnData(func(transport.Message) error {
		return errors.New("handler broke")
	})

	factory.last().receive([]byte("payload"))

	assert.True(t, factory.last().wasClosed())
	assert.False(t, c.Active())
	require.Equal(t, 1, rec.count("error"))
	assert.Contains(t, fmt.Sprint(rec.payloads("error")[0]), "handler broke")
}

func TestPrimaryHandlerReplacement(t *testing.T) {
	c, factory, _ := newTestClient(t, nil)

	var first, second int
	c.OnOpen(func() { first++ })
	c.OnOpen(func() { second++ })

	c.Connect()
	factory.last().open()

	assert.Zero(t, first, "replaced handler never fires")
	assert.Equal(t, 1, second)
}

func TestPauseBuffersInbound(t *testing.T) {
	c, factory, rec := openTestClient(t, nil)

	var handled []string
	c.OnData(func(msg transport.Message) error {
		handled = append(handled, string(msg.Data))
		return nil
	})

	c.Pause()
	assert.True(t, c.Paused())
	assert.False(t, c.Active())

	factory.last().receive([]byte("held"))
	assert.Empty(t, handled)
	assert.Zero(t, rec.count("data"))
	assert.Equal(t, 1, c.Stats().InboundQueued)

	c.Resume()
	assert.Equal(t, []string{"held"}, handled)
	assert.Equal(t, 1, rec.count("data"))
	assert.Zero(t, c.Stats().InboundQueued)
}

func TestPauseQueuesOutbound(t *testing.T) {
	c, factory, _ := openTestClient(t, nil)

	c.Pause()
	require.NoError(t, c.Send(map[string]bool{"queued": true}))
	assert.Empty(t, factory.last().sentFrames())

	c.Resume()
	frames := factory.last().sentFrames()
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"queued":true}`, string(frames[0]))
}

func TestPausedOverflowFlushesCapacity(t *testing.T) {
	c, factory, _ := openTestClient(t, &Options{
		Buffer: &BufferOptions{Max: intp(10)},
	})

	c.Pause()
	for i := 0; i < 100; i++ {
		require.NoError(t, c.Send(map[string]int{"seq": i}))
	}

	stats := c.Stats()
	assert.Equal(t, 10, stats.OutboundQueued)
	assert.Equal(t, int64(90), stats.OutboundDropped)
	assert.Empty(t, factory.last().sentFrames())

	c.Resume()
	frames := factory.last().sentFrames()
	require.Len(t, frames, 10, "exactly the queue capacity goes out")
	for i, frame := range frames {
		assert.JSONEq(t, fmt.Sprintf(`{"seq":%d}`, i), string(frame))
	}
}

func TestPauseHaltsUptime(t *testing.T) {
	c, _, _ := openTestClient(t, nil)

	time.Sleep(20 * time.Millisecond)
	c.Pause()
	frozen := c.Uptime()
	require.Positive(t, frozen)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frozen, c.Uptime(), "paused time does not count")

	c.Resume()
	time.Sleep(20 * time.Millisecond)
	assert.Greater(t, c.Uptime(), frozen)
}

func TestAutoReconnectAfterRemoteClose(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{Retry: retryOpts(3, 10*time.Millisecond)})

	factory.last().closeRemote(1006, "gone")

	closes := rec.payloads("close")
	require.Len(t, closes, 1)
	reason := closes[0].(events.Reason)
	assert.Equal(t, 1006, reason.Code)
	assert.False(t, reason.Manual)

	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.count("reconnect"))
	assert.Equal(t, 1, c.Retries())

	// The new attempt completes normally.
	factory.last().open()
	assert.True(t, c.Active())
}

func TestReconnectCoalescesRepeatedCalls(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{Retry: retryOpts(10, 20*time.Millisecond)})

	for i := 0; i < 100; i++ {
		c.Reconnect()
	}
	assert.Equal(t, 1, c.Retries(), "a pending retry absorbs further calls")

	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)
	factory.last().open()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 2, factory.count(), "one timer, one replacement attempt")
	assert.Equal(t, 1, rec.count("reconnect"))
	assert.Equal(t, 1, c.Retries())
}

func TestRetryOverClosedTransportKeepsBuffers(t *testing.T) {
	c, factory, _ := openTestClient(t, &Options{Retry: retryOpts(3, 10*time.Millisecond)})

	// The transport has gone down but its close callback has not
	// been delivered yet when the retry fires.
	factory.last().halfClose()
	c.Reconnect()
	require.NoError(t, c.Send(map[string]int{"kept": 1}))

	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)
	factory.last().open()

	assert.Equal(t, 1, c.Retries(), "the cycle is not a manual closure")
	frames := factory.last().sentFrames()
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"kept":1}`, string(frames[0]))
}

func TestReconnectPreservesBuffers(t *testing.T) {
	c, factory, _ := openTestClient(t, &Options{Retry: retryOpts(3, 10*time.Millisecond)})

	factory.last().closeRemote(1006, "gone")
	// Queued while down, flushed once the replacement opens.
	require.NoError(t, c.Send(map[string]int{"kept": 1}))

	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)
	factory.last().open()

	frames := factory.last().sentFrames()
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"kept":1}`, string(frames[0]))
}

func TestNoReconnectWithoutPolicy(t *testing.T) {
	c, factory, _ := openTestClient(t, nil)

	factory.last().closeRemote(1006, "gone")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, factory.count())
	assert.Equal(t, StateClosed, c.State())
}

func TestNoReconnectBelowMinUpTime(t *testing.T) {
	opts := &Options{Retry: retryOpts(3, 10*time.Millisecond)}
	opts.Retry.MinUpTime = durp(time.Hour)
	c, factory, _ := openTestClient(t, opts)

	factory.last().closeRemote(1006, "gone")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, factory.count())
	assert.Zero(t, c.Retries())
}

func TestReconnectBudgetExhausted(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{Retry: retryOpts(1, 10*time.Millisecond)})

	factory.last().closeRemote(1006, "gone")
	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)
	factory.last().open()
	require.Equal(t, 1, c.Retries())

	factory.last().closeRemote(1006, "gone again")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 2, factory.count(), "budget of one permits no second retry")
	assert.Equal(t, 1, rec.count("reconnect"))
}

func TestTransportErrorTriggersReconnect(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{Retry: retryOpts(3, 10*time.Millisecond)})

	factory.last().fail(errors.New("read: connection reset"))

	require.Equal(t, 1, rec.count("error"))
	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, c.Retries())
}

func TestStaleTransportCallbacksIgnored(t *testing.T) {
	c, factory, rec := openTestClient(t, nil)
	old := factory.last()

	c.Disconnect()
	before := len(rec.names())

	// Late callbacks from the replaced transport are dropped.
	old.open()
	old.receive([]byte("late"))
	old.fail(errors.New("late error"))
	old.closeRemote(1006, "late close")

	assert.Equal(t, before, len(rec.names()))
}

func TestPingStrictTimeoutAborts(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{
		Ping: &PingOptions{Timeout: durp(20 * time.Millisecond)},
	})

	c.Ping()
	frames := factory.last().sentFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, wire.PingPayload, frames[0])
	assert.Equal(t, 1, rec.count("ping"))

	require.Eventually(t, func() bool { return rec.count("abort") == 1 },
		time.Second, 5*time.Millisecond)

	aborts := rec.payloads("abort")
	err, ok := aborts[0].(error)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, err.Error(), "No response received on ping.")
	assert.True(t, factory.last().wasClosed())
}

func TestPingLenientTimeoutDisconnects(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{
		Ping: &PingOptions{Timeout: durp(20 * time.Millisecond), Strict: boolp(false)},
	})

	c.Ping()
	require.Eventually(t, func() bool { return rec.count("close") == 1 },
		time.Second, 5*time.Millisecond)

	assert.Zero(t, rec.count("abort"))
	assert.Zero(t, rec.count("error"))
	assert.True(t, factory.last().wasClosed())
	assert.False(t, c.Active())
}

func TestPingAnsweredByAnyMessage(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{
		Ping: &PingOptions{Timeout: durp(30 * time.Millisecond)},
	})

	c.Ping()
	factory.last().receive([]byte(`{"anything":"counts"}`))

	assert.Equal(t, 1, rec.count("pong"))
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, rec.count("abort"), "answered ping never times out")
	assert.True(t, c.Active())
}

func TestPingNoOpWhileOutstanding(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{
		Ping: &PingOptions{Timeout: durp(time.Second)},
	})

	c.Ping()
	c.Ping()

	assert.Len(t, factory.last().sentFrames(), 1)
	assert.Equal(t, 1, rec.count("ping"))
}

func TestHeartbeatLoop(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{
		Ping: &PingOptions{
			Heartbeat: durp(20 * time.Millisecond),
			Timeout:   durp(200 * time.Millisecond),
		},
	})

	c.StartBeat()
	assert.True(t, c.Beating())
	// The first probe goes out immediately.
	require.Len(t, factory.last().sentFrames(), 1)

	// Answer each probe with the pong literal.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 30; i++ {
			factory.last().receive(wire.PongPayload)
			time.Sleep(10 * time.Millisecond)
			if rec.count("pong") >= 3 {
				return
			}
		}
	}()
	<-done

	assert.GreaterOrEqual(t, rec.count("ping"), 2)
	assert.GreaterOrEqual(t, rec.count("pong"), 3)
	assert.Equal(t, 1, factory.count(), "answered heartbeats keep the connection")

	c.StopBeat()
	assert.False(t, c.Beating())
}

func TestHeartbeatOnlyPongAnswers(t *testing.T) {
	c, factory, _ := openTestClient(t, &Options{
		Ping: &PingOptions{
			Heartbeat: durp(time.Second),
			Timeout:   durp(40 * time.Millisecond),
		},
	})

	c.StartBeat()
	// Ordinary data does not satisfy the heartbeat deadline.
	factory.at(0).receive([]byte(`{"not":"a pong"}`))

	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)
}

func TestHeartbeatTimeoutReplacesConnection(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{
		Ping: &PingOptions{
			Heartbeat: durp(time.Second),
			Timeout:   durp(20 * time.Millisecond),
		},
	})

	c.StartBeat()
	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)

	// The forced cycle is not a manual closure.
	closes := rec.payloads("close")
	require.NotEmpty(t, closes)
	assert.False(t, closes[0].(events.Reason).Manual)

	// The heartbeat resumes on the replacement connection.
	factory.last().open()
	require.Eventually(t, func() bool { return len(factory.last().sentFrames()) >= 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, wire.PingPayload, factory.last().sentFrames()[0])
	assert.True(t, c.Beating())
}

func TestHeartbeatSurvivesPauseResume(t *testing.T) {
	c, factory, rec := openTestClient(t, &Options{
		Ping: &PingOptions{
			Heartbeat: durp(20 * time.Millisecond),
			Timeout:   durp(500 * time.Millisecond),
		},
	})

	c.StartBeat()
	require.Len(t, factory.last().sentFrames(), 1)

	c.Pause()
	assert.True(t, c.Beating())
	sent := len(factory.last().sentFrames())
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, factory.last().sentFrames(), sent, "no probes while paused")

	c.Resume()
	// The loop restarts with an immediate probe and keeps ticking.
	require.Eventually(t, func() bool {
		return len(factory.last().sentFrames()) >= sent+2
	}, time.Second, 5*time.Millisecond)
	assert.True(t, c.Beating())
	assert.Equal(t, 1, factory.count())
	assert.GreaterOrEqual(t, rec.count("ping"), 3)
}

func TestKeepAliveReplacesIdleConnection(t *testing.T) {
	_, factory, rec := openTestClient(t, &Options{
		Timeout: durp(30 * time.Millisecond),
	})

	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)

	closes := rec.payloads("close")
	require.NotEmpty(t, closes)
	assert.False(t, closes[0].(events.Reason).Manual, "keep-alive cycling preserves state")
}

func TestKeepAliveDisabledByZeroTimeout(t *testing.T) {
	_, factory, _ := openTestClient(t, &Options{Timeout: durp(0)})

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, factory.count())
}

func TestAbortAnnouncesPayload(t *testing.T) {
	c, factory, rec := openTestClient(t, nil)

	c.Abort("shutting down", map[string]string{"why": "shutting down"})

	frames := factory.last().sentFrames()
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"type":"abort","payload":{"why":"shutting down"}}`, string(frames[0]))

	require.Equal(t, 1, rec.count("abort"))
	err := rec.payloads("abort")[0].(error)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, err.Error(), "shutting down")

	assert.Equal(t, 1, rec.count("close"))
	assert.True(t, factory.last().wasClosed())
	assert.False(t, c.Active())
}

func TestAbortErrorReasonEmitsError(t *testing.T) {
	c, _, rec := openTestClient(t, nil)

	cause := errors.New("protocol violation")
	c.Abort(cause, nil)

	require.Equal(t, 1, rec.count("error"))
	assert.Equal(t, cause, rec.payloads("error")[0])
	assert.Zero(t, rec.count("abort"))
}

func TestAbortWhilePausedIsNoOp(t *testing.T) {
	c, factory, rec := openTestClient(t, nil)

	c.Pause()
	before := len(rec.names())
	c.Abort("ignored", nil)

	assert.Equal(t, before, len(rec.names()))
	assert.False(t, factory.last().wasClosed())
}

func TestAbortAfterDisconnectIsNoOp(t *testing.T) {
	c, _, rec := openTestClient(t, nil)

	c.Disconnect()
	before := len(rec.names())
	c.Abort("ignored", nil)

	assert.Equal(t, before, len(rec.names()))
}

func TestAbortWithOnAbortReconnects(t *testing.T) {
	opts := &Options{Retry: retryOpts(3, 10*time.Millisecond)}
	opts.Retry.OnAbort = boolp(true)
	c, factory, rec := openTestClient(t, opts)

	c.Abort("flaky", nil)

	assert.Zero(t, rec.count("abort"), "reconnecting abort suppresses signaling")
	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, c.Retries())
}

func TestProviderDrivesEachAttempt(t *testing.T) {
	type call struct {
		retries int
		prev    string
	}
	var mu sync.Mutex
	var calls []call

	factory := &fakeFactory{}
	c := NewWithProvider(func(retryCount int, previousURL string) (string, error) {
		mu.Lock()
		calls = append(calls, call{retries: retryCount, prev: previousURL})
		mu.Unlock()
		return fmt.Sprintf("ws://host-%d:8080", retryCount), nil
	}, &Options{
		Factory: factory.create,
		Retry:   retryOpts(3, 10*time.Millisecond),
	})

	c.Connect()
	factory.last().open()
	require.Equal(t, "ws://host-0:8080", c.URL())

	factory.last().closeRemote(1006, "gone")
	require.Eventually(t, func() bool { return factory.count() == 2 },
		time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 2)
	assert.Equal(t, call{retries: 0, prev: ""}, calls[0])
	assert.Equal(t, call{retries: 1, prev: "ws://host-0:8080"}, calls[1])
	assert.Equal(t, "ws://host-1:8080", factory.last().url)
}

func TestProviderErrorSignalsError(t *testing.T) {
	rec := &eventRecorder{}
	c := NewWithProvider(func(int, string) (string, error) {
		return "", errors.New("no endpoint")
	}, &Options{Factory: (&fakeFactory{}).create})
	for _, ev := range allEvents {
		c.On(ev, rec.record(string(ev)))
	}

	c.Connect()

	require.Equal(t, 1, rec.count("error"))
	assert.Contains(t, fmt.Sprint(rec.payloads("error")[0]), "no endpoint")
	assert.Equal(t, StateClosed, c.State())
}

func TestFactoryErrorSignalsError(t *testing.T) {
	rec := &eventRecorder{}
	c := New(testURL, &Options{
		Factory: func(string, transport.Options) (transport.Transport, error) {
			return nil, errors.New("dial exhausted")
		},
	})
	for _, ev := range allEvents {
		c.On(ev, rec.record(string(ev)))
	}

	c.Connect()

	require.Equal(t, 1, rec.count("error"))
	assert.Contains(t, fmt.Sprint(rec.payloads("error")[0]), "dial exhausted")
}

func TestSetBinaryPropagates(t *testing.T) {
	c, factory, _ := openTestClient(t, nil)

	require.Equal(t, transport.BinaryBlob, c.Binary())
	c.SetBinary(transport.BinaryArrayBuffer)

	assert.Equal(t, transport.BinaryArrayBuffer, c.Binary())
	assert.Equal(t, transport.BinaryArrayBuffer, factory.last().BinaryType())
}

func TestImmediateConnects(t *testing.T) {
	factory := &fakeFactory{autoOpen: true}
	c := New(testURL, &Options{
		Factory:   factory.create,
		Immediate: boolp(true),
	})

	require.Eventually(t, func() bool { return c.Active() },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, factory.count())
}

func TestOffRemovesSubscriber(t *testing.T) {
	c, factory, _ := newTestClient(t, nil)

	var calls int
	id := c.On(events.Open, func(any) { calls++ })
	require.True(t, c.Off(events.Open, id))

	c.Connect()
	factory.last().open()
	assert.Zero(t, calls)
}

func TestStatsSnapshot(t *testing.T) {
	c, factory, _ := openTestClient(t, nil)
	factory.last().receive([]byte("x"))

	stats := c.Stats()
	assert.Equal(t, "OPEN", stats.State)
	assert.False(t, stats.Paused)
	assert.Equal(t, testURL, stats.URL)
	assert.Zero(t, stats.Retries)
}
