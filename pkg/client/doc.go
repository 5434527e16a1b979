// Package client implements the connection lifecycle manager: the
// resilience layer wrapped around a raw transport.
//
// The Client owns a single transport handle and drives it through a
// small state machine (idle, connecting, open with a paused sub-state,
// closed), adding what a naked transport lacks:
//
//   - automatic reconnection with capped linear backoff
//   - bidirectional message buffering with threshold-gated draining
//   - heartbeat-based liveness probing and on-demand pings
//   - pause/resume flow control
//   - controlled abort with remote signaling
//
// # Concurrency
//
// All lifecycle state is guarded by a single mutex; every timer
// expiry and transport callback serializes through it, mirroring a
// cooperative single-threaded scheduler. Event emission and user
// handler invocation happen outside the lock, so handlers may call
// back into the Client.
//
// # Cancellation
//
// Each connection attempt owns a fresh cancellation token. Aborting
// or disconnecting invalidates the token, turning any callback still
// scheduled against the stale transport into a no-op.
package client
