// Package events provides the auxiliary multi-subscriber event
// fan-out used alongside the exclusive primary lifecycle handlers.
//
// Subscribers are invoked in registration order. Subscribe returns a
// handle used to remove that exact subscription again; the same
// function may be registered multiple times.
package events
