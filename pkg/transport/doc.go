// Package transport defines the raw bidirectional socket abstraction
// the connection lifecycle manages, plus a WebSocket implementation.
//
// A Transport exposes open/close/send/receive primitives and four
// callback slots (open, close, data, error). Each slot holds exactly
// one callback; setting a slot replaces the previous callback. The
// lifecycle manager owns the wiring of these slots and tears the
// transport down when replacing it.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│     Application payloads       │
//	├────────────────────────────────┤
//	│   WebSocket framing (RFC 6455) │
//	├────────────────────────────────┤
//	│        TLS (wss) / TCP         │
//	└────────────────────────────────┘
//
// Construction never dials: a Transport starts connecting when Start
// is called, and reports the outcome through its callback slots. This
// keeps connection establishment cooperative with the rest of the
// lifecycle.
package transport
