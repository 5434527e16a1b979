// Package wire defines the control message literals exchanged with
// the remote peer and the payload encoders used for outbound sends.
//
// # Control messages
//
// Liveness probing and remote abort signaling use fixed JSON
// literals:
//
//	ping:  {"type":"ping"}
//	pong:  {"type":"pong"}
//	abort: {"type":"abort","payload":<payload>}
//
// # Encoders
//
// Send operations accept an Encoder; the default JSON encoder passes
// raw byte slices and strings through untouched and JSON-encodes
// everything else. A deterministic CBOR encoder is available for
// binary-mode peers.
package wire
