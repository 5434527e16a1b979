// Package buffer provides the bounded queues used for bidirectional
// message buffering.
//
// Queues are capacity-bounded with drop-newest overflow: once a queue
// holds Max items, further pushes are discarded and the oldest items
// are never evicted. Draining is threshold-gated: the outbound queue
// releases once its length reaches Min, the inbound queue only once
// its length exceeds Min. The asymmetry is deliberate and relied on
// by the connection lifecycle.
package buffer
