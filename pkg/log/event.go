package log

import "time"

// Event represents a connection lifecycle log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// AttemptID uniquely identifies the connection attempt (UUID).
	AttemptID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// URL is the resolved target address for this attempt.
	URL string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	StateChange *StateChangeEvent `cbor:"6,keyasint,omitempty"`
	ControlMsg  *ControlMsgEvent  `cbor:"7,keyasint,omitempty"`
	Buffer      *BufferEvent      `cbor:"8,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"9,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
	// DirectionLocal indicates a purely local event.
	DirectionLocal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState is a connection state transition.
	CategoryState Category = iota
	// CategoryControl is a ping, pong, or abort control message.
	CategoryControl
	// CategoryBuffer is a queue enqueue, drop, or flush.
	CategoryBuffer
	// CategoryError is an error at any layer.
	CategoryError
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryControl:
		return "CONTROL"
	case CategoryBuffer:
		return "BUFFER"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent records a connection state transition.
type StateChangeEvent struct {
	// From is the previous state name.
	From string `cbor:"1,keyasint"`

	// To is the new state name.
	To string `cbor:"2,keyasint"`

	// Retries is the retry count at the time of the transition.
	Retries int `cbor:"3,keyasint,omitempty"`
}

// ControlMsgEvent records a control message.
type ControlMsgEvent struct {
	// Kind is "ping", "pong", or "abort".
	Kind string `cbor:"1,keyasint"`
}

// BufferEvent records queue activity.
type BufferEvent struct {
	// Queue is "inbound" or "outbound".
	Queue string `cbor:"1,keyasint"`

	// Action is "enqueue", "drop", or "flush".
	Action string `cbor:"2,keyasint"`

	// Length is the queue length after the action.
	Length int `cbor:"3,keyasint"`
}

// ErrorEventData records an error.
type ErrorEventData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`
}
