package transport

import (
	"errors"
	"net/http"
	"time"
)

// Transport errors.
var (
	ErrNotOpen       = errors.New("transport not open")
	ErrAlreadyClosed = errors.New("transport already closed")
	ErrInvalidURL    = errors.New("invalid transport URL")
)

// ReadyState represents the transport connection state.
type ReadyState uint8

const (
	// StateConnecting indicates the connection attempt is in progress.
	StateConnecting ReadyState = iota

	// StateOpen indicates the connection is established.
	StateOpen

	// StateClosing indicates a close has been initiated locally.
	StateClosing

	// StateClosed indicates the connection is fully closed.
	StateClosed
)

// String returns a human-readable state name.
func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// BinaryType selects the payload decoding mode for the transport.
type BinaryType string

const (
	// BinaryBlob is the default decoding mode: outbound payloads are
	// written as text frames.
	BinaryBlob BinaryType = "blob"

	// BinaryArrayBuffer writes outbound payloads as binary frames.
	BinaryArrayBuffer BinaryType = "arraybuffer"
)

// Message is a single inbound transport message.
type Message struct {
	// Data is the raw message payload.
	Data []byte

	// Binary indicates the message arrived as a binary frame.
	Binary bool
}

// Transport is the raw bidirectional socket the lifecycle manager
// owns. Implementations must be safe for concurrent use.
type Transport interface {
	// Start begins connecting. The outcome is reported through the
	// open or error/close callback slots; Start never blocks.
	Start()

	// Send writes a message. Returns ErrNotOpen unless the
	// transport is open.
	Send(data []byte) error

	// Close tears the connection down. Safe to call at any state
	// and more than once.
	Close() error

	// ReadyState returns the current connection state.
	ReadyState() ReadyState

	// BufferedAmount returns the number of bytes queued inside the
	// transport but not yet handed to the network, if known.
	BufferedAmount() int

	// Protocol returns the negotiated sub-protocol, if any.
	Protocol() string

	// Extensions returns the negotiated extensions, if any.
	Extensions() string

	// BinaryType returns the current payload decoding mode.
	BinaryType() BinaryType

	// SetBinaryType changes the payload decoding mode at runtime.
	SetBinaryType(t BinaryType)

	// OnOpen sets the open callback slot, replacing any prior one.
	OnOpen(fn func())

	// OnClose sets the close callback slot, replacing any prior one.
	OnClose(fn func(code int, reason string))

	// OnData sets the data callback slot, replacing any prior one.
	OnData(fn func(msg Message))

	// OnError sets the error callback slot, replacing any prior one.
	OnError(fn func(err error))
}

// Options configures transport construction.
type Options struct {
	// Protocols is the sub-protocol negotiation list.
	Protocols []string

	// BinaryType is the initial payload decoding mode.
	// Defaults to BinaryBlob.
	BinaryType BinaryType

	// HandshakeTimeout bounds the connection handshake.
	// Defaults to 10 seconds.
	HandshakeTimeout time.Duration

	// RequestHeader is sent with the opening handshake.
	RequestHeader http.Header
}

// Factory constructs a transport for the given target address.
// Construction validates the address but does not dial; an error
// here indicates the address can never be connected to.
type Factory func(url string, opts Options) (Transport, error)

// Compile-time interface satisfaction checks.
var _ Transport = (*WebSocket)(nil)
