package transport

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultHandshakeTimeout bounds the WebSocket opening handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// abnormalClosure is reported when the connection drops without a
// close handshake, mirroring RFC 6455 close code 1006.
const abnormalClosure = 1006

// WebSocket is a Transport over a WebSocket connection.
type WebSocket struct {
	url  string
	opts Options

	mu         sync.Mutex
	conn       *websocket.Conn
	state      ReadyState
	binaryType BinaryType
	protocol   string
	extensions string
	closedSent bool

	// Callback slots. Each holds at most one callback.
	onOpen  func()
	onClose func(code int, reason string)
	onData  func(msg Message)
	onError func(err error)

	// Write serialization
	writeMu sync.Mutex
}

// NewWebSocket creates a WebSocket transport for the given URL.
// The URL is validated here; dialing happens on Start.
func NewWebSocket(rawURL string, opts Options) (*WebSocket, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.BinaryType == "" {
		opts.BinaryType = BinaryBlob
	}

	return &WebSocket{
		url:        rawURL,
		opts:       opts,
		state:      StateConnecting,
		binaryType: opts.BinaryType,
	}, nil
}

// DefaultFactory constructs WebSocket transports. It is the factory
// the lifecycle manager uses unless one is injected.
var DefaultFactory Factory = func(url string, opts Options) (Transport, error) {
	return NewWebSocket(url, opts)
}

// Start dials the WebSocket endpoint on a background goroutine.
func (w *WebSocket) Start() {
	go w.run()
}

// run performs the handshake and drives the read loop.
func (w *WebSocket) run() {
	dialer := websocket.Dialer{
		HandshakeTimeout: w.opts.HandshakeTimeout,
		Subprotocols:     w.opts.Protocols,
	}

	conn, resp, err := dialer.Dial(w.url, w.opts.RequestHeader)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		w.mu.Lock()
		// Close may have raced the handshake
		aborted := w.state == StateClosing || w.state == StateClosed
		w.state = StateClosed
		onError := w.onError
		w.mu.Unlock()

		if !aborted && onError != nil {
			onError(fmt.Errorf("websocket dial: %w", err))
		}
		w.fireClose(abnormalClosure, "connection failed")
		return
	}

	w.mu.Lock()
	if w.state == StateClosing || w.state == StateClosed {
		// Closed while the handshake was in flight
		w.mu.Unlock()
		conn.Close()
		w.fireClose(abnormalClosure, "closed during handshake")
		return
	}
	w.conn = conn
	w.state = StateOpen
	w.protocol = conn.Subprotocol()
	if resp != nil {
		w.extensions = resp.Header.Get("Sec-WebSocket-Extensions")
	}
	onOpen := w.onOpen
	w.mu.Unlock()

	if onOpen != nil {
		onOpen()
	}

	w.readLoop(conn)
}

// readLoop delivers inbound messages until the connection drops.
func (w *WebSocket) readLoop(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			local := w.state == StateClosing || w.state == StateClosed
			w.state = StateClosed
			onError := w.onError
			w.mu.Unlock()

			code := abnormalClosure
			reason := err.Error()
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code = closeErr.Code
				reason = closeErr.Text
			}

			if !local && onError != nil && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				onError(fmt.Errorf("websocket read: %w", err))
			}
			w.fireClose(code, reason)
			return
		}

		w.mu.Lock()
		onData := w.onData
		w.mu.Unlock()

		if onData != nil {
			onData(Message{
				Data:   data,
				Binary: messageType == websocket.BinaryMessage,
			})
		}
	}
}

// Send writes a message. The frame type follows the binary type:
// blob mode writes text frames, arraybuffer mode binary frames.
func (w *WebSocket) Send(data []byte) error {
	w.mu.Lock()
	if w.state != StateOpen || w.conn == nil {
		w.mu.Unlock()
		return ErrNotOpen
	}
	conn := w.conn
	messageType := websocket.TextMessage
	if w.binaryType == BinaryArrayBuffer {
		messageType = websocket.BinaryMessage
	}
	w.mu.Unlock()

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close tears the connection down. A best-effort close frame is sent
// when the connection is open.
func (w *WebSocket) Close() error {
	w.mu.Lock()
	if w.state == StateClosed {
		w.mu.Unlock()
		return ErrAlreadyClosed
	}
	conn := w.conn
	wasOpen := w.state == StateOpen
	w.state = StateClosing
	w.mu.Unlock()

	if conn == nil {
		// Still dialing; the run goroutine observes StateClosing.
		return nil
	}

	if wasOpen {
		w.writeMu.Lock()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		w.writeMu.Unlock()
	}
	return conn.Close()
}

// ReadyState returns the current connection state.
func (w *WebSocket) ReadyState() ReadyState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// BufferedAmount returns 0: the underlying connection does not
// report its internal write queue.
func (w *WebSocket) BufferedAmount() int {
	return 0
}

// Protocol returns the negotiated sub-protocol.
func (w *WebSocket) Protocol() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.protocol
}

// Extensions returns the negotiated extensions.
func (w *WebSocket) Extensions() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.extensions
}

// BinaryType returns the current payload decoding mode.
func (w *WebSocket) BinaryType() BinaryType {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.binaryType
}

// SetBinaryType changes the payload decoding mode at runtime.
func (w *WebSocket) SetBinaryType(t BinaryType) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.binaryType = t
}

// OnOpen sets the open callback slot, replacing any prior one.
func (w *WebSocket) OnOpen(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onOpen = fn
}

// OnClose sets the close callback slot, replacing any prior one.
func (w *WebSocket) OnClose(fn func(code int, reason string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClose = fn
}

// OnData sets the data callback slot, replacing any prior one.
func (w *WebSocket) OnData(fn func(msg Message)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onData = fn
}

// OnError sets the error callback slot, replacing any prior one.
func (w *WebSocket) OnError(fn func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// fireClose invokes the close slot exactly once.
func (w *WebSocket) fireClose(code int, reason string) {
	w.mu.Lock()
	if w.closedSent {
		w.mu.Unlock()
		return
	}
	w.closedSent = true
	onClose := w.onClose
	w.mu.Unlock()

	if onClose != nil {
		onClose(code, reason)
	}
}
