package client

import (
	"sync"

	"github.com/tautline/taut-go/pkg/transport"
)

// fakeTransport is a scriptable transport for lifecycle tests.
// Callbacks are fired from the test goroutine via open, closeRemote,
// receive, and fail, mirroring the asynchronous delivery of the real
// WebSocket transport.
type fakeTransport struct {
	mu sync.Mutex

	url   string
	opts  transport.Options
	state transport.ReadyState

	sent    [][]byte
	sendErr error
	closed  bool
	binary  transport.BinaryType

	autoOpen bool

	onOpen  func()
	onClose func(code int, reason string)
	onData  func(msg transport.Message)
	onError func(err error)
}

func (f *fakeTransport) Start() {
	f.mu.Lock()
	f.state = transport.StateConnecting
	auto := f.autoOpen
	f.mu.Unlock()
	if auto {
		go f.open()
	}
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.state = transport.StateClosed
	return nil
}

func (f *fakeTransport) ReadyState() transport.ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) BufferedAmount() int { return 0 }

func (f *fakeTransport) Protocol() string { return "v1.probe" }

func (f *fakeTransport) Extensions() string { return "" }

func (f *fakeTransport) BinaryType() transport.BinaryType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.binary
}

func (f *fakeTransport) SetBinaryType(t transport.BinaryType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binary = t
}

func (f *fakeTransport) OnOpen(fn func())                       { f.onOpen = fn }
func (f *fakeTransport) OnClose(fn func(code int, text string)) { f.onClose = fn }
func (f *fakeTransport) OnData(fn func(msg transport.Message))  { f.onData = fn }
func (f *fakeTransport) OnError(fn func(err error))             { f.onError = fn }

// open simulates a completed handshake.
func (f *fakeTransport) open() {
	f.mu.Lock()
	f.state = transport.StateOpen
	fn := f.onOpen
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// halfClose marks the transport closed without delivering the close
// callback, mirroring the gap between the state change and its
// asynchronous delivery.
func (f *fakeTransport) halfClose() {
	f.mu.Lock()
	f.state = transport.StateClosed
	f.mu.Unlock()
}

// closeRemote simulates a remote closure.
func (f *fakeTransport) closeRemote(code int, reason string) {
	f.mu.Lock()
	f.state = transport.StateClosed
	fn := f.onClose
	f.mu.Unlock()
	if fn != nil {
		fn(code, reason)
	}
}

// receive simulates an inbound message.
func (f *fakeTransport) receive(data []byte) {
	f.mu.Lock()
	fn := f.onData
	f.mu.Unlock()
	if fn != nil {
		fn(transport.Message{Data: data})
	}
}

// fail simulates a transport error.
func (f *fakeTransport) fail(err error) {
	f.mu.Lock()
	fn := f.onError
	f.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// sentFrames returns a copy of everything sent so far.
func (f *fakeTransport) sentFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var _ transport.Transport = (*fakeTransport)(nil)

// fakeFactory tracks every transport it creates.
type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
	err        error
	autoOpen   bool
}

func (f *fakeFactory) create(url string, opts transport.Options) (transport.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	tr := &fakeTransport{
		url:      url,
		opts:     opts,
		binary:   opts.BinaryType,
		autoOpen: f.autoOpen,
	}
	f.transports = append(f.transports, tr)
	return tr, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

func (f *fakeFactory) at(i int) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[i]
}

func (f *fakeFactory) last() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[len(f.transports)-1]
}

// eventRecorder captures emitted events in order.
type eventRecorder struct {
	mu      sync.Mutex
	entries []recordedEvent
}

type recordedEvent struct {
	event   string
	payload any
}

func (r *eventRecorder) record(event string) func(any) {
	return func(payload any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = append(r.entries, recordedEvent{event: event, payload: payload})
	}
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.event
	}
	return out
}

func (r *eventRecorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, e := range r.entries {
		if e.event == event {
			n++
		}
	}
	return n
}

func (r *eventRecorder) payloads(event string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.entries {
		if e.event == event {
			out = append(out, e.payload)
		}
	}
	return out
}
