package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Control message literals.
var (
	// PingPayload is the fixed liveness probe message.
	PingPayload = []byte(`{"type":"ping"}`)

	// PongPayload is the fixed probe response message.
	PongPayload = []byte(`{"type":"pong"}`)
)

// abortMessage is the control message signaling an application-scoped
// abort to the remote peer.
type abortMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// AbortMessage builds the abort control message carrying payload.
func AbortMessage(payload any) ([]byte, error) {
	data, err := json.Marshal(abortMessage{Type: "abort", Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode abort message: %w", err)
	}
	return data, nil
}

// IsPong reports whether data equals the fixed pong literal.
func IsPong(data []byte) bool {
	return bytes.Equal(data, PongPayload)
}

// IsPing reports whether data equals the fixed ping literal.
func IsPing(data []byte) bool {
	return bytes.Equal(data, PingPayload)
}
