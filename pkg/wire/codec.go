package wire

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Encoder converts an outbound payload into transport bytes.
type Encoder func(v any) ([]byte, error)

// encMode is the CBOR encoder mode for binary payloads.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for binary payloads.
var decMode cbor.DecMode

func init() {
	var err error

	// Deterministic output so identical payloads produce identical frames
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// JSONEncoder is the default payload encoder. Byte slices and strings
// pass through untouched; all other values are JSON-encoded.
func JSONEncoder(v any) ([]byte, error) {
	switch p := v.(type) {
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		return data, nil
	}
}

// CBOREncoder encodes payloads as deterministic CBOR. Byte slices
// pass through untouched so pre-encoded frames are not double-wrapped.
func CBOREncoder(v any) ([]byte, error) {
	if p, ok := v.([]byte); ok {
		return p, nil
	}
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// MarshalCBOR encodes a value to CBOR bytes.
func MarshalCBOR(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// UnmarshalCBOR decodes CBOR bytes into a value.
func UnmarshalCBOR(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// PayloadSize approximates the byte size of a not-yet-encoded
// payload: string length, byte length for binary data, stringified
// length for anything else. This is an approximation, not an exact
// wire byte count.
func PayloadSize(v any) int {
	switch p := v.(type) {
	case nil:
		return 0
	case string:
		return len(p)
	case []byte:
		return len(p)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return len(fmt.Sprint(v))
		}
		return len(data)
	}
}
