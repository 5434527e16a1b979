// Package version provides wire protocol version parsing, comparison,
// and sub-protocol negotiation helpers.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the wire protocol version implemented by this library.
const Current = "1.0"

// Version represents a parsed "major.minor" protocol version.
type Version struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	maj, err := strconv.ParseUint(major, 10, 16)
	if err != nil || major == "" {
		return Version{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	min, err := strconv.ParseUint(minor, 10, 16)
	if err != nil || minor == "" {
		return Version{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return Version{Major: uint16(maj), Minor: uint16(min)}, nil
}

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible reports whether the other version shares the major
// component.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}

// Subprotocol returns the negotiation token for a major version:
// "taut/N". Clients offer it in the WebSocket sub-protocol list.
func Subprotocol(major uint16) string {
	return fmt.Sprintf("taut/%d", major)
}

// MajorFromSubprotocol extracts the major version from a negotiation
// token.
func MajorFromSubprotocol(token string) (uint16, error) {
	suffix, ok := strings.CutPrefix(token, "taut/")
	if !ok {
		return 0, fmt.Errorf("not a taut sub-protocol: %q", token)
	}
	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("bad sub-protocol %q: %w", token, err)
	}
	return uint16(major), nil
}
