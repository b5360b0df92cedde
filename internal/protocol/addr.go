// Package protocol frames negotiation messages for the wire and names nodes.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Addr is a two-part node address, written "group.id".
type Addr struct {
	Group uint8
	ID    uint8
}

// SinkAddr is the well-known controller address.
var SinkAddr = Addr{Group: 1, ID: 0}

func (a Addr) String() string {
	return strconv.Itoa(int(a.Group)) + "." + strconv.Itoa(int(a.ID))
}

// ParseAddr parses "group.id".
func ParseAddr(s string) (Addr, error) {
	g, id, ok := strings.Cut(s, ".")
	if !ok {
		return Addr{}, fmt.Errorf("address %q: want group.id", s)
	}
	gv, err := strconv.ParseUint(g, 10, 8)
	if err != nil {
		return Addr{}, fmt.Errorf("address %q group: %w", s, err)
	}
	iv, err := strconv.ParseUint(id, 10, 8)
	if err != nil {
		return Addr{}, fmt.Errorf("address %q id: %w", s, err)
	}
	return Addr{Group: uint8(gv), ID: uint8(iv)}, nil
}

// MarshalText implements encoding.TextMarshaler so addresses read naturally
// in YAML and JSON.
func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Addr) UnmarshalText(b []byte) error {
	parsed, err := ParseAddr(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Seed derives a PRNG seed from the node identity mixed with a clock value.
func (a Addr) Seed(clock int64) int64 {
	return clock ^ (int64(a.Group)<<40 | int64(a.ID)<<32)
}
