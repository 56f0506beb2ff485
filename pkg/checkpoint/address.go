package checkpoint

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the width of Sui addresses and object ids.
const AddressLength = 32

// Address is a 32-byte Sui account address or object id.
type Address [AddressLength]byte

// ObjectID shares the address representation.
type ObjectID = Address

// ParseAddress accepts an optionally 0x-prefixed hex string of up to 64 digits.
// Short forms such as "0x2" are left-padded with zeros.
func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if h == "" || len(h) > 2*AddressLength {
		return a, fmt.Errorf("invalid address %q: expected 1-%d hex digits", s, 2*AddressLength)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[AddressLength-len(b):], b)
	return a, nil
}

// AddressFromBytes copies an exact 32-byte slice.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, fmt.Errorf("invalid address length %d", len(b))
	}
	copy(a[:], b)
	return a, nil
}

// String renders the canonical long form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns a fresh copy suitable for a BYTEA column.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
