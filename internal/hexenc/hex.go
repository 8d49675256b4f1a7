// Package hexenc implements the hex convention used on the wire: input is
// case-insensitive with an optional 0x prefix, output is always lowercase
// without a prefix.
package hexenc

import (
	"encoding/hex"
	"fmt"
)

// Decode decodes a hex string to bytes. An empty string (or a bare prefix)
// decodes to an empty, non-nil slice. Odd-length input is rejected so that
// Encode(Decode(s)) always round-trips.
func Decode(s string) ([]byte, error) {
	s = TrimPrefix(s)
	if s == "" {
		return []byte{}, nil
	}
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid hex length: %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// DecodeFixed decodes a hex string that must yield exactly size bytes.
func DecodeFixed(s string, size int) ([]byte, error) {
	b, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("invalid length: got %d bytes, want %d", len(b), size)
	}
	return b, nil
}

// Encode encodes bytes as lowercase hex without a prefix.
func Encode(b []byte) string {
	return hex.EncodeToString(b)
}

// EncodePrefixed encodes bytes as lowercase hex with a 0x prefix. Used only
// where an Ethereum-facing value (a signature) is shown to a wallet user.
func EncodePrefixed(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// Has0xPrefix returns true if the string has a 0x prefix.
func Has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// TrimPrefix strips a single 0x or 0X prefix.
func TrimPrefix(s string) string {
	if Has0xPrefix(s) {
		return s[2:]
	}
	return s
}
