// Package secp256k1 wraps the btcec curve operations used by the protocol:
// key parsing and normalization, ECDH, Keccak-256 and Ethereum address
// derivation.
package secp256k1

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/sha3"
)

// Key and address sizes in bytes.
const (
	PrivateKeySize            = 32
	CompressedPublicKeySize   = 33
	UncompressedPublicKeySize = 65
	AddressSize               = 20
)

// maxGenerateAttempts bounds rejection sampling in GenerateKey. A uniformly
// random 32-byte string is out of range with probability about 2^-128.
const maxGenerateAttempts = 8

// ErrScalarOutOfRange is returned when bytes do not encode a scalar in [1, n-1].
var ErrScalarOutOfRange = errors.New("secp256k1: scalar out of range")

// GenerateKey creates a fresh private key from r, which must be a
// cryptographically secure source. A nil r means crypto/rand.
// A read error is returned as-is; there is no fallback source.
func GenerateKey(r io.Reader) (*btcec.PrivateKey, error) {
	if r == nil {
		r = rand.Reader
	}

	buf := make([]byte, PrivateKeySize)
	defer SecureZero(buf)

	for i := 0; i < maxGenerateAttempts; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read random scalar: %w", err)
		}
		if privKey, ok := PrivateKeyFromScalar(buf); ok {
			return privKey, nil
		}
	}
	return nil, fmt.Errorf("failed to generate private key: %w", ErrScalarOutOfRange)
}

// PrivateKeyFromScalar interprets b as a big-endian scalar and returns the
// private key if the scalar is in [1, n-1]. Unlike btcec.PrivKeyFromBytes it
// never reduces mod n, so two different inputs never map to the same key.
func PrivateKeyFromScalar(b []byte) (*btcec.PrivateKey, bool) {
	if len(b) != PrivateKeySize {
		return nil, false
	}

	var s btcec.ModNScalar
	defer s.Zero()
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, false
	}

	privKey, _ := btcec.PrivKeyFromBytes(b)
	return privKey, true
}

// ParsePrivateKey deserializes a private key from raw 32-byte format.
func ParsePrivateKey(data []byte) (*btcec.PrivateKey, error) {
	if len(data) != PrivateKeySize {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(data))
	}

	privKey, ok := PrivateKeyFromScalar(data)
	if !ok {
		return nil, ErrScalarOutOfRange
	}
	return privKey, nil
}

// ParsePublicKey deserializes a public key from compressed or uncompressed
// format. Points not on the curve are rejected.
func ParsePublicKey(data []byte) (*btcec.PublicKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("public key data cannot be empty")
	}
	if len(data) != CompressedPublicKeySize && len(data) != UncompressedPublicKeySize {
		return nil, fmt.Errorf("public key must be 33 or 65 bytes, got %d", len(data))
	}

	pubKey, err := btcec.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pubKey, nil
}

// NormalizePublicKey accepts a compressed or uncompressed key and returns
// its compressed form.
func NormalizePublicKey(data []byte) ([]byte, error) {
	pubKey, err := ParsePublicKey(data)
	if err != nil {
		return nil, err
	}
	return pubKey.SerializeCompressed(), nil
}

// SharedSecret returns the x-coordinate of privKey·pubKey (32 bytes).
func SharedSecret(privKey *btcec.PrivateKey, pubKey *btcec.PublicKey) []byte {
	return btcec.GenerateSharedSecret(privKey, pubKey)
}

// HashKeccak256 computes Keccak-256 (Ethereum) over the concatenation of parts.
func HashKeccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// DeriveEthereumAddress derives a 20-byte Ethereum address from a public key.
// Formula: Keccak256(uncompressed_pubkey[1:])[12:32]
func DeriveEthereumAddress(pubKey *btcec.PublicKey) []byte {
	uncompressed := pubKey.SerializeUncompressed()
	hash := HashKeccak256(uncompressed[1:])
	return hash[12:]
}

// FormatEthereumAddress formats a 20-byte address as an EIP-55 checksummed
// hex string.
func FormatEthereumAddress(addr []byte) string {
	if len(addr) != AddressSize {
		return ""
	}

	hexAddr := hex.EncodeToString(addr)
	hash := HashKeccak256([]byte(hexAddr))

	// Uppercase a letter if the corresponding nibble of the hash is >= 8.
	result := make([]byte, 40)
	for i := 0; i < 40; i++ {
		hashNibble := hash[i/2]
		if i%2 == 0 {
			hashNibble = hashNibble >> 4
		} else {
			hashNibble = hashNibble & 0x0f
		}

		if hashNibble >= 8 && hexAddr[i] >= 'a' && hexAddr[i] <= 'f' {
			result[i] = hexAddr[i] - 32
		} else {
			result[i] = hexAddr[i]
		}
	}

	return "0x" + string(result)
}

// AddressFromPublicKey returns the checksummed Ethereum address of pubKey.
func AddressFromPublicKey(pubKey *btcec.PublicKey) string {
	return FormatEthereumAddress(DeriveEthereumAddress(pubKey))
}

// SecureZero wipes sensitive data from memory.
func SecureZero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
