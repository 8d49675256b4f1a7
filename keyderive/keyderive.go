// Package keyderive turns a wallet signature (or a raw private scalar) into
// a deterministic secp256k1 keypair, so the recipient can re-derive the
// decryption key on demand instead of storing it.
package keyderive

import (
	"errors"
	"fmt"

	"github.com/Cainuriel/message-crypto/secp256k1"
)

// MaxAttempts bounds the re-hash loop in Derive.
const MaxAttempts = 256

// Sentinel errors
var (
	ErrDerivationExhausted = errors.New("keyderive: no valid scalar found")
	ErrInvalidScalar       = errors.New("keyderive: invalid private scalar")
	ErrEmptySeed           = errors.New("keyderive: seed cannot be empty")
)

type hashFunc func(parts ...[]byte) []byte

// Derive maps seed deterministically to a keypair.
//
// The first candidate is Keccak-256(seed), which matches keys produced by
// hashing a signature into an ethers.js wallet. If a candidate is zero or
// not below the curve order, Keccak-256(seed || i) is tried for
// i = 1..MaxAttempts-1. Exhaustion is fatal and should be reported, not
// retried with the same seed.
func Derive(seed []byte) (*KeyPair, error) {
	return derive(seed, secp256k1.HashKeccak256, MaxAttempts)
}

func derive(seed []byte, hash hashFunc, attempts int) (*KeyPair, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}

	for i := 0; i < attempts; i++ {
		var candidate []byte
		if i == 0 {
			candidate = hash(seed)
		} else {
			candidate = hash(seed, []byte{byte(i)})
		}

		privKey, ok := secp256k1.PrivateKeyFromScalar(candidate)
		secp256k1.SecureZero(candidate)
		if ok {
			return newKeyPair(privKey), nil
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrDerivationExhausted, attempts)
}

// FromPrivateKey builds a keypair from a raw 32-byte scalar. The input is
// not retained.
func FromPrivateKey(scalar []byte) (*KeyPair, error) {
	if len(scalar) != secp256k1.PrivateKeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidScalar, secp256k1.PrivateKeySize, len(scalar))
	}

	privKey, ok := secp256k1.PrivateKeyFromScalar(scalar)
	if !ok {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidScalar)
	}
	return newKeyPair(privKey), nil
}
