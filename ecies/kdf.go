package ecies

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// kdfInfo binds derived keys to this protocol and suite version.
const kdfInfo = "message-crypto/ecies/v1"

const (
	encKeySize = 32
	macKeySize = 32
)

// deriveKeys expands the ECDH shared secret into an encryption key and an
// independent MAC key.
func deriveKeys(shared, salt []byte) (encKey, macKey []byte, err error) {
	okm := make([]byte, encKeySize+macKeySize)
	r := hkdf.New(sha256.New, shared, salt, []byte(kdfInfo))
	if _, err := io.ReadFull(r, okm); err != nil {
		return nil, nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return okm[:encKeySize], okm[encKeySize:], nil
}

// computeMAC covers every transmitted field except the version tag, which
// is already bound through kdfInfo.
func computeMAC(macKey, ephemeralPublicKey, salt, nonce, ciphertext []byte) []byte {
	h := sha256.New()
	h.Write(macKey)
	h.Write(ephemeralPublicKey)
	h.Write(salt)
	h.Write(nonce)
	h.Write(ciphertext)
	return h.Sum(nil)
}

func readRandom(r io.Reader, size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomness, err)
	}
	return b, nil
}
