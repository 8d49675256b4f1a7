package ecies

import (
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"

	"github.com/Cainuriel/message-crypto/secp256k1"
)

// VersionX25519 tags EIP-1024 envelopes, the format of MetaMask's
// eth_encrypt / eth_decrypt.
const VersionX25519 = "x25519-xsalsa20-poly1305"

// X25519KeySize is the size of an EIP-1024 public key.
const X25519KeySize = 32

// x25519Suite encrypts to the X25519 key derived from the recipient's
// secp256k1 scalar (keyderive.KeyPair.EncryptionPublicKey). Salt and MAC
// stay empty; Poly1305 authenticates the ciphertext.
type x25519Suite struct{}

func (x25519Suite) Version() string { return VersionX25519 }

func (x25519Suite) Seal(rand io.Reader, plaintext, recipientPublicKey []byte) (*Envelope, error) {
	if len(recipientPublicKey) != X25519KeySize {
		return nil, fmt.Errorf("%w: x25519 key must be %d bytes, got %d", ErrInvalidPublicKey, X25519KeySize, len(recipientPublicKey))
	}
	var peer [32]byte
	copy(peer[:], recipientPublicKey)

	ephemeralPub, ephemeralPriv, err := box.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %w", ErrRandomness, err)
	}
	defer secp256k1.SecureZero(ephemeralPriv[:])

	nonceBytes, err := readRandom(rand, NonceSize)
	if err != nil {
		return nil, err
	}
	var nonce [24]byte
	copy(nonce[:], nonceBytes)

	return &Envelope{
		Version:            VersionX25519,
		EphemeralPublicKey: ephemeralPub[:],
		Salt:               []byte{},
		Nonce:              nonceBytes,
		Ciphertext:         box.Seal(nil, plaintext, &nonce, &peer, ephemeralPriv),
		MAC:                []byte{},
	}, nil
}

func (x25519Suite) Open(env *Envelope, recipientPrivateKey []byte) ([]byte, error) {
	if err := checkSize("ephemeralPublicKey", env.EphemeralPublicKey, X25519KeySize); err != nil {
		return nil, err
	}
	if err := checkSize("nonce", env.Nonce, NonceSize); err != nil {
		return nil, err
	}
	if err := checkSize("salt", env.Salt, 0); err != nil {
		return nil, err
	}
	if err := checkSize("mac", env.MAC, 0); err != nil {
		return nil, err
	}
	if len(env.Ciphertext) < box.Overhead {
		return nil, fmt.Errorf("%w: ciphertext shorter than %d bytes", ErrMalformedCiphertext, box.Overhead)
	}

	scalar, err := secp256k1.ParsePrivateKey(recipientPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	scalar.Zero()
	var priv [32]byte
	copy(priv[:], recipientPrivateKey)
	defer secp256k1.SecureZero(priv[:])

	var peer [32]byte
	copy(peer[:], env.EphemeralPublicKey)
	var nonce [24]byte
	copy(nonce[:], env.Nonce)

	plaintext, ok := box.Open(nil, env.Ciphertext, &nonce, &peer, &priv)
	if !ok {
		return nil, ErrAuthenticationFailed
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}
