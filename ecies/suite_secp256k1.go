package ecies

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20"

	"github.com/Cainuriel/message-crypto/internal/ctcompare"
	"github.com/Cainuriel/message-crypto/secp256k1"
)

// VersionSecp256k1 tags envelopes produced by the default suite.
const VersionSecp256k1 = "secp256k1-hkdf-sha256-xchacha20-sha256"

// Field sizes of a VersionSecp256k1 envelope.
const (
	EphemeralPublicKeySize = secp256k1.CompressedPublicKeySize
	SaltSize               = 16
	NonceSize              = chacha20.NonceSizeX
	MACSize                = sha256.Size
)

type secp256k1Suite struct{}

func (secp256k1Suite) Version() string { return VersionSecp256k1 }

func (secp256k1Suite) Seal(rand io.Reader, plaintext, recipientPublicKey []byte) (*Envelope, error) {
	recipient, err := secp256k1.ParsePublicKey(recipientPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	ephemeral, err := secp256k1.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %w", ErrRandomness, err)
	}
	defer ephemeral.Zero()

	shared := secp256k1.SharedSecret(ephemeral, recipient)
	defer secp256k1.SecureZero(shared)

	salt, err := readRandom(rand, SaltSize)
	if err != nil {
		return nil, err
	}
	nonce, err := readRandom(rand, NonceSize)
	if err != nil {
		return nil, err
	}

	encKey, macKey, err := deriveKeys(shared, salt)
	if err != nil {
		return nil, err
	}
	defer secp256k1.SecureZero(encKey)
	defer secp256k1.SecureZero(macKey)

	stream, err := chacha20.NewUnauthenticatedCipher(encKey, nonce)
	if err != nil {
		return nil, fmt.Errorf("xchacha20: %w", err)
	}
	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, plaintext)

	ephemeralPub := ephemeral.PubKey().SerializeCompressed()

	return &Envelope{
		Version:            VersionSecp256k1,
		EphemeralPublicKey: ephemeralPub,
		Salt:               salt,
		Nonce:              nonce,
		Ciphertext:         ciphertext,
		MAC:                computeMAC(macKey, ephemeralPub, salt, nonce, ciphertext),
	}, nil
}

func (secp256k1Suite) Open(env *Envelope, recipientPrivateKey []byte) ([]byte, error) {
	if err := checkSize("ephemeralPublicKey", env.EphemeralPublicKey, EphemeralPublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize("salt", env.Salt, SaltSize); err != nil {
		return nil, err
	}
	if err := checkSize("nonce", env.Nonce, NonceSize); err != nil {
		return nil, err
	}
	if err := checkSize("mac", env.MAC, MACSize); err != nil {
		return nil, err
	}

	privKey, err := secp256k1.ParsePrivateKey(recipientPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	defer privKey.Zero()

	// A well-sized ephemeral key that is not a curve point has been
	// tampered with.
	ephemeral, err := secp256k1.ParsePublicKey(env.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral public key: %v", ErrAuthenticationFailed, err)
	}

	shared := secp256k1.SharedSecret(privKey, ephemeral)
	defer secp256k1.SecureZero(shared)

	encKey, macKey, err := deriveKeys(shared, env.Salt)
	if err != nil {
		return nil, err
	}
	defer secp256k1.SecureZero(encKey)
	defer secp256k1.SecureZero(macKey)

	expected := computeMAC(macKey, env.EphemeralPublicKey, env.Salt, env.Nonce, env.Ciphertext)
	if !ctcompare.Equal(expected, env.MAC) {
		return nil, ErrAuthenticationFailed
	}

	stream, err := chacha20.NewUnauthenticatedCipher(encKey, env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	plaintext := make([]byte, len(env.Ciphertext))
	stream.XORKeyStream(plaintext, env.Ciphertext)
	return plaintext, nil
}
