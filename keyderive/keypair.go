package keyderive

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/curve25519"

	"github.com/Cainuriel/message-crypto/internal/hexenc"
	"github.com/Cainuriel/message-crypto/secp256k1"
)

// KeyPair is a secp256k1 keypair whose private half never leaves the
// process unless PrivateKey is called explicitly. String and LogValue only
// ever render public material.
type KeyPair struct {
	privKey   *btcec.PrivateKey
	publicKey []byte
	address   string
}

func newKeyPair(privKey *btcec.PrivateKey) *KeyPair {
	pubKey := privKey.PubKey()
	return &KeyPair{
		privKey:   privKey,
		publicKey: pubKey.SerializeCompressed(),
		address:   secp256k1.AddressFromPublicKey(pubKey),
	}
}

// PublicKey returns the compressed 33-byte public key.
func (k *KeyPair) PublicKey() []byte {
	return bytes.Clone(k.publicKey)
}

// PrivateKey returns a copy of the 32-byte private scalar. Callers should
// wipe it with secp256k1.SecureZero when done.
func (k *KeyPair) PrivateKey() []byte {
	return k.privKey.Serialize()
}

// Address returns the EIP-55 Ethereum address of the derived key. This is
// not the wallet address that produced the seed.
func (k *KeyPair) Address() string {
	return k.address
}

// EncryptionPublicKey returns the X25519 public key for the same scalar, the
// value MetaMask reports from eth_getEncryptionPublicKey.
func (k *KeyPair) EncryptionPublicKey() []byte {
	scalar := k.privKey.Serialize()
	defer secp256k1.SecureZero(scalar)

	pub, err := curve25519.X25519(scalar, curve25519.Basepoint)
	if err != nil {
		// Only a low-order output fails, which the basepoint cannot produce.
		panic(fmt.Sprintf("keyderive: x25519 base multiplication failed: %v", err))
	}
	return pub
}

// Equal reports whether both keypairs hold the same public key.
func (k *KeyPair) Equal(other *KeyPair) bool {
	if k == nil || other == nil {
		return k == other
	}
	return bytes.Equal(k.publicKey, other.publicKey)
}

// Zero wipes the private scalar. The keypair is unusable afterwards.
func (k *KeyPair) Zero() {
	if k.privKey != nil {
		k.privKey.Zero()
	}
}

// String implements fmt.Stringer without exposing the private scalar.
func (k *KeyPair) String() string {
	return fmt.Sprintf("KeyPair{public_key: %s}", hexenc.Encode(k.publicKey))
}

// GoString keeps %#v from reaching the private scalar.
func (k *KeyPair) GoString() string {
	return k.String()
}

// LogValue implements slog.LogValuer without exposing the private scalar.
func (k *KeyPair) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("public_key", hexenc.Encode(k.publicKey)),
		slog.String("address", k.address),
	)
}
