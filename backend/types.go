package backend

import "time"

const (
	keysPrefix = "keys/"
	configPath = "config"
)

// MaxMessageSize is the default cap on plaintext bytes per request.
const MaxMessageSize = 10000

// keyEntry is a registered recipient. It holds public material only.
type keyEntry struct {
	// Address is the EIP-55 wallet address that signed the challenge.
	Address string `json:"address"`

	// PublicKey is the compressed 33-byte derived secp256k1 public key.
	PublicKey []byte `json:"public_key"`

	// EncryptionPublicKey is the X25519 key for EIP-1024 envelopes.
	EncryptionPublicKey []byte `json:"encryption_public_key"`

	// DerivedAddress is the Ethereum address of PublicKey.
	DerivedAddress string `json:"derived_address"`

	CreatedAt time.Time `json:"created_at"`
}

// configEntry is the engine configuration stored at "config".
type configEntry struct {
	DefaultVersion string `json:"default_version"`
	MaxMessageSize int    `json:"max_message_size"`
}
