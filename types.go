// Package messagecrypto is a client for the message-crypto OpenBao secrets
// engine: wallet-authorized key registration and ECIES envelope
// encryption for Ethereum addresses.
package messagecrypto

import (
	"crypto/tls"
	"time"

	"github.com/Cainuriel/message-crypto/ecies"
)

// Defaults
const (
	DefaultMountPath   = "msgcrypt"
	DefaultHTTPTimeout = 30 * time.Second
	MaxMessageSize     = 10000
)

// Config holds configuration for a Client.
type Config struct {
	BaoAddr       string        // OpenBao server address
	BaoToken      string        // OpenBao authentication token
	BaoNamespace  string        // Optional: OpenBao namespace
	MountPath     string        // Engine mount path (default: "msgcrypt")
	HTTPTimeout   time.Duration // HTTP request timeout
	TLSConfig     *tls.Config   // Optional: custom TLS config
	SkipTLSVerify bool          // INSECURE: skip TLS verification
}

// WithDefaults returns Config with default values applied.
func (c Config) WithDefaults() Config {
	if c.MountPath == "" {
		c.MountPath = DefaultMountPath
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	return c
}

// Validate checks required configuration fields.
func (c *Config) Validate() error {
	if c.BaoAddr == "" {
		return ErrMissingBaoAddr
	}
	if c.BaoToken == "" {
		return ErrMissingBaoToken
	}
	if c.HTTPTimeout < 0 {
		return NewValidationError("HTTPTimeout", "must not be negative")
	}
	return nil
}

// ChallengeInfo is the message a wallet signs to prove control of Address.
type ChallengeInfo struct {
	Address   string `json:"address"`
	Challenge string `json:"challenge"`
}

// KeyInfo is the public record the engine keeps for a registered address.
// Hex fields carry no 0x prefix.
type KeyInfo struct {
	Address             string    `json:"address"`
	PublicKey           string    `json:"public_key"`
	EncryptionPublicKey string    `json:"encryption_public_key"`
	DerivedAddress      string    `json:"derived_address"`
	CreatedAt           time.Time `json:"created_at"`
}

// EncryptOptions configures an Encrypt call.
type EncryptOptions struct {
	// Version selects the envelope suite. Empty uses the engine default.
	Version string
}

// EncryptRequest is the body of an encrypt call.
type EncryptRequest struct {
	Plaintext string `json:"plaintext"`
	Version   string `json:"version,omitempty"`
}

// EncryptResponse is the data returned by an encrypt call.
type EncryptResponse struct {
	Address  string          `json:"address"`
	Envelope *ecies.Envelope `json:"envelope"`
}

// DecryptRequest is the body of a decrypt call. Signature is the hex
// encoded wallet signature over the address challenge.
type DecryptRequest struct {
	Envelope  *ecies.Envelope `json:"envelope"`
	Signature string          `json:"signature"`
}

// DecryptResponse is the data returned by a decrypt call.
type DecryptResponse struct {
	Address   string `json:"address"`
	Plaintext string `json:"plaintext"`
}
