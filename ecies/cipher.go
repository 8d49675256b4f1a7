package ecies

import (
	"crypto/rand"
	"fmt"
	"io"
	"slices"
	"unicode/utf8"
)

// VersionLegacyXOR tags envelopes from an earlier scheme that derived a
// reusable XOR key from the recipient's public key alone. It is recognised
// only to be refused.
const VersionLegacyXOR = "ethers-simple-xor"

// Suite is one encryption scheme, identified by the version tag it writes
// into every envelope it seals.
type Suite interface {
	Version() string
	Seal(rand io.Reader, plaintext, recipientPublicKey []byte) (*Envelope, error)
	Open(env *Envelope, recipientPrivateKey []byte) ([]byte, error)
}

// Cipher seals with its default suite and opens any registered suite.
// A Cipher is immutable after New and safe for concurrent use.
type Cipher struct {
	rand           io.Reader
	suites         map[string]Suite
	defaultVersion string
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithRandom replaces crypto/rand as the source for ephemeral keys, salts
// and nonces. It exists for tests; r must be cryptographically secure in
// production.
func WithRandom(r io.Reader) Option {
	return func(c *Cipher) {
		if r != nil {
			c.rand = r
		}
	}
}

// WithDefaultSuite selects the suite Encrypt uses.
func WithDefaultSuite(version string) Option {
	return func(c *Cipher) {
		c.defaultVersion = version
	}
}

// New creates a Cipher with both built-in suites registered.
func New(opts ...Option) (*Cipher, error) {
	c := &Cipher{
		rand:           rand.Reader,
		defaultVersion: VersionSecp256k1,
		suites: map[string]Suite{
			VersionSecp256k1: secp256k1Suite{},
			VersionX25519:    x25519Suite{},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, ok := c.suites[c.defaultVersion]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, c.defaultVersion)
	}
	return c, nil
}

// DefaultVersion returns the version tag Encrypt writes.
func (c *Cipher) DefaultVersion() string {
	return c.defaultVersion
}

// Versions lists the registered suite versions in sorted order.
func (c *Cipher) Versions() []string {
	versions := make([]string, 0, len(c.suites))
	for v := range c.suites {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions
}

// Encrypt seals plaintext for recipientPublicKey with the default suite.
func (c *Cipher) Encrypt(plaintext, recipientPublicKey []byte) (*Envelope, error) {
	return c.EncryptWith(c.defaultVersion, plaintext, recipientPublicKey)
}

// EncryptWith seals plaintext with the suite registered under version.
func (c *Cipher) EncryptWith(version string, plaintext, recipientPublicKey []byte) (*Envelope, error) {
	suite, err := c.suite(version)
	if err != nil {
		return nil, err
	}
	return suite.Seal(c.rand, plaintext, recipientPublicKey)
}

// Decrypt opens env with the suite named by env.Version. The returned error
// distinguishes the failure cause; pass it through Redact before showing it
// to anyone other than the operator.
func (c *Cipher) Decrypt(env *Envelope, recipientPrivateKey []byte) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", ErrMalformedCiphertext)
	}

	suite, err := c.suite(env.Version)
	if err != nil {
		return nil, err
	}
	return suite.Open(env, recipientPrivateKey)
}

// EncryptString seals a UTF-8 message.
func (c *Cipher) EncryptString(message string, recipientPublicKey []byte) (*Envelope, error) {
	if !utf8.ValidString(message) {
		return nil, ErrInvalidPlaintext
	}
	return c.Encrypt([]byte(message), recipientPublicKey)
}

// DecryptString opens env and returns the message as text.
func (c *Cipher) DecryptString(env *Envelope, recipientPrivateKey []byte) (string, error) {
	plaintext, err := c.Decrypt(env, recipientPrivateKey)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrMalformedCiphertext)
	}
	return string(plaintext), nil
}

func (c *Cipher) suite(version string) (Suite, error) {
	if version == VersionLegacyXOR {
		return nil, fmt.Errorf("%w: %q is a legacy scheme without per-message keys", ErrUnsupportedVersion, version)
	}
	suite, ok := c.suites[version]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	return suite, nil
}

var defaultCipher = mustNew()

// mustNew builds the package-level Cipher. New only fails on a bad option,
// so an error here is a broken build.
func mustNew(opts ...Option) *Cipher {
	c, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Encrypt seals plaintext for recipientPublicKey with the default suite and
// crypto/rand.
func Encrypt(plaintext, recipientPublicKey []byte) (*Envelope, error) {
	return defaultCipher.Encrypt(plaintext, recipientPublicKey)
}

// Decrypt opens env with the suite named by its version.
func Decrypt(env *Envelope, recipientPrivateKey []byte) ([]byte, error) {
	return defaultCipher.Decrypt(env, recipientPrivateKey)
}
