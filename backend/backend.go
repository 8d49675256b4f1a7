// Package backend is an OpenBao secrets engine for signature-derived message
// encryption. It stores only public keys: a recipient registers by proving
// control of an address, senders encrypt to the registered key, and the
// recipient decrypts by presenting a fresh signature from which the private
// key is re-derived for the duration of the request.
package backend

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/openbao/openbao/sdk/v2/framework"
	"github.com/openbao/openbao/sdk/v2/logical"

	"github.com/Cainuriel/message-crypto/authgate"
	"github.com/Cainuriel/message-crypto/ecies"
	"github.com/Cainuriel/message-crypto/internal/metrics"
)

// Factory creates a new message-crypto secrets engine backend.
// This is the entry point called by OpenBao when the plugin is loaded.
func Factory(ctx context.Context, conf *logical.BackendConfig) (logical.Backend, error) {
	return newBackend(ctx, conf, metrics.Default())
}

func newBackend(ctx context.Context, conf *logical.BackendConfig, m *metrics.Metrics) (*backend, error) {
	cipher, err := ecies.New()
	if err != nil {
		return nil, err
	}

	b := &backend{
		keyCache: make(map[string]*keyEntry),
		gate:     authgate.NewGate(),
		ciphers:  map[string]*ecies.Cipher{cipher.DefaultVersion(): cipher},
		metrics:  m,
	}

	b.Backend = &framework.Backend{
		Help:        strings.TrimSpace(backendHelp),
		BackendType: logical.TypeLogical,
		Paths: framework.PathAppend(
			pathConfig(b),
			pathChallenge(b),
			pathKeys(b),
			pathEncrypt(b),
			pathDecrypt(b),
		),
		PathsSpecial: &logical.Paths{
			Unauthenticated: []string{"challenge/*"},
		},
		Invalidate: b.invalidate,
		Clean:      b.cleanup,
	}

	if err := b.Setup(ctx, conf); err != nil {
		return nil, err
	}

	return b, nil
}

// backend is the message-crypto secrets engine backend.
type backend struct {
	*framework.Backend
	cacheMu  sync.RWMutex
	keyCache map[string]*keyEntry

	gate    *authgate.Gate
	metrics *metrics.Metrics

	cipherMu sync.Mutex
	ciphers  map[string]*ecies.Cipher
}

// invalidate is called when a watched key is modified.
func (b *backend) invalidate(ctx context.Context, key string) {
	if strings.HasPrefix(key, keysPrefix) {
		if key == keysPrefix {
			b.clearCache()
			return
		}
		b.deleteKeyFromCache(strings.TrimPrefix(key, keysPrefix))
	}
}

// cleanup is called when the backend is being shut down.
func (b *backend) cleanup(ctx context.Context) {
	b.clearCache()
}

func (b *backend) getKeyFromCache(address string) *keyEntry {
	b.cacheMu.RLock()
	defer b.cacheMu.RUnlock()
	return b.keyCache[address]
}

func (b *backend) setKeyInCache(address string, entry *keyEntry) {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	b.keyCache[address] = entry
}

func (b *backend) deleteKeyFromCache(address string) {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	delete(b.keyCache, address)
}

func (b *backend) clearCache() {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	b.keyCache = make(map[string]*keyEntry)
}

// getKey retrieves a registered key from cache or storage. It returns nil
// when address has no registration.
func (b *backend) getKey(ctx context.Context, storage logical.Storage, address string) (*keyEntry, error) {
	if entry := b.getKeyFromCache(address); entry != nil {
		return entry, nil
	}

	raw, err := storage.Get(ctx, keysPrefix+address)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var entry keyEntry
	if err := raw.DecodeJSON(&entry); err != nil {
		return nil, err
	}

	b.setKeyInCache(address, &entry)
	return &entry, nil
}

// cipher returns a Cipher whose default suite is version.
func (b *backend) cipher(version string) (*ecies.Cipher, error) {
	b.cipherMu.Lock()
	defer b.cipherMu.Unlock()

	if c, ok := b.ciphers[version]; ok {
		return c, nil
	}
	c, err := ecies.New(ecies.WithDefaultSuite(version))
	if err != nil {
		return nil, err
	}
	b.ciphers[version] = c
	return c, nil
}

// errorKinds labels the errors_total metric.
var errorKinds = []metrics.ErrorKind{
	{Name: "unauthorized", Err: authgate.ErrUnauthorizedIdentity},
	{Name: "authentication", Err: ecies.ErrAuthenticationFailed},
	{Name: "malformed", Err: ecies.ErrMalformedCiphertext},
	{Name: "unsupported_version", Err: ecies.ErrUnsupportedVersion},
	{Name: "invalid_public_key", Err: ecies.ErrInvalidPublicKey},
	{Name: "invalid_private_key", Err: ecies.ErrInvalidPrivateKey},
	{Name: "randomness", Err: ecies.ErrRandomness},
}

// observe records an operation; an error response counts as a failure.
func (b *backend) observe(op string, start time.Time, resp *logical.Response, err error) {
	if err == nil && resp != nil && resp.IsError() {
		err = resp.Error()
	}
	b.metrics.Observe(op, start, err)
}

func (b *backend) recordError(err error) {
	b.metrics.Error(metrics.ErrorType(err, errorKinds...))
}

const backendHelp = `
The message-crypto secrets engine encrypts short messages to blockchain
addresses without storing any private key.

A recipient registers by signing a fixed challenge that embeds their
address. The engine derives a secp256k1 keypair from that signature, keeps
the public half, and discards the private half. Senders encrypt to the
registered public key. To decrypt, the recipient signs the same challenge
again; the engine re-derives the private key, decrypts, and forgets it.

Paths:
  config              - Default suite and message size limit
  challenge/:address  - The message an address must sign
  keys/               - List registered addresses
  keys/:address       - Register, read, or delete an address's public key
  encrypt/:address    - Encrypt a message to a registered address
  decrypt/:address    - Decrypt an envelope with a fresh signature
`
