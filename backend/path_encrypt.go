package backend

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/openbao/openbao/sdk/v2/framework"
	"github.com/openbao/openbao/sdk/v2/logical"

	"github.com/Cainuriel/message-crypto/authgate"
	"github.com/Cainuriel/message-crypto/ecies"
	"github.com/Cainuriel/message-crypto/internal/metrics"
)

// pathEncrypt returns the path definitions for encryption.
func pathEncrypt(b *backend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: "encrypt/" + framework.GenericNameRegex("address"),
			Fields: map[string]*framework.FieldSchema{
				"address": {
					Type:        framework.TypeString,
					Description: "Recipient address; must be registered",
					Required:    true,
				},
				"plaintext": {
					Type:        framework.TypeString,
					Description: "UTF-8 message to encrypt",
				},
				"version": {
					Type:        framework.TypeString,
					Description: "Envelope suite; defaults to the configured default_version",
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.UpdateOperation: &framework.PathOperation{
					Callback: b.pathEncryptWrite,
					Summary:  "Encrypt a message to a registered address",
				},
			},
			HelpSynopsis:    pathEncryptHelpSyn,
			HelpDescription: pathEncryptHelpDesc,
		},
	}
}

func (b *backend) pathEncryptWrite(ctx context.Context, req *logical.Request, data *framework.FieldData) (resp *logical.Response, retErr error) {
	start := time.Now()
	defer func() { b.observe(metrics.OpEncrypt, start, resp, retErr) }()

	address, err := authgate.CanonicalIdentity(data.Get("address").(string))
	if err != nil {
		return logical.ErrorResponse("invalid address"), nil
	}

	cfg, err := b.getConfig(ctx, req.Storage)
	if err != nil {
		return nil, err
	}

	plaintext := data.Get("plaintext").(string)
	if len(plaintext) > cfg.MaxMessageSize {
		return logical.ErrorResponse("plaintext exceeds %d bytes", cfg.MaxMessageSize), nil
	}
	if !utf8.ValidString(plaintext) {
		return logical.ErrorResponse("plaintext must be valid UTF-8"), nil
	}

	version := data.Get("version").(string)
	if version == "" {
		version = cfg.DefaultVersion
	}
	cipher, err := b.cipher(version)
	if err != nil {
		return logical.ErrorResponse("unsupported version: %s", version), nil
	}

	entry, err := b.getKey(ctx, req.Storage, address)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return logical.ErrorResponse("no key registered for %s", address), nil
	}

	recipient := entry.PublicKey
	if version == ecies.VersionX25519 {
		recipient = entry.EncryptionPublicKey
	}

	env, err := cipher.EncryptString(plaintext, recipient)
	if err != nil {
		b.recordError(err)
		return nil, err
	}
	b.metrics.ObserveMessage(metrics.OpEncrypt, len(plaintext))

	envelope, err := envelopeData(env)
	if err != nil {
		return nil, err
	}

	return &logical.Response{
		Data: map[string]interface{}{
			"address":  address,
			"envelope": envelope,
		},
	}, nil
}

// envelopeData renders env in its JSON wire form as a response map.
func envelopeData(env *ecies.Envelope) (map[string]interface{}, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

const pathEncryptHelpSyn = `Encrypt a message to a registered address`

const pathEncryptHelpDesc = `
Encrypts a UTF-8 message to the public key registered for an address. Each
call uses a fresh ephemeral key, salt, and nonce.

Parameters:
  plaintext - Message to encrypt (at most max_message_size bytes)
  version   - Envelope suite (default: the configured default_version)

Example:
  $ bao write msgcrypt/encrypt/0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 plaintext="hello"

Response:
  address  - Recipient address
  envelope - version, ephemeralPublicKey, salt, nonce, ciphertext, mac
             (hex, lowercase, no 0x prefix)
`
