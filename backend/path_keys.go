package backend

import (
	"context"
	"errors"
	"time"

	"github.com/openbao/openbao/sdk/v2/framework"
	"github.com/openbao/openbao/sdk/v2/logical"

	"github.com/Cainuriel/message-crypto/authgate"
	"github.com/Cainuriel/message-crypto/internal/hexenc"
	"github.com/Cainuriel/message-crypto/internal/metrics"
	"github.com/Cainuriel/message-crypto/keyderive"
)

// pathKeys returns the path definitions for key registration.
func pathKeys(b *backend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: "keys/?$",
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.ListOperation: &framework.PathOperation{
					Callback: b.pathKeysList,
					Summary:  "List registered addresses",
				},
			},
			HelpSynopsis:    pathKeysListHelpSyn,
			HelpDescription: pathKeysListHelpDesc,
		},
		{
			Pattern: "keys/" + framework.GenericNameRegex("address"),
			Fields: map[string]*framework.FieldSchema{
				"address": {
					Type:        framework.TypeString,
					Description: "0x-prefixed Ethereum address",
					Required:    true,
				},
				"signature": {
					Type:        framework.TypeString,
					Description: "Hex-encoded 65-byte personal_sign signature over the address's challenge",
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.UpdateOperation: &framework.PathOperation{
					Callback:    b.pathKeysWrite,
					Summary:     "Register the key derived from a signed challenge",
					Description: "Only the derived public key is stored.",
				},
				logical.ReadOperation: &framework.PathOperation{
					Callback: b.pathKeysRead,
					Summary:  "Read a registered public key",
				},
				logical.DeleteOperation: &framework.PathOperation{
					Callback: b.pathKeysDelete,
					Summary:  "Remove a registration",
				},
			},
			HelpSynopsis:    pathKeysHelpSyn,
			HelpDescription: pathKeysHelpDesc,
		},
	}
}

func (b *backend) pathKeysList(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	keys, err := req.Storage.List(ctx, keysPrefix)
	if err != nil {
		return nil, err
	}
	return logical.ListResponse(keys), nil
}

func (b *backend) pathKeysWrite(ctx context.Context, req *logical.Request, data *framework.FieldData) (resp *logical.Response, retErr error) {
	start := time.Now()
	defer func() { b.observe(metrics.OpRegister, start, resp, retErr) }()

	address, err := authgate.CanonicalIdentity(data.Get("address").(string))
	if err != nil {
		return logical.ErrorResponse("invalid address"), nil
	}

	sigHex := data.Get("signature").(string)
	if sigHex == "" {
		return logical.ErrorResponse("missing signature"), nil
	}
	signature, err := hexenc.Decode(sigHex)
	if err != nil {
		return logical.ErrorResponse("invalid signature: not valid hex"), nil
	}

	kp, err := b.gate.Authorize(address, signature)
	if err != nil {
		b.recordError(err)
		if errors.Is(err, authgate.ErrUnauthorizedIdentity) {
			b.Logger().Debug("registration rejected", "address", address, "error", err)
			return logical.ErrorResponse("signature does not prove control of %s", address), logical.ErrPermissionDenied
		}
		return nil, err
	}
	defer kp.Zero()

	entry := newKeyEntry(address, kp)
	storageEntry, err := logical.StorageEntryJSON(keysPrefix+address, entry)
	if err != nil {
		return nil, err
	}
	if err := req.Storage.Put(ctx, storageEntry); err != nil {
		return nil, err
	}
	b.setKeyInCache(address, entry)
	b.metrics.KeyRegistered()

	b.Logger().Info("key registered", "address", address, "public_key", hexenc.Encode(entry.PublicKey))

	return &logical.Response{Data: entry.responseData()}, nil
}

func (b *backend) pathKeysRead(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	address, err := authgate.CanonicalIdentity(data.Get("address").(string))
	if err != nil {
		return logical.ErrorResponse("invalid address"), nil
	}

	entry, err := b.getKey(ctx, req.Storage, address)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	return &logical.Response{Data: entry.responseData()}, nil
}

func (b *backend) pathKeysDelete(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	address, err := authgate.CanonicalIdentity(data.Get("address").(string))
	if err != nil {
		return logical.ErrorResponse("invalid address"), nil
	}

	if err := req.Storage.Delete(ctx, keysPrefix+address); err != nil {
		return nil, err
	}
	b.deleteKeyFromCache(address)
	return nil, nil
}

func newKeyEntry(address string, kp *keyderive.KeyPair) *keyEntry {
	return &keyEntry{
		Address:             address,
		PublicKey:           kp.PublicKey(),
		EncryptionPublicKey: kp.EncryptionPublicKey(),
		DerivedAddress:      kp.Address(),
		CreatedAt:           time.Now().UTC(),
	}
}

func (e *keyEntry) responseData() map[string]interface{} {
	return map[string]interface{}{
		"address":               e.Address,
		"public_key":            hexenc.Encode(e.PublicKey),
		"encryption_public_key": hexenc.Encode(e.EncryptionPublicKey),
		"derived_address":       e.DerivedAddress,
		"created_at":            e.CreatedAt.Format(time.RFC3339),
	}
}

const pathKeysListHelpSyn = `List registered addresses`

const pathKeysListHelpDesc = `
Lists every address with a registered public key.

Example:
  $ bao list msgcrypt/keys
`

const pathKeysHelpSyn = `Register, read, or delete an address's public key`

const pathKeysHelpDesc = `
Registering derives a keypair from a signature over the address's challenge
(see challenge/:address) and stores only the public half. Registering again
with a signature over the same challenge yields the same key.

Parameters:
  signature - Hex-encoded 65-byte personal_sign signature (write only)

Examples:
  $ bao write msgcrypt/keys/0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 signature=<hex>
  $ bao read msgcrypt/keys/0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
  $ bao delete msgcrypt/keys/0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266

Response:
  address               - EIP-55 checksummed wallet address
  public_key            - Hex compressed secp256k1 public key for encryption
  encryption_public_key - Hex X25519 public key for EIP-1024 envelopes
  derived_address       - Ethereum address of public_key
  created_at            - Registration time (RFC 3339)
`
