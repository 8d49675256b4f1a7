package backend

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/openbao/openbao/sdk/v2/framework"
	"github.com/openbao/openbao/sdk/v2/logical"

	"github.com/Cainuriel/message-crypto/authgate"
	"github.com/Cainuriel/message-crypto/ecies"
	"github.com/Cainuriel/message-crypto/internal/hexenc"
	"github.com/Cainuriel/message-crypto/internal/metrics"
	"github.com/Cainuriel/message-crypto/secp256k1"
)

// pathDecrypt returns the path definitions for decryption.
func pathDecrypt(b *backend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: "decrypt/" + framework.GenericNameRegex("address"),
			Fields: map[string]*framework.FieldSchema{
				"address": {
					Type:        framework.TypeString,
					Description: "Recipient address",
					Required:    true,
				},
				"envelope": {
					Type:        framework.TypeMap,
					Description: "Envelope as returned by encrypt, or an EIP-1024 encrypted-data object",
				},
				"signature": {
					Type:        framework.TypeString,
					Description: "Hex-encoded 65-byte personal_sign signature over the address's challenge",
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.UpdateOperation: &framework.PathOperation{
					Callback: b.pathDecryptWrite,
					Summary:  "Decrypt an envelope with a fresh signature",
				},
			},
			HelpSynopsis:    pathDecryptHelpSyn,
			HelpDescription: pathDecryptHelpDesc,
		},
	}
}

func (b *backend) pathDecryptWrite(ctx context.Context, req *logical.Request, data *framework.FieldData) (resp *logical.Response, retErr error) {
	start := time.Now()
	defer func() { b.observe(metrics.OpDecrypt, start, resp, retErr) }()

	address, err := authgate.CanonicalIdentity(data.Get("address").(string))
	if err != nil {
		return logical.ErrorResponse("invalid address"), nil
	}

	rawEnvelope, ok := data.GetOk("envelope")
	if !ok {
		return logical.ErrorResponse("missing envelope"), nil
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
			b.Logger().Debug("decryption rejected", "address", address, "error", err)
			return logical.ErrorResponse("signature does not prove control of %s", address), logical.ErrPermissionDenied
		}
		return nil, err
	}
	defer kp.Zero()

	privKey := kp.PrivateKey()
	defer secp256k1.SecureZero(privKey)

	plaintext, err := b.decrypt(rawEnvelope.(map[string]interface{}), privKey)
	if err != nil {
		return b.decryptFailure(address, err)
	}
	b.metrics.ObserveMessage(metrics.OpDecrypt, len(plaintext))

	return &logical.Response{
		Data: map[string]interface{}{
			"address":   address,
			"plaintext": plaintext,
		},
	}, nil
}

// decryptFailure redacts failures caused by the envelope or key. Anything
// else is an engine fault and is returned as an internal error.
func (b *backend) decryptFailure(address string, err error) (*logical.Response, error) {
	b.recordError(err)
	if !ecies.IsDecryptionFailure(err) {
		b.Logger().Error("decryption error", "address", address, "error", err)
		return nil, err
	}
	b.Logger().Warn("decryption failed", "address", address, "error", err)
	return logical.ErrorResponse(ecies.Redact(err).Error()), nil
}

// decrypt accepts both the hex envelope and the EIP-1024 object, which is
// recognised by its ephemPublicKey field.
func (b *backend) decrypt(raw map[string]interface{}, privKey []byte) (string, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}

	var env *ecies.Envelope
	if _, isEIP1024 := raw["ephemPublicKey"]; isEIP1024 {
		env, err = ecies.ParseEIP1024(encoded)
	} else {
		env, err = ecies.ParseEnvelope(encoded)
	}
	if err != nil {
		return "", err
	}

	cipher, err := b.cipher(ecies.VersionSecp256k1)
	if err != nil {
		return "", err
	}
	return cipher.DecryptString(env, privKey)
}

const pathDecryptHelpSyn = `Decrypt an envelope with a fresh signature`

const pathDecryptHelpDesc = `
Re-derives the recipient's private key from a signature over the address's
challenge, decrypts the envelope, and discards the key. The private key is
never stored.

Every failure caused by the envelope is reported as "decryption failed"
regardless of cause; the cause is written to the server log.

Parameters:
  envelope  - Envelope object from encrypt (or an EIP-1024 encrypted-data object)
  signature - Hex-encoded 65-byte personal_sign signature

Example:
  $ bao write msgcrypt/decrypt/0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 @request.json

Response:
  address   - Recipient address
  plaintext - Decrypted UTF-8 message
`
