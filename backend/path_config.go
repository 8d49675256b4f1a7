package backend

import (
	"context"

	"github.com/openbao/openbao/sdk/v2/framework"
	"github.com/openbao/openbao/sdk/v2/logical"

	"github.com/Cainuriel/message-crypto/ecies"
)

// pathConfig returns the path definitions for engine configuration.
func pathConfig(b *backend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: configPath,
			Fields: map[string]*framework.FieldSchema{
				"default_version": {
					Type:        framework.TypeString,
					Description: "Envelope suite used when encrypt does not name one",
				},
				"max_message_size": {
					Type:        framework.TypeInt,
					Description: "Maximum plaintext size in bytes",
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.ReadOperation: &framework.PathOperation{
					Callback: b.pathConfigRead,
					Summary:  "Read the engine configuration",
				},
				logical.UpdateOperation: &framework.PathOperation{
					Callback: b.pathConfigWrite,
					Summary:  "Update the engine configuration",
				},
			},
			HelpSynopsis:    pathConfigHelpSyn,
			HelpDescription: pathConfigHelpDesc,
		},
	}
}

func defaultConfig() *configEntry {
	return &configEntry{
		DefaultVersion: ecies.VersionSecp256k1,
		MaxMessageSize: MaxMessageSize,
	}
}

// getConfig returns the stored configuration, or the defaults.
func (b *backend) getConfig(ctx context.Context, storage logical.Storage) (*configEntry, error) {
	raw, err := storage.Get(ctx, configPath)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return defaultConfig(), nil
	}

	cfg := defaultConfig()
	if err := raw.DecodeJSON(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (b *backend) pathConfigRead(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	cfg, err := b.getConfig(ctx, req.Storage)
	if err != nil {
		return nil, err
	}
	cipher, err := b.cipher(cfg.DefaultVersion)
	if err != nil {
		return nil, err
	}

	return &logical.Response{
		Data: map[string]interface{}{
			"default_version":    cfg.DefaultVersion,
			"max_message_size":   cfg.MaxMessageSize,
			"supported_versions": cipher.Versions(),
		},
	}, nil
}

func (b *backend) pathConfigWrite(ctx context.Context, req *logical.Request, data *framework.FieldData) (*logical.Response, error) {
	cfg, err := b.getConfig(ctx, req.Storage)
	if err != nil {
		return nil, err
	}

	if raw, ok := data.GetOk("default_version"); ok {
		version := raw.(string)
		if _, err := b.cipher(version); err != nil {
			return logical.ErrorResponse("unsupported version: %s", version), nil
		}
		cfg.DefaultVersion = version
	}

	if raw, ok := data.GetOk("max_message_size"); ok {
		size := raw.(int)
		if size <= 0 {
			return logical.ErrorResponse("max_message_size must be positive"), nil
		}
		cfg.MaxMessageSize = size
	}

	entry, err := logical.StorageEntryJSON(configPath, cfg)
	if err != nil {
		return nil, err
	}
	if err := req.Storage.Put(ctx, entry); err != nil {
		return nil, err
	}

	return b.pathConfigRead(ctx, req, data)
}

const pathConfigHelpSyn = `Configure the message-crypto engine`

const pathConfigHelpDesc = `
Reads or updates engine-wide settings.

Parameters:
  default_version  - Suite used by encrypt when no version is given
                     (default: secp256k1-hkdf-sha256-xchacha20-sha256)
  max_message_size - Maximum plaintext size in bytes (default: 10000)

Reads also return supported_versions, the suites encrypt and decrypt accept.

Examples:
  $ bao write msgcrypt/config default_version=x25519-xsalsa20-poly1305
  $ bao read msgcrypt/config
`
