package backend

import (
	"context"
	"time"

	"github.com/openbao/openbao/sdk/v2/framework"
	"github.com/openbao/openbao/sdk/v2/logical"

	"github.com/Cainuriel/message-crypto/authgate"
	"github.com/Cainuriel/message-crypto/internal/metrics"
)

// pathChallenge returns the path definitions for challenge lookup.
func pathChallenge(b *backend) []*framework.Path {
	return []*framework.Path{
		{
			Pattern: "challenge/" + framework.GenericNameRegex("address"),
			Fields: map[string]*framework.FieldSchema{
				"address": {
					Type:        framework.TypeString,
					Description: "0x-prefixed Ethereum address",
					Required:    true,
				},
			},
			Operations: map[logical.Operation]framework.OperationHandler{
				logical.ReadOperation: &framework.PathOperation{
					Callback:    b.pathChallengeRead,
					Summary:     "Return the message an address must sign",
					Description: "The challenge is deterministic, so the same signature always unlocks the same key.",
				},
			},
			HelpSynopsis:    pathChallengeHelpSyn,
			HelpDescription: pathChallengeHelpDesc,
		},
	}
}

func (b *backend) pathChallengeRead(ctx context.Context, req *logical.Request, data *framework.FieldData) (resp *logical.Response, retErr error) {
	start := time.Now()
	defer func() { b.observe(metrics.OpChallenge, start, resp, retErr) }()

	address, err := authgate.CanonicalIdentity(data.Get("address").(string))
	if err != nil {
		return logical.ErrorResponse("invalid address"), nil
	}

	challenge, err := authgate.Challenge(address)
	if err != nil {
		return nil, err
	}

	return &logical.Response{
		Data: map[string]interface{}{
			"address":   address,
			"challenge": string(challenge),
		},
	}, nil
}

const pathChallengeHelpSyn = `Return the challenge an address must sign`

const pathChallengeHelpDesc = `
Returns the exact message the wallet controlling an address must sign with
personal_sign to register or decrypt. The message embeds the checksummed
address, so a signature for one address cannot be used for another.

This path does not require a token.

Example:
  $ bao read msgcrypt/challenge/0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266

Response:
  address   - EIP-55 checksummed address
  challenge - Message to sign
`
