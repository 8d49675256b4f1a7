// Package authgate binds decryption keys to wallet identities. A recipient
// proves control of an address by signing a fixed challenge that embeds that
// address; the signature is then the seed of the decryption key.
package authgate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ChallengePrefix precedes the canonical address in every challenge.
const ChallengePrefix = "Confirm your identity to access MessageCrypto.\nAddress: "

// Sentinel errors
var (
	ErrUnauthorizedIdentity = errors.New("authgate: unauthorized identity")
	ErrInvalidIdentity      = fmt.Errorf("%w: invalid address", ErrUnauthorizedIdentity)
)

// CanonicalIdentity validates a 0x-prefixed 20-byte hex address, in any
// letter case, and returns its EIP-55 checksummed form.
func CanonicalIdentity(identity string) (string, error) {
	s := strings.TrimSpace(identity)
	if len(s) != 2+2*common.AddressLength || (!strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X")) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}
	if !common.IsHexAddress(s[2:]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}
	return common.HexToAddress(s[2:]).Hex(), nil
}

// Challenge returns the message identity must sign. It is deterministic so
// that the same wallet can re-derive the same key later, and it embeds the
// identity so a signature for one address never authorizes another.
func Challenge(identity string) ([]byte, error) {
	canonical, err := CanonicalIdentity(identity)
	if err != nil {
		return nil, err
	}
	return []byte(ChallengePrefix + canonical), nil
}
