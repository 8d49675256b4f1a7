package authgate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignChallenge signs Challenge(identity) with walletKey the way
// personal_sign does, returning a 65-byte signature with V in {27, 28}.
// walletKey must control identity for the signature to authorize.
func SignChallenge(walletKey []byte, identity string) ([]byte, error) {
	challenge, err := Challenge(identity)
	if err != nil {
		return nil, err
	}
	return SignMessage(walletKey, challenge)
}

// SignMessage produces an EIP-191 personal_sign signature over message.
func SignMessage(walletKey, message []byte) ([]byte, error) {
	privKey, err := crypto.ToECDSA(walletKey)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet key: %w", err)
	}

	sig, err := crypto.Sign(accounts.TextHash(message), privKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// WalletAddress returns the EIP-55 address controlled by walletKey.
func WalletAddress(walletKey []byte) (string, error) {
	privKey, err := crypto.ToECDSA(walletKey)
	if err != nil {
		return "", fmt.Errorf("invalid wallet key: %w", err)
	}
	return crypto.PubkeyToAddress(privKey.PublicKey).Hex(), nil
}
