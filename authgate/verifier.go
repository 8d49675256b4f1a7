package authgate

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureSize is the length of an [R || S || V] wallet signature.
const SignatureSize = crypto.SignatureLength

// Verifier confirms that signature over challenge was produced by the key
// controlling identity.
type Verifier interface {
	Verify(identity string, challenge, signature []byte) error
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(identity string, challenge, signature []byte) error

// Verify implements Verifier.
func (f VerifierFunc) Verify(identity string, challenge, signature []byte) error {
	return f(identity, challenge, signature)
}

// EthereumVerifier checks personal_sign (EIP-191) signatures as produced by
// MetaMask and ethers.js signMessage. V may be 0/1 or 27/28; high-S
// signatures are rejected.
type EthereumVerifier struct{}

// Verify implements Verifier.
func (EthereumVerifier) Verify(identity string, challenge, signature []byte) error {
	expected, err := CanonicalIdentity(identity)
	if err != nil {
		return err
	}

	pubKey, err := RecoverSigner(challenge, signature)
	if err != nil {
		return err
	}

	recovered := crypto.PubkeyToAddress(*pubKey).Hex()
	if recovered != expected {
		return fmt.Errorf("signature was produced by %s, not %s", recovered, expected)
	}
	return nil
}

// RecoverSigner returns the public key that produced an EIP-191 signature
// over message.
func RecoverSigner(message, signature []byte) (*ecdsa.PublicKey, error) {
	sig, err := normalizeRecoveryID(signature, 0)
	if err != nil {
		return nil, err
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(sig[64], r, s, true) {
		return nil, fmt.Errorf("signature values out of range")
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return nil, fmt.Errorf("failed to recover public key: %w", err)
	}
	return pubKey, nil
}

// normalizeRecoveryID copies signature with V rebased to base (0 or 27).
func normalizeRecoveryID(signature []byte, base byte) ([]byte, error) {
	if len(signature) != SignatureSize {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(signature))
	}

	sig := make([]byte, SignatureSize)
	copy(sig, signature)

	v := sig[64]
	switch v {
	case 0, 1:
	case 27, 28:
		v -= 27
	default:
		return nil, fmt.Errorf("invalid recovery id %d", sig[64])
	}
	sig[64] = v + base
	return sig, nil
}
