package authgate

import (
	"fmt"
	"log/slog"

	"github.com/Cainuriel/message-crypto/internal/hexenc"
	"github.com/Cainuriel/message-crypto/keyderive"
)

// Gate turns a signed identity proof into the identity's decryption key.
type Gate struct {
	verifier Verifier
	logger   *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithVerifier replaces the default EthereumVerifier.
func WithVerifier(v Verifier) Option {
	return func(g *Gate) {
		g.verifier = v
	}
}

// WithLogger sets the logger. Only public values are ever logged.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a Gate.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		verifier: EthereumVerifier{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize checks that signature is identity's signature over
// Challenge(identity) and derives the keypair seeded by it.
//
// The recovery byte is normalized to 27/28 before derivation, so wallets
// that emit 0/1 unlock the same key as those that emit 27/28. Failures other
// than derivation exhaustion wrap ErrUnauthorizedIdentity.
func (g *Gate) Authorize(identity string, signature []byte) (*keyderive.KeyPair, error) {
	canonical, err := CanonicalIdentity(identity)
	if err != nil {
		return nil, err
	}

	challenge := []byte(ChallengePrefix + canonical)
	if err := g.verifier.Verify(canonical, challenge, signature); err != nil {
		g.logger.Debug("identity proof rejected",
			slog.String("identity", canonical),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnauthorizedIdentity, err)
	}

	seed, err := normalizeRecoveryID(signature, 27)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorizedIdentity, err)
	}

	kp, err := keyderive.Derive(seed)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("identity authorized",
		slog.String("identity", canonical),
		slog.String("public_key", hexenc.Encode(kp.PublicKey())),
	)
	return kp, nil
}

// Authorize uses a Gate with the default verifier and logger.
func Authorize(identity string, signature []byte) (*keyderive.KeyPair, error) {
	return NewGate().Authorize(identity, signature)
}
