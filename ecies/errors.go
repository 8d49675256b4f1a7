package ecies

import "errors"

// Sentinel errors
var (
	ErrInvalidPublicKey     = errors.New("ecies: invalid public key")
	ErrInvalidPrivateKey    = errors.New("ecies: invalid private key")
	ErrUnsupportedVersion   = errors.New("ecies: unsupported envelope version")
	ErrAuthenticationFailed = errors.New("ecies: authentication failed")
	ErrMalformedCiphertext  = errors.New("ecies: malformed ciphertext")
	ErrRandomness           = errors.New("ecies: secure random source failed")
	ErrInvalidPlaintext     = errors.New("ecies: plaintext is not valid UTF-8")

	// ErrDecryptionFailed is the only decryption error that should reach an
	// untrusted caller. See Redact.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Redact collapses any decryption error into ErrDecryptionFailed so that a
// tampered envelope, a wrong key and a malformed payload look the same from
// outside. Log the full error for the operator before redacting it.
func Redact(err error) error {
	if err == nil {
		return nil
	}
	return ErrDecryptionFailed
}

// IsDecryptionFailure reports whether err is one of the errors Decrypt
// returns for bad input, as opposed to a programming or environment error.
func IsDecryptionFailure(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed) ||
		errors.Is(err, ErrMalformedCiphertext) ||
		errors.Is(err, ErrUnsupportedVersion) ||
		errors.Is(err, ErrInvalidPrivateKey) ||
		errors.Is(err, ErrDecryptionFailed)
}
