package ecies

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// eip1024JSON is the payload produced by eth-sig-util's encrypt and consumed
// by MetaMask's eth_decrypt. Byte fields are standard base64.
type eip1024JSON struct {
	Version        *string `json:"version"`
	Nonce          *string `json:"nonce"`
	EphemPublicKey *string `json:"ephemPublicKey"`
	Ciphertext     *string `json:"ciphertext"`
}

// ParseEIP1024 decodes an EIP-1024 encrypted-data object into an Envelope.
func ParseEIP1024(data []byte) (*Envelope, error) {
	var raw eip1024JSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}

	if raw.Version == nil {
		return nil, fmt.Errorf("%w: missing field %q", ErrMalformedCiphertext, "version")
	}
	if *raw.Version != VersionX25519 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, *raw.Version)
	}

	env := &Envelope{Version: VersionX25519, Salt: []byte{}, MAC: []byte{}}
	fields := []struct {
		name string
		src  *string
		dst  *[]byte
	}{
		{"nonce", raw.Nonce, &env.Nonce},
		{"ephemPublicKey", raw.EphemPublicKey, &env.EphemeralPublicKey},
		{"ciphertext", raw.Ciphertext, &env.Ciphertext},
	}
	for _, f := range fields {
		if f.src == nil {
			return nil, fmt.Errorf("%w: missing field %q", ErrMalformedCiphertext, f.name)
		}
		b, err := base64.StdEncoding.DecodeString(*f.src)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrMalformedCiphertext, f.name, err)
		}
		*f.dst = b
	}
	return env, nil
}

// MarshalEIP1024 encodes an X25519 envelope as an EIP-1024 encrypted-data
// object. Envelopes of other suites have no EIP-1024 form.
func (e *Envelope) MarshalEIP1024() ([]byte, error) {
	if e.Version != VersionX25519 {
		return nil, fmt.Errorf("%w: %q has no EIP-1024 encoding", ErrUnsupportedVersion, e.Version)
	}

	enc := base64.StdEncoding.EncodeToString
	version := e.Version
	nonce := enc(e.Nonce)
	ephem := enc(e.EphemeralPublicKey)
	ciphertext := enc(e.Ciphertext)
	return json.Marshal(eip1024JSON{
		Version:        &version,
		Nonce:          &nonce,
		EphemPublicKey: &ephem,
		Ciphertext:     &ciphertext,
	})
}
