package ecies

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Cainuriel/message-crypto/internal/hexenc"
)

// Envelope is everything needed to attempt decryption of one message.
// Byte fields are hex encoded in JSON (lowercase, no 0x prefix).
type Envelope struct {
	Version            string
	EphemeralPublicKey []byte
	Salt               []byte
	Nonce              []byte
	Ciphertext         []byte
	MAC                []byte
}

// envelopeJSON tracks field presence: a nil pointer is a missing field, an
// empty string is a present but empty one.
type envelopeJSON struct {
	Version            *string `json:"version"`
	EphemeralPublicKey *string `json:"ephemeralPublicKey"`
	Salt               *string `json:"salt"`
	Nonce              *string `json:"nonce"`
	Ciphertext         *string `json:"ciphertext"`
	MAC                *string `json:"mac"`
}

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	str := func(s string) *string { return &s }
	return json.Marshal(envelopeJSON{
		Version:            str(e.Version),
		EphemeralPublicKey: str(hexenc.Encode(e.EphemeralPublicKey)),
		Salt:               str(hexenc.Encode(e.Salt)),
		Nonce:              str(hexenc.Encode(e.Nonce)),
		Ciphertext:         str(hexenc.Encode(e.Ciphertext)),
		MAC:                str(hexenc.Encode(e.MAC)),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Every field must be present;
// hex may be upper or lower case with an optional 0x prefix.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw envelopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}

	if raw.Version == nil || *raw.Version == "" {
		return fmt.Errorf("%w: missing field %q", ErrMalformedCiphertext, "version")
	}

	var out Envelope
	out.Version = *raw.Version

	fields := []struct {
		name string
		src  *string
		dst  *[]byte
	}{
		{"ephemeralPublicKey", raw.EphemeralPublicKey, &out.EphemeralPublicKey},
		{"salt", raw.Salt, &out.Salt},
		{"nonce", raw.Nonce, &out.Nonce},
		{"ciphertext", raw.Ciphertext, &out.Ciphertext},
		{"mac", raw.MAC, &out.MAC},
	}
	for _, f := range fields {
		if f.src == nil {
			return fmt.Errorf("%w: missing field %q", ErrMalformedCiphertext, f.name)
		}
		b, err := hexenc.Decode(*f.src)
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrMalformedCiphertext, f.name, err)
		}
		*f.dst = b
	}

	*e = out
	return nil
}

// ParseEnvelope decodes an envelope from its JSON form.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := env.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &env, nil
}

// Clone returns a deep copy of e.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	return &Envelope{
		Version:            e.Version,
		EphemeralPublicKey: bytes.Clone(e.EphemeralPublicKey),
		Salt:               bytes.Clone(e.Salt),
		Nonce:              bytes.Clone(e.Nonce),
		Ciphertext:         bytes.Clone(e.Ciphertext),
		MAC:                bytes.Clone(e.MAC),
	}
}

func checkSize(field string, b []byte, size int) error {
	if len(b) != size {
		return fmt.Errorf("%w: %s must be %d bytes, got %d", ErrMalformedCiphertext, field, size, len(b))
	}
	return nil
}
