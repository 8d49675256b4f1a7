package ecies

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEnvelopeJSON = `{
	"version": "secp256k1-hkdf-sha256-xchacha20-sha256",
	"ephemeralPublicKey": "034f355bdcb7cc0af728ef3cceb9615d90684bb5b2ca5f859ab0f0b704075871aa",
	"salt": "22222222222222222222222222222222",
	"nonce": "333333333333333333333333333333333333333333333333",
	"ciphertext": "d373fa2f70",
	"mac": "4c278cdc7c6615622aba242e0b275f8388ae7c16f92d75bc26990759c8c21b3c"
}`

func TestEnvelope_JSONRoundTrip(t *testing.T) {
	kp := goldenKeyPair(t)
	env, err := newCipher(t).Encrypt([]byte("hello"), kp.PublicKey())
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	parsed, err := ParseEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env, parsed)

	got, err := Decrypt(parsed, kp.PrivateKey())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestEnvelope_MarshalFormat(t *testing.T) {
	env, err := ParseEnvelope([]byte(sampleEnvelopeJSON))
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Len(t, fields, 6)
	assert.Equal(t, VersionSecp256k1, fields["version"])
	for name, value := range fields {
		if name == "version" {
			continue
		}
		assert.False(t, strings.HasPrefix(value, "0x"), name)
		assert.Equal(t, strings.ToLower(value), value, name)
	}
	assert.Equal(t, "d373fa2f70", fields["ciphertext"])

	// Value and pointer marshal the same way.
	byValue, err := json.Marshal(*env)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(byValue))
}

func TestEnvelope_GoldenDecrypt(t *testing.T) {
	env, err := ParseEnvelope([]byte(sampleEnvelopeJSON))
	require.NoError(t, err)

	got, err := Decrypt(env, mustHex(t, goldenPrivateKey))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestEnvelope_AcceptsPrefixedUppercaseHex(t *testing.T) {
	upper := strings.NewReplacer(
		`"034f`, `"0x034F`,
		`"d373fa2f70"`, `"0XD373FA2F70"`,
		`"4c27`, `"0x4C27`,
	).Replace(sampleEnvelopeJSON)

	env, err := ParseEnvelope([]byte(upper))
	require.NoError(t, err)

	reference, err := ParseEnvelope([]byte(sampleEnvelopeJSON))
	require.NoError(t, err)
	assert.Equal(t, reference, env)
}

func TestEnvelope_MissingFields(t *testing.T) {
	for _, field := range []string{"version", "ephemeralPublicKey", "salt", "nonce", "ciphertext", "mac"} {
		t.Run(field, func(t *testing.T) {
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(sampleEnvelopeJSON), &m))
			delete(m, field)
			data, err := json.Marshal(m)
			require.NoError(t, err)

			env, err := ParseEnvelope(data)
			assert.Nil(t, env)
			assert.ErrorIs(t, err, ErrMalformedCiphertext)
			assert.Contains(t, err.Error(), field)
		})

		t.Run(field+" null", func(t *testing.T) {
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(sampleEnvelopeJSON), &m))
			m[field] = nil
			data, err := json.Marshal(m)
			require.NoError(t, err)

			_, err = ParseEnvelope(data)
			assert.ErrorIs(t, err, ErrMalformedCiphertext)
		})
	}
}

func TestEnvelope_EmptyCiphertextIsPresent(t *testing.T) {
	kp := goldenKeyPair(t)
	env, err := newCipher(t).Encrypt([]byte{}, kp.PublicKey())
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ciphertext":""`)

	parsed, err := ParseEnvelope(data)
	require.NoError(t, err)

	got, err := Decrypt(parsed, kp.PrivateKey())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEnvelope_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `not json`},
		{"array", `[]`},
		{"odd hex", strings.Replace(sampleEnvelopeJSON, `"d373fa2f70"`, `"d373fa2f7"`, 1)},
		{"non hex", strings.Replace(sampleEnvelopeJSON, `"d373fa2f70"`, `"zz73fa2f70"`, 1)},
		{"number field", strings.Replace(sampleEnvelopeJSON, `"d373fa2f70"`, `42`, 1)},
		{"empty version", strings.Replace(sampleEnvelopeJSON, `"secp256k1-hkdf-sha256-xchacha20-sha256"`, `""`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.data))
			assert.ErrorIs(t, err, ErrMalformedCiphertext)
		})
	}
}

func TestEnvelope_UnmarshalInStruct(t *testing.T) {
	var record struct {
		ID       string    `json:"id"`
		Envelope *Envelope `json:"envelope"`
	}
	data := `{"id":"msg-1","envelope":` + sampleEnvelopeJSON + `}`
	require.NoError(t, json.Unmarshal([]byte(data), &record))
	require.NotNil(t, record.Envelope)
	assert.Equal(t, VersionSecp256k1, record.Envelope.Version)

	err := json.Unmarshal([]byte(`{"id":"msg-2","envelope":{"version":"x"}}`), &record)
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestEnvelope_Clone(t *testing.T) {
	env, err := ParseEnvelope([]byte(sampleEnvelopeJSON))
	require.NoError(t, err)

	clone := env.Clone()
	assert.Equal(t, env, clone)

	clone.Ciphertext[0] ^= 0xff
	assert.NotEqual(t, env.Ciphertext, clone.Ciphertext)

	var nilEnv *Envelope
	assert.Nil(t, nilEnv.Clone())
}
