package ecies

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cainuriel/message-crypto/keyderive"
)

// Encrypted-data object and key from the eth-sig-util encryption tests.
const (
	ethSigUtilPrivateKey    = "7e5374ec2ef0d91761a6e72fdf8f6ac665519bfdf6da0a2329cf0d804514b816"
	ethSigUtilEncryptionKey = "C5YMNdqE4kLgxQhJO1MfuQcHP5hjVSXzamzd/TxlR0U="
	ethSigUtilEncryptedData = `{
		"version": "x25519-xsalsa20-poly1305",
		"nonce": "1dvWO7uOnBnO7iNDJ9kO9pTasLuKNlej",
		"ephemPublicKey": "FBH1/pAEHOOW14Lu3FWkgV3qOEcuL78Zy+qW1RwzMXQ=",
		"ciphertext": "f8kBcl/NCyf3sybfbwAKk/np2Bzt9lRVkZejr6uh5FgnNlH/ic62DZzy"
	}`
)

func TestEIP1024_InteropVector(t *testing.T) {
	kp, err := keyderive.FromPrivateKey(mustHex(t, ethSigUtilPrivateKey))
	require.NoError(t, err)
	assert.Equal(t, ethSigUtilEncryptionKey, base64.StdEncoding.EncodeToString(kp.EncryptionPublicKey()))

	env, err := ParseEIP1024([]byte(ethSigUtilEncryptedData))
	require.NoError(t, err)
	assert.Equal(t, VersionX25519, env.Version)

	got, err := Decrypt(env, kp.PrivateKey())
	require.NoError(t, err)
	assert.Equal(t, "My name is Satoshi Buterin", string(got))
}

func TestEIP1024_RoundTrip(t *testing.T) {
	kp := goldenKeyPair(t)
	c := newCipher(t, WithDefaultSuite(VersionX25519))

	for _, msg := range []string{"hello", ""} {
		env, err := c.EncryptString(msg, kp.EncryptionPublicKey())
		require.NoError(t, err)
		assert.Equal(t, VersionX25519, env.Version)
		assert.Len(t, env.EphemeralPublicKey, X25519KeySize)
		assert.Len(t, env.Nonce, NonceSize)
		assert.Empty(t, env.Salt)
		assert.Empty(t, env.MAC)

		data, err := env.MarshalEIP1024()
		require.NoError(t, err)
		parsed, err := ParseEIP1024(data)
		require.NoError(t, err)

		got, err := c.DecryptString(parsed, kp.PrivateKey())
		require.NoError(t, err)
		assert.Equal(t, msg, got)

		// The hex envelope form carries the same suite.
		hexForm, err := json.Marshal(env)
		require.NoError(t, err)
		fromHex, err := ParseEnvelope(hexForm)
		require.NoError(t, err)
		got, err = c.DecryptString(fromHex, kp.PrivateKey())
		require.NoError(t, err)
		assert.Equal(t, msg, got)
	}
}

func TestEIP1024_DispatchFromDefaultCipher(t *testing.T) {
	kp := goldenKeyPair(t)
	sealer := newCipher(t, WithDefaultSuite(VersionX25519))

	env, err := sealer.Encrypt([]byte("hello"), kp.EncryptionPublicKey())
	require.NoError(t, err)

	// A cipher whose default is the secp256k1 suite still opens it.
	got, err := Decrypt(env, kp.PrivateKey())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestEIP1024_TamperDetection(t *testing.T) {
	kp := goldenKeyPair(t)
	c := newCipher(t, WithDefaultSuite(VersionX25519))

	env, err := c.Encrypt([]byte("attack at dawn"), kp.EncryptionPublicKey())
	require.NoError(t, err)

	fields := []struct {
		name string
		get  func(*Envelope) []byte
	}{
		{"ephemeralPublicKey", func(e *Envelope) []byte { return e.EphemeralPublicKey }},
		{"nonce", func(e *Envelope) []byte { return e.Nonce }},
		{"ciphertext", func(e *Envelope) []byte { return e.Ciphertext }},
	}

	for _, f := range fields {
		t.Run(f.name, func(t *testing.T) {
			n := len(f.get(env)) * 8
			for bit := 0; bit < n; bit++ {
				// Bit 255 of an X25519 public key is masked off by the
				// curve and never reaches the shared secret.
				if f.name == "ephemeralPublicKey" && bit == 255 {
					continue
				}
				tampered := env.Clone()
				f.get(tampered)[bit/8] ^= 1 << (bit % 8)

				got, err := c.Decrypt(tampered, kp.PrivateKey())
				require.ErrorIs(t, err, ErrAuthenticationFailed, "bit %d", bit)
				require.Nil(t, got)
			}
		})
	}
}

func TestEIP1024_WrongKey(t *testing.T) {
	kp := goldenKeyPair(t)
	c := newCipher(t, WithDefaultSuite(VersionX25519))

	env, err := c.Encrypt([]byte("hello"), kp.EncryptionPublicKey())
	require.NoError(t, err)

	other := newKeyPair(t, "mallory")
	_, err = c.Decrypt(env, other.PrivateKey())
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestEIP1024_InvalidInput(t *testing.T) {
	kp := goldenKeyPair(t)
	c := newCipher(t, WithDefaultSuite(VersionX25519))

	t.Run("secp256k1 key as recipient", func(t *testing.T) {
		_, err := c.Encrypt([]byte("hello"), kp.PublicKey())
		assert.ErrorIs(t, err, ErrInvalidPublicKey)
	})

	env, err := c.Encrypt([]byte("hello"), kp.EncryptionPublicKey())
	require.NoError(t, err)

	t.Run("salt present", func(t *testing.T) {
		tampered := env.Clone()
		tampered.Salt = make([]byte, SaltSize)
		_, err := c.Decrypt(tampered, kp.PrivateKey())
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("mac present", func(t *testing.T) {
		tampered := env.Clone()
		tampered.MAC = make([]byte, MACSize)
		_, err := c.Decrypt(tampered, kp.PrivateKey())
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("ciphertext shorter than tag", func(t *testing.T) {
		tampered := env.Clone()
		tampered.Ciphertext = tampered.Ciphertext[:15]
		_, err := c.Decrypt(tampered, kp.PrivateKey())
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	})

	t.Run("invalid private key", func(t *testing.T) {
		_, err := c.Decrypt(env, make([]byte, 32))
		assert.ErrorIs(t, err, ErrInvalidPrivateKey)
	})
}

func TestParseEIP1024_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{`, ErrMalformedCiphertext},
		{"missing version", `{"nonce":"","ephemPublicKey":"","ciphertext":""}`, ErrMalformedCiphertext},
		{"other version", `{"version":"secp256k1-hkdf-sha256-xchacha20-sha256","nonce":"","ephemPublicKey":"","ciphertext":""}`, ErrUnsupportedVersion},
		{"missing nonce", `{"version":"x25519-xsalsa20-poly1305","ephemPublicKey":"","ciphertext":""}`, ErrMalformedCiphertext},
		{"bad base64", `{"version":"x25519-xsalsa20-poly1305","nonce":"!!!","ephemPublicKey":"","ciphertext":""}`, ErrMalformedCiphertext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEIP1024([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMarshalEIP1024_RejectsOtherSuites(t *testing.T) {
	kp := goldenKeyPair(t)
	env, err := Encrypt([]byte("hello"), kp.PublicKey())
	require.NoError(t, err)

	_, err = env.MarshalEIP1024()
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
