package secp256k1

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test vectors for known values
var (
	// Known Keccak-256 hash of "test"
	testKeccak256Expected = "9c22ff5f21f0b81b113e63f7db6da94fedef11b2119b4088b89664fb9a3cb658"
	// Compressed generator point (public key of scalar 1)
	testGeneratorCompressed = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	// Ethereum address of scalar 1
	testScalarOneAddress = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
	// Curve order n
	testCurveOrder = "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"
)

func scalarOne() []byte {
	b := make([]byte, PrivateKeySize)
	b[31] = 0x01
	return b
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestGenerateKey(t *testing.T) {
	t.Run("generates valid keypair", func(t *testing.T) {
		privKey, err := GenerateKey(nil)
		require.NoError(t, err)
		require.NotNil(t, privKey)
		assert.Len(t, privKey.Serialize(), 32)
	})

	t.Run("generates unique keys", func(t *testing.T) {
		privKey1, err := GenerateKey(nil)
		require.NoError(t, err)
		privKey2, err := GenerateKey(nil)
		require.NoError(t, err)
		assert.NotEqual(t, privKey1.Serialize(), privKey2.Serialize())
	})

	t.Run("uses the supplied reader", func(t *testing.T) {
		privKey, err := GenerateKey(bytes.NewReader(scalarOne()))
		require.NoError(t, err)
		assert.Equal(t, testGeneratorCompressed, hex.EncodeToString(privKey.PubKey().SerializeCompressed()))
	})

	t.Run("skips out-of-range candidates", func(t *testing.T) {
		stream := append(mustHex(t, testCurveOrder), scalarOne()...)
		privKey, err := GenerateKey(bytes.NewReader(stream))
		require.NoError(t, err)
		assert.Equal(t, scalarOne(), privKey.Serialize())
	})

	t.Run("fails without entropy", func(t *testing.T) {
		_, err := GenerateKey(failingReader{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "entropy unavailable")
	})

	t.Run("fails when every candidate is out of range", func(t *testing.T) {
		_, err := GenerateKey(bytes.NewReader(make([]byte, PrivateKeySize*maxGenerateAttempts)))
		assert.ErrorIs(t, err, ErrScalarOutOfRange)
	})
}

func TestPrivateKeyFromScalar(t *testing.T) {
	order := mustHex(t, testCurveOrder)

	orderMinusOne := bytes.Clone(order)
	orderMinusOne[31]--

	tests := []struct {
		name  string
		input []byte
		valid bool
	}{
		{"one", scalarOne(), true},
		{"n-1", orderMinusOne, true},
		{"zero", make([]byte, 32), false},
		{"n", order, false},
		{"all ones", bytes.Repeat([]byte{0xff}, 32), false},
		{"short", []byte{0x01}, false},
		{"long", make([]byte, 33), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			privKey, ok := PrivateKeyFromScalar(tt.input)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				require.NotNil(t, privKey)
				assert.Equal(t, tt.input, privKey.Serialize())
			} else {
				assert.Nil(t, privKey)
			}
		})
	}
}

func TestParsePrivateKey(t *testing.T) {
	t.Run("parses valid private key", func(t *testing.T) {
		privKey, err := GenerateKey(nil)
		require.NoError(t, err)

		parsed, err := ParsePrivateKey(privKey.Serialize())
		require.NoError(t, err)
		assert.Equal(t, privKey.Serialize(), parsed.Serialize())
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParsePrivateKey([]byte{0x01, 0x02, 0x03})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "private key must be 32 bytes")
	})

	t.Run("rejects zero scalar", func(t *testing.T) {
		_, err := ParsePrivateKey(make([]byte, 32))
		assert.ErrorIs(t, err, ErrScalarOutOfRange)
	})

	t.Run("rejects curve order", func(t *testing.T) {
		_, err := ParsePrivateKey(mustHex(t, testCurveOrder))
		assert.ErrorIs(t, err, ErrScalarOutOfRange)
	})
}

func TestParsePublicKey(t *testing.T) {
	privKey, err := GenerateKey(nil)
	require.NoError(t, err)
	pubKey := privKey.PubKey()

	t.Run("parses compressed public key", func(t *testing.T) {
		parsed, err := ParsePublicKey(pubKey.SerializeCompressed())
		require.NoError(t, err)
		assert.Equal(t, pubKey.SerializeCompressed(), parsed.SerializeCompressed())
	})

	t.Run("parses uncompressed public key", func(t *testing.T) {
		uncompressed := pubKey.SerializeUncompressed()
		assert.Len(t, uncompressed, 65)

		parsed, err := ParsePublicKey(uncompressed)
		require.NoError(t, err)
		assert.Equal(t, pubKey.SerializeCompressed(), parsed.SerializeCompressed())
	})

	t.Run("rejects empty data", func(t *testing.T) {
		_, err := ParsePublicKey([]byte{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be empty")
	})

	t.Run("rejects invalid length", func(t *testing.T) {
		_, err := ParsePublicKey([]byte{0x02, 0x01, 0x02})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "33 or 65 bytes")
	})

	t.Run("rejects point not on curve", func(t *testing.T) {
		// x = 5 has no square root mod p on secp256k1.
		offCurve := make([]byte, 33)
		offCurve[0] = 0x02
		offCurve[32] = 0x05
		_, err := ParsePublicKey(offCurve)
		assert.Error(t, err)
	})

	t.Run("rejects bad format byte", func(t *testing.T) {
		bad := pubKey.SerializeCompressed()
		bad[0] = 0x05
		_, err := ParsePublicKey(bad)
		assert.Error(t, err)
	})
}

func TestNormalizePublicKey(t *testing.T) {
	privKey, _ := btcec.PrivKeyFromBytes(scalarOne())

	t.Run("compressed stays compressed", func(t *testing.T) {
		out, err := NormalizePublicKey(privKey.PubKey().SerializeCompressed())
		require.NoError(t, err)
		assert.Equal(t, testGeneratorCompressed, hex.EncodeToString(out))
	})

	t.Run("uncompressed is compressed", func(t *testing.T) {
		out, err := NormalizePublicKey(privKey.PubKey().SerializeUncompressed())
		require.NoError(t, err)
		assert.Equal(t, testGeneratorCompressed, hex.EncodeToString(out))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := NormalizePublicKey(bytes.Repeat([]byte{0xab}, 33))
		assert.Error(t, err)
	})
}

func TestSharedSecret(t *testing.T) {
	alice, err := GenerateKey(nil)
	require.NoError(t, err)
	bob, err := GenerateKey(nil)
	require.NoError(t, err)

	t.Run("is symmetric", func(t *testing.T) {
		ab := SharedSecret(alice, bob.PubKey())
		ba := SharedSecret(bob, alice.PubKey())
		assert.Len(t, ab, 32)
		assert.Equal(t, ab, ba)
	})

	t.Run("differs per peer", func(t *testing.T) {
		carol, err := GenerateKey(nil)
		require.NoError(t, err)
		assert.NotEqual(t, SharedSecret(alice, bob.PubKey()), SharedSecret(alice, carol.PubKey()))
	})

	t.Run("is the x-coordinate of the product", func(t *testing.T) {
		// 1·G has x-coordinate equal to the compressed generator without its format byte.
		one, _ := btcec.PrivKeyFromBytes(scalarOne())
		secret := SharedSecret(one, one.PubKey())
		// 1·(1·G) = G
		assert.Equal(t, testGeneratorCompressed[2:], hex.EncodeToString(secret))
	})
}

func TestHashKeccak256(t *testing.T) {
	t.Run("matches known test vector", func(t *testing.T) {
		assert.Equal(t, testKeccak256Expected, hex.EncodeToString(HashKeccak256([]byte("test"))))
	})

	t.Run("concatenates parts", func(t *testing.T) {
		assert.Equal(t, HashKeccak256([]byte("test")), HashKeccak256([]byte("te"), []byte("st")))
	})

	t.Run("handles empty input", func(t *testing.T) {
		assert.Len(t, HashKeccak256(), 32)
	})
}

func TestEthereumAddress(t *testing.T) {
	t.Run("matches known address for scalar one", func(t *testing.T) {
		privKey, _ := btcec.PrivKeyFromBytes(scalarOne())
		assert.Equal(t, testScalarOneAddress, AddressFromPublicKey(privKey.PubKey()))
	})

	t.Run("returns 20 bytes", func(t *testing.T) {
		privKey, err := GenerateKey(nil)
		require.NoError(t, err)
		assert.Len(t, DeriveEthereumAddress(privKey.PubKey()), 20)
	})

	t.Run("formats EIP-55 checksum", func(t *testing.T) {
		addr := mustHex(t, "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
		assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", FormatEthereumAddress(addr))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		assert.Equal(t, "", FormatEthereumAddress([]byte{0x01}))
	})
}

func TestSecureZero(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 0xff, 0xaa, 0x55}
	SecureZero(data)
	for i, b := range data {
		assert.Equal(t, byte(0), b, "byte at position %d should be zero", i)
	}
	SecureZero(nil)
}
