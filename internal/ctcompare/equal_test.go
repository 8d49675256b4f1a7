package ctcompare

import (
	"bytes"
	"crypto/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []byte
		expected bool
	}{
		{"both nil", nil, nil, true},
		{"nil and empty", nil, []byte{}, true},
		{"identical", []byte("mac-value"), []byte("mac-value"), true},
		{"differ in first byte", []byte{0x00, 0x01, 0x02}, []byte{0xff, 0x01, 0x02}, false},
		{"differ in last byte", []byte{0x00, 0x01, 0x02}, []byte{0x00, 0x01, 0x03}, false},
		{"single bit difference", []byte{0x80}, []byte{0x00}, false},
		{"length mismatch", []byte{0x01, 0x02}, []byte{0x01, 0x02, 0x03}, false},
		{"empty and non-empty", []byte{}, []byte{0x00}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Equal(tt.a, tt.b))
		})
	}
}

func TestEqual_MatchesBytesEqual(t *testing.T) {
	for i := 0; i < 200; i++ {
		a := make([]byte, 32)
		_, err := rand.Read(a)
		require.NoError(t, err)

		b := bytes.Clone(a)
		if i%2 == 0 {
			b[i%32] ^= byte(1 << (i % 8))
		}
		assert.Equal(t, bytes.Equal(a, b), Equal(a, b))
	}
}

func TestIsZero(t *testing.T) {
	assert.True(t, isZero(0))
	for v := 1; v < 256; v++ {
		assert.False(t, isZero(byte(v)), "value %d", v)
	}
}

// TestEqual_TimingIndependentOfMismatchPosition compares the timing
// distribution of a mismatch at index 0 against a mismatch at the last index.
// An early-exit comparison over 64 KiB differs by orders of magnitude, so
// the bounds are loose enough to absorb scheduler noise.
func TestEqual_TimingIndependentOfMismatchPosition(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test skipped in short mode")
	}

	const (
		size    = 64 << 10
		samples = 301
		rounds  = 20
	)

	a := make([]byte, size)
	_, err := rand.Read(a)
	require.NoError(t, err)

	first := bytes.Clone(a)
	first[0] ^= 0x01
	last := bytes.Clone(a)
	last[size-1] ^= 0x01

	measure := func(b []byte) time.Duration {
		durations := make([]time.Duration, samples)
		for i := range durations {
			start := time.Now()
			for r := 0; r < rounds; r++ {
				if Equal(a, b) {
					t.Fatal("unexpected match")
				}
			}
			durations[i] = time.Since(start)
		}
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		return durations[samples/2]
	}

	// Warm up caches before sampling.
	measure(first)
	measure(last)

	medianFirst := measure(first)
	medianLast := measure(last)

	ratio := float64(medianFirst) / float64(medianLast)
	t.Logf("median first-byte mismatch %v, last-byte mismatch %v, ratio %.3f", medianFirst, medianLast, ratio)
	assert.Greater(t, ratio, 0.5, "mismatch at index 0 is suspiciously fast")
	assert.Less(t, ratio, 2.0, "mismatch at index 0 is suspiciously slow")
}

func BenchmarkEqual(b *testing.B) {
	x := make([]byte, 32)
	y := make([]byte, 32)
	y[31] = 1
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Equal(x, y)
	}
}
