// Package ctcompare provides the constant-time byte comparison used when
// checking envelope MACs.
package ctcompare

// Equal reports whether a and b hold the same bytes.
//
// Length is not secret, so differing lengths return false right away. For
// equal lengths every byte pair is visited and the XOR differences are
// OR-accumulated, so the running time does not depend on the position of the
// first mismatch.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	var acc byte
	for i := range a {
		acc |= a[i] ^ b[i]
	}
	return isZero(acc)
}

// isZero maps acc to a boolean without a data-dependent branch on its bits.
func isZero(acc byte) bool {
	// acc-1 underflows into the top bit only when acc == 0.
	return (uint32(acc)-1)>>31 == 1
}
