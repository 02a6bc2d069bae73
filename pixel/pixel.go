// Package pixel implements the scalar arithmetic primitives the fusion
// pipeline composes into bright-feature extraction: saturating and signed
// subtraction, saturating and widening addition, and saturating scalar
// multiply. SIMD variants are an optimization of these scalar semantics and
// are not implemented here — only the scalar contract is normative.
package pixel

// SubSaturate computes C[i] = max(0, A[i] - B[i]) for same-length planes,
// "keeping gray range" rather than wrapping.
func SubSaturate(a, b []byte) []byte {
	c := make([]byte, len(a))
	for i := range a {
		if a[i] > b[i] {
			c[i] = a[i] - b[i]
		}
	}
	return c
}

// SubSigned computes C[i] = int16(A[i]) - int16(B[i]).
func SubSigned(a, b []byte) []int16 {
	c := make([]int16, len(a))
	for i := range a {
		c[i] = int16(a[i]) - int16(b[i])
	}
	return c
}

// AddSaturate computes C[i] = min(255, A[i] + B[i]).
func AddSaturate(a, b []byte) []byte {
	c := make([]byte, len(a))
	for i := range a {
		sum := uint16(a[i]) + uint16(b[i])
		if sum > 255 {
			sum = 255
		}
		c[i] = byte(sum)
	}
	return c
}

// AddWiden computes C[i] = uint16(A[i]) + uint16(B[i]) without clamping.
func AddWiden(a, b []byte) []uint16 {
	c := make([]uint16, len(a))
	for i := range a {
		c[i] = uint16(a[i]) + uint16(b[i])
	}
	return c
}

// MulScalarSaturate computes C[i] = clip_u8(k * A[i]), truncating toward
// zero exactly as the source's plain cast does (no rounding).
func MulScalarSaturate(a []byte, k float64) []byte {
	c := make([]byte, len(a))
	for i := range a {
		v := k * float64(a[i])
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		c[i] = byte(v)
	}
	return c
}
