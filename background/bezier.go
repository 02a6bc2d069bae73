package background

import "gonum.org/v1/gonum/mat"

// bernstein is the fixed bicubic Bernstein matrix shared by every patch.
var bernstein = mat.NewDense(4, 4, []float64{
	1, 0, 0, 0,
	-3, 3, 0, 0,
	3, -6, 3, 0,
	-1, 3, -3, 1,
})

// controlGrid samples a 4x4 control-point grid from the min-filtered image
// for the given blob, at grid coordinates
// (left + floor(x*bw/4), top + floor(y*bh/4)) for x,y in 0..3.
func controlGrid(minf []byte, width int, top, left, bw, bh int) *mat.Dense {
	p := mat.NewDense(4, 4, nil)
	for y := 0; y < 4; y++ {
		sy := top + (y*bh)/4
		for x := 0; x < 4; x++ {
			sx := left + (x*bw)/4
			p.Set(y, x, float64(minf[sy*width+sx]))
		}
	}
	return p
}

// bezierCoeff fills an (n x 4) matrix whose row i is [1, u, u^2, u^3] for
// u = i/(n-1), the power basis used on both the row and column axes.
func bezierCoeff(n int) *mat.Dense {
	m := mat.NewDense(n, 4, nil)
	for i := 0; i < n; i++ {
		u := 0.0
		if n > 1 {
			u = float64(i) / float64(n-1)
		}
		m.Set(i, 0, 1)
		m.Set(i, 1, u)
		m.Set(i, 2, u*u)
		m.Set(i, 3, u*u*u)
	}
	return m
}

// bezierPatch synthesizes a (bh x bw) surface for one blob by the matrix
// chain U . M . P . M^T . V^T, truncating each result to u8 via a plain
// conversion (no rounding), and writes it into dst at the blob's rectangle.
func bezierPatch(minf []byte, width int, top, left, bw, bh int, dst []byte, dstWidth int) {
	u := bezierCoeff(bh) // (bh x 4)
	v := bezierCoeff(bw) // (bw x 4)
	p := controlGrid(minf, width, top, left, bw, bh)

	var um, ump, umpmt, surf mat.Dense
	um.Mul(u, bernstein)           // bh x 4
	ump.Mul(&um, p)                // bh x 4
	umpmt.Mul(&ump, bernstein.T()) // bh x 4
	surf.Mul(&umpmt, v.T())        // bh x bw

	for y := 0; y < bh; y++ {
		for x := 0; x < bw; x++ {
			dst[(top+y)*dstWidth+(left+x)] = truncateToByte(surf.At(y, x))
		}
	}
}

// truncateToByte performs the same truncating (not rounding) narrowing the
// source's plain `(unsigned char)` cast performs, but clamps first: Go's
// float-to-integer conversion is implementation-specific outside [0,255],
// unlike C's cast, so values a Bernstein overshoot pushes out of range are
// clamped rather than left to undefined behavior. A tolerance of 1e-9 is
// added before truncating so that floating-point noise in the matrix chain
// (an exact 150 computed as 149.99999999999994) does not drop a whole level.
func truncateToByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 1e-9)
}
