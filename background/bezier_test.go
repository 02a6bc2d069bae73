package background

import "testing"

// A uniform control grid makes every Bernstein blend reduce to the
// constant value, regardless of (u,v), which exercises the full matrix
// chain without needing to hand-derive corner arithmetic.
func TestBezierPatchUniformGridIsFlat(t *testing.T) {
	width := 20
	minf := make([]byte, width*12)
	for i := range minf {
		minf[i] = 150
	}

	dst := make([]byte, width*12)
	bezierPatch(minf, width, 2, 3, 8, 6, dst, width)

	for y := 2; y < 8; y++ {
		for x := 3; x < 11; x++ {
			if got := dst[y*width+x]; got != 150 {
				t.Fatalf("dst(%d,%d) = %d, want 150 for a uniform control grid", x, y, got)
			}
		}
	}
}

func TestBezierPatchCornersMatchControlPoints(t *testing.T) {
	width := 4
	minf := []byte{
		10, 20, 30, 40,
		50, 60, 70, 80,
		90, 100, 110, 120,
		130, 140, 150, 160,
	}
	dst := make([]byte, width*4)
	bezierPatch(minf, width, 0, 0, 4, 4, dst, width)

	// At the blob corners the power-basis row/col reduce to a one-hot
	// selection of the Bernstein matrix's corner rows, which for M's fixed
	// coefficients picks out exactly the corresponding control point.
	if got := dst[0*width+0]; got != minf[0] {
		t.Fatalf("top-left corner = %d, want control point %d", got, minf[0])
	}
	if got := dst[3*width+3]; got != minf[15] {
		t.Fatalf("bottom-right corner = %d, want control point %d", got, minf[15])
	}
}
