package quadtree

import "testing"

func uniformImage(w, h int, v byte) []byte {
	img := make([]byte, w*h)
	for i := range img {
		img[i] = v
	}
	return img
}

func TestQuadtreeUniformImageYieldsOneLeaf(t *testing.T) {
	img := uniformImage(16, 16, 100)
	tr := New(img, 16, 16, 4, 4, 10)
	tr.Decompose()

	leaves := tr.Leaves()
	if len(leaves) != 1 {
		t.Fatalf("Leaves() = %d leaves, want 1", len(leaves))
	}
	b := leaves[0]
	if b.Quad != (Quadrant{0, 0, 15, 15}) {
		t.Fatalf("leaf rect = %+v, want full 16x16", b.Quad)
	}
	if b.Range != 0 {
		t.Fatalf("leaf range = %d, want 0", b.Range)
	}
}

func TestQuadtreeSplitsOnce(t *testing.T) {
	img := make([]byte, 16*16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if x < 8 && y < 8 {
				img[y*16+x] = 0
			} else {
				img[y*16+x] = 200
			}
		}
	}
	tr := New(img, 16, 16, 4, 4, 10)
	tr.Decompose()

	leaves := tr.Leaves()
	if len(leaves) != 4 {
		t.Fatalf("Leaves() = %d leaves, want 4 (root splits once)", len(leaves))
	}
	for _, b := range leaves {
		if b.Range != 0 {
			t.Fatalf("leaf %+v has range %d, want 0 (each quadrant is constant)", b.Quad, b.Range)
		}
	}
	// TL quadrant (all zeros) must be the first leaf in DFS order.
	tl := leaves[0]
	if tl.Quad != (Quadrant{0, 0, 7, 7}) {
		t.Fatalf("first leaf = %+v, want TL quadrant {0,0,7,7}", tl.Quad)
	}
}

func TestQuadtreeTilingCoversWithoutOverlap(t *testing.T) {
	img := make([]byte, 32*32)
	for i := range img {
		img[i] = byte(i % 251)
	}
	tr := New(img, 32, 32, 4, 4, 5)
	tr.Decompose()

	covered := make([]bool, 32*32)
	for _, b := range tr.Leaves() {
		for y := b.Quad.Top; y <= b.Quad.Bottom; y++ {
			for x := b.Quad.Left; x <= b.Quad.Right; x++ {
				if covered[y*32+x] {
					t.Fatalf("pixel (%d,%d) covered by more than one leaf", x, y)
				}
				covered[y*32+x] = true
			}
		}
	}
	for i, c := range covered {
		if !c {
			t.Fatalf("pixel index %d not covered by any leaf", i)
		}
	}
}

// TestQuadtreeOddDimensionSplitMatchesSourceHalfOpenMidpoint exercises the
// recursive height chain 480->240->120->60->30->15 at its last, odd step: a
// 16x15 rectangle splitting on an odd height must hand the smaller half (7
// rows) to the top children and the larger half (8 rows) to the bottom
// children, matching split_blob's exclusive-bottom horizon_middle.
func TestQuadtreeOddDimensionSplitMatchesSourceHalfOpenMidpoint(t *testing.T) {
	const w, h = 16, 15
	img := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte(0)
			if y >= 7 {
				v = 200
			}
			img[y*w+x] = v
		}
	}
	tr := New(img, w, h, 4, 4, 10)
	tr.Decompose()

	leaves := tr.Leaves()
	if len(leaves) != 4 {
		t.Fatalf("Leaves() = %d leaves, want 4", len(leaves))
	}
	tl, tr2, bl, br := leaves[0], leaves[1], leaves[2], leaves[3]

	if want := (Quadrant{Top: 0, Left: 0, Bottom: 6, Right: 7}); tl.Quad != want {
		t.Fatalf("TL quadrant = %+v, want %+v (height 7)", tl.Quad, want)
	}
	if want := (Quadrant{Top: 0, Left: 8, Bottom: 6, Right: 15}); tr2.Quad != want {
		t.Fatalf("TR quadrant = %+v, want %+v (height 7)", tr2.Quad, want)
	}
	if want := (Quadrant{Top: 7, Left: 0, Bottom: 14, Right: 7}); bl.Quad != want {
		t.Fatalf("BL quadrant = %+v, want %+v (height 8)", bl.Quad, want)
	}
	if want := (Quadrant{Top: 7, Left: 8, Bottom: 14, Right: 15}); br.Quad != want {
		t.Fatalf("BR quadrant = %+v, want %+v (height 8)", br.Quad, want)
	}
}

func TestQuadtreeLeavesSatisfyTerminationInvariant(t *testing.T) {
	img := make([]byte, 40*40)
	for i := range img {
		img[i] = byte((i * 37) % 256)
	}
	tr := New(img, 40, 40, 6, 6, 50)
	tr.Decompose()

	for _, b := range tr.Leaves() {
		w, h := b.Quad.width(), b.Quad.height()
		if !(w <= 6 || h <= 6 || b.Range <= 50) {
			t.Fatalf("leaf %+v violates termination invariant: w=%d h=%d range=%d", b.Quad, w, h, b.Range)
		}
	}
}
