package compositor

import "testing"

func TestSuppressionBoundaryClampsToCeiling(t *testing.T) {
	w, h := 100, 100
	c, err := New(DefaultOptions(w, h))
	if err != nil {
		t.Fatal(err)
	}
	n := w * h
	usfn := make([]uint16, n)
	// 100 pixels at value 300, everything else at 0. The top 0.1% is 10
	// pixels, so the walk stops inside the 300 bin and the brightest-slice
	// mean is exactly 300.
	for i := 0; i < 100; i++ {
		usfn[i] = 300
	}
	ratio := c.suppressionRatio(usfn)
	want := 0.8 // min(0.8, 255/300) == 0.8
	if ratio != want {
		t.Fatalf("suppressionRatio = %f, want %f", ratio, want)
	}
}

func TestSuppressionRatioUsesFullGainWhenDim(t *testing.T) {
	w, h := 10, 10
	c, err := New(DefaultOptions(w, h))
	if err != nil {
		t.Fatal(err)
	}
	usfn := make([]uint16, w*h)
	for i := range usfn {
		usfn[i] = 100
	}
	ratio := c.suppressionRatio(usfn)
	want := 255.0 / 100.0
	if want > DefaultSuppressionCeiling {
		want = DefaultSuppressionCeiling
	}
	if ratio != want {
		t.Fatalf("suppressionRatio = %f, want %f", ratio, want)
	}
}

func TestSuppressionMonotonicityInBpr(t *testing.T) {
	w, h := 50, 50
	n := w * h
	usfn := make([]uint16, n)
	for i := 0; i < n; i++ {
		usfn[i] = uint16(i % 512)
	}

	wide, err := New(Options{Width: w, Height: h, SuppressionCeiling: DefaultSuppressionCeiling, BrightestFraction: 0.05})
	if err != nil {
		t.Fatal(err)
	}
	narrow, err := New(Options{Width: w, Height: h, SuppressionCeiling: DefaultSuppressionCeiling, BrightestFraction: 0.01})
	if err != nil {
		t.Fatal(err)
	}

	srWide := wide.suppressionRatio(usfn)
	srNarrow := narrow.suppressionRatio(usfn)
	if srNarrow > srWide {
		t.Fatalf("reducing bpr increased sr: narrow=%f wide=%f, want narrow <= wide", srNarrow, srWide)
	}
}

func TestCompositeProducesSaturatedFusedPlane(t *testing.T) {
	w, h := 4, 4
	n := w * h
	c, err := New(DefaultOptions(w, h))
	if err != nil {
		t.Fatal(err)
	}
	gsci := make([]byte, n)
	bkg := make([]byte, n)
	regt := make([]byte, n)
	for i := 0; i < n; i++ {
		gsci[i] = 200
		bkg[i] = 50
		regt[i] = 100
	}

	res, err := c.Composite(gsci, bkg, regt)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if len(res.Fused) != n {
		t.Fatalf("len(Fused) = %d, want %d", len(res.Fused), n)
	}
	for i, v := range res.Bright {
		if v != 150 {
			t.Fatalf("Bright[%d] = %d, want 150 (200-50 saturating)", i, v)
		}
	}
	for i, v := range res.EstBack {
		if v != 0 {
			t.Fatalf("EstBack[%d] = %d, want 0 (100-200 saturates to 0)", i, v)
		}
	}
	for i, v := range res.Refined {
		if v != 150 {
			t.Fatalf("Refined[%d] = %d, want 150 (150-0)", i, v)
		}
	}
}

func TestCompositeRejectsShortPlanes(t *testing.T) {
	c, err := New(DefaultOptions(4, 4))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Composite(make([]byte, 2), make([]byte, 16), make([]byte, 16)); err == nil {
		t.Fatal("Composite: want error for short gsci plane")
	}
}
