package background

import "testing"

func TestGaussianKernel1DNormalizes(t *testing.T) {
	k := gaussianKernel1D(5, 4.5)
	var sum float64
	for _, v := range k {
		sum += v
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("gaussianKernel1D sum = %f, want ~1.0", sum)
	}
	if len(k) != 5 {
		t.Fatalf("gaussianKernel1D length = %d, want 5", len(k))
	}
}

func TestGaussianBlurUniformImageUnchanged(t *testing.T) {
	img := make([]byte, 20*20)
	for i := range img {
		img[i] = 77
	}
	out := gaussianBlur(img, 20, 20, 5, 4.5)
	for i, v := range out {
		if v != 77 {
			t.Fatalf("gaussianBlur uniform image at %d = %d, want 77", i, v)
		}
	}
}

func TestGaussianBlurSmoothsSpike(t *testing.T) {
	img := make([]byte, 15*15)
	img[7*15+7] = 255
	out := gaussianBlur(img, 15, 15, 5, 4.5)
	if out[7*15+7] >= 255 {
		t.Fatalf("gaussianBlur center = %d, want < 255 (blurred)", out[7*15+7])
	}
	if out[7*15+7] == 0 {
		t.Fatalf("gaussianBlur center = 0, want the spike to still dominate its own pixel")
	}
}
