package background

import "math"

// gaussianKernel1D builds a normalized (sum-to-one) 1-D Gaussian kernel of
// the given odd size and standard deviation.
func gaussianKernel1D(size int, sigma float64) []float64 {
	radius := size / 2
	k := make([]float64, size)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianBlur applies a separable Gaussian blur of the given kernel size
// and sigma, with borders handled by edge replication in each pass —
// matching the min filter's border style.
func gaussianBlur(src []byte, width, height, ksize int, sigma float64) []byte {
	radius := ksize / 2
	kernel := gaussianKernel1D(ksize, sigma)

	padded, pw, _ := replicateBorder(src, width, height, radius)
	horiz := make([]float64, width*height)
	for y := 0; y < height; y++ {
		row := (y + radius) * pw
		for x := 0; x < width; x++ {
			var acc float64
			for i := -radius; i <= radius; i++ {
				acc += kernel[i+radius] * float64(padded[row+x+radius+i])
			}
			horiz[y*width+x] = acc
		}
	}

	horizBytes := make([]byte, width*height)
	for i, v := range horiz {
		horizBytes[i] = clampToByte(v)
	}
	paddedV, pwv, _ := replicateBorder(horizBytes, width, height, radius)

	dst := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var acc float64
			for i := -radius; i <= radius; i++ {
				acc += kernel[i+radius] * float64(paddedV[(y+radius+i)*pwv+x+radius])
			}
			dst[y*width+x] = clampToByte(acc)
		}
	}
	return dst
}

func clampToByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
