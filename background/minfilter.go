package background

// minFilter computes, for every pixel, the minimum value in the square
// window of the given radius centered on it, with borders handled by
// replicating the nearest valid row/column into the margin rather than
// padding with a fixed value.
func minFilter(src []byte, width, height, radius int) []byte {
	padded, pw, _ := replicateBorder(src, width, height, radius)
	dst := make([]byte, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			min := byte(255)
			for wy := 0; wy <= 2*radius; wy++ {
				row := (y + wy) * pw
				for wx := 0; wx <= 2*radius; wx++ {
					v := padded[row+x+wx]
					if v < min {
						min = v
					}
				}
			}
			dst[y*width+x] = min
		}
	}
	return dst
}

// replicateBorder returns a copy of src surrounded by a margin of the given
// radius, with edge rows/columns repeated into the margin.
func replicateBorder(src []byte, width, height, radius int) (padded []byte, pw, ph int) {
	pw = width + 2*radius
	ph = height + 2*radius
	padded = make([]byte, pw*ph)

	for y := 0; y < height; y++ {
		copy(padded[(y+radius)*pw+radius:(y+radius)*pw+radius+width], src[y*width:(y+1)*width])
	}
	// replicate left/right columns for interior rows.
	for y := 0; y < height; y++ {
		row := (y + radius) * pw
		left := src[y*width]
		right := src[y*width+width-1]
		for x := 0; x < radius; x++ {
			padded[row+x] = left
			padded[row+pw-1-x] = right
		}
	}
	// replicate top/bottom rows, including the already-filled margins.
	firstRow := padded[radius*pw : radius*pw+pw]
	lastRow := padded[(radius+height-1)*pw : (radius+height-1)*pw+pw]
	for y := 0; y < radius; y++ {
		copy(padded[y*pw:y*pw+pw], firstRow)
		copy(padded[(ph-1-y)*pw:(ph-1-y)*pw+pw], lastRow)
	}
	return padded, pw, ph
}
