package frame

import (
	"fmt"
	"image"
)

// YUV420 is a 4:2:0 semi-planar-equivalent frame carried as three
// independently-strided planes (Y full resolution, Cb/Cr quarter
// resolution), matching the layout stdlib image.YCbCr uses internally.
type YUV420 struct {
	Width  int
	Height int
	Y      []byte
	Cb     []byte
	Cr     []byte
	YStride  int
	CStride  int
}

// NewYUV420 allocates a zeroed 4:2:0 frame. Width and height must both be
// even; the chroma planes fill with the neutral value 0x80.
func NewYUV420(width, height int) (*YUV420, error) {
	if width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("frame: YUV420 requires even dimensions, got %dx%d", width, height)
	}
	cw, ch := width/2, height/2
	f := &YUV420{
		Width:   width,
		Height:  height,
		Y:       make([]byte, width*height),
		Cb:      make([]byte, cw*ch),
		Cr:      make([]byte, cw*ch),
		YStride: width,
		CStride: cw,
	}
	for i := range f.Cb {
		f.Cb[i] = 0x80
		f.Cr[i] = 0x80
	}
	return f, nil
}

// YPlane exposes the Y channel as a *Plane for use with the pixel package.
func (f *YUV420) YPlane() *Plane {
	return &Plane{Width: f.Width, Height: f.Height, Stride: f.YStride, Pix: f.Y}
}

// Size in bytes of the packed I420 byte stream this frame represents (Y
// plane, then Cb, then Cr), as written by Pack and read by WrapYUV420.
func (f *YUV420) Size() int {
	return f.Width*f.Height*3/2
}

// Pack copies the frame into dst as a contiguous I420 byte stream (Y plane,
// then Cb, then Cr), the layout Put/Get move across a ring. dst must be at
// least Size() bytes.
func (f *YUV420) Pack(dst []byte) error {
	if len(dst) < f.Size() {
		return fmt.Errorf("frame: pack dst too short: got %d, want %d", len(dst), f.Size())
	}
	n := copy(dst, f.Y)
	n += copy(dst[n:], f.Cb)
	copy(dst[n:], f.Cr)
	return nil
}

// WrapYUV420 slices a packed I420 byte stream (as produced by Pack) into a
// YUV420 whose Y/Cb/Cr planes alias the input buffer directly, avoiding a
// copy for read-only consumers.
func WrapYUV420(data []byte, width, height int) (*YUV420, error) {
	if width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("frame: YUV420 requires even dimensions, got %dx%d", width, height)
	}
	cw, ch := width/2, height/2
	need := width*height + 2*cw*ch
	if len(data) < need {
		return nil, fmt.Errorf("frame: packed buffer length %d too short for %dx%d I420", len(data), width, height)
	}
	ySize := width * height
	cSize := cw * ch
	return &YUV420{
		Width:   width,
		Height:  height,
		Y:       data[:ySize],
		Cb:      data[ySize : ySize+cSize],
		Cr:      data[ySize+cSize : ySize+2*cSize],
		YStride: width,
		CStride: cw,
	}, nil
}

// ToYCbCr converts into a standard library image.YCbCr (4:2:0 subsampling)
// for use with image/png and other stdlib consumers.
func (f *YUV420) ToYCbCr() *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, f.Width, f.Height), image.YCbCrSubsampleRatio420)
	for y := 0; y < f.Height; y++ {
		copy(img.Y[y*img.YStride:y*img.YStride+f.Width], f.Y[y*f.YStride:y*f.YStride+f.Width])
	}
	cw, ch := f.Width/2, f.Height/2
	for y := 0; y < ch; y++ {
		copy(img.Cb[y*img.CStride:y*img.CStride+cw], f.Cb[y*f.CStride:y*f.CStride+cw])
		copy(img.Cr[y*img.CStride:y*img.CStride+cw], f.Cr[y*f.CStride:y*f.CStride+cw])
	}
	return img
}
