// Package clahe converts a raw packed 14-bit infrared byte stream into an
// 8-bit grayscale-compressed (gsci) YUV frame via a contrast-limited
// adaptive histogram stretch.
//
// The source models this converter as a single process-wide instance
// (initialized once, accessed through module statics thereafter). This
// package instead exposes an explicit *Converter value constructed once at
// pipeline-build time: the same "one configuration per process" usage, with
// no package-level mutable state.
package clahe

import "fmt"

const nBins = 16384

// Format selects the packed pixel layout Converter.Apply writes into.
type Format int

const (
	// FormatYUV420 writes a Y plane followed by a chroma plane of nUVs =
	// width*(height/2) bytes, filled with the neutral value.
	FormatYUV420 Format = iota
	// FormatYUV422 writes a Y plane followed by a chroma plane of width*height bytes.
	FormatYUV422
)

const uvFilledValue = 0x80

// Options configures a Converter.
type Options struct {
	Width, Height int
	CutThresh     int     // bins with fewer pixels than this are dropped; default 4
	ClipLimit     float64 // default 1.0
	Format        Format
}

// DefaultOptions returns the source's defaults: cutThresh=4, clipLimit=1.0,
// YUV420 output.
func DefaultOptions(width, height int) Options {
	return Options{Width: width, Height: height, CutThresh: 4, ClipLimit: 1.0, Format: FormatYUV420}
}

// Converter holds the working buffers for one fixed (width, height, format)
// configuration. It is not safe for concurrent use by multiple goroutines;
// the fusion pipeline holds exactly one Converter per IR preprocess worker.
type Converter struct {
	opts Options

	hist     []uint64
	rearHist []uint64
	rearMap  []uint16 // raw bin -> compact bin
	stretch  []byte   // compact bin -> output value
}

// New constructs a Converter for a fixed frame geometry and format.
func New(opts Options) (*Converter, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("clahe: invalid geometry %dx%d", opts.Width, opts.Height)
	}
	if opts.CutThresh <= 0 {
		opts.CutThresh = 4
	}
	if opts.ClipLimit <= 0 {
		opts.ClipLimit = 1.0
	}
	return &Converter{
		opts:     opts,
		hist:     make([]uint64, nBins),
		rearHist: make([]uint64, nBins),
		rearMap:  make([]uint16, nBins),
		stretch:  make([]byte, nBins),
	}, nil
}

// recombine unpacks raw 14-bit little-endian samples (low byte, high byte
// with the top bit reserved) into a uint16 slice.
func recombine(raw []byte) []uint16 {
	n := len(raw) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		lo := raw[2*i]
		hi := raw[2*i+1]
		out[i] = (uint16(hi&0x7F) << 8) | uint16(lo)
	}
	return out
}

func (c *Converter) histogram(samples []uint16) {
	for i := range c.hist {
		c.hist[i] = 0
	}
	for _, s := range samples {
		c.hist[s]++
	}
}

// rearrange sweeps bins low to high, dropping any bin with count below
// cutThresh, and returns the number of valid bins and valid pixels.
func (c *Converter) rearrange() (nValidBins int, nValidPixels uint64) {
	for i := range c.rearHist {
		c.rearHist[i] = 0
	}
	maxValidLevel := 0
	for i := 0; i < nBins; i++ {
		if c.hist[i] < uint64(c.opts.CutThresh) {
			c.rearMap[i] = uint16(nValidBins)
			continue
		}
		nValidBins++
		c.rearHist[nValidBins-1] = c.hist[i]
		c.rearMap[i] = uint16(nValidBins - 1)
		nValidPixels += c.hist[i]
		maxValidLevel = i
	}
	for i := maxValidLevel + 1; i < nBins; i++ {
		c.rearMap[i] = uint16(nValidBins - 1)
	}
	return nValidBins, nValidPixels
}

// clip performs the two-phase clip+redistribute: excess above clipLevel is
// first spread uniformly across every bin, then any pixels that still
// didn't fit (because some bins were already at or above clipLevel) are
// redistributed iteratively until nothing is left to place or a round
// places nothing.
func clip(hist []uint64, nBins int, clipLevel uint64) {
	var nClipped uint64
	for i := 0; i < nBins; i++ {
		if hist[i] > clipLevel {
			nClipped += hist[i] - clipLevel
		}
	}

	nRedist := nClipped / uint64(nBins)
	upper := clipLevel - nRedist

	for i := 0; i < nBins; i++ {
		switch {
		case hist[i] > clipLevel:
			hist[i] = clipLevel
		case hist[i] > upper:
			nClipped -= clipLevel - hist[i]
			hist[i] = clipLevel
		default:
			nClipped -= nRedist
			hist[i] += nRedist
		}
	}

	for {
		prev := nClipped
		for i := 0; i < nBins && nClipped > 0; i++ {
			step := nClipped / uint64(nBins)
			if step < 1 {
				step = 1
			}
			for j := i; j < nBins && nClipped > 0; j += int(step) {
				if hist[j] < clipLevel {
					nClipped--
					hist[j]++
				}
			}
		}
		if nClipped == 0 || nClipped >= prev {
			break
		}
	}
}

// stretch builds the cumulative stretch map from 0 to 255.
func stretch(hist []uint64, nBins int, nPixels uint64, out []byte) {
	var accum uint64
	scale := 255.0 / float64(nPixels)
	for i := 0; i < nBins; i++ {
		accum += hist[i]
		v := scale * float64(accum)
		if v > 255 {
			v = 255
		}
		out[i] = byte(v)
	}
}

// Apply converts one raw packed-14-bit IR frame into a packed YUV output,
// sized for the Converter's configured format. dst must be pre-sized by the
// caller to OutputSize().
func (c *Converter) Apply(raw []byte, dst []byte) error {
	w, h := c.opts.Width, c.opts.Height
	nPixels := w * h
	if len(raw) < 2*nPixels {
		return fmt.Errorf("clahe: raw frame too short: got %d bytes, want %d", len(raw), 2*nPixels)
	}
	if len(dst) < c.OutputSize() {
		return fmt.Errorf("clahe: dst too short: got %d bytes, want %d", len(dst), c.OutputSize())
	}

	samples := recombine(raw[:2*nPixels])
	c.histogram(samples)

	nValidBins, nValidPixels := c.rearrange()
	if nValidBins == 0 {
		return fmt.Errorf("clahe: no valid histogram bins (cutThresh too high for this frame)")
	}

	clipLevel := uint64(c.opts.ClipLimit * float64(w) * float64(h) / float64(nValidBins))
	clip(c.rearHist[:nValidBins], nValidBins, clipLevel)
	stretch(c.rearHist[:nValidBins], nValidBins, nValidPixels, c.stretch[:nValidBins])

	y := dst[:nPixels]
	for i, s := range samples {
		y[i] = c.stretch[c.rearMap[s]]
	}

	uv := dst[nPixels:c.OutputSize()]
	for i := range uv {
		uv[i] = uvFilledValue
	}
	return nil
}

// OutputSize is the packed byte size Apply's dst must have.
func (c *Converter) OutputSize() int {
	n := c.opts.Width * c.opts.Height
	switch c.opts.Format {
	case FormatYUV422:
		return n + n
	default: // FormatYUV420
		return n + c.opts.Width*(c.opts.Height/2)
	}
}
