// Package compositor extracts the infrared bright feature against its
// reconstructed background, estimates a per-frame suppression gain from a
// histogram of the unsuppressed fusion image, and overlays the suppressed
// result onto the registered visible frame.
//
// Grounded on the source's suppress_bright_feature and the body of
// fusion_thread between the background-get and the final overlay add.
package compositor

import (
	"fmt"

	"github.com/zlttech/irfusion/pixel"
)

const (
	// Bins bins the unsuppressed fusion image is histogrammed into
	// (ngls in the source).
	Bins = 65536
	// DefaultSuppressionCeiling is the maximum suppression ratio (ssr).
	DefaultSuppressionCeiling = 0.8
	// DefaultBrightestFraction is the fraction of brightest pixels used to
	// estimate the suppression gain (bpr).
	DefaultBrightestFraction = 0.001
)

// Options configures a Compositor.
type Options struct {
	Width, Height int
	// SuppressionCeiling caps the suppression ratio (ssr); default 0.8.
	SuppressionCeiling float64
	// BrightestFraction selects the top slice of the usfn histogram used to
	// estimate the suppression gain (bpr); default 0.001.
	BrightestFraction float64
}

// DefaultOptions returns the source's defaults.
func DefaultOptions(width, height int) Options {
	return Options{Width: width, Height: height, SuppressionCeiling: DefaultSuppressionCeiling, BrightestFraction: DefaultBrightestFraction}
}

// Compositor holds the working histogram for one fixed frame geometry. Not
// safe for concurrent use; the pipeline holds exactly one Compositor per
// compositor worker.
type Compositor struct {
	opts Options
	hist []uint32
}

// New constructs a Compositor.
func New(opts Options) (*Compositor, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("compositor: invalid geometry %dx%d", opts.Width, opts.Height)
	}
	if opts.SuppressionCeiling <= 0 {
		opts.SuppressionCeiling = DefaultSuppressionCeiling
	}
	if opts.BrightestFraction <= 0 {
		opts.BrightestFraction = DefaultBrightestFraction
	}
	return &Compositor{opts: opts, hist: make([]uint32, Bins)}, nil
}

// Result carries every intermediate plane an observer may want to inspect,
// matching the source's separate gsci/regt/brft/rfbf/sbrf/fusn buffer
// exposure via fusion_get_*.
type Result struct {
	Bright     []byte   // rfbf precursor: gsci - bkg
	EstBack    []byte   // regt - gsci
	Refined    []byte   // bright - estBack; this is rfbf/brft
	Unsuppress []uint16 // regt + refined widened; usfn
	Suppressed []byte   // refined * sr; sbrf
	Fused      []byte   // regt + suppressed; i_fusn Y plane
	Ratio      float64  // sr actually applied
}

// Composite runs one fusion iteration over aligned Y-plane inputs: gsci (IR
// grayscale-compressed), bkg (reconstructed IR background), and regt
// (registered visible Y plane). All three must be Width*Height bytes.
func (c *Compositor) Composite(gsci, bkg, regt []byte) (*Result, error) {
	n := c.opts.Width * c.opts.Height
	if len(gsci) < n || len(bkg) < n || len(regt) < n {
		return nil, fmt.Errorf("compositor: input plane shorter than %d pixels", n)
	}

	bright := pixel.SubSaturate(gsci[:n], bkg[:n])
	estBack := pixel.SubSaturate(regt[:n], gsci[:n])
	refined := pixel.SubSaturate(bright, estBack)
	usfn := pixel.AddWiden(regt[:n], refined)

	ratio := c.suppressionRatio(usfn)
	suppressed := pixel.MulScalarSaturate(refined, ratio)
	fused := pixel.AddSaturate(regt[:n], suppressed)

	return &Result{
		Bright:     bright,
		EstBack:    estBack,
		Refined:    refined,
		Unsuppress: usfn,
		Suppressed: suppressed,
		Fused:      fused,
		Ratio:      ratio,
	}, nil
}

// suppressionRatio reproduces suppress_bright_feature's gain estimate: a
// histogram over usfn is walked from the brightest bin down, accumulating
// count and bin-weighted sum, until the brightest-pixel budget is
// exhausted; the mean of that slice determines how much the refined
// feature must be scaled down to land near full scale.
func (c *Compositor) suppressionRatio(usfn []uint16) float64 {
	for i := range c.hist {
		c.hist[i] = 0
	}
	for _, v := range usfn {
		c.hist[v]++
	}

	npixels := len(usfn)
	threshold := uint32(c.opts.BrightestFraction * float64(npixels))

	var brightCount uint32
	var weightedSum float64
	for i := Bins - 1; i >= 0; i-- {
		count := c.hist[i]
		if count == 0 {
			continue
		}
		brightCount += count
		weightedSum += float64(count) * float64(i)
		if brightCount > threshold {
			break
		}
	}

	if brightCount == 0 {
		return c.opts.SuppressionCeiling
	}

	mean := weightedSum / float64(brightCount)
	if mean == 0 {
		return c.opts.SuppressionCeiling
	}

	ratio := 255.0 / mean
	if ratio > c.opts.SuppressionCeiling {
		ratio = c.opts.SuppressionCeiling
	}
	return ratio
}
