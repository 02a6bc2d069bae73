// Package background reconstructs a smooth estimate of the IR frame's
// background by decomposing it into homogeneous blobs, fitting a bicubic
// Bézier patch to each from a min-filtered control grid, and Gaussian
// blurring the resulting mosaic.
//
// Internally it runs three workers — min-filter, quadtree-decompose, and
// patch-synthesis-plus-blur — joined by two internal ring buffers, mirroring
// the source's three-thread structure even though Go's scheduler makes the
// separate goroutines mostly about pipelining rather than necessity.
package background

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zlttech/irfusion/quadtree"
	"github.com/zlttech/irfusion/ring"
)

// blobRecordSize is the encoded size of one Blob: four int32 rectangle
// fields plus one int32 range.
const blobRecordSize = 5 * 4

// Options configures a Reconstructor.
type Options struct {
	Width, Height int
	MinBW, MinBH  int
	MinRange      int
	MinFilterSize int // kernel size, radius = size/2
	GaussSize     int
	GaussSigma    float64
	PollInterval  time.Duration
}

// DefaultOptions returns the source-derived defaults: minBW=12, minBH=9,
// minRange=78, min-filter size 11 (radius 5), Gaussian size 5, sigma 4.5.
func DefaultOptions(width, height int) Options {
	return Options{
		Width: width, Height: height,
		MinBW: 12, MinBH: 9, MinRange: 78,
		MinFilterSize: 11,
		GaussSize:     5,
		GaussSigma:    4.5,
		PollInterval:  5 * time.Millisecond,
	}
}

const caches = 4

// Reconstructor owns the internal rings and workers that turn a raw IR
// grayscale frame into a reconstructed background estimate. The raw frame is
// fanned out to two independent input rings at Put time so the min-filter
// and quadtree-decompose stages can each run as a genuine single-producer/
// single-consumer pipeline stage rather than racing over one shared ring.
type Reconstructor struct {
	opts Options
	log  *slog.Logger

	rawForMinFilter *ring.Ring
	rawForQuadtree  *ring.Ring
	outRing         *ring.Ring // reconstructed background out

	minfRing *ring.Ring // min-filtered frame, producer -> bezier stage
	blobRing *ring.Ring // encoded blob list, producer -> bezier stage

	blobBlockSize int // fixed-size encoded blob block, one per frame

	stop atomic.Bool
}

// maxLeaves bounds the number of leaves a decomposition can produce. A
// rectangle is split only while it is wider than minBW and taller than
// minBH, so every leaf of a split tree is at least (minBW+1)/2 wide and
// (minBH+1)/2 tall; since the leaves tile the image, their count is at most
// ceil(width*height / leafArea).
func maxLeaves(width, height, minBW, minBH int) int {
	leafArea := ((minBW + 1) / 2) * ((minBH + 1) / 2)
	return (width*height + leafArea - 1) / leafArea
}

// New constructs a Reconstructor. No goroutines are started until Start is
// called (two-phase construct-then-start, per the module's lifecycle rule).
func New(opts Options, log *slog.Logger) *Reconstructor {
	if log == nil {
		log = slog.Default()
	}
	frameSize := opts.Width * opts.Height
	blockSize := 4 + maxLeaves(opts.Width, opts.Height, opts.MinBW, opts.MinBH)*blobRecordSize
	return &Reconstructor{
		opts:            opts,
		log:             log,
		rawForMinFilter: ring.New(uint32(caches * frameSize)),
		rawForQuadtree:  ring.New(uint32(caches * frameSize)),
		outRing:         ring.New(uint32(caches * frameSize)),
		minfRing:        ring.New(uint32(caches * frameSize)),
		blobRing:        ring.New(uint32(caches * blockSize)),
		blobBlockSize:   blockSize,
	}
}

// Put enqueues one raw grayscale IR frame for reconstruction, fanning it out
// to both internal pipeline branches. A frame is considered accepted only
// if both branches had room for it.
func (r *Reconstructor) Put(raw []byte) bool {
	n1 := r.rawForMinFilter.Put(raw)
	n2 := r.rawForQuadtree.Put(raw)
	return int(n1) == len(raw) && int(n2) == len(raw)
}

// Get dequeues one reconstructed background frame, if ready.
func (r *Reconstructor) Get(out []byte) bool {
	n := r.outRing.Get(out)
	return int(n) == len(out)
}

// Start launches the internal worker goroutines.
func (r *Reconstructor) Start() {
	go r.minFilterWorker()
	go r.quadtreeWorker()
	go r.bezierWorker()
}

// Stop signals every worker to exit on its next iteration.
func (r *Reconstructor) Stop() {
	r.stop.Store(true)
}

// Stats is a snapshot of four of the reconstructor's five internal rings,
// for the controller's aggregated observability surface. The min-filter
// stage's input ring is not reported.
type Stats struct {
	MinFilterRing ring.Stats
	QuadtreeRing  ring.Stats
	BlobRing      ring.Stats
	OutputRing    ring.Stats
}

// Stats returns a snapshot of the reported rings' traffic counters.
func (r *Reconstructor) Stats() Stats {
	return Stats{
		MinFilterRing: r.minfRing.Stats(),
		QuadtreeRing:  r.rawForQuadtree.Stats(),
		BlobRing:      r.blobRing.Stats(),
		OutputRing:    r.outRing.Stats(),
	}
}

func (r *Reconstructor) sleep() {
	time.Sleep(r.opts.PollInterval)
}

// minFilterWorker reads raw frames and publishes their min-filtered version.
func (r *Reconstructor) minFilterWorker() {
	w, h := r.opts.Width, r.opts.Height
	frameSize := w * h
	radius := r.opts.MinFilterSize / 2
	raw := make([]byte, frameSize)

	for !r.stop.Load() {
		if n := r.rawForMinFilter.Get(raw); int(n) != frameSize {
			r.sleep()
			continue
		}
		filtered := minFilter(raw, w, h, radius)
		if n := r.minfRing.Put(filtered); int(n) != frameSize {
			r.log.Warn("reconstructor: min-filter ring full, dropping frame")
		}
	}
}

// quadtreeWorker reads raw frames and publishes an encoded leaf-blob list.
func (r *Reconstructor) quadtreeWorker() {
	w, h := r.opts.Width, r.opts.Height
	frameSize := w * h
	raw := make([]byte, frameSize)

	for !r.stop.Load() {
		if n := r.rawForQuadtree.Get(raw); int(n) != frameSize {
			r.sleep()
			continue
		}
		tree := quadtree.New(raw, w, h, r.opts.MinBW, r.opts.MinBH, r.opts.MinRange)
		tree.Decompose()
		encoded := encodeBlobs(tree.Leaves(), r.blobBlockSize)
		if n := r.blobRing.Put(encoded); int(n) != len(encoded) {
			r.log.Warn("reconstructor: blob ring full, dropping frame")
		}
	}
}

// bezierWorker joins a min-filtered frame with its blob list and synthesizes
// the Bézier mosaic, then Gaussian-blurs it into the output ring. A
// min-filtered frame already read is held until its blob list arrives.
func (r *Reconstructor) bezierWorker() {
	w, h := r.opts.Width, r.opts.Height
	frameSize := w * h
	minf := make([]byte, frameSize)
	blobBuf := make([]byte, r.blobBlockSize)

	haveMinf := false
	for !r.stop.Load() {
		if !haveMinf {
			if n := r.minfRing.Get(minf); int(n) != frameSize {
				r.sleep()
				continue
			}
			haveMinf = true
		}
		if n := r.blobRing.Get(blobBuf); int(n) != r.blobBlockSize {
			r.sleep()
			continue
		}
		haveMinf = false
		blobs := decodeBlobs(blobBuf)

		mosaic := make([]byte, frameSize)
		for _, b := range blobs {
			bw := b.Quad.Right - b.Quad.Left + 1
			bh := b.Quad.Bottom - b.Quad.Top + 1
			bezierPatch(minf, w, b.Quad.Top, b.Quad.Left, bw, bh, mosaic, w)
		}

		blurred := gaussianBlur(mosaic, w, h, r.opts.GaussSize, r.opts.GaussSigma)
		if n := r.outRing.Put(blurred); int(n) != frameSize {
			r.log.Warn("reconstructor: output ring full, dropping frame")
		}
	}
}
