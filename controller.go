// Package irfusion wires the CLAHE preprocessor, registration warp,
// quadtree/Bézier background reconstructor, and fusion compositor into one
// running pipeline, following the two-phase construct-then-start lifecycle
// the reference pack's orion.go uses for its own service orchestrator.
package irfusion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zlttech/irfusion/background"
	"github.com/zlttech/irfusion/clahe"
	"github.com/zlttech/irfusion/compositor"
	"github.com/zlttech/irfusion/config"
	"github.com/zlttech/irfusion/errorsx"
	"github.com/zlttech/irfusion/frame"
	"github.com/zlttech/irfusion/registration"
	"github.com/zlttech/irfusion/ring"
)

// RegistrationSource supplies the inputs needed to build (or load) the
// affine warp table. ControlPoints are always required: New solves the
// affine from them on every call. When RowCachePath and ColCachePath are
// both set, a table cached there under a matching Fingerprint is loaded
// instead of being rebuilt from that affine.
type RegistrationSource struct {
	UnregWidth, UnregHeight int
	ControlPoints           []registration.ControlPoint
	Fingerprint             string
	RowCachePath            string // optional; empty skips disk caching.
	ColCachePath            string
}

// Controller owns every ring, subcomponent, and worker goroutine in the
// fusion pipeline. The zero value is not usable; construct with New.
type Controller struct {
	opts   config.Options
	log    *slog.Logger
	pipeID string

	unregWidth, unregHeight int

	irRaw              *ring.Ring
	visRaw             *ring.Ring
	gsciTap            *ring.Ring
	gsciY              *ring.Ring
	regtTap            *ring.Ring
	regtForCompositor  *ring.Ring
	fused              *ring.Ring
	bright             *ring.Ring

	clahe         *clahe.Converter
	regTable      *registration.Table
	reconstructor *background.Reconstructor
	compositor    *compositor.Compositor

	stop    atomic.Bool
	wg      sync.WaitGroup
	running atomic.Bool
}

// New validates opts, solves or loads the registration table, and
// constructs every subcomponent and ring. No goroutine is started; a
// failed New never leaves a worker running.
func New(opts config.Options, reg RegistrationSource, log *slog.Logger) (*Controller, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := config.Validate(&opts); err != nil {
		return nil, fmt.Errorf("%w: %v", errorsx.ErrConfiguration, err)
	}

	baseW, baseH := opts.Resolution.Width, opts.Resolution.Height

	matrix, err := registration.SolveAffine(reg.ControlPoints)
	if err != nil {
		return nil, fmt.Errorf("%w: solving registration affine: %w", errorsx.ErrConfiguration, err)
	}

	var table *registration.Table
	if reg.RowCachePath != "" && reg.ColCachePath != "" {
		table, err = registration.LoadOrBuildTable(matrix, baseW, baseH, reg.Fingerprint, reg.RowCachePath, reg.ColCachePath)
	} else {
		table = registration.BuildTable(matrix, baseW, baseH)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: building registration table: %w", errorsx.ErrConfiguration, err)
	}

	chromaFormat := clahe.FormatYUV420
	switch opts.RawFormat {
	case config.FormatYUV420:
		chromaFormat = clahe.FormatYUV420
	case config.FormatYUV422:
		chromaFormat = clahe.FormatYUV422
	default:
		return nil, fmt.Errorf("%w: raw_format %q is not a pixel layout the fusion core can emit (only yuv420/yuv422)", errorsx.ErrConfiguration, opts.RawFormat)
	}

	cv, err := clahe.New(clahe.Options{
		Width:     baseW,
		Height:    baseH,
		CutThresh: opts.CutThresh,
		ClipLimit: opts.ClipLimit,
		Format:    chromaFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: constructing clahe converter: %w", errorsx.ErrResource, err)
	}

	cp, err := compositor.New(compositor.Options{
		Width:               baseW,
		Height:              baseH,
		SuppressionCeiling:  opts.MaxSuppressionRatio,
		BrightestFraction:   opts.BrightestPixelFraction,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: constructing compositor: %w", errorsx.ErrResource, err)
	}

	bgOpts := background.DefaultOptions(baseW, baseH)
	bgOpts.MinBW = opts.MinBlockWidth
	bgOpts.MinBH = opts.MinBlockHeight
	bgOpts.MinRange = opts.MinRange
	bgOpts.MinFilterSize = opts.MinFilterSize
	bgOpts.GaussSigma = opts.GaussianSigma
	bgOpts.PollInterval = time.Duration(opts.PollIntervalMS) * time.Millisecond
	reconstructor := background.New(bgOpts, log.With(slog.String("stage", "background")))

	caches := uint32(opts.RingCaches)
	rawIRSize := uint32(2 * baseW * baseH)
	unregSize := uint32(reg.UnregWidth * reg.UnregHeight * 3 / 2)
	yPlaneSize := uint32(baseW * baseH)
	basePackedSize := uint32(baseW * baseH * 3 / 2)

	c := &Controller{
		opts:              opts,
		log:               log,
		pipeID:            uuid.NewString(),
		unregWidth:        reg.UnregWidth,
		unregHeight:       reg.UnregHeight,
		irRaw:             ring.New(caches * rawIRSize),
		visRaw:            ring.New(caches * unregSize),
		gsciTap:           ring.New(caches * uint32(cv.OutputSize())),
		gsciY:             ring.New(caches * yPlaneSize),
		regtTap:           ring.New(caches * basePackedSize),
		regtForCompositor: ring.New(caches * basePackedSize),
		fused:             ring.New(caches * basePackedSize),
		bright:            ring.New(caches * yPlaneSize),
		clahe:             cv,
		regTable:          table,
		reconstructor:     reconstructor,
		compositor:        cp,
	}
	return c, nil
}

// PutInfrared enqueues one raw IR frame (2 bytes/pixel, base geometry).
func (c *Controller) PutInfrared(raw []byte) error {
	want := 2 * c.opts.Resolution.Width * c.opts.Resolution.Height
	if len(raw) != want {
		return fmt.Errorf("irfusion: infrared frame is %d bytes, want %d", len(raw), want)
	}
	if n := c.irRaw.Put(raw); int(n) != len(raw) {
		return fmt.Errorf("irfusion: infrared ring full, frame dropped")
	}
	return nil
}

// PutVisible enqueues one raw visible YUV 4:2:0 frame (unreg geometry).
func (c *Controller) PutVisible(raw []byte) error {
	want := c.unregWidth * c.unregHeight * 3 / 2
	if len(raw) != want {
		return fmt.Errorf("irfusion: visible frame is %d bytes, want %d", len(raw), want)
	}
	if n := c.visRaw.Put(raw); int(n) != len(raw) {
		return fmt.Errorf("irfusion: visible ring full, frame dropped")
	}
	return nil
}

// GetFused dequeues one fused YUV 4:2:0 frame, if ready.
func (c *Controller) GetFused(out []byte) bool {
	return int(c.fused.Get(out)) == len(out)
}

// GetInfraredGSCI dequeues one grayscale-compressed IR frame, if ready.
func (c *Controller) GetInfraredGSCI(out []byte) bool {
	return int(c.gsciTap.Get(out)) == len(out)
}

// GetRegisteredVisible dequeues one registered visible frame, if ready.
func (c *Controller) GetRegisteredVisible(out []byte) bool {
	return int(c.regtTap.Get(out)) == len(out)
}

// GetBrightFeature dequeues one suppressed bright-feature plane, if ready.
func (c *Controller) GetBrightFeature(out []byte) bool {
	return int(c.bright.Get(out)) == len(out)
}

// ControllerStats aggregates every ring's traffic counters plus the
// background reconstructor's internal stats, for polling-based metrics
// export.
type ControllerStats struct {
	InfraredIn        ring.Stats
	VisibleIn         ring.Stats
	GSCITap           ring.Stats
	RegisteredTap     ring.Stats
	FusedOut          ring.Stats
	BrightFeatureOut  ring.Stats
	Background        background.Stats
	Running           bool
}

// Stats returns a snapshot of the controller's observability surface.
func (c *Controller) Stats() ControllerStats {
	return ControllerStats{
		InfraredIn:       c.irRaw.Stats(),
		VisibleIn:        c.visRaw.Stats(),
		GSCITap:          c.gsciTap.Stats(),
		RegisteredTap:    c.regtTap.Stats(),
		FusedOut:         c.fused.Stats(),
		BrightFeatureOut: c.bright.Stats(),
		Background:       c.reconstructor.Stats(),
		Running:          c.running.Load(),
	}
}

// Start launches every worker goroutine. Start is idempotent: calling it
// again while already running is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}
	c.log.Info("fusion pipeline starting", slog.String("trace_id", c.pipeID))
	c.reconstructor.Start()

	c.wg.Add(3)
	go c.runWorker(ctx, "ir-preprocess", c.irPreprocessWorker)
	go c.runWorker(ctx, "visible-preprocess", c.visPreprocessWorker)
	go c.runWorker(ctx, "compositor", c.compositorWorker)
	return nil
}

// Stop signals every worker to exit and waits up to the configured grace
// period for them to do so. Stop is idempotent.
func (c *Controller) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.stop.Store(true)
	c.reconstructor.Stop()

	grace := time.Duration(c.opts.ShutdownGraceMS) * time.Millisecond
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		c.log.Info("fusion pipeline stopped", slog.String("trace_id", c.pipeID))
	case <-time.After(grace):
		c.log.Warn("fusion pipeline shutdown grace period elapsed with workers still running", slog.String("trace_id", c.pipeID))
	}
}

func (c *Controller) runWorker(ctx context.Context, stage string, fn func(ctx context.Context)) {
	defer c.wg.Done()
	c.log.Info("worker starting", slog.String("stage", stage), slog.String("trace_id", c.pipeID))
	fn(ctx)
	c.log.Info("worker stopped", slog.String("stage", stage), slog.String("trace_id", c.pipeID))
}

func (c *Controller) sleep() {
	time.Sleep(time.Duration(c.opts.PollIntervalMS) * time.Millisecond)
}

func (c *Controller) done(ctx context.Context) bool {
	if c.stop.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// irPreprocessWorker converts raw IR frames to grayscale-compressed YUV via
// CLAHE, fanning the Y plane out to the background reconstructor and the
// compositor's internal ring while also publishing the full frame to the
// external tap.
func (c *Controller) irPreprocessWorker(ctx context.Context) {
	w, h := c.opts.Resolution.Width, c.opts.Resolution.Height
	rawSize := 2 * w * h
	raw := make([]byte, rawSize)
	gsciPacked := make([]byte, c.clahe.OutputSize())

	for !c.done(ctx) {
		if n := c.irRaw.Get(raw); int(n) != rawSize {
			c.sleep()
			continue
		}
		if err := c.clahe.Apply(raw, gsciPacked); err != nil {
			c.log.Warn("ir preprocess: clahe apply failed", "error", err, slog.String("trace_id", c.pipeID))
			continue
		}
		if n := c.gsciTap.Put(gsciPacked); int(n) != len(gsciPacked) {
			c.log.Warn("ir preprocess: gsci tap ring full, frame dropped", slog.String("trace_id", c.pipeID))
		}
		yPlane := gsciPacked[:w*h]
		c.reconstructor.Put(yPlane)
		if n := c.gsciY.Put(yPlane); int(n) != len(yPlane) {
			c.log.Warn("ir preprocess: gsci-y ring full, frame dropped", slog.String("trace_id", c.pipeID))
		}
	}
}

// visPreprocessWorker warps raw visible frames into base geometry via the
// registration table, fanning the result out to the external tap and the
// compositor's internal ring.
func (c *Controller) visPreprocessWorker(ctx context.Context) {
	baseW, baseH := c.opts.Resolution.Width, c.opts.Resolution.Height
	unregSize := c.unregWidth * c.unregHeight * 3 / 2
	raw := make([]byte, unregSize)
	regtPacked := make([]byte, baseW*baseH*3/2)

	for !c.done(ctx) {
		if n := c.visRaw.Get(raw); int(n) != unregSize {
			c.sleep()
			continue
		}
		src, err := frame.WrapYUV420(raw, c.unregWidth, c.unregHeight)
		if err != nil {
			c.log.Error("visible preprocess: wrap source frame", "error", err, slog.String("trace_id", c.pipeID))
			continue
		}
		dst, err := frame.NewYUV420(baseW, baseH)
		if err != nil {
			c.log.Error("visible preprocess: allocate destination frame", "error", err, slog.String("trace_id", c.pipeID))
			continue
		}
		if err := registration.Warp(c.regTable, src, dst); err != nil {
			c.log.Warn("visible preprocess: warp failed", "error", err, slog.String("trace_id", c.pipeID))
			continue
		}
		if c.opts.Style == config.StyleGray {
			for i := range dst.Cb {
				dst.Cb[i] = 0x80
				dst.Cr[i] = 0x80
			}
		}
		if err := dst.Pack(regtPacked); err != nil {
			c.log.Error("visible preprocess: pack destination frame", "error", err, slog.String("trace_id", c.pipeID))
			continue
		}
		if n := c.regtTap.Put(regtPacked); int(n) != len(regtPacked) {
			c.log.Warn("visible preprocess: regt tap ring full, frame dropped", slog.String("trace_id", c.pipeID))
		}
		if n := c.regtForCompositor.Put(regtPacked); int(n) != len(regtPacked) {
			c.log.Warn("visible preprocess: regt-compositor ring full, frame dropped", slog.String("trace_id", c.pipeID))
		}
	}
}

// compositorWorker joins the IR grayscale plane, the reconstructed
// background, and the registered visible frame into the final fused
// output. It reads gsci, then regt, then bkg; a plane already read is held
// across iterations until the remaining inputs are ready, so each
// composite takes one frame from each of the three rings.
func (c *Controller) compositorWorker(ctx context.Context) {
	w, h := c.opts.Resolution.Width, c.opts.Resolution.Height
	yPlaneSize := w * h
	basePackedSize := w * h * 3 / 2

	gsciY := make([]byte, yPlaneSize)
	regtBuf := make([]byte, basePackedSize)
	bkgY := make([]byte, yPlaneSize)
	fusedFrame, err := frame.NewYUV420(w, h)
	if err != nil {
		c.log.Error("compositor: allocate fused frame", "error", err, slog.String("trace_id", c.pipeID))
		return
	}
	fusedPacked := make([]byte, fusedFrame.Size())

	haveGsci, haveRegt := false, false
	for !c.done(ctx) {
		if !haveGsci {
			if n := c.gsciY.Get(gsciY); int(n) != yPlaneSize {
				c.sleep()
				continue
			}
			haveGsci = true
		}
		if !haveRegt {
			if n := c.regtForCompositor.Get(regtBuf); int(n) != basePackedSize {
				c.sleep()
				continue
			}
			haveRegt = true
		}
		if !c.reconstructor.Get(bkgY) {
			c.sleep()
			continue
		}
		haveGsci, haveRegt = false, false

		regt, err := frame.WrapYUV420(regtBuf, w, h)
		if err != nil {
			c.log.Error("compositor: wrap registered frame", "error", err, slog.String("trace_id", c.pipeID))
			continue
		}

		result, err := c.compositor.Composite(gsciY, bkgY, regt.Y)
		if err != nil {
			c.log.Warn("compositor: composite failed", "error", err, slog.String("trace_id", c.pipeID))
			continue
		}

		copy(fusedFrame.Y, result.Fused)
		if c.opts.Style == config.StyleColor {
			copy(fusedFrame.Cb, regt.Cb)
			copy(fusedFrame.Cr, regt.Cr)
		} else {
			for i := range fusedFrame.Cb {
				fusedFrame.Cb[i] = 0x80
				fusedFrame.Cr[i] = 0x80
			}
		}
		if err := fusedFrame.Pack(fusedPacked); err != nil {
			c.log.Error("compositor: pack fused frame", "error", err, slog.String("trace_id", c.pipeID))
			continue
		}

		if n := c.fused.Put(fusedPacked); int(n) != len(fusedPacked) {
			c.log.Warn("compositor: fused ring full, frame dropped", slog.String("trace_id", c.pipeID))
		}
		if n := c.bright.Put(result.Suppressed); int(n) != len(result.Suppressed) {
			c.log.Warn("compositor: bright-feature ring full, frame dropped", slog.String("trace_id", c.pipeID))
		}
	}
}
