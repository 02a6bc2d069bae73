// Command fusiondemo runs the CLAHE/registration/background/compositor
// pipeline end to end against synthetic frames, standing in for the
// reference pack's RTSP-capture-backed demos where no real IR/visible
// camera pair is available.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zlttech/irfusion"
	"github.com/zlttech/irfusion/config"
	"github.com/zlttech/irfusion/frame"
	"github.com/zlttech/irfusion/recorder"
	"github.com/zlttech/irfusion/registration"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML options file (defaults are used if empty)")
	controlPointsPath := flag.String("control-points", "", "path to a visible->base control point file (synthetic identity points are used if empty)")
	outputDir := flag.String("output", "", "directory to dump fused frames as PNG (disabled if empty)")
	dumpEvery := flag.Int("dump-every", 10, "dump one fused frame every N produced")
	frameCount := flag.Int("frames", 60, "number of synthetic frame pairs to feed the pipeline")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received, stopping gracefully")
		cancel()
	}()

	if err := run(ctx, *configPath, *controlPointsPath, *outputDir, *dumpEvery, *frameCount, logger); err != nil {
		logger.Error("fusiondemo failed", "error", err)
		os.Exit(1)
	}
	logger.Info("fusiondemo stopped gracefully")
}

func run(ctx context.Context, configPath, controlPointsPath, outputDir string, dumpEvery, frameCount int, logger *slog.Logger) error {
	opts := config.Defaults()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		opts = *loaded
	}
	w, h := opts.Resolution.Width, opts.Resolution.Height

	points, err := loadControlPoints(controlPointsPath, w, h)
	if err != nil {
		return fmt.Errorf("loading control points: %w", err)
	}

	pipeline, err := irfusion.New(opts, irfusion.RegistrationSource{
		UnregWidth:    w,
		UnregHeight:   h,
		ControlPoints: points,
	}, logger)
	if err != nil {
		return fmt.Errorf("constructing pipeline: %w", err)
	}
	if err := pipeline.Start(ctx); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer pipeline.Stop()

	var rec *recorder.Recorder
	if outputDir != "" {
		rec, err = recorder.New(outputDir, dumpEvery)
		if err != nil {
			return fmt.Errorf("creating recorder: %w", err)
		}
		logger.Info("frame dumping enabled", "dir", outputDir, "every", dumpEvery)
	}

	irBuf := make([]byte, 2*w*h)
	visBuf := make([]byte, w*h*3/2)
	fusedBuf := make([]byte, w*h*3/2)

	statsTick := time.NewTicker(2 * time.Second)
	defer statsTick.Stop()

	for i := 0; i < frameCount; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		synthesizeInfrared(irBuf, w, h, i)
		synthesizeVisible(visBuf, w, h, i)

		if err := pipeline.PutInfrared(irBuf); err != nil {
			logger.Warn("put infrared", "error", err)
		}
		if err := pipeline.PutVisible(visBuf); err != nil {
			logger.Warn("put visible", "error", err)
		}

		if pipeline.GetFused(fusedBuf) && rec != nil {
			fused, err := frame.WrapYUV420(fusedBuf, w, h)
			if err != nil {
				logger.Warn("decode fused frame for dump", "error", err)
			} else if wrote, err := rec.Offer(fused.ToYCbCr()); err != nil {
				logger.Warn("dump fused frame", "error", err)
			} else if wrote {
				logger.Debug("dumped fused frame", "seq", i)
			}
		}

		select {
		case <-statsTick.C:
			logStats(logger, pipeline.Stats())
		default:
		}

		time.Sleep(20 * time.Millisecond)
	}

	logStats(logger, pipeline.Stats())
	return nil
}

func loadControlPoints(path string, w, h int) ([]registration.ControlPoint, error) {
	if path == "" {
		return identityControlPoints(w, h), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return registration.LoadControlPoints(data)
}

// identityControlPoints synthesizes a visible->base mapping that leaves
// geometry unchanged, for demo runs with no real registration survey data.
func identityControlPoints(w, h int) []registration.ControlPoint {
	x1, y1 := float64(w-1), float64(h-1)
	return []registration.ControlPoint{
		{VisX: 0, VisY: 0, BaseX: 0, BaseY: 0},
		{VisX: x1, VisY: 0, BaseX: x1, BaseY: 0},
		{VisX: 0, VisY: y1, BaseX: 0, BaseY: y1},
		{VisX: x1, VisY: y1, BaseX: x1, BaseY: y1},
		{VisX: x1 / 2, VisY: y1 / 3, BaseX: x1 / 2, BaseY: y1 / 3},
		{VisX: x1 / 3, VisY: y1 / 2, BaseX: x1 / 3, BaseY: y1 / 2},
	}
}

// synthesizeInfrared fills raw with a little-endian 16-bit grayscale frame
// carrying a bright square that drifts across the field, standing in for a
// thermal sensor's hot-spot reading.
func synthesizeInfrared(raw []byte, w, h, frameIdx int) {
	const base = 0x1000
	const hot = 0xE000
	sz := 6
	cx := frameIdx % (w - sz)
	cy := (h - sz) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint16(base)
			if x >= cx && x < cx+sz && y >= cy && y < cy+sz {
				v = hot
			}
			off := 2 * (y*w + x)
			raw[off] = byte(v)
			raw[off+1] = byte(v >> 8)
		}
	}
}

// synthesizeVisible fills raw with a 4:2:0 frame carrying a horizontal
// gradient in Y and neutral chroma, standing in for a visible-light sensor.
func synthesizeVisible(raw []byte, w, h, frameIdx int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			raw[y*w+x] = byte((x*255)/(w-1)) + byte(frameIdx%8)
		}
	}
	for i := w * h; i < len(raw); i++ {
		raw[i] = 0x80
	}
}

func logStats(logger *slog.Logger, s irfusion.ControllerStats) {
	logger.Info("pipeline stats",
		"infrared_in_puts", s.InfraredIn.Puts,
		"visible_in_puts", s.VisibleIn.Puts,
		"fused_out_gets", s.FusedOut.Gets,
		"bright_out_gets", s.BrightFeatureOut.Gets,
		"running", s.Running,
	)
}
