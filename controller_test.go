package irfusion

import (
	"context"
	"testing"
	"time"

	"github.com/zlttech/irfusion/config"
	"github.com/zlttech/irfusion/registration"
)

func identityControlPoints() []registration.ControlPoint {
	return []registration.ControlPoint{
		{VisX: 0, VisY: 0, BaseX: 0, BaseY: 0},
		{VisX: 7, VisY: 0, BaseX: 7, BaseY: 0},
		{VisX: 0, VisY: 7, BaseX: 0, BaseY: 7},
		{VisX: 7, VisY: 7, BaseX: 7, BaseY: 7},
		{VisX: 3, VisY: 5, BaseX: 3, BaseY: 5},
		{VisX: 5, VisY: 3, BaseX: 5, BaseY: 3},
	}
}

func testOptions() config.Options {
	o := config.Defaults()
	o.Resolution = config.Resolution{Width: 8, Height: 8}
	o.PollIntervalMS = 1
	o.ShutdownGraceMS = 500
	return o
}

func TestNewThenStopWithoutStartNeverPanics(t *testing.T) {
	c, err := New(testOptions(), RegistrationSource{
		UnregWidth: 8, UnregHeight: 8, ControlPoints: identityControlPoints(),
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Stop() // must be a safe no-op; Start was never called.
}

func TestStartThenDoubleStopIsIdempotent(t *testing.T) {
	c, err := New(testOptions(), RegistrationSource{
		UnregWidth: 8, UnregHeight: 8, ControlPoints: identityControlPoints(),
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Stop()
	c.Stop() // second Stop must not block or panic.
}

func TestNewRejectsTooFewControlPoints(t *testing.T) {
	_, err := New(testOptions(), RegistrationSource{
		UnregWidth: 8, UnregHeight: 8, ControlPoints: identityControlPoints()[:2],
	}, nil)
	if err == nil {
		t.Fatal("New: want error for fewer than 3 control points")
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	o := testOptions()
	o.Resolution = config.Resolution{Width: 7, Height: 8}
	_, err := New(o, RegistrationSource{
		UnregWidth: 8, UnregHeight: 8, ControlPoints: identityControlPoints(),
	}, nil)
	if err == nil {
		t.Fatal("New: want error for odd width")
	}
}

func TestPipelineProducesFusedFrame(t *testing.T) {
	opts := testOptions()
	w, h := opts.Resolution.Width, opts.Resolution.Height

	c, err := New(opts, RegistrationSource{
		UnregWidth: w, UnregHeight: h, ControlPoints: identityControlPoints(),
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	// A uniform IR frame so every sample lands in one histogram bin and
	// clears CLAHE's cutThresh.
	irRaw := make([]byte, 2*w*h)
	for i := 0; i < w*h; i++ {
		irRaw[2*i] = 0x34
		irRaw[2*i+1] = 0x12
	}
	if err := c.PutInfrared(irRaw); err != nil {
		t.Fatalf("PutInfrared: %v", err)
	}

	visRaw := make([]byte, w*h*3/2)
	for i := 0; i < w*h; i++ {
		visRaw[i] = byte(128)
	}
	for i := w * h; i < len(visRaw); i++ {
		visRaw[i] = 0x80
	}
	if err := c.PutVisible(visRaw); err != nil {
		t.Fatalf("PutVisible: %v", err)
	}

	out := make([]byte, w*h*3/2)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.GetFused(out) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("GetFused: no fused frame within deadline")
}
