// Package recorder periodically snapshots fused frames to PNG files on
// disk, a minimal stand-in for the source's vsg_ring/vsg_stream/vsg_recorder
// trio. Those files implement a full RTSP-capture-backed video recorder;
// this package keeps only the part that is not already the out-of-scope
// capture/display boundary — a frame counter gating a periodic dump — and
// leaves RTSP muxing, AVPacket ring slots, and stream probing out entirely.
package recorder

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// Recorder dumps every Nth frame handed to it as a PNG file under Dir,
// counting frames the way the source's ring_zone_t counts filled slots
// before advancing its write cursor.
type Recorder struct {
	dir     string
	every   int
	count   int
	written int
}

// New constructs a Recorder that writes one PNG per `every` frames into
// dir, creating dir if it does not exist.
func New(dir string, every int) (*Recorder, error) {
	if every <= 0 {
		every = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: creating %s: %w", dir, err)
	}
	return &Recorder{dir: dir, every: every}, nil
}

// Offer hands the recorder one frame. It is written to disk only every
// `every` calls; Offer reports whether this call resulted in a write.
func (r *Recorder) Offer(img image.Image) (bool, error) {
	r.count++
	if r.count%r.every != 0 {
		return false, nil
	}
	path := filepath.Join(r.dir, fmt.Sprintf("frame-%06d.png", r.written))
	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("recorder: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return false, fmt.Errorf("recorder: encoding %s: %w", path, err)
	}
	r.written++
	return true, nil
}

// Written reports how many frames have actually been dumped to disk.
func (r *Recorder) Written() int {
	return r.written
}
