package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsMatchDocumentedTable(t *testing.T) {
	d := Defaults()
	if d.NumGrayLevels != 65536 {
		t.Errorf("NumGrayLevels = %d, want 65536", d.NumGrayLevels)
	}
	if d.MaxSuppressionRatio != 0.8 {
		t.Errorf("MaxSuppressionRatio = %f, want 0.8", d.MaxSuppressionRatio)
	}
	if d.BrightestPixelFraction != 0.001 {
		t.Errorf("BrightestPixelFraction = %f, want 0.001", d.BrightestPixelFraction)
	}
	if d.MinBlockWidth != 12 || d.MinBlockHeight != 9 || d.MinRange != 78 {
		t.Errorf("quadtree thresholds = %d/%d/%d, want 12/9/78", d.MinBlockWidth, d.MinBlockHeight, d.MinRange)
	}
	if d.MinFilterSize != 11 {
		t.Errorf("MinFilterSize = %d, want 11", d.MinFilterSize)
	}
	if d.GaussianSigma != 4.5 {
		t.Errorf("GaussianSigma = %f, want 4.5", d.GaussianSigma)
	}
	if d.CutThresh != 4 || d.ClipLimit != 1.0 {
		t.Errorf("CLAHE defaults = %d/%f, want 4/1.0", d.CutThresh, d.ClipLimit)
	}
	if d.Style != StyleColor {
		t.Errorf("Style = %q, want color", d.Style)
	}
	if d.RawFormat != FormatYUV420 {
		t.Errorf("RawFormat = %q, want yuv420", d.RawFormat)
	}
	if d.Resolution != (Resolution{Width: 640, Height: 480}) {
		t.Errorf("Resolution = %+v, want 640x480", d.Resolution)
	}
	if d.RingCaches != 4 {
		t.Errorf("RingCaches = %d, want 4", d.RingCaches)
	}
	if d.ShutdownGraceMS != 1000 {
		t.Errorf("ShutdownGraceMS = %d, want 1000", d.ShutdownGraceMS)
	}
	if d.PollIntervalMS != 5 {
		t.Errorf("PollIntervalMS = %d, want 5", d.PollIntervalMS)
	}
	if d.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", d.LogLevel)
	}
	if err := Validate(&d); err != nil {
		t.Fatalf("Validate(Defaults()): %v", err)
	}
}

func TestLoadOverlaysPartialDocumentOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion.yaml")
	doc := "clip_limit: 2.5\nstyle: gray\nraw_reso:\n  width: 384\n  height: 288\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.ClipLimit != 2.5 {
		t.Errorf("ClipLimit = %f, want 2.5 (from document)", opts.ClipLimit)
	}
	if opts.Style != StyleGray {
		t.Errorf("Style = %q, want gray (from document)", opts.Style)
	}
	if opts.Resolution != (Resolution{Width: 384, Height: 288}) {
		t.Errorf("Resolution = %+v, want 384x288 (from document)", opts.Resolution)
	}
	// Untouched fields must retain their defaults.
	if opts.MinFilterSize != 11 {
		t.Errorf("MinFilterSize = %d, want 11 (untouched default)", opts.MinFilterSize)
	}
	if opts.NumGrayLevels != 65536 {
		t.Errorf("NumGrayLevels = %d, want 65536 (untouched default)", opts.NumGrayLevels)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load: want error for missing file")
	}
}

func TestValidateRejectsOddResolution(t *testing.T) {
	o := Defaults()
	o.Resolution = Resolution{Width: 641, Height: 480}
	if err := Validate(&o); err == nil {
		t.Fatal("Validate: want error for odd width")
	}
}

func TestValidateRejectsUnknownStyle(t *testing.T) {
	o := Defaults()
	o.Style = "sepia"
	if err := Validate(&o); err == nil {
		t.Fatal("Validate: want error for unknown style")
	}
}

func TestValidateRejectsEvenMinFilterSize(t *testing.T) {
	o := Defaults()
	o.MinFilterSize = 10
	if err := Validate(&o); err == nil {
		t.Fatal("Validate: want error for even mf_size")
	}
}
