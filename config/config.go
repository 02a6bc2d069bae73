// Package config loads and validates the YAML-driven options the fusion
// pipeline is constructed from, following the load-unmarshal-validate shape
// used throughout the reference pack's service configs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RingMode names a ring buffer overflow policy. Validate accepts both
// values, but the Controller does not read RingMode: every ring drops on
// full whichever mode is set.
type RingMode string

const (
	// RingModeDrop is the default lossy-on-full policy.
	RingModeDrop RingMode = "drop"
	// RingModeBlock names a stall-the-producer policy. No ring implements
	// it; a ring configured this way still drops on full.
	RingModeBlock RingMode = "block"
)

// Style selects the fusion output's chroma source.
type Style string

const (
	// StyleColor copies the registered visible frame's chroma plane.
	StyleColor Style = "color"
	// StyleGray fills the chroma plane with the neutral value.
	StyleGray Style = "gray"
)

// RawFormat selects the output pixel layout.
type RawFormat string

const (
	FormatYUV422 RawFormat = "yuv422"
	FormatYUV420 RawFormat = "yuv420"
	FormatRGB    RawFormat = "rgb"
	FormatRGBA   RawFormat = "rgba"
)

// Resolution is a caller-selected output frame geometry.
type Resolution struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Options is the complete set of tunables the fusion Controller is built
// from. NumGrayLevels, LogLevel and RingMode are validated but not read by
// the Controller: the compositor histogram always has compositor.Bins
// (65536) bins, log output goes to the logger passed to irfusion.New, and
// every ring drops on full.
type Options struct {
	NumGrayLevels           int        `yaml:"ngls"`
	MaxSuppressionRatio     float64    `yaml:"ssr"`
	BrightestPixelFraction  float64    `yaml:"bpr"`
	MinBlockWidth           int        `yaml:"min_bw"`
	MinBlockHeight          int        `yaml:"min_bh"`
	MinRange                int        `yaml:"min_range"`
	MinFilterSize           int        `yaml:"mf_size"`
	GaussianSigma           float64    `yaml:"gf_sigma"`
	CutThresh               int        `yaml:"cut_thresh"`
	ClipLimit               float64    `yaml:"clip_limit"`
	Style                   Style      `yaml:"style"`
	RawFormat               RawFormat  `yaml:"raw_format"`
	Resolution              Resolution `yaml:"raw_reso"`
	RingCaches              int        `yaml:"ring_caches"`
	ShutdownGraceMS         int        `yaml:"shutdown_grace_ms"`
	PollIntervalMS          int        `yaml:"poll_interval_ms"`
	LogLevel                string     `yaml:"log_level"`
	RingMode                RingMode   `yaml:"ring_mode"`
}

// Defaults returns the pipeline's documented default option set.
func Defaults() Options {
	return Options{
		NumGrayLevels:          65536,
		MaxSuppressionRatio:    0.8,
		BrightestPixelFraction: 0.001,
		MinBlockWidth:          12,
		MinBlockHeight:         9,
		MinRange:               78,
		MinFilterSize:          11,
		GaussianSigma:          4.5,
		CutThresh:              4,
		ClipLimit:              1.0,
		Style:                  StyleColor,
		RawFormat:              FormatYUV420,
		Resolution:             Resolution{Width: 640, Height: 480},
		RingCaches:             4,
		ShutdownGraceMS:        1000,
		PollIntervalMS:         5,
		LogLevel:               "info",
		RingMode:               RingModeDrop,
	}
}

// Load reads and parses a YAML configuration file, unmarshaling onto a copy
// of Defaults() so a document may omit any subset of fields.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	opts := Defaults()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := Validate(&opts); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return &opts, nil
}

// Validate rejects option combinations the pipeline cannot run with.
func Validate(o *Options) error {
	if o.Resolution.Width <= 0 || o.Resolution.Height <= 0 {
		return fmt.Errorf("raw_reso must be positive, got %dx%d", o.Resolution.Width, o.Resolution.Height)
	}
	if o.Resolution.Width%2 != 0 || o.Resolution.Height%2 != 0 {
		return fmt.Errorf("raw_reso must be even for 4:2:0 chroma subsampling, got %dx%d", o.Resolution.Width, o.Resolution.Height)
	}
	if o.NumGrayLevels <= 0 {
		return fmt.Errorf("ngls must be positive, got %d", o.NumGrayLevels)
	}
	if o.MaxSuppressionRatio <= 0 {
		return fmt.Errorf("ssr must be positive, got %f", o.MaxSuppressionRatio)
	}
	if o.BrightestPixelFraction <= 0 || o.BrightestPixelFraction >= 1 {
		return fmt.Errorf("bpr must be in (0,1), got %f", o.BrightestPixelFraction)
	}
	if o.MinBlockWidth <= 0 || o.MinBlockHeight <= 0 {
		return fmt.Errorf("min_bw/min_bh must be positive, got %d/%d", o.MinBlockWidth, o.MinBlockHeight)
	}
	if o.MinFilterSize <= 0 || o.MinFilterSize%2 == 0 {
		return fmt.Errorf("mf_size must be a positive odd number, got %d", o.MinFilterSize)
	}
	if o.CutThresh <= 0 {
		return fmt.Errorf("cut_thresh must be positive, got %d", o.CutThresh)
	}
	if o.ClipLimit <= 0 {
		return fmt.Errorf("clip_limit must be positive, got %f", o.ClipLimit)
	}
	switch o.Style {
	case StyleColor, StyleGray:
	default:
		return fmt.Errorf("style must be color or gray, got %q", o.Style)
	}
	switch o.RawFormat {
	case FormatYUV422, FormatYUV420, FormatRGB, FormatRGBA:
	default:
		return fmt.Errorf("raw_format must be one of yuv422/yuv420/rgb/rgba, got %q", o.RawFormat)
	}
	if o.RingCaches <= 0 {
		return fmt.Errorf("ring_caches must be positive, got %d", o.RingCaches)
	}
	if o.PollIntervalMS <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", o.PollIntervalMS)
	}
	switch o.RingMode {
	case RingModeDrop, RingModeBlock:
	default:
		return fmt.Errorf("ring_mode must be drop or block, got %q", o.RingMode)
	}
	switch o.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug/info/warn/error, got %q", o.LogLevel)
	}
	return nil
}
