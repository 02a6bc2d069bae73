// Package errorsx defines the sentinel errors the fusion pipeline wraps its
// failures around, so callers can classify a returned error with errors.Is
// without string matching.
package errorsx

import "errors"

var (
	// ErrConfiguration marks a fatal configuration problem: bad geometry,
	// too few registration control points, an unparseable table file.
	ErrConfiguration = errors.New("irfusion: configuration error")
	// ErrResource marks a fatal resource-exhaustion problem at construction
	// or start: allocation failure, worker spawn failure.
	ErrResource = errors.New("irfusion: resource error")
)
