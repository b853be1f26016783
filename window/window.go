// Package window provides analysis window coefficient generation for the
// time-frequency transforms in this module. Only the window families used by
// the filterbanks are implemented.
package window

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

var errMismatchedLength = errors.New("window: samples and coefficients differ in length")

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns window coefficients of the given length.
// A non-positive length returns nil.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)
	for i := range out {
		x := samplePosition(i, length, cfg.periodic)
		out[i] = evalWindow(t, x)
	}

	return out
}

// Apply multiplies buf in place by the selected window.
func Apply(t Type, buf []float64, opts ...Option) {
	if len(buf) == 0 {
		return
	}

	coeffs := Generate(t, len(buf), opts...)
	vecmath.MulBlockInPlace(buf, coeffs)
}

// ApplyCoefficients multiplies samples with coefficients and returns a new slice.
func ApplyCoefficients(samples, coeffs []float64) ([]float64, error) {
	if len(samples) != len(coeffs) {
		return nil, errMismatchedLength
	}

	out := make([]float64, len(samples))
	vecmath.MulBlock(out, samples, coeffs)

	return out, nil
}

// samplePosition maps index i to the normalized position x in [0, 1].
// Periodic windows divide by length instead of length-1 so that the frame
// tiles seamlessly under overlap-add.
func samplePosition(i, length int, periodic bool) float64 {
	if length == 1 {
		return 0
	}

	if periodic {
		return float64(i) / float64(length)
	}

	return float64(i) / float64(length-1)
}

func evalWindow(t Type, x float64) float64 {
	switch t {
	case TypeHann:
		return 0.5 - 0.5*math.Cos(2*math.Pi*x)
	case TypeHamming:
		return 0.54 - 0.46*math.Cos(2*math.Pi*x)
	case TypeBlackman:
		return 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	case TypeRectangular:
		return 1
	default:
		return 1
	}
}
