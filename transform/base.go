package transform

import (
	"fmt"

	"github.com/cwbudde/algo-unmix/window"
)

const (
	defaultFrameSize = 8192
	defaultHopSize   = 2048
	defaultSubBins   = 113
	minFrameSize     = 64
	normFloor        = 1e-12
)

// Base describes a filterbank configuration. One Base instantiates one
// matched forward/inverse transform pair per separation target.
type Base struct {
	// FrameSize is the FFT frame length. Must be a power of two and >= 64.
	FrameSize int

	// HopSize is the analysis hop in samples. Must be in [1, FrameSize].
	HopSize int

	// SubBins is the number of consecutive FFT bins per frequency group
	// (the M axis of the spectrogram). Must be >= 1.
	SubBins int

	// Window selects the analysis/synthesis window.
	Window window.Type
}

// DefaultBase returns the default filterbank configuration. The default
// geometry (37 groups of 113 sub-bins) is one the bundled masking network
// restores exactly through its strided encoder-decoder.
func DefaultBase() Base {
	return Base{
		FrameSize: defaultFrameSize,
		HopSize:   defaultHopSize,
		SubBins:   defaultSubBins,
		Window:    window.TypeHann,
	}
}

// Validate reports whether the configuration is usable.
func (b Base) Validate() error {
	if b.FrameSize < minFrameSize || !isPowerOf2(b.FrameSize) {
		return fmt.Errorf("transform: frame size must be power-of-two and >= %d: %d", minFrameSize, b.FrameSize)
	}
	if b.HopSize <= 0 || b.HopSize > b.FrameSize {
		return fmt.Errorf("transform: hop size must be in [1, %d]: %d", b.FrameSize, b.HopSize)
	}
	if b.SubBins <= 0 {
		return fmt.Errorf("transform: sub-bin count must be > 0: %d", b.SubBins)
	}
	return nil
}

// Bins returns the number of FFT bins per frame (FrameSize/2 + 1).
func (b Base) Bins() int { return b.FrameSize/2 + 1 }

// Groups returns the number of frequency groups (the F axis), which is
// Bins()/SubBins rounded up. The tail group is zero-padded.
func (b Base) Groups() int { return (b.Bins() + b.SubBins - 1) / b.SubBins }

// Frames returns the number of analysis frames covering length samples.
func (b Base) Frames(length int) int {
	if length <= 0 {
		return 0
	}
	return 1 + (length-1)/b.HopSize
}

func isPowerOf2(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
