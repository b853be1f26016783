package transform

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-unmix/tensor"
)

// PhaseMix combines the phase of a complex mixture spectrogram with an
// estimated magnitude spectrogram: each output bin carries the mixture's
// phase angle and the estimate's magnitude. Zero mixture bins have phase 0,
// so the corresponding output bin is the real-valued magnitude.
func PhaseMix(mixture *tensor.Complex, magnitude *tensor.Tensor) (*tensor.Complex, error) {
	if mixture == nil || magnitude == nil {
		return nil, fmt.Errorf("transform: phase mix inputs must be non-nil")
	}

	mixShape := mixture.Shape()
	magShape := magnitude.Shape()
	if len(mixShape) != len(magShape) {
		return nil, fmt.Errorf("transform: phase mix rank mismatch %d vs %d", len(mixShape), len(magShape))
	}
	for i := range mixShape {
		if mixShape[i] != magShape[i] {
			return nil, fmt.Errorf("transform: phase mix shape mismatch %v vs %v", mixShape, magShape)
		}
	}

	out := tensor.NewComplex(mixShape...)
	outData := out.Data()
	mixData := mixture.Data()
	magData := magnitude.Data()

	for i, x := range mixData {
		phase := math.Atan2(imag(x), real(x))
		mag := magData[i]
		outData[i] = complex(mag*math.Cos(phase), mag*math.Sin(phase))
	}

	return out, nil
}
