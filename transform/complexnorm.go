package transform

import (
	"fmt"

	"github.com/cwbudde/algo-unmix/tensor"
	"github.com/cwbudde/algo-vecmath"
)

// ComplexNorm converts complex spectrograms to magnitude spectrograms.
type ComplexNorm struct {
	mono bool
}

// NewComplexNorm returns a magnitude extractor. If mono is true, Apply
// collapses the channel axis to its mean magnitude (the channel dimension is
// kept with size 1).
func NewComplexNorm(mono bool) *ComplexNorm {
	return &ComplexNorm{mono: mono}
}

// Mono reports whether channel collapse is enabled.
func (n *ComplexNorm) Mono() bool { return n.mono }

// Apply returns the elementwise magnitude of a complex spectrogram shaped
// (samples, channels, groups, frames, subBins).
func (n *ComplexNorm) Apply(spec *tensor.Complex) (*tensor.Tensor, error) {
	if spec == nil || spec.Rank() != 5 {
		return nil, fmt.Errorf("transform: complex norm input must have rank 5")
	}

	total := spec.Len()
	re := make([]float64, total)
	im := make([]float64, total)
	for i, v := range spec.Data() {
		re[i] = real(v)
		im[i] = imag(v)
	}

	mag := make([]float64, total)
	vecmath.Magnitude(mag, re, im)

	shape := spec.Shape()
	full, err := tensor.FromSlice(mag, shape...)
	if err != nil {
		return nil, err
	}
	if !n.mono || shape[1] == 1 {
		return full, nil
	}

	nbSamples, nbChannels := shape[0], shape[1]
	inner := total / (nbSamples * nbChannels)
	out := tensor.New(nbSamples, 1, shape[2], shape[3], shape[4])
	outData := out.Data()
	scale := 1.0 / float64(nbChannels)

	for s := range nbSamples {
		dst := outData[s*inner : (s+1)*inner]
		for c := range nbChannels {
			src := mag[(s*nbChannels+c)*inner : (s*nbChannels+c+1)*inner]
			vecmath.AddBlockInPlace(dst, src)
		}
		vecmath.ScaleBlock(dst, dst, scale)
	}

	return out, nil
}
