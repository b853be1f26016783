package transform

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-unmix/tensor"
	"github.com/cwbudde/algo-unmix/window"
)

// Forward is the analysis half of a filterbank pair. It is not thread-safe;
// each pair owns scratch buffers reused across calls.
type Forward struct {
	base   Base
	coeffs []float64
	plan   *algofft.Plan[complex128]
	frame  []complex128
}

// Inverse is the synthesis half of a filterbank pair. It is not thread-safe.
type Inverse struct {
	base   Base
	coeffs []float64
	plan   *algofft.Plan[complex128]
	frame  []complex128
}

// MakeFilterbanks builds a matched forward/inverse transform pair from a
// filterbank configuration. sampleRate is accepted for interface parity with
// sample-rate-dependent filterbank designs; the FFT geometry itself is
// expressed in samples.
func MakeFilterbanks(base Base, sampleRate float64) (*Forward, *Inverse, error) {
	if err := base.Validate(); err != nil {
		return nil, nil, err
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, nil, fmt.Errorf("transform: sample rate must be > 0: %f", sampleRate)
	}

	coeffs := window.Generate(base.Window, base.FrameSize, window.WithPeriodic())

	fwdPlan, err := algofft.NewPlan64(base.FrameSize)
	if err != nil {
		return nil, nil, fmt.Errorf("transform: failed to create forward FFT plan: %w", err)
	}
	invPlan, err := algofft.NewPlan64(base.FrameSize)
	if err != nil {
		return nil, nil, fmt.Errorf("transform: failed to create inverse FFT plan: %w", err)
	}

	fwd := &Forward{
		base:   base,
		coeffs: coeffs,
		plan:   fwdPlan,
		frame:  make([]complex128, base.FrameSize),
	}
	inv := &Inverse{
		base:   base,
		coeffs: coeffs,
		plan:   invPlan,
		frame:  make([]complex128, base.FrameSize),
	}
	return fwd, inv, nil
}

// Base returns the filterbank configuration.
func (f *Forward) Base() Base { return f.base }

// Transform computes the complex spectrogram of a waveform tensor shaped
// (samples, channels, time). The result is shaped
// (samples, channels, groups, frames, subBins); FFT bins beyond the Nyquist
// bin in the zero-padded tail group are zero.
func (f *Forward) Transform(wave *tensor.Tensor) (*tensor.Complex, error) {
	if wave == nil || wave.Rank() != 3 {
		return nil, fmt.Errorf("transform: waveform must have rank 3 (samples, channels, time)")
	}

	nbSamples := wave.Dim(0)
	nbChannels := wave.Dim(1)
	length := wave.Dim(2)
	frames := f.base.Frames(length)
	bins := f.base.Bins()
	m := f.base.SubBins
	groups := f.base.Groups()
	hop := f.base.HopSize
	size := f.base.FrameSize

	out := tensor.NewComplex(nbSamples, nbChannels, groups, frames, m)
	outData := out.Data()
	waveData := wave.Data()

	for s := range nbSamples {
		for c := range nbChannels {
			signal := waveData[(s*nbChannels+c)*length : (s*nbChannels+c+1)*length]
			chanBase := ((s*nbChannels + c) * groups) * frames * m

			for frame := range frames {
				pos := frame * hop

				for i := range size {
					x := 0.0
					if idx := pos + i; idx < length {
						x = signal[idx]
					}
					f.frame[i] = complex(x*f.coeffs[i], 0)
				}

				err := f.plan.Forward(f.frame, f.frame)
				if err != nil {
					return nil, fmt.Errorf("transform: forward FFT failed: %w", err)
				}

				for k := range bins {
					g := k / m
					sub := k % m
					outData[chanBase+(g*frames+frame)*m+sub] = f.frame[k]
				}
			}
		}
	}

	return out, nil
}

// Base returns the filterbank configuration.
func (inv *Inverse) Base() Base { return inv.base }

// Transform reconstructs a waveform of exactly length samples from a complex
// spectrogram shaped (samples, channels, groups, frames, subBins).
// Overlap-add synthesis divides by the summed squared window; positions past
// the synthesized span are zero.
func (inv *Inverse) Transform(spec *tensor.Complex, length int) (*tensor.Tensor, error) {
	if spec == nil || spec.Rank() != 5 {
		return nil, fmt.Errorf("transform: spectrogram must have rank 5 (samples, channels, groups, frames, subBins)")
	}
	if length <= 0 {
		return nil, fmt.Errorf("transform: target length must be > 0: %d", length)
	}

	groups := inv.base.Groups()
	m := inv.base.SubBins
	if spec.Dim(2) != groups || spec.Dim(4) != m {
		return nil, fmt.Errorf("transform: spectrogram geometry (%d, %d) does not match filterbank (%d, %d)",
			spec.Dim(2), spec.Dim(4), groups, m)
	}

	nbSamples := spec.Dim(0)
	nbChannels := spec.Dim(1)
	frames := spec.Dim(3)
	bins := inv.base.Bins()
	hop := inv.base.HopSize
	size := inv.base.FrameSize
	half := size / 2

	outLen := (frames-1)*hop + size
	wet := make([]float64, outLen)
	norm := make([]float64, outLen)
	for frame := range frames {
		pos := frame * hop
		for i := range size {
			norm[pos+i] += inv.coeffs[i] * inv.coeffs[i]
		}
	}

	out := tensor.New(nbSamples, nbChannels, length)
	outData := out.Data()
	specData := spec.Data()

	for s := range nbSamples {
		for c := range nbChannels {
			for i := range wet {
				wet[i] = 0
			}
			chanBase := ((s*nbChannels + c) * groups) * frames * m

			for frame := range frames {
				pos := frame * hop

				for k := range bins {
					g := k / m
					sub := k % m
					inv.frame[k] = specData[chanBase+(g*frames+frame)*m+sub]
				}

				// force DC and Nyquist real, mirror the rest
				inv.frame[0] = complex(real(inv.frame[0]), 0)
				inv.frame[half] = complex(real(inv.frame[half]), 0)
				for k := 1; k < half; k++ {
					v := inv.frame[k]
					inv.frame[size-k] = complex(real(v), -imag(v))
				}

				err := inv.plan.Inverse(inv.frame, inv.frame)
				if err != nil {
					return nil, fmt.Errorf("transform: inverse FFT failed: %w", err)
				}

				for i := range size {
					wet[pos+i] += real(inv.frame[i]) * inv.coeffs[i]
				}
			}

			dst := outData[(s*nbChannels+c)*length : (s*nbChannels+c+1)*length]
			for t := range dst {
				if t >= outLen {
					break
				}
				if norm[t] > normFloor {
					dst[t] = wet[t] / norm[t]
				}
			}
		}
	}

	return out, nil
}
