package unmix

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/algo-unmix/tensor"
)

const (
	encoderWidth1 = 25
	encoderWidth2 = 55

	// the bin axis passes through two kernel-11 convolutions without stride
	minBins = 21
)

var (
	kernelOuter   = [3]int{5, 11, 42}
	kernelInner   = [3]int{5, 11, 22}
	convStride    = [3]int{1, 1, 3}
	outputPadding = [3]int{0, 0, 2}
)

// OpenUnmix is the spectrogram masking network: a fixed 3-D convolutional
// encoder-decoder operating on magnitude spectrograms shaped
// (samples, channels, bins, frames, subBins).
//
// Input magnitudes are standardized per frequency bin before the encoder.
// The normalization constants are stored pre-negated and pre-inverted so the
// hot path is a single add-then-multiply.
type OpenUnmix struct {
	nbBins   int
	subBins  int
	channels int

	inputMean  []float64 // negated training mean, length nbBins
	inputScale []float64 // reciprocal training scale, length nbBins

	enc1 *Conv3D
	enc2 *Conv3D
	bn1  *BatchNorm3D
	bn2  *BatchNorm3D
	dec1 *ConvTranspose3D
	dec2 *ConvTranspose3D
	bn3  *BatchNorm3D

	mode Mode
}

// Option configures OpenUnmix construction.
type Option func(*modelConfig)

type modelConfig struct {
	channels   int
	inputMean  []float64
	inputScale []float64
	seed       int64
	hasSeed    bool
}

func defaultModelConfig() modelConfig {
	return modelConfig{channels: 2}
}

// WithChannels sets the audio channel count (default 2).
func WithChannels(n int) Option {
	return func(c *modelConfig) {
		if n > 0 {
			c.channels = n
		}
	}
}

// WithInputStats sets per-bin normalization statistics from training data.
// Both vectors must be exactly nbBins long; scale entries must be positive.
func WithInputStats(mean, scale []float64) Option {
	meanCopy := append([]float64(nil), mean...)
	scaleCopy := append([]float64(nil), scale...)

	return func(c *modelConfig) {
		c.inputMean = meanCopy
		c.inputScale = scaleCopy
	}
}

// WithSeed sets the weight initialization seed for reproducible models.
func WithSeed(seed int64) Option {
	return func(c *modelConfig) {
		c.seed = seed
		c.hasSeed = true
	}
}

// New creates an OpenUnmix network for spectrograms with nbBins frequency
// bins and subBins transform sub-bins per bin.
//
// The strided sub-bin axis must be restored exactly by the decoder's output
// padding; subBins values satisfying this (113, 122, 131, ...) step by 9.
func New(nbBins, subBins int, opts ...Option) (*OpenUnmix, error) {
	cfg := defaultModelConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if nbBins < minBins {
		return nil, fmt.Errorf("unmix: bin count must be >= %d: %d", minBins, nbBins)
	}
	if err := checkSubBins(subBins); err != nil {
		return nil, err
	}

	inputMean := make([]float64, nbBins)
	inputScale := make([]float64, nbBins)
	for i := range inputScale {
		inputScale[i] = 1
	}

	if cfg.inputMean != nil || cfg.inputScale != nil {
		if len(cfg.inputMean) != nbBins || len(cfg.inputScale) != nbBins {
			return nil, fmt.Errorf("unmix: normalization statistics must have length %d, got mean %d and scale %d",
				nbBins, len(cfg.inputMean), len(cfg.inputScale))
		}
		for i, s := range cfg.inputScale {
			if s <= 0 {
				return nil, fmt.Errorf("unmix: normalization scale[%d] must be > 0: %f", i, s)
			}
			inputMean[i] = -cfg.inputMean[i]
			inputScale[i] = 1.0 / s
		}
	}

	rng := rand.New(rand.NewSource(cfg.seed))
	if !cfg.hasSeed {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return &OpenUnmix{
		nbBins:     nbBins,
		subBins:    subBins,
		channels:   cfg.channels,
		inputMean:  inputMean,
		inputScale: inputScale,
		enc1:       NewConv3D(cfg.channels, encoderWidth1, kernelOuter, convStride, rng),
		bn1:        NewBatchNorm3D(encoderWidth1),
		enc2:       NewConv3D(encoderWidth1, encoderWidth2, kernelInner, convStride, rng),
		bn2:        NewBatchNorm3D(encoderWidth2),
		dec1:       NewConvTranspose3D(encoderWidth2, encoderWidth1, kernelInner, convStride, outputPadding, rng),
		bn3:        NewBatchNorm3D(encoderWidth1),
		dec2:       NewConvTranspose3D(encoderWidth1, cfg.channels, kernelOuter, convStride, outputPadding, rng),
		mode:       ModeTraining,
	}, nil
}

// checkSubBins verifies that the sub-bin axis survives the two strided
// convolutions and is restored exactly by the transposed convolutions.
func checkSubBins(m int) error {
	if m < kernelOuter[2] {
		return fmt.Errorf("unmix: sub-bin count must be >= %d: %d", kernelOuter[2], m)
	}
	m1 := (m-kernelOuter[2])/convStride[2] + 1
	if m1 < kernelInner[2] {
		return fmt.Errorf("unmix: sub-bin count %d collapses to %d after the first encoder stage, need >= %d",
			m, m1, kernelInner[2])
	}
	m2 := (m1-kernelInner[2])/convStride[2] + 1
	back1 := (m2-1)*convStride[2] + kernelInner[2] + outputPadding[2]
	back2 := (back1-1)*convStride[2] + kernelOuter[2] + outputPadding[2]
	if back1 != m1 || back2 != m {
		return fmt.Errorf("unmix: sub-bin count %d is not restored by the strided encoder-decoder (decoder yields %d)",
			m, back2)
	}
	return nil
}

// Bins returns the configured frequency bin count.
func (u *OpenUnmix) Bins() int { return u.nbBins }

// SubBins returns the configured sub-bin count.
func (u *OpenUnmix) SubBins() int { return u.subBins }

// Channels returns the configured audio channel count.
func (u *OpenUnmix) Channels() int { return u.channels }

// Mode returns the current execution mode.
func (u *OpenUnmix) Mode() Mode { return u.mode }

// Freeze makes all parameters non-trainable and switches normalization to
// running statistics. The transition is irreversible.
func (u *OpenUnmix) Freeze() {
	u.enc1.SetTrainable(false)
	u.enc2.SetTrainable(false)
	u.bn1.SetTrainable(false)
	u.bn2.SetTrainable(false)
	u.bn3.SetTrainable(false)
	u.dec1.SetTrainable(false)
	u.dec2.SetTrainable(false)
	u.mode = ModeInference
}

// Forward maps a magnitude spectrogram shaped
// (samples, channels, bins, frames, subBins) to a magnitude estimate of the
// same shape. The estimate is the raw decoder output; it is not a mask
// multiplied back into the input.
func (u *OpenUnmix) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 5 {
		return nil, fmt.Errorf("unmix: input must have rank 5 (samples, channels, bins, frames, subBins)")
	}

	nbSamples := x.Dim(0)
	if x.Dim(1) != u.channels || x.Dim(2) != u.nbBins || x.Dim(4) != u.subBins {
		return nil, fmt.Errorf("unmix: input shape %v does not match model (channels %d, bins %d, subBins %d)",
			x.Shape(), u.channels, u.nbBins, u.subBins)
	}
	frames := x.Dim(3)

	// standardize per bin and lay out for convolution:
	// (S, C, F, T, M) -> (S, C, T, F, M)
	h := tensor.New(nbSamples, u.channels, frames, u.nbBins, u.subBins)
	hData := h.Data()
	xData := x.Data()
	for s := range nbSamples {
		for c := range u.channels {
			chanIn := ((s*u.channels + c) * u.nbBins) * frames * u.subBins
			chanOut := ((s*u.channels + c) * frames) * u.nbBins * u.subBins
			for f := range u.nbBins {
				mean := u.inputMean[f]
				scale := u.inputScale[f]
				for t := range frames {
					src := chanIn + (f*frames+t)*u.subBins
					dst := chanOut + (t*u.nbBins+f)*u.subBins
					for m := range u.subBins {
						hData[dst+m] = (xData[src+m] + mean) * scale
					}
				}
			}
		}
	}

	var err error
	if h, err = u.enc1.Forward(h); err != nil {
		return nil, err
	}
	if h, err = u.bn1.Forward(reluInPlace(h), u.mode); err != nil {
		return nil, err
	}
	if h, err = u.enc2.Forward(h); err != nil {
		return nil, err
	}
	if h, err = u.bn2.Forward(reluInPlace(h), u.mode); err != nil {
		return nil, err
	}
	if h, err = u.dec1.Forward(h); err != nil {
		return nil, err
	}
	if h, err = u.bn3.Forward(reluInPlace(h), u.mode); err != nil {
		return nil, err
	}
	if h, err = u.dec2.Forward(h); err != nil {
		return nil, err
	}
	reluInPlace(h)

	if h.Dim(2) != frames || h.Dim(3) != u.nbBins || h.Dim(4) != u.subBins {
		return nil, fmt.Errorf("unmix: decoder output shape %v does not restore input geometry (%d frames, %d bins, %d subBins)",
			h.Shape(), frames, u.nbBins, u.subBins)
	}

	// (S, C, T, F, M) -> (S, C, F, T, M)
	out := tensor.New(nbSamples, u.channels, u.nbBins, frames, u.subBins)
	outData := out.Data()
	hOut := h.Data()
	for s := range nbSamples {
		for c := range u.channels {
			chanIn := ((s*u.channels + c) * frames) * u.nbBins * u.subBins
			chanOut := ((s*u.channels + c) * u.nbBins) * frames * u.subBins
			for t := range frames {
				for f := range u.nbBins {
					src := chanIn + (t*u.nbBins+f)*u.subBins
					dst := chanOut + (f*frames+t)*u.subBins
					copy(outData[dst:dst+u.subBins], hOut[src:src+u.subBins])
				}
			}
		}
	}

	return out, nil
}
