// Package testutil provides deterministic test signals and tolerance helpers
// shared by the package tests in this module.
package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-unmix/tensor"
)

// SineWaveform returns a waveform tensor (samples, channels, length) where
// every channel of every sample batch carries the same deterministic sine.
func SineWaveform(freqHz, sampleRate, amplitude float64, samples, channels, length int) *tensor.Tensor {
	out := tensor.New(samples, channels, length)
	data := out.Data()
	step := 2 * math.Pi * freqHz / sampleRate

	for s := range samples {
		for c := range channels {
			off := (s*channels + c) * length
			for i := range length {
				data[off+i] = amplitude * math.Sin(step*float64(i))
			}
		}
	}
	return out
}

// NoiseWaveform returns a waveform tensor (samples, channels, length) filled
// with seeded white noise.
func NoiseWaveform(seed int64, amplitude float64, samples, channels, length int) *tensor.Tensor {
	out := tensor.New(samples, channels, length)
	data := out.Data()
	rng := rand.New(rand.NewSource(seed))

	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// ImpulseWaveform returns a waveform tensor with a unit impulse at pos in
// every channel.
func ImpulseWaveform(samples, channels, length, pos int) *tensor.Tensor {
	out := tensor.New(samples, channels, length)
	if pos < 0 || pos >= length {
		return out
	}
	for s := range samples {
		for c := range channels {
			out.Set(1, s, c, pos)
		}
	}
	return out
}
