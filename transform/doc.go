// Package transform provides the invertible time-frequency transforms used
// for spectrogram-domain source separation: a matched forward/inverse
// filterbank pair built on windowed overlap FFT analysis, magnitude
// extraction (ComplexNorm), and phase-mix reconstruction (PhaseMix).
//
// The forward transform maps a waveform tensor (samples, channels, time) to a
// complex spectrogram (samples, channels, groups, frames, subBins), where the
// FFT bins of each frame are split into groups of subBins consecutive bins.
// The inverse transform reconstructs exactly the requested number of time
// samples via overlap-add with window-squared normalization.
package transform
