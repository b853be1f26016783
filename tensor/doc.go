// Package tensor provides dense row-major N-dimensional tensors backed by
// flat slices. Separation code passes waveforms, spectrograms, and estimates
// around as tensors; the backing slices remain accessible for hot paths that
// want to index directly.
package tensor
