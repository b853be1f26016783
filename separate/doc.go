// Package separate implements the top-level source separation pipeline. A
// Separator owns one masking model and one matched filterbank pair per
// target, chunks the input waveform to bound memory, drives the per-target
// transform/estimate/reconstruct cycle, and reassembles the per-target
// estimates into a stacked (samples, targets, channels, time) tensor whose
// time axis always equals the input length exactly.
package separate
