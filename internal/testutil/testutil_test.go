package testutil

import (
	"math"
	"testing"
)

func TestSineWaveform(t *testing.T) {
	w := SineWaveform(1000, 48000, 1.0, 2, 2, 48)

	RequireShape(t, w.Shape(), []int{2, 2, 48})

	if w.At(0, 0, 0) != 0 {
		t.Fatalf("sine[0] = %v, want 0", w.At(0, 0, 0))
	}
	// 1 kHz at 48 kHz: quarter period at sample 12
	if math.Abs(w.At(1, 1, 12)-1.0) > 1e-9 {
		t.Fatalf("sine[12] = %v, want 1", w.At(1, 1, 12))
	}
	// all channels identical
	if w.At(0, 0, 7) != w.At(1, 1, 7) {
		t.Fatal("channels differ")
	}
}

func TestNoiseWaveformDeterminism(t *testing.T) {
	a := NoiseWaveform(42, 0.5, 1, 2, 64)
	b := NoiseWaveform(42, 0.5, 1, 2, 64)

	RequireSliceNearlyEqual(t, a.Data(), b.Data(), 0)

	for i, v := range a.Data() {
		if math.Abs(v) > 0.5 {
			t.Fatalf("index %d: amplitude %v exceeds 0.5", i, v)
		}
	}
}

func TestImpulseWaveform(t *testing.T) {
	w := ImpulseWaveform(1, 2, 16, 3)

	for c := range 2 {
		for i := range 16 {
			want := 0.0
			if i == 3 {
				want = 1
			}
			if w.At(0, c, i) != want {
				t.Fatalf("impulse(0,%d,%d) = %v, want %v", c, i, w.At(0, c, i), want)
			}
		}
	}

	// out-of-range position leaves the tensor zero
	z := ImpulseWaveform(1, 1, 8, 99)
	for _, v := range z.Data() {
		if v != 0 {
			t.Fatal("expected all-zero waveform for out-of-range impulse position")
		}
	}
}

func TestMaxAbsDiff(t *testing.T) {
	d, err := MaxAbsDiff([]float64{1, 2, 3}, []float64{1, 2.5, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 1 {
		t.Fatalf("max diff = %v, want 1", d)
	}

	if _, err := MaxAbsDiff([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
