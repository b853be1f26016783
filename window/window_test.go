package window

import (
	"math"
	"testing"
)

func TestGenerateSymmetric(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		mid  float64
		edge float64
	}{
		{"hann", TypeHann, 1.0, 0.0},
		{"hamming", TypeHamming, 1.0, 0.08},
		{"blackman", TypeBlackman, 1.0, 0.0},
		{"rectangular", TypeRectangular, 1.0, 1.0},
	}

	const n = 65

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Generate(tt.typ, n)
			if len(w) != n {
				t.Fatalf("length = %d, want %d", len(w), n)
			}

			if math.Abs(w[n/2]-tt.mid) > 1e-12 {
				t.Errorf("midpoint = %v, want %v", w[n/2], tt.mid)
			}
			if math.Abs(w[0]-tt.edge) > 1e-12 {
				t.Errorf("left edge = %v, want %v", w[0], tt.edge)
			}

			// symmetric form mirrors around the center
			for i := range n / 2 {
				if math.Abs(w[i]-w[n-1-i]) > 1e-12 {
					t.Fatalf("asymmetry at %d: %v vs %v", i, w[i], w[n-1-i])
				}
			}
		})
	}
}

func TestGeneratePeriodicHannCOLA(t *testing.T) {
	// Periodic Hann at 50% overlap sums to a constant.
	const n = 64
	const hop = n / 2

	w := Generate(TypeHann, n, WithPeriodic())

	sum := make([]float64, hop)
	for i := range hop {
		sum[i] = w[i] + w[i+hop]
	}
	for i, v := range sum {
		if math.Abs(v-1.0) > 1e-12 {
			t.Fatalf("COLA sum at %d = %v, want 1", i, v)
		}
	}
}

func TestGenerateEdgeCases(t *testing.T) {
	if Generate(TypeHann, 0) != nil {
		t.Error("zero length should return nil")
	}
	if Generate(TypeHann, -3) != nil {
		t.Error("negative length should return nil")
	}

	one := Generate(TypeHann, 1)
	if len(one) != 1 || one[0] != 0 {
		t.Errorf("length-1 hann = %v, want [0]", one)
	}
}

func TestApplyCoefficients(t *testing.T) {
	samples := []float64{1, 2, 3, 4}
	coeffs := []float64{0.5, 0.5, 2, 2}

	out, err := ApplyCoefficients(samples, coeffs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0.5, 1, 6, 8}
	for i := range out {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}

	if _, err := ApplyCoefficients(samples, coeffs[:2]); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestApplyInPlace(t *testing.T) {
	buf := []float64{1, 1, 1, 1}
	Apply(TypeRectangular, buf)
	for i, v := range buf {
		if v != 1 {
			t.Fatalf("buf[%d] = %v, want 1", i, v)
		}
	}
}
