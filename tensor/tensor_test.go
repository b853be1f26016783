package tensor

import (
	"math"
	"testing"
)

func TestNewAndIndexing(t *testing.T) {
	x := New(2, 3, 4)

	if x.Rank() != 3 {
		t.Fatalf("rank = %d, want 3", x.Rank())
	}
	if x.Len() != 24 {
		t.Fatalf("len = %d, want 24", x.Len())
	}

	x.Set(1.5, 1, 2, 3)
	if got := x.At(1, 2, 3); got != 1.5 {
		t.Fatalf("At(1,2,3) = %v, want 1.5", got)
	}
	if got := x.Data()[23]; got != 1.5 {
		t.Fatalf("flat[23] = %v, want 1.5 (row-major last element)", got)
	}

	x.Set(-2, 0, 0, 0)
	if got := x.Data()[0]; got != -2 {
		t.Fatalf("flat[0] = %v, want -2", got)
	}
}

func TestNewPanicsOnBadShape(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-positive dimension")
		}
	}()
	New(2, 0, 3)
}

func TestFromSlice(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}

	x, err := FromSlice(data, 2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := x.At(1, 2); got != 6 {
		t.Fatalf("At(1,2) = %v, want 6", got)
	}

	// shared backing
	data[0] = 9
	if got := x.At(0, 0); got != 9 {
		t.Fatalf("At(0,0) = %v, want 9 after slice mutation", got)
	}

	if _, err := FromSlice(data, 2, 2); err == nil {
		t.Fatal("expected error for mismatched length")
	}
}

func TestReshape(t *testing.T) {
	x := New(2, 6)
	for i := range x.Data() {
		x.Data()[i] = float64(i)
	}

	y, err := x.Reshape(3, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := y.At(2, 3); got != 11 {
		t.Fatalf("reshaped At(2,3) = %v, want 11", got)
	}

	// view shares data
	y.Set(99, 0, 0)
	if got := x.At(0, 0); got != 99 {
		t.Fatalf("At(0,0) = %v, want 99 after view mutation", got)
	}

	if _, err := x.Reshape(5, 5); err == nil {
		t.Fatal("expected error for element count mismatch")
	}
}

func TestCloneIndependence(t *testing.T) {
	x := New(2, 2)
	x.Fill(3)

	y := x.Clone()
	y.Set(7, 0, 0)

	if got := x.At(0, 0); got != 3 {
		t.Fatalf("original mutated through clone: got %v, want 3", got)
	}
}

func TestAddInPlaceAndScale(t *testing.T) {
	x := New(2, 3)
	x.Fill(1)
	y := New(2, 3)
	y.Fill(2)

	if err := x.AddInPlace(y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range x.Data() {
		if v != 3 {
			t.Fatalf("flat[%d] = %v, want 3", i, v)
		}
	}

	x.Scale(0.5)
	for i, v := range x.Data() {
		if math.Abs(v-1.5) > 1e-15 {
			t.Fatalf("flat[%d] = %v, want 1.5", i, v)
		}
	}

	z := New(3, 2)
	if err := x.AddInPlace(z); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestPadEndCropEnd(t *testing.T) {
	x, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := x.PadEnd(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantPad := []float64{1, 2, 3, 0, 0, 4, 5, 6, 0, 0}
	for i, v := range p.Data() {
		if v != wantPad[i] {
			t.Fatalf("padded flat[%d] = %v, want %v", i, v, wantPad[i])
		}
	}

	c, err := p.CropEnd(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range c.Data() {
		if v != x.Data()[i] {
			t.Fatalf("cropped flat[%d] = %v, want %v", i, v, x.Data()[i])
		}
	}

	if _, err := x.PadEnd(-1); err == nil {
		t.Fatal("expected error for negative pad")
	}
	if _, err := x.CropEnd(4); err == nil {
		t.Fatal("expected error for crop beyond length")
	}
}

func TestComplexBasics(t *testing.T) {
	c := NewComplex(2, 3)
	c.Set(complex(1, -1), 1, 2)

	if got := c.At(1, 2); got != complex(1, -1) {
		t.Fatalf("At(1,2) = %v, want (1-1i)", got)
	}
	if got := c.Data()[5]; got != complex(1, -1) {
		t.Fatalf("flat[5] = %v, want (1-1i)", got)
	}

	d := c.Clone()
	d.Set(complex(5, 0), 0, 0)
	if c.At(0, 0) != 0 {
		t.Fatal("original mutated through clone")
	}
}
