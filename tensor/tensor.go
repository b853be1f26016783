package tensor

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
)

// Tensor is a dense row-major float64 tensor.
//
// The backing slice is contiguous; element (i0, i1, ..., in) lives at
// offset i0*stride0 + i1*stride1 + ... + in. Tensors are not thread-safe.
type Tensor struct {
	data  []float64
	shape []int
}

// New returns a zero-filled tensor with the given shape.
// All dimensions must be positive; New panics otherwise.
func New(shape ...int) *Tensor {
	n, err := checkShape(shape)
	if err != nil {
		panic("tensor: " + err.Error())
	}
	return &Tensor{
		data:  make([]float64, n),
		shape: append([]int(nil), shape...),
	}
}

// FromSlice wraps data as a tensor with the given shape without copying.
// The data length must equal the shape's element count.
func FromSlice(data []float64, shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (want %d)", len(data), shape, n)
	}
	return &Tensor{data: data, shape: append([]int(nil), shape...)}, nil
}

func checkShape(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("empty shape")
	}
	n := 1
	for i, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("dimension %d must be > 0, got %d", i, d)
		}
		n *= d
	}
	return n, nil
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Shape returns a copy of the tensor shape.
func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Len returns the total element count.
func (t *Tensor) Len() int { return len(t.data) }

// Data returns the backing slice. Mutations are visible through the tensor.
func (t *Tensor) Data() []float64 { return t.data }

// Offset returns the flat offset of the given multi-index.
// The index count must equal the rank; out-of-range indices panic
// the same way slice indexing does.
func (t *Tensor) Offset(idx ...int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match tensor rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, ix := range idx {
		if ix < 0 || ix >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range [0, %d) in dimension %d", ix, t.shape[i], i))
		}
		off = off*t.shape[i] + ix
	}
	return off
}

// At returns the element at the given multi-index.
func (t *Tensor) At(idx ...int) float64 { return t.data[t.Offset(idx...)] }

// Set stores v at the given multi-index.
func (t *Tensor) Set(v float64, idx ...int) { t.data[t.Offset(idx...)] = v }

// Reshape returns a view with a new shape sharing the backing slice.
// The element count must be unchanged.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if n != len(t.data) {
		return nil, fmt.Errorf("tensor: cannot reshape %v (%d elements) to %v (%d elements)",
			t.shape, len(t.data), shape, n)
	}
	return &Tensor{data: t.data, shape: append([]int(nil), shape...)}, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{data: data, shape: append([]int(nil), t.shape...)}
}

// Zero sets all elements to 0.
func (t *Tensor) Zero() {
	for i := range t.data {
		t.data[i] = 0
	}
}

// Fill sets all elements to v.
func (t *Tensor) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

// AddInPlace adds o elementwise into t. Shapes must match exactly.
func (t *Tensor) AddInPlace(o *Tensor) error {
	if !sameShape(t.shape, o.shape) {
		return fmt.Errorf("tensor: shape mismatch %v vs %v", t.shape, o.shape)
	}
	vecmath.AddBlockInPlace(t.data, o.data)
	return nil
}

// Scale multiplies all elements by f in place.
func (t *Tensor) Scale(f float64) {
	vecmath.ScaleBlock(t.data, t.data, f)
}

// PadEnd returns a copy with the last dimension extended by n zeros on the
// right. n must be >= 0; n == 0 still copies.
func (t *Tensor) PadEnd(n int) (*Tensor, error) {
	if n < 0 {
		return nil, fmt.Errorf("tensor: negative pad %d", n)
	}
	last := t.shape[len(t.shape)-1]
	outShape := t.Shape()
	outShape[len(outShape)-1] = last + n
	out := New(outShape...)
	rows := len(t.data) / last
	for r := range rows {
		copy(out.data[r*(last+n):r*(last+n)+last], t.data[r*last:(r+1)*last])
	}
	return out, nil
}

// CropEnd returns a copy with the last dimension shortened to length n.
func (t *Tensor) CropEnd(n int) (*Tensor, error) {
	last := t.shape[len(t.shape)-1]
	if n <= 0 || n > last {
		return nil, fmt.Errorf("tensor: crop length %d out of range (0, %d]", n, last)
	}
	outShape := t.Shape()
	outShape[len(outShape)-1] = n
	out := New(outShape...)
	rows := len(t.data) / last
	for r := range rows {
		copy(out.data[r*n:(r+1)*n], t.data[r*last:r*last+n])
	}
	return out, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
