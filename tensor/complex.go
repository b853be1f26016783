package tensor

import "fmt"

// Complex is a dense row-major complex128 tensor. Spectrograms produced by
// forward transforms are carried as Complex tensors; they are transient
// per-chunk values and are never persisted.
type Complex struct {
	data  []complex128
	shape []int
}

// NewComplex returns a zero-filled complex tensor with the given shape.
// All dimensions must be positive; NewComplex panics otherwise.
func NewComplex(shape ...int) *Complex {
	n, err := checkShape(shape)
	if err != nil {
		panic("tensor: " + err.Error())
	}
	return &Complex{
		data:  make([]complex128, n),
		shape: append([]int(nil), shape...),
	}
}

// ComplexFromSlice wraps data as a complex tensor without copying.
func ComplexFromSlice(data []complex128, shape ...int) (*Complex, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (want %d)", len(data), shape, n)
	}
	return &Complex{data: data, shape: append([]int(nil), shape...)}, nil
}

// Rank returns the number of dimensions.
func (c *Complex) Rank() int { return len(c.shape) }

// Shape returns a copy of the tensor shape.
func (c *Complex) Shape() []int { return append([]int(nil), c.shape...) }

// Dim returns the size of dimension i.
func (c *Complex) Dim(i int) int { return c.shape[i] }

// Len returns the total element count.
func (c *Complex) Len() int { return len(c.data) }

// Data returns the backing slice. Mutations are visible through the tensor.
func (c *Complex) Data() []complex128 { return c.data }

// Offset returns the flat offset of the given multi-index.
func (c *Complex) Offset(idx ...int) int {
	if len(idx) != len(c.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match tensor rank %d", len(idx), len(c.shape)))
	}
	off := 0
	for i, ix := range idx {
		if ix < 0 || ix >= c.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range [0, %d) in dimension %d", ix, c.shape[i], i))
		}
		off = off*c.shape[i] + ix
	}
	return off
}

// At returns the element at the given multi-index.
func (c *Complex) At(idx ...int) complex128 { return c.data[c.Offset(idx...)] }

// Set stores v at the given multi-index.
func (c *Complex) Set(v complex128, idx ...int) { c.data[c.Offset(idx...)] = v }

// Clone returns a deep copy.
func (c *Complex) Clone() *Complex {
	data := make([]complex128, len(c.data))
	copy(data, c.data)
	return &Complex{data: data, shape: append([]int(nil), c.shape...)}
}
