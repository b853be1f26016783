package unmix

import "github.com/cwbudde/algo-unmix/tensor"

// reluInPlace rectifies all elements of t.
func reluInPlace(t *tensor.Tensor) *tensor.Tensor {
	data := t.Data()
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	return t
}
