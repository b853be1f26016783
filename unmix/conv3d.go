package unmix

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-unmix/tensor"
)

// Conv3D is a 3-D convolution layer without padding.
//
// Input tensors are shaped (batch, inChannels, depth, height, width); the
// weight layout is [outChannels][inChannels][kd][kh][kw].
type Conv3D struct {
	InChannels  int
	OutChannels int
	Kernel      [3]int
	Stride      [3]int
	Weight      []float64
	Bias        []float64

	trainable bool
}

// NewConv3D creates a convolution layer with He-initialized weights drawn
// from rng and zero biases.
func NewConv3D(inChannels, outChannels int, kernel, stride [3]int, rng *rand.Rand) *Conv3D {
	fanIn := inChannels * kernel[0] * kernel[1] * kernel[2]
	stddev := math.Sqrt(2.0 / float64(fanIn))

	weight := make([]float64, outChannels*fanIn)
	for i := range weight {
		weight[i] = rng.NormFloat64() * stddev
	}

	return &Conv3D{
		InChannels:  inChannels,
		OutChannels: outChannels,
		Kernel:      kernel,
		Stride:      stride,
		Weight:      weight,
		Bias:        make([]float64, outChannels),
		trainable:   true,
	}
}

// Trainable reports whether the layer parameters accept updates.
func (l *Conv3D) Trainable() bool { return l.trainable }

// SetTrainable toggles parameter trainability.
func (l *Conv3D) SetTrainable(v bool) { l.trainable = v }

// OutputDims returns the spatial output dimensions for the given input
// dimensions, or an error if the input is smaller than the kernel.
func (l *Conv3D) OutputDims(in [3]int) ([3]int, error) {
	var out [3]int
	for i := range 3 {
		if in[i] < l.Kernel[i] {
			return out, fmt.Errorf("unmix: conv3d input dim %d (%d) smaller than kernel (%d)", i, in[i], l.Kernel[i])
		}
		out[i] = (in[i]-l.Kernel[i])/l.Stride[i] + 1
	}
	return out, nil
}

// Forward applies the convolution to x shaped
// (batch, inChannels, depth, height, width).
func (l *Conv3D) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 5 {
		return nil, fmt.Errorf("unmix: conv3d input must have rank 5, got %d", x.Rank())
	}
	if x.Dim(1) != l.InChannels {
		return nil, fmt.Errorf("unmix: conv3d input has %d channels, want %d", x.Dim(1), l.InChannels)
	}

	batch := x.Dim(0)
	inD, inH, inW := x.Dim(2), x.Dim(3), x.Dim(4)
	outDims, err := l.OutputDims([3]int{inD, inH, inW})
	if err != nil {
		return nil, err
	}
	outD, outH, outW := outDims[0], outDims[1], outDims[2]
	kd, kh, kw := l.Kernel[0], l.Kernel[1], l.Kernel[2]
	sd, sh, sw := l.Stride[0], l.Stride[1], l.Stride[2]

	out := tensor.New(batch, l.OutChannels, outD, outH, outW)
	outData := out.Data()
	inData := x.Data()

	inChanStride := inD * inH * inW
	kChanStride := kd * kh * kw

	for b := range batch {
		inBatch := b * l.InChannels * inChanStride
		for oc := range l.OutChannels {
			wOut := oc * l.InChannels * kChanStride
			outIdx := ((b*l.OutChannels + oc) * outD) * outH * outW

			for od := range outD {
				for oh := range outH {
					for ow := range outW {
						sum := l.Bias[oc]

						for ic := range l.InChannels {
							inChan := inBatch + ic*inChanStride
							wChan := wOut + ic*kChanStride

							for dz := range kd {
								iz := od*sd + dz
								for dy := range kh {
									iy := oh*sh + dy
									rowIn := inChan + (iz*inH+iy)*inW + ow*sw
									rowW := wChan + (dz*kh+dy)*kw
									for dx := range kw {
										sum += inData[rowIn+dx] * l.Weight[rowW+dx]
									}
								}
							}
						}

						outData[outIdx] = sum
						outIdx++
					}
				}
			}
		}
	}

	return out, nil
}
