package unmix

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-unmix/tensor"
)

// ConvTranspose3D is a 3-D transposed convolution layer without padding.
//
// The weight layout is [inChannels][outChannels][kd][kh][kw]. OutputPadding
// extends the trailing edge of each spatial dimension to recover sizes lost
// to integer stride division in a matching Conv3D.
type ConvTranspose3D struct {
	InChannels    int
	OutChannels   int
	Kernel        [3]int
	Stride        [3]int
	OutputPadding [3]int
	Weight        []float64
	Bias          []float64

	trainable bool
}

// NewConvTranspose3D creates a transposed convolution layer with
// He-initialized weights drawn from rng and zero biases.
func NewConvTranspose3D(inChannels, outChannels int, kernel, stride, outputPadding [3]int, rng *rand.Rand) *ConvTranspose3D {
	fanIn := inChannels * kernel[0] * kernel[1] * kernel[2]
	stddev := math.Sqrt(2.0 / float64(fanIn))

	weight := make([]float64, inChannels*outChannels*kernel[0]*kernel[1]*kernel[2])
	for i := range weight {
		weight[i] = rng.NormFloat64() * stddev
	}

	return &ConvTranspose3D{
		InChannels:    inChannels,
		OutChannels:   outChannels,
		Kernel:        kernel,
		Stride:        stride,
		OutputPadding: outputPadding,
		Weight:        weight,
		Bias:          make([]float64, outChannels),
		trainable:     true,
	}
}

// Trainable reports whether the layer parameters accept updates.
func (l *ConvTranspose3D) Trainable() bool { return l.trainable }

// SetTrainable toggles parameter trainability.
func (l *ConvTranspose3D) SetTrainable(v bool) { l.trainable = v }

// OutputDims returns the spatial output dimensions for the given input
// dimensions: (in-1)*stride + kernel + outputPadding.
func (l *ConvTranspose3D) OutputDims(in [3]int) [3]int {
	var out [3]int
	for i := range 3 {
		out[i] = (in[i]-1)*l.Stride[i] + l.Kernel[i] + l.OutputPadding[i]
	}
	return out
}

// Forward applies the transposed convolution to x shaped
// (batch, inChannels, depth, height, width).
func (l *ConvTranspose3D) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Rank() != 5 {
		return nil, fmt.Errorf("unmix: convtranspose3d input must have rank 5, got %d", x.Rank())
	}
	if x.Dim(1) != l.InChannels {
		return nil, fmt.Errorf("unmix: convtranspose3d input has %d channels, want %d", x.Dim(1), l.InChannels)
	}

	batch := x.Dim(0)
	inD, inH, inW := x.Dim(2), x.Dim(3), x.Dim(4)
	outDims := l.OutputDims([3]int{inD, inH, inW})
	outD, outH, outW := outDims[0], outDims[1], outDims[2]
	kd, kh, kw := l.Kernel[0], l.Kernel[1], l.Kernel[2]
	sd, sh, sw := l.Stride[0], l.Stride[1], l.Stride[2]

	out := tensor.New(batch, l.OutChannels, outD, outH, outW)
	outData := out.Data()
	inData := x.Data()

	outChanStride := outD * outH * outW
	kChanStride := kd * kh * kw

	for b := range batch {
		outBatch := b * l.OutChannels * outChanStride
		for oc := range l.OutChannels {
			outChan := outBatch + oc*outChanStride
			for i := range outChanStride {
				outData[outChan+i] = l.Bias[oc]
			}
		}
	}

	for b := range batch {
		inBatch := b * l.InChannels * inD * inH * inW
		outBatch := b * l.OutChannels * outChanStride

		for ic := range l.InChannels {
			wIn := ic * l.OutChannels * kChanStride

			for id := range inD {
				for ih := range inH {
					for iw := range inW {
						v := inData[inBatch+ic*inD*inH*inW+(id*inH+ih)*inW+iw]
						if v == 0 {
							continue
						}

						for oc := range l.OutChannels {
							outChan := outBatch + oc*outChanStride
							wChan := wIn + oc*kChanStride

							for dz := range kd {
								oz := id*sd + dz
								for dy := range kh {
									oy := ih*sh + dy
									rowOut := outChan + (oz*outH+oy)*outW + iw*sw
									rowW := wChan + (dz*kh+dy)*kw
									for dx := range kw {
										outData[rowOut+dx] += v * l.Weight[rowW+dx]
									}
								}
							}
						}
					}
				}
			}
		}
	}

	return out, nil
}
