package unmix

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-unmix/tensor"
)

const (
	batchNormEps      = 1e-5
	batchNormMomentum = 0.1
)

// BatchNorm3D normalizes each feature channel of a 5-D tensor
// (batch, features, depth, height, width). In ModeTraining it normalizes
// with batch statistics and updates exponential running statistics; in
// ModeInference it uses the running statistics only.
type BatchNorm3D struct {
	Features    int
	Eps         float64
	Momentum    float64
	Gamma       []float64
	Beta        []float64
	RunningMean []float64
	RunningVar  []float64

	trainable bool
}

// NewBatchNorm3D creates a batch normalization layer with identity affine
// parameters and zero-mean/unit-variance running statistics.
func NewBatchNorm3D(features int) *BatchNorm3D {
	gamma := make([]float64, features)
	runningVar := make([]float64, features)
	for i := range gamma {
		gamma[i] = 1
		runningVar[i] = 1
	}

	return &BatchNorm3D{
		Features:    features,
		Eps:         batchNormEps,
		Momentum:    batchNormMomentum,
		Gamma:       gamma,
		Beta:        make([]float64, features),
		RunningMean: make([]float64, features),
		RunningVar:  runningVar,
		trainable:   true,
	}
}

// Trainable reports whether the layer parameters accept updates.
func (l *BatchNorm3D) Trainable() bool { return l.trainable }

// SetTrainable toggles parameter trainability.
func (l *BatchNorm3D) SetTrainable(v bool) { l.trainable = v }

// Forward normalizes x in place and returns it.
func (l *BatchNorm3D) Forward(x *tensor.Tensor, mode Mode) (*tensor.Tensor, error) {
	if x.Rank() != 5 {
		return nil, fmt.Errorf("unmix: batchnorm3d input must have rank 5, got %d", x.Rank())
	}
	if x.Dim(1) != l.Features {
		return nil, fmt.Errorf("unmix: batchnorm3d input has %d features, want %d", x.Dim(1), l.Features)
	}

	batch := x.Dim(0)
	inner := x.Dim(2) * x.Dim(3) * x.Dim(4)
	data := x.Data()

	for f := range l.Features {
		mean := l.RunningMean[f]
		variance := l.RunningVar[f]

		if mode == ModeTraining {
			n := batch * inner
			sum := 0.0
			for b := range batch {
				off := (b*l.Features + f) * inner
				for i := range inner {
					sum += data[off+i]
				}
			}
			mean = sum / float64(n)

			sqSum := 0.0
			for b := range batch {
				off := (b*l.Features + f) * inner
				for i := range inner {
					d := data[off+i] - mean
					sqSum += d * d
				}
			}
			variance = sqSum / float64(n)

			// running statistics use the unbiased variance estimate
			runVar := variance
			if n > 1 {
				runVar = sqSum / float64(n-1)
			}
			l.RunningMean[f] = (1-l.Momentum)*l.RunningMean[f] + l.Momentum*mean
			l.RunningVar[f] = (1-l.Momentum)*l.RunningVar[f] + l.Momentum*runVar
		}

		invStd := 1.0 / math.Sqrt(variance+l.Eps)
		scale := l.Gamma[f] * invStd
		shift := l.Beta[f] - mean*scale

		for b := range batch {
			off := (b*l.Features + f) * inner
			for i := range inner {
				data[off+i] = data[off+i]*scale + shift
			}
		}
	}

	return x, nil
}
