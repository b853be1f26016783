package separate

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-unmix/tensor"
	"github.com/cwbudde/algo-unmix/transform"
)

const (
	defaultSampleRate  = 44100.0
	defaultChannels    = 2
	defaultSeqDuration = 6.0
	defaultSeqBatch    = 32
)

// ErrUnknownTarget is returned when an aggregate group references a target
// name that is not registered.
var ErrUnknownTarget = errors.New("unknown target")

var errDuplicateTarget = errors.New("duplicate target")

// Model is a spectrogram masking model: it maps a magnitude spectrogram to a
// magnitude estimate of the same shape.
type Model interface {
	Forward(*tensor.Tensor) (*tensor.Tensor, error)
	Freeze()
}

// Target couples a name with its masking model and filterbank configuration.
// The registration order of targets defines the target axis of the estimate
// tensor.
type Target struct {
	Name  string
	Model Model
	Base  transform.Base
}

type targetRuntime struct {
	name    string
	model   Model
	forward *transform.Forward
	inverse *transform.Inverse
}

// Separator drives chunked multi-target separation. It is not thread-safe;
// the per-target filterbanks own scratch state.
type Separator struct {
	targets    []targetRuntime
	complexNrm *transform.ComplexNorm
	sampleRate float64
	channels   int
	chunkSize  int
	seqBatch   int
}

// Option configures Separator construction.
type Option func(*sepConfig)

type sepConfig struct {
	sampleRate  float64
	channels    int
	seqDuration float64
	seqBatch    int
}

func defaultSepConfig() sepConfig {
	return sepConfig{
		sampleRate:  defaultSampleRate,
		channels:    defaultChannels,
		seqDuration: defaultSeqDuration,
		seqBatch:    defaultSeqBatch,
	}
}

// WithSampleRate sets the audio sample rate in Hz (default 44100).
func WithSampleRate(sampleRate float64) Option {
	return func(c *sepConfig) {
		if sampleRate > 0 {
			c.sampleRate = sampleRate
		}
	}
}

// WithChannels sets the audio channel count (default 2).
func WithChannels(n int) Option {
	return func(c *sepConfig) {
		if n > 0 {
			c.channels = n
		}
	}
}

// WithSeqDuration sets the chunk duration in seconds (default 6).
// Larger chunks trade memory for fewer iterations.
func WithSeqDuration(seconds float64) Option {
	return func(c *sepConfig) {
		if seconds > 0 {
			c.seqDuration = seconds
		}
	}
}

// WithSeqBatch sets how many chunks are batched per segment (default 32).
func WithSeqBatch(n int) Option {
	return func(c *sepConfig) {
		if n > 0 {
			c.seqBatch = n
		}
	}
}

// New creates a Separator for the given targets. Target order is preserved:
// position j of the estimate tensor's target axis always corresponds to
// targets[j].
func New(targets []Target, opts ...Option) (*Separator, error) {
	if len(targets) == 0 {
		return nil, errors.New("separate: at least one target is required")
	}

	cfg := defaultSepConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	chunkSize := int(cfg.seqDuration * cfg.sampleRate)
	if chunkSize <= 0 {
		return nil, fmt.Errorf("separate: chunk size %d must be > 0 (seq duration %g at %g Hz)",
			chunkSize, cfg.seqDuration, cfg.sampleRate)
	}

	s := &Separator{
		targets:    make([]targetRuntime, 0, len(targets)),
		complexNrm: transform.NewComplexNorm(cfg.channels == 1),
		sampleRate: cfg.sampleRate,
		channels:   cfg.channels,
		chunkSize:  chunkSize,
		seqBatch:   cfg.seqBatch,
	}

	seen := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		if target.Name == "" {
			return nil, errors.New("separate: empty target name")
		}
		if _, exists := seen[target.Name]; exists {
			return nil, fmt.Errorf("separate: %w: %s", errDuplicateTarget, target.Name)
		}
		if target.Model == nil {
			return nil, fmt.Errorf("separate: nil model for target %q", target.Name)
		}
		seen[target.Name] = struct{}{}

		fwd, inv, err := transform.MakeFilterbanks(target.Base, cfg.sampleRate)
		if err != nil {
			return nil, fmt.Errorf("separate: target %q: %w", target.Name, err)
		}

		s.targets = append(s.targets, targetRuntime{
			name:    target.Name,
			model:   target.Model,
			forward: fwd,
			inverse: inv,
		})
	}

	return s, nil
}

// Targets returns the registered target names in registry order.
func (s *Separator) Targets() []string {
	names := make([]string, len(s.targets))
	for i, tr := range s.targets {
		names[i] = tr.name
	}
	return names
}

// SampleRate returns the configured sample rate in Hz.
func (s *Separator) SampleRate() float64 { return s.sampleRate }

// Channels returns the configured channel count.
func (s *Separator) Channels() int { return s.channels }

// ChunkSize returns the chunk length in samples.
func (s *Separator) ChunkSize() int { return s.chunkSize }

// SeqBatch returns the number of chunks batched per segment.
func (s *Separator) SeqBatch() int { return s.seqBatch }

// Freeze freezes all owned masking models. The transition is irreversible.
func (s *Separator) Freeze() {
	for _, tr := range s.targets {
		tr.model.Freeze()
	}
}

// Forward separates a mixture waveform shaped (samples, channels, time) into
// a stacked estimate tensor shaped (samples, targets, channels, time). The
// output time axis equals the input time axis exactly; internal zero padding
// to a whole number of segments is cropped before returning.
func (s *Separator) Forward(audio *tensor.Tensor) (*tensor.Tensor, error) {
	if audio == nil || audio.Rank() != 3 {
		return nil, errors.New("separate: audio must have rank 3 (samples, channels, time)")
	}
	if audio.Dim(1) != s.channels {
		return nil, fmt.Errorf("separate: audio has %d channels, want %d", audio.Dim(1), s.channels)
	}

	nbSamples := audio.Dim(0)
	length := audio.Dim(2)
	nbTargets := len(s.targets)

	super := s.seqBatch * s.chunkSize
	nbSegments := (length + super - 1) / super
	padded := nbSegments * super
	padLast := padded - length

	mix, err := audio.PadEnd(padLast)
	if err != nil {
		return nil, err
	}
	mixData := mix.Data()

	est := tensor.New(nbSamples, nbTargets, s.channels, padded)
	estData := est.Data()

	segment := tensor.New(nbSamples*s.seqBatch, s.channels, s.chunkSize)
	segData := segment.Data()

	for g := range nbSegments {
		// chunk slot s*seqBatch+b carries time window (g*seqBatch+b)*chunk
		for smp := range nbSamples {
			for b := range s.seqBatch {
				slot := smp*s.seqBatch + b
				start := (g*s.seqBatch + b) * s.chunkSize
				for c := range s.channels {
					src := (smp*s.channels+c)*padded + start
					dst := (slot*s.channels + c) * s.chunkSize
					copy(segData[dst:dst+s.chunkSize], mixData[src:src+s.chunkSize])
				}
			}
		}

		for j, tr := range s.targets {
			mixSpec, err := tr.forward.Transform(segment)
			if err != nil {
				return nil, fmt.Errorf("separate: target %q: %w", tr.name, err)
			}

			mixMag, err := s.complexNrm.Apply(mixSpec)
			if err != nil {
				return nil, fmt.Errorf("separate: target %q: %w", tr.name, err)
			}

			// the model receives a detached value copy of the magnitude
			estMag, err := tr.model.Forward(mixMag.Clone())
			if err != nil {
				return nil, fmt.Errorf("separate: target %q: %w", tr.name, err)
			}

			estSpec, err := transform.PhaseMix(mixSpec, estMag)
			if err != nil {
				return nil, fmt.Errorf("separate: target %q: %w", tr.name, err)
			}

			wave, err := tr.inverse.Transform(estSpec, s.chunkSize)
			if err != nil {
				return nil, fmt.Errorf("separate: target %q: %w", tr.name, err)
			}
			waveData := wave.Data()

			for smp := range nbSamples {
				for b := range s.seqBatch {
					slot := smp*s.seqBatch + b
					start := (g*s.seqBatch + b) * s.chunkSize
					for c := range s.channels {
						src := (slot*s.channels + c) * s.chunkSize
						dst := ((smp*nbTargets+j)*s.channels+c)*padded + start
						copy(estData[dst:dst+s.chunkSize], waveData[src:src+s.chunkSize])
					}
				}
			}
		}
	}

	if padLast == 0 {
		return est, nil
	}
	return est.CropEnd(length)
}

// ToDict converts a stacked estimate tensor shaped
// (samples, targets, channels, time) into a map from target name to its
// (samples, channels, time) waveform.
//
// If aggregate is non-nil, a new map is returned instead, with one entry per
// group holding the elementwise sum of its constituent targets; the
// per-target mapping is discarded.
func (s *Separator) ToDict(estimates *tensor.Tensor, aggregate map[string][]string) (map[string]*tensor.Tensor, error) {
	if estimates == nil || estimates.Rank() != 4 {
		return nil, errors.New("separate: estimates must have rank 4 (samples, targets, channels, time)")
	}
	if estimates.Dim(1) != len(s.targets) {
		return nil, fmt.Errorf("separate: estimates carry %d targets, registry has %d",
			estimates.Dim(1), len(s.targets))
	}

	nbSamples := estimates.Dim(0)
	nbTargets := estimates.Dim(1)
	nbChannels := estimates.Dim(2)
	length := estimates.Dim(3)
	estData := estimates.Data()

	byName := make(map[string]*tensor.Tensor, nbTargets)
	for j, tr := range s.targets {
		out := tensor.New(nbSamples, nbChannels, length)
		outData := out.Data()
		for smp := range nbSamples {
			for c := range nbChannels {
				src := ((smp*nbTargets+j)*nbChannels + c) * length
				dst := (smp*nbChannels + c) * length
				copy(outData[dst:dst+length], estData[src:src+length])
			}
		}
		byName[tr.name] = out
	}

	if aggregate == nil {
		return byName, nil
	}

	grouped := make(map[string]*tensor.Tensor, len(aggregate))
	for group, names := range aggregate {
		sum := tensor.New(nbSamples, nbChannels, length)
		for _, name := range names {
			part, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("separate: %w: %q in aggregate group %q", ErrUnknownTarget, name, group)
			}
			if err := sum.AddInPlace(part); err != nil {
				return nil, err
			}
		}
		grouped[group] = sum
	}
	return grouped, nil
}
