package separate

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-unmix/internal/testutil"
	"github.com/cwbudde/algo-unmix/tensor"
	"github.com/cwbudde/algo-unmix/transform"
	"github.com/cwbudde/algo-unmix/window"
)

// identityModel passes magnitudes through scaled by gain. With gain 1 the
// full pipeline reduces to transform reconstruction; with gain 0 it yields
// silence.
type identityModel struct {
	gain   float64
	frozen bool
}

func (m *identityModel) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := x.Clone()
	out.Scale(m.gain)
	return out, nil
}

func (m *identityModel) Freeze() { m.frozen = true }

func testBase() transform.Base {
	return transform.Base{
		FrameSize: 256,
		HopSize:   64,
		SubBins:   10,
		Window:    window.TypeHann,
	}
}

func newTestSeparator(t *testing.T, names []string, gains []float64, opts ...Option) (*Separator, []*identityModel) {
	t.Helper()

	models := make([]*identityModel, len(names))
	targets := make([]Target, len(names))
	for i, name := range names {
		models[i] = &identityModel{gain: gains[i]}
		targets[i] = Target{Name: name, Model: models[i], Base: testBase()}
	}

	s, err := New(targets, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s, models
}

func TestNewValidation(t *testing.T) {
	base := testBase()

	if _, err := New(nil); err == nil {
		t.Fatal("expected error for empty target list")
	}

	m := &identityModel{gain: 1}
	if _, err := New([]Target{{Name: "", Model: m, Base: base}}); err == nil {
		t.Fatal("expected error for empty target name")
	}
	if _, err := New([]Target{
		{Name: "vocals", Model: m, Base: base},
		{Name: "vocals", Model: m, Base: base},
	}); err == nil {
		t.Fatal("expected error for duplicate target name")
	}
	if _, err := New([]Target{{Name: "vocals", Model: nil, Base: base}}); err == nil {
		t.Fatal("expected error for nil model")
	}
	if _, err := New([]Target{{Name: "vocals", Model: m, Base: transform.Base{}}}); err == nil {
		t.Fatal("expected error for invalid filterbank config")
	}
}

func TestLengthInvariance(t *testing.T) {
	s, _ := newTestSeparator(t, []string{"vocals"}, []float64{1},
		WithSampleRate(100), WithSeqDuration(1), WithSeqBatch(2), WithChannels(2))

	if s.ChunkSize() != 100 {
		t.Fatalf("chunk size = %d, want 100", s.ChunkSize())
	}

	for _, length := range []int{1, 150, 200, 399, 400, 1000} {
		audio := testutil.NoiseWaveform(int64(length), 0.5, 1, 2, length)

		est, err := s.Forward(audio)
		if err != nil {
			t.Fatalf("forward failed for length %d: %v", length, err)
		}

		testutil.RequireShape(t, est.Shape(), []int{1, 1, 2, length})
		testutil.RequireFinite(t, est.Data())
	}
}

func TestTargetOrdering(t *testing.T) {
	s, _ := newTestSeparator(t, []string{"vocals", "drums"}, []float64{1, 0},
		WithSampleRate(2000), WithSeqDuration(1), WithSeqBatch(1), WithChannels(1))

	audio := testutil.SineWaveform(100, 2000, 0.8, 1, 1, 2000)
	est, err := s.Forward(audio)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	names := s.Targets()
	if names[0] != "vocals" || names[1] != "drums" {
		t.Fatalf("targets = %v, want [vocals drums]", names)
	}

	var energy [2]float64
	for j := range 2 {
		for i := range 2000 {
			v := est.At(0, j, 0, i)
			energy[j] += v * v
		}
	}
	if energy[0] < 1 {
		t.Fatalf("unit-gain target energy = %v, want substantial signal", energy[0])
	}
	if energy[1] > 1e-12 {
		t.Fatalf("zero-gain target energy = %v, want silence", energy[1])
	}
}

func TestToDictKeys(t *testing.T) {
	s, _ := newTestSeparator(t, []string{"vocals", "drums", "bass"}, []float64{1, 0.5, 0},
		WithSampleRate(1000), WithSeqDuration(0.5), WithSeqBatch(1), WithChannels(1))

	audio := testutil.NoiseWaveform(3, 0.5, 2, 1, 900)
	est, err := s.Forward(audio)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	dict, err := s.ToDict(est, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dict) != 3 {
		t.Fatalf("dict has %d entries, want 3", len(dict))
	}
	for j, name := range s.Targets() {
		entry, ok := dict[name]
		if !ok {
			t.Fatalf("missing target %q", name)
		}
		testutil.RequireShape(t, entry.Shape(), []int{2, 1, 900})

		// entry j must be the j-th slice of the stacked tensor
		for smp := range 2 {
			for i := 0; i < 900; i += 113 {
				if entry.At(smp, 0, i) != est.At(smp, j, 0, i) {
					t.Fatalf("target %q sample (%d, %d) does not match stacked slice", name, smp, i)
				}
			}
		}
	}
}

func TestAggregation(t *testing.T) {
	s, _ := newTestSeparator(t, []string{"vocals", "drums", "bass"}, []float64{1, 0.5, 0.25},
		WithSampleRate(1000), WithSeqDuration(0.5), WithSeqBatch(1), WithChannels(1))

	audio := testutil.NoiseWaveform(9, 0.5, 2, 1, 750)
	est, err := s.Forward(audio)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	plain, err := s.ToDict(est, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	grouped, err := s.ToDict(est, map[string][]string{
		"vocals_and_drums": {"vocals", "drums"},
		"rest":             {"bass"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(grouped) != 2 {
		t.Fatalf("grouped dict has %d entries, want 2", len(grouped))
	}
	if _, ok := grouped["vocals"]; ok {
		t.Fatal("per-target entries must be discarded when aggregating")
	}

	wantSum := plain["vocals"].Clone()
	if err := wantSum.AddInPlace(plain["drums"]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, grouped["vocals_and_drums"].Data(), wantSum.Data(), 1e-12)
	testutil.RequireSliceNearlyEqual(t, grouped["rest"].Data(), plain["bass"].Data(), 1e-12)
}

func TestToDictErrors(t *testing.T) {
	s, _ := newTestSeparator(t, []string{"vocals"}, []float64{1},
		WithSampleRate(1000), WithSeqDuration(0.5), WithSeqBatch(1), WithChannels(1))

	if _, err := s.ToDict(tensor.New(1, 1, 10), nil); err == nil {
		t.Fatal("expected error for rank-3 estimates")
	}
	if _, err := s.ToDict(tensor.New(1, 2, 1, 10), nil); err == nil {
		t.Fatal("expected error for target count mismatch")
	}

	_, err := s.ToDict(tensor.New(1, 1, 1, 10), map[string][]string{"mix": {"nope"}})
	if !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
}

func TestFreezePropagates(t *testing.T) {
	s, models := newTestSeparator(t, []string{"vocals", "drums"}, []float64{1, 1})

	s.Freeze()

	for i, m := range models {
		if !m.frozen {
			t.Fatalf("model %d not frozen", i)
		}
	}
}

func TestForwardRejectsBadInput(t *testing.T) {
	s, _ := newTestSeparator(t, []string{"vocals"}, []float64{1}, WithChannels(2))

	if _, err := s.Forward(tensor.New(2, 100)); err == nil {
		t.Fatal("expected error for rank-2 audio")
	}
	if _, err := s.Forward(tensor.New(1, 1, 100)); err == nil {
		t.Fatal("expected error for channel mismatch")
	}
}

func TestShapeRoundTripScenario(t *testing.T) {
	// mono 1-second waveform at 44100 Hz, seq_dur 1.0, seq_batch 1,
	// single target -> estimate shaped (1, 1, 1, 44100)
	base := transform.Base{FrameSize: 1024, HopSize: 256, SubBins: 16, Window: window.TypeHann}
	s, err := New(
		[]Target{{Name: "vocals", Model: &identityModel{gain: 1}, Base: base}},
		WithSampleRate(44100), WithChannels(1), WithSeqDuration(1.0), WithSeqBatch(1),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	audio := testutil.SineWaveform(440, 44100, 0.5, 1, 1, 44100)
	est, err := s.Forward(audio)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	testutil.RequireShape(t, est.Shape(), []int{1, 1, 1, 44100})
}

func TestIdentityPipelineReconstruction(t *testing.T) {
	// with a unit-gain model the pipeline reduces to the filterbank round
	// trip; the chunk interior must reproduce the input
	s, _ := newTestSeparator(t, []string{"solo"}, []float64{1},
		WithSampleRate(8000), WithSeqDuration(0.5), WithSeqBatch(1), WithChannels(1))

	const length = 4000
	audio := testutil.SineWaveform(220, 8000, 0.8, 1, 1, length)
	est, err := s.Forward(audio)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	frame := testBase().FrameSize
	for i := frame; i < length-frame; i++ {
		got := est.At(0, 0, 0, i)
		want := audio.At(0, 0, i)
		if math.Abs(got-want) > 1e-6 {
			t.Fatalf("sample %d: got %v, want %v", i, got, want)
		}
	}
}
