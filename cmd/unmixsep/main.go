// Command unmixsep separates a WAV mixture into per-target stems.
//
// Usage:
//
//	unmixsep -in mixture.wav [flags]
//
// One output file is written per target (or per aggregate group) next to the
// input, named <input>_<target>.wav.
//
// Examples:
//
//	unmixsep -in song.wav
//	unmixsep -in song.wav -targets vocals,drums,bass,other
//	unmixsep -in song.wav -aggregate "accompaniment=drums+bass+other"
//	unmixsep -in song.wav -frame 4096 -hop 1024 -seq-dur 3
//
// Model weights are randomly initialized from -seed; checkpoint loading is
// not part of this tool.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/cwbudde/algo-unmix/separate"
	"github.com/cwbudde/algo-unmix/tensor"
	"github.com/cwbudde/algo-unmix/transform"
	"github.com/cwbudde/algo-unmix/unmix"
	"github.com/cwbudde/algo-unmix/window"
)

var (
	inPath    = flag.String("in", "", "input WAV file (required)")
	outDir    = flag.String("outdir", "", "output directory (default: alongside the input)")
	targets   = flag.String("targets", "vocals,drums,bass,other", "comma-separated target names")
	aggregate = flag.String("aggregate", "", "aggregate groups, e.g. \"accompaniment=drums+bass+other\"")
	seqDur    = flag.Float64("seq-dur", 6.0, "chunk duration in seconds")
	seqBatch  = flag.Int("seq-batch", 8, "chunks batched per segment")
	frameSize = flag.Int("frame", 8192, "filterbank FFT frame size")
	hopSize   = flag.Int("hop", 2048, "filterbank hop size")
	subBins   = flag.Int("subbins", 113, "filterbank sub-bins per frequency group")
	seed      = flag.Int64("seed", 42, "model weight initialization seed")
)

func main() {
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "unmixsep: -in is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "unmixsep: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	audio, sampleRate, channels, err := loadWAV(*inPath)
	if err != nil {
		return err
	}
	fmt.Printf("loaded %s: %d channels, %d samples at %g Hz\n",
		*inPath, channels, audio.Dim(2), sampleRate)

	base := transform.Base{
		FrameSize: *frameSize,
		HopSize:   *hopSize,
		SubBins:   *subBins,
		Window:    window.TypeHann,
	}
	if err := base.Validate(); err != nil {
		return err
	}

	names := splitList(*targets, ",")
	if len(names) == 0 {
		return fmt.Errorf("no targets given")
	}

	sepTargets := make([]separate.Target, 0, len(names))
	for i, name := range names {
		model, err := unmix.New(base.Groups(), base.SubBins,
			unmix.WithChannels(channels), unmix.WithSeed(*seed+int64(i)))
		if err != nil {
			return fmt.Errorf("target %q: %w", name, err)
		}
		model.Freeze()
		sepTargets = append(sepTargets, separate.Target{Name: name, Model: model, Base: base})
	}

	sep, err := separate.New(sepTargets,
		separate.WithSampleRate(sampleRate),
		separate.WithChannels(channels),
		separate.WithSeqDuration(*seqDur),
		separate.WithSeqBatch(*seqBatch),
	)
	if err != nil {
		return err
	}

	aggr, err := parseAggregate(*aggregate)
	if err != nil {
		return err
	}

	fmt.Printf("separating %d targets (chunk %d samples, batch %d)\n",
		len(names), sep.ChunkSize(), sep.SeqBatch())

	est, err := sep.Forward(audio)
	if err != nil {
		return err
	}

	stems, err := sep.ToDict(est, aggr)
	if err != nil {
		return err
	}

	for name, stem := range stems {
		path := outputPath(*inPath, *outDir, name)
		if err := writeWAV(path, stem, sampleRate, channels); err != nil {
			return fmt.Errorf("writing %q: %w", path, err)
		}
		fmt.Printf("wrote %s\n", path)
	}

	return nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseAggregate parses "group=a+b,group2=c" into an aggregation map.
func parseAggregate(s string) (map[string][]string, error) {
	if s == "" {
		return nil, nil
	}

	out := make(map[string][]string)
	for _, entry := range splitList(s, ",") {
		group, members, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("malformed aggregate entry %q (want group=a+b)", entry)
		}
		names := splitList(members, "+")
		if group == "" || len(names) == 0 {
			return nil, fmt.Errorf("malformed aggregate entry %q (want group=a+b)", entry)
		}
		out[group] = names
	}
	return out, nil
}

func outputPath(in, dir, target string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	name := fmt.Sprintf("%s_%s.wav", base, target)
	if dir == "" {
		dir = filepath.Dir(in)
	}
	return filepath.Join(dir, name)
}

// loadWAV decodes a WAV file into a waveform tensor (1, channels, time).
func loadWAV(path string) (*tensor.Tensor, float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}

	stream, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, 0, 0, fmt.Errorf("decoding %q: %w", path, err)
	}
	defer stream.Close()

	channels := format.NumChannels
	if channels > 2 {
		channels = 2
	}

	var left, right []float64
	buf := make([][2]float64, 4096)
	for {
		n, ok := stream.Stream(buf)
		for i := range n {
			left = append(left, buf[i][0])
			right = append(right, buf[i][1])
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("reading %q: %w", path, err)
	}
	if len(left) == 0 {
		return nil, 0, 0, fmt.Errorf("%q contains no samples", path)
	}

	out := tensor.New(1, channels, len(left))
	data := out.Data()
	copy(data[:len(left)], left)
	if channels == 2 {
		copy(data[len(left):], right)
	}

	return out, float64(format.SampleRate), channels, nil
}

// wavStreamer adapts one stem (samples=1, channels, time) to a beep.Streamer.
type wavStreamer struct {
	stem     *tensor.Tensor
	channels int
	pos      int
}

func (w *wavStreamer) Stream(samples [][2]float64) (int, bool) {
	length := w.stem.Dim(2)
	if w.pos >= length {
		return 0, false
	}

	n := 0
	for n < len(samples) && w.pos < length {
		l := w.stem.At(0, 0, w.pos)
		r := l
		if w.channels == 2 {
			r = w.stem.At(0, 1, w.pos)
		}
		samples[n] = [2]float64{l, r}
		n++
		w.pos++
	}
	return n, true
}

func (w *wavStreamer) Err() error { return nil }

func writeWAV(path string, stem *tensor.Tensor, sampleRate float64, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(int(sampleRate)),
		NumChannels: channels,
		Precision:   2,
	}

	if err := wav.Encode(f, &wavStreamer{stem: stem, channels: channels}, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
