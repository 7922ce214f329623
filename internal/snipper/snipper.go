// Package snipper cuts labelled waveform snippets out of annotated
// recordings. It pairs each WAV capture in a directory with an annotation
// file of the same base name, cuts a window around every annotated
// timestamp, normalises it and writes it as a 2-row .npy snippet named
// {recording}_{tag}_{n}.npy. Optionally the gaps between events are saved
// as noise snippets for classifier training.
package snipper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Gasburger/BrainBox/internal/annotate"
	"github.com/Gasburger/BrainBox/internal/observe"
	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/signal"
	"github.com/Gasburger/BrainBox/pkg/snippet"
	"github.com/Gasburger/BrainBox/pkg/stream"
)

const (
	// DefaultSnippetSize is the cut length in seconds.
	DefaultSnippetSize = 1.0

	// DefaultRightProportion is the share of the cut placed after the
	// annotated timestamp. Annotations are typically made at event onset,
	// so most of the window lies to the right.
	DefaultRightProportion = 0.9

	// NoiseDir is the subdirectory for inter-event noise snippets.
	NoiseDir = "Noise"

	// runConcurrency bounds the number of recordings processed in parallel.
	runConcurrency = 4
)

// Override adjusts the cut geometry for one tag.
type Override struct {
	SnippetSize     float64 `json:"snippet_size"`
	RightProportion float64 `json:"right_proportion"`
}

// LoadOverrides reads a JSON file mapping tags to cut overrides.
func LoadOverrides(path string) (map[string]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snipper: read overrides %q: %w", path, err)
	}
	var overrides map[string]Override
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("snipper: parse overrides %q: %w", path, err)
	}
	return overrides, nil
}

// Options controls one snipping run.
type Options struct {
	// InputDir holds the recordings and their annotation files.
	InputDir string

	// OutputDir receives the snippet files. It is created if its parent
	// exists.
	OutputDir string

	// SnippetSize is the cut length in seconds. Zero means
	// [DefaultSnippetSize].
	SnippetSize float64

	// RightProportion is in [0, 1]; zero means [DefaultRightProportion].
	RightProportion float64

	// Overrides adjusts geometry per tag.
	Overrides map[string]Override

	// Noise also cuts the gaps between events into OutputDir/Noise.
	Noise bool
}

// Result summarises a run.
type Result struct {
	// Processed lists recordings that had annotations and were cut.
	Processed []string

	// Skipped lists recordings without an annotation file.
	Skipped []string

	// Snippets is the total number of files written, noise included.
	Snippets int
}

// Run cuts snippets for every annotated recording under opts.InputDir.
// Recordings are processed in parallel; the first error cancels the rest.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.SnippetSize == 0 {
		opts.SnippetSize = DefaultSnippetSize
	}
	if opts.RightProportion == 0 {
		opts.RightProportion = DefaultRightProportion
	}
	if opts.SnippetSize < 0 || opts.RightProportion < 0 || opts.RightProportion > 1 {
		return nil, fmt.Errorf("snipper: invalid geometry: size %v, right proportion %v",
			opts.SnippetSize, opts.RightProportion)
	}
	if _, err := os.Stat(opts.InputDir); err != nil {
		return nil, fmt.Errorf("snipper: input directory: %w", err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("snipper: output directory: %w", err)
	}
	if opts.Noise {
		if err := os.MkdirAll(filepath.Join(opts.OutputDir, NoiseDir), 0o755); err != nil {
			return nil, fmt.Errorf("snipper: noise directory: %w", err)
		}
	}

	recordings, err := filepath.Glob(filepath.Join(opts.InputDir, "*.wav"))
	if err != nil {
		return nil, fmt.Errorf("snipper: glob %q: %w", opts.InputDir, err)
	}
	sort.Strings(recordings)

	var (
		mu     sync.Mutex
		result Result
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runConcurrency)
	for _, rec := range recordings {
		g.Go(func() error {
			tail := strings.TrimSuffix(filepath.Base(rec), filepath.Ext(rec))
			annPath := strings.TrimSuffix(rec, filepath.Ext(rec)) + ".txt"

			set, err := annotate.LoadOptional(annPath)
			if err != nil {
				return err
			}
			if set.Len() == 0 {
				slog.Info("no annotations for recording, skipping", "recording", tail)
				mu.Lock()
				result.Skipped = append(result.Skipped, tail)
				mu.Unlock()
				return nil
			}

			n, err := snipRecording(ctx, rec, tail, set, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Processed = append(result.Processed, tail)
			result.Snippets += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(result.Processed)
	sort.Strings(result.Skipped)
	return &result, nil
}

// cut is one half-open sample index range occupied by an event.
type cut struct{ start, end int }

// snipRecording cuts all snippets for one recording and returns how many
// files it wrote.
func snipRecording(ctx context.Context, path, tail string, set *annotate.Set, opts Options) (int, error) {
	src, err := stream.OpenWAV(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	var samples []float64
	if err := stream.Drain(ctx, src, func(chunk []float64) error {
		samples = append(samples, chunk...)
		return nil
	}); err != nil {
		return 0, err
	}
	rate := float64(src.SampleRate())

	written := 0
	counts := make(map[string]int)
	var occupied []cut

	for _, tag := range set.Tags() {
		size, right := opts.SnippetSize, opts.RightProportion
		if o, ok := opts.Overrides[tag]; ok {
			if o.SnippetSize > 0 {
				size = o.SnippetSize
			}
			if o.RightProportion > 0 {
				right = o.RightProportion
			}
		}
		for _, ts := range set.Times(tag) {
			start := clampIndex((ts-(1-right)*size)*rate, len(samples))
			end := clampIndex((ts+right*size)*rate, len(samples))
			occupied = append(occupied, cut{start, end})

			counts[tag]++
			name := fmt.Sprintf("%s_%s_%d%s", tail, tag, counts[tag], snippet.Ext)
			if err := writeSnippet(filepath.Join(opts.OutputDir, name), samples, start, end, rate); err != nil {
				slog.Warn("skipping snippet", "recording", tail, "tag", tag, "timestamp", ts, "err", err)
				counts[tag]--
				continue
			}
			observe.DefaultMetrics().RecordSnippet(ctx, tag)
			written++
		}
	}

	// Ignored spans block noise extraction without producing a snippet.
	for _, ts := range set.Ignored() {
		start := clampIndex((ts-(1-opts.RightProportion)*opts.SnippetSize)*rate, len(samples))
		end := clampIndex((ts+opts.RightProportion*opts.SnippetSize)*rate, len(samples))
		occupied = append(occupied, cut{start, end})
	}

	if opts.Noise {
		n, err := snipNoise(ctx, tail, samples, rate, occupied, counts, opts)
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// snipNoise cuts the gaps before and between event spans. The region after
// the last event is left alone since the recording tail often contains
// electrode removal artefacts.
func snipNoise(ctx context.Context, tail string, samples []float64, rate float64, occupied []cut, counts map[string]int, opts Options) (int, error) {
	sort.Slice(occupied, func(i, j int) bool { return occupied[i].start < occupied[j].start })

	tag := string(event.Noise)
	written := 0
	cursor := 0
	for _, c := range occupied {
		if cursor < c.start {
			counts[tag]++
			name := fmt.Sprintf("%s_%s_%d%s", tail, tag, counts[tag], snippet.Ext)
			err := writeSnippet(filepath.Join(opts.OutputDir, NoiseDir, name), samples, cursor, c.start, rate)
			if err != nil {
				slog.Warn("skipping noise snippet", "recording", tail, "start", cursor, "err", err)
				counts[tag]--
			} else {
				observe.DefaultMetrics().RecordSnippet(ctx, tag)
				written++
			}
		}
		cursor = max(cursor, c.end)
	}
	return written, nil
}

// writeSnippet normalises samples[start:end] and persists it with its time
// axis. Degenerate slices (empty or flat) surface as errors from
// [signal.Normalize].
func writeSnippet(path string, samples []float64, start, end int, rate float64) error {
	if end-start < 2 {
		return fmt.Errorf("snipper: slice [%d, %d) too short", start, end)
	}
	norm, err := signal.Normalize(samples[start:end])
	if err != nil {
		return err
	}
	times := make([]float64, end-start)
	for i := range times {
		times[i] = float64(start+i) / rate
	}
	return snippet.WriteFile(path, norm, times)
}

// clampIndex rounds a fractional sample position into [0, n].
func clampIndex(pos float64, n int) int {
	i := int(math.Round(pos))
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
