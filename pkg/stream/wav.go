package stream

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// WAVSource replays a WAV capture as a stream of float64 samples in [-1, 1].
// Multi-channel files are mixed down to mono by averaging.
type WAVSource struct {
	samples []float64
	rate    int
	pos     int
	chunk   int
	closed  bool
}

var _ Source = (*WAVSource)(nil)

// OpenWAV decodes the WAV file at path for replay. The sample rate is taken
// from the file header.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stream: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("stream: decode %q: %w", path, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("stream: %q: missing or invalid WAV format header", path)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	scale := float64(int(1) << (dec.BitDepth - 1))
	frames := len(buf.Data) / channels

	samples := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(buf.Data[i*channels+c])
		}
		samples[i] = sum / float64(channels) / scale
	}

	return &WAVSource{
		samples: samples,
		rate:    buf.Format.SampleRate,
		chunk:   defaultChunk,
	}, nil
}

// Read returns the next chunk of samples, or [io.EOF] once exhausted.
func (s *WAVSource) Read(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, ErrClosed
	}
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	end := min(s.pos+s.chunk, len(s.samples))
	chunk := s.samples[s.pos:end]
	s.pos = end
	return chunk, nil
}

// SampleRate reports the rate declared in the WAV header.
func (s *WAVSource) SampleRate() int { return s.rate }

// Close releases the source.
func (s *WAVSource) Close() error {
	s.closed = true
	return nil
}
