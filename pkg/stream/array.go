package stream

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// defaultChunk is the number of samples served per Read by in-memory sources.
const defaultChunk = 1024

// ArraySource replays a pre-recorded .npy capture as a stream. Both raw 1×N
// amplitude arrays and 2×N recordings (amplitude row plus time row) are
// accepted; only the amplitude row is streamed.
type ArraySource struct {
	samples []float64
	rate    int
	pos     int
	chunk   int
	closed  bool
}

var _ Source = (*ArraySource)(nil)

// OpenArray loads path and prepares it for replay at the given sample rate.
func OpenArray(path string, sampleRate int) (*ArraySource, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("stream: sample rate must be positive, got %d", sampleRate)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stream: open %q: %w", path, err)
	}
	defer f.Close()

	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, fmt.Errorf("stream: read %q: %w", path, err)
	}
	rows, cols := m.Dims()
	if rows < 1 || rows > 2 || cols == 0 {
		return nil, fmt.Errorf("stream: %q: expected a 1-row or 2-row recording, got %d×%d", path, rows, cols)
	}
	return &ArraySource{
		samples: mat.Row(nil, 0, &m),
		rate:    sampleRate,
		chunk:   defaultChunk,
	}, nil
}

// NewArraySource wraps an in-memory sample slice as a replay source.
func NewArraySource(samples []float64, sampleRate int) (*ArraySource, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("stream: sample rate must be positive, got %d", sampleRate)
	}
	cp := make([]float64, len(samples))
	copy(cp, samples)
	return &ArraySource{samples: cp, rate: sampleRate, chunk: defaultChunk}, nil
}

// Read returns the next chunk of samples, or [io.EOF] once exhausted.
func (s *ArraySource) Read(ctx context.Context) ([]float64, error) {
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

// SampleRate reports the replay rate in samples per second.
func (s *ArraySource) SampleRate() int { return s.rate }

// Close releases the source.
func (s *ArraySource) Close() error {
	s.closed = true
	return nil
}
