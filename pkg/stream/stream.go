// Package stream provides acquisition sources that feed sample chunks into
// the live detection pipeline. Sources abstract over pre-recorded arrays,
// WAV captures and a WebSocket relay speaking the SpikerBox wire protocol.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrClosed is returned by Read after a source has been closed.
var ErrClosed = errors.New("stream: source is closed")

// Source yields successive chunks of amplitude samples from an acquisition
// backend. Read returns [io.EOF] once the source is exhausted. Chunk sizes
// are backend-dependent; callers must not assume a fixed length.
type Source interface {
	// Read blocks until the next chunk of samples is available.
	Read(ctx context.Context) ([]float64, error)

	// SampleRate reports the acquisition rate in samples per second.
	SampleRate() int

	// Close releases the backend. Subsequent reads return [ErrClosed].
	Close() error
}

// Drain reads src to exhaustion, passing each chunk to fn. It stops early
// when fn returns an error or ctx is cancelled. A clean [io.EOF] from the
// source is not an error.
func Drain(ctx context.Context, src Source, fn func([]float64) error) error {
	for {
		chunk, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream: read: %w", err)
		}
		if len(chunk) == 0 {
			continue
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
}
