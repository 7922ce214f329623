package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// WSSource streams samples from a WebSocket relay that forwards raw
// SpikerBox bytes as binary messages. Text messages are ignored. A normal
// closure from the peer ends the stream with [io.EOF].
type WSSource struct {
	conn *websocket.Conn
	dec  FrameDecoder
	rate int

	mu     sync.Mutex
	closed bool
}

var _ Source = (*WSSource)(nil)

// DialWS connects to a SpikerBox relay at url. The relay does not announce
// its acquisition rate, so the caller supplies it.
func DialWS(ctx context.Context, url string, sampleRate int) (*WSSource, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("stream: sample rate must be positive, got %d", sampleRate)
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: dial %q: %w", url, err)
	}
	// Readings arrive faster than the consumer scans during bursts; allow a
	// generous read buffer before backpressure kicks in.
	conn.SetReadLimit(1 << 20)
	return &WSSource{conn: conn, rate: sampleRate}, nil
}

// Read blocks for the next binary message and decodes it into samples.
// Samples split across message boundaries are carried over.
func (s *WSSource) Read(ctx context.Context) ([]float64, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("stream: websocket read: %w", err)
		}
		if typ != websocket.MessageBinary {
			slog.Debug("ignoring non-binary websocket message", "type", typ)
			continue
		}
		samples := s.dec.Decode(nil, data)
		if len(samples) == 0 {
			continue
		}
		return samples, nil
	}
}

// SampleRate reports the rate supplied at dial time.
func (s *WSSource) SampleRate() int { return s.rate }

// Close closes the underlying connection.
func (s *WSSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close(websocket.StatusNormalClosure, "source closed")
}
