package detect

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Gasburger/BrainBox/pkg/signal"
)

// LiveScanner adapts the sliding-window scan to a live sample source. A
// single producer appends chunks with [LiveScanner.Push]; the scanning loop
// owns the cursor exclusively and walks the buffer exactly like
// [Scanner.Scan], pausing when it catches up with the producer.
//
// The buffer is append-only for the lifetime of the session. Cancellation is
// honoured at step boundaries — between window evaluations, never inside one.
type LiveScanner struct {
	scanner *Scanner
	rate    float64

	mu     sync.Mutex
	buf    []float64
	closed bool
	notify chan struct{}
}

// NewLiveScanner wraps an already-validated [Scanner] for a live stream at
// sampleRate Hz.
func NewLiveScanner(s *Scanner, sampleRate float64) (*LiveScanner, error) {
	if _, err := signal.New(nil, sampleRate); err != nil {
		return nil, err
	}
	return &LiveScanner{
		scanner: s,
		rate:    sampleRate,
		notify:  make(chan struct{}, 1),
	}, nil
}

// Push appends a chunk of samples from the producer. Safe to call
// concurrently with a running scan, but only from a single producer.
// Push after [LiveScanner.CloseInput] is a no-op.
func (l *LiveScanner) Push(samples []float64) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.buf = append(l.buf, samples...)
	l.mu.Unlock()
	l.wake()
}

// CloseInput signals that no more samples will arrive. The scan drains the
// remaining buffer and then its output channel closes.
func (l *LiveScanner) CloseInput() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wake()
}

func (l *LiveScanner) wake() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// BufferLen returns the current number of buffered samples. Exposed for
// metrics.
func (l *LiveScanner) BufferLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buf)
}

// Run starts the scanning loop and returns its output channel. The channel
// closes when ctx is cancelled or the input is closed and fully drained.
// Window start indices on the emitted detections are absolute positions in
// the live stream, so start times are relative to the session start.
//
// Run must be called at most once per LiveScanner.
func (l *LiveScanner) Run(ctx context.Context) <-chan Detection {
	out := make(chan Detection)
	go func() {
		defer close(out)
		cursor := 0
		for {
			l.mu.Lock()
			buf := l.buf
			closed := l.closed
			l.mu.Unlock()

			if cursor+l.scanner.windowSize > len(buf) {
				if closed {
					return
				}
				// Caught up with the producer; wait for more samples.
				select {
				case <-ctx.Done():
					slog.Debug("live scan cancelled", "cursor", cursor, "buffered", len(buf))
					return
				case <-l.notify:
					continue
				}
			}

			// The buffer is append-only, so a snapshot header taken above
			// stays valid even while the producer keeps appending.
			sig, err := signal.New(buf, l.rate)
			if err != nil {
				return
			}
			w, err := sig.Window(cursor, l.scanner.windowSize)
			if err != nil {
				return
			}
			crossings := Crossings(w.Samples())
			hit := l.scanner.detector.Detect(w.Samples())

			select {
			case <-ctx.Done():
				return
			case out <- Detection{Window: w, Event: hit, Crossings: crossings}:
			}

			if hit {
				cursor += l.scanner.windowSize
			} else {
				cursor += l.scanner.increment
			}
		}
	}()
	return out
}
