package detect

import (
	"fmt"
	"iter"

	"github.com/Gasburger/BrainBox/pkg/signal"
)

// Detection is one step of a scan: the window that was examined, whether the
// detector flagged it, and the measured crossing count for instrumentation.
type Detection struct {
	Window    signal.Window
	Event     bool
	Crossings int
}

// Scanner walks a signal with a variable stride, applying a [Detector] at
// each position. After a hit the cursor jumps a full window so the same event
// is not re-detected through overlapping windows; after a miss it advances by
// the much smaller increment so no event straddling a scan boundary is lost.
//
// Known limitation, inherited deliberately: two genuine events closer together
// than one window length are merged, and an event immediately following a hit
// can fall inside the jumped-over region and be forfeited.
//
// A Scanner is exclusively owned by its scanning loop. Never share the cursor
// across goroutines.
type Scanner struct {
	windowSize int
	increment  int
	detector   Detector
}

// Config holds scanner geometry. WindowSize defaults to one second of samples
// and Increment to WindowSize/10 when left zero.
type Config struct {
	// WindowSize is the analysis window length in samples. Sized to the
	// expected event duration: one second of samples by default.
	WindowSize int

	// Increment is the stride in samples when no event was found. Must stay
	// below WindowSize to preserve overlap.
	Increment int
}

// NewScanner validates cfg and builds a scanner around det.
//
// Validation is strict and happens here, not during the scan: a zero or
// negative increment would loop forever, so it fails fast with
// [ErrInvalidConfig].
func NewScanner(cfg Config, det Detector) (*Scanner, error) {
	if det == nil {
		return nil, fmt.Errorf("%w: detector is nil", ErrInvalidConfig)
	}
	if cfg.WindowSize < 1 {
		return nil, fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidConfig, cfg.WindowSize)
	}
	if cfg.Increment == 0 {
		cfg.Increment = cfg.WindowSize / 10
		if cfg.Increment < 1 {
			cfg.Increment = 1
		}
	}
	if cfg.Increment < 1 {
		return nil, fmt.Errorf("%w: increment must be positive, got %d", ErrInvalidConfig, cfg.Increment)
	}
	if cfg.Increment >= cfg.WindowSize {
		return nil, fmt.Errorf("%w: increment %d must be smaller than window size %d",
			ErrInvalidConfig, cfg.Increment, cfg.WindowSize)
	}
	return &Scanner{windowSize: cfg.WindowSize, increment: cfg.Increment, detector: det}, nil
}

// WindowSize returns the configured window length in samples.
func (s *Scanner) WindowSize() int { return s.windowSize }

// Increment returns the configured no-event stride in samples.
func (s *Scanner) Increment() int { return s.increment }

// Scan lazily walks sig from the start and yields every examined window with
// its detection verdict. The sequence is finite: it ends when the next window
// would overrun the signal. A signal shorter than the window size yields
// nothing — that is an empty scan, not an error.
//
// Emitted window start indices are strictly increasing.
func (s *Scanner) Scan(sig *signal.Signal) iter.Seq[Detection] {
	return func(yield func(Detection) bool) {
		cursor := 0
		for cursor+s.windowSize <= sig.Len() {
			w, err := sig.Window(cursor, s.windowSize)
			if err != nil {
				// Unreachable given the loop condition; guard anyway.
				return
			}
			crossings := Crossings(w.Samples())
			hit := s.detector.Detect(w.Samples())
			if !yield(Detection{Window: w, Event: hit, Crossings: crossings}) {
				return
			}
			if hit {
				cursor += s.windowSize
			} else {
				cursor += s.increment
			}
		}
	}
}

// Events scans sig and collects only the detected windows. Convenience for
// callers that do not need per-step instrumentation.
func (s *Scanner) Events(sig *signal.Signal) []Detection {
	var hits []Detection
	for d := range s.Scan(sig) {
		if d.Event {
			hits = append(hits, d)
		}
	}
	return hits
}
