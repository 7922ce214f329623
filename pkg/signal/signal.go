// Package signal provides the core data model for recorded waveforms: an
// immutable amplitude [Signal] with a uniform sample rate, and [Window] views
// into contiguous sub-ranges of it.
//
// A Signal is loaded once from an external source (a decoded recording file or
// a live capture transport) and never mutated afterwards. All downstream
// pipeline stages — scanning, detection, feature extraction — operate on
// Window views, so no stage ever copies or modifies the underlying samples.
package signal

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow is returned when a window is degenerate: empty, out of the
// signal's bounds, or too short for the requested operation.
var ErrInvalidWindow = errors.New("signal: invalid window")

// Signal is an immutable 1-D amplitude sequence with a uniform sample rate.
// The time of sample i is i / SampleRate() seconds.
//
// Construct one with [New]; the zero value is not usable.
type Signal struct {
	samples    []float64
	sampleRate float64
}

// New wraps samples recorded at sampleRate Hz in a Signal. The slice is
// retained, not copied — callers must not modify it after construction.
func New(samples []float64, sampleRate float64) (*Signal, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("signal: sample rate must be positive, got %v", sampleRate)
	}
	return &Signal{samples: samples, sampleRate: sampleRate}, nil
}

// Len returns the number of samples.
func (s *Signal) Len() int { return len(s.samples) }

// SampleRate returns the sample rate in Hz.
func (s *Signal) SampleRate() float64 { return s.sampleRate }

// Samples returns the underlying sample slice. It is shared, not copied;
// treat it as read-only.
func (s *Signal) Samples() []float64 { return s.samples }

// Duration returns the total duration of the signal in seconds.
func (s *Signal) Duration() float64 {
	return float64(len(s.samples)) / s.sampleRate
}

// Time returns the timestamp of sample i in seconds from the start of the
// recording.
func (s *Signal) Time(i int) float64 {
	return float64(i) / s.sampleRate
}

// Index returns the sample index closest to time t seconds, clamped to the
// valid range [0, Len()-1].
func (s *Signal) Index(t float64) int {
	i := int(t*s.sampleRate + 0.5)
	if i < 0 {
		return 0
	}
	if i >= len(s.samples) {
		return len(s.samples) - 1
	}
	return i
}

// Window returns a view over samples [start, start+length). It fails with
// [ErrInvalidWindow] if the range is empty or exceeds the signal bounds.
func (s *Signal) Window(start, length int) (Window, error) {
	if start < 0 || length < 1 || start+length > len(s.samples) {
		return Window{}, fmt.Errorf("%w: start=%d length=%d signal=%d samples",
			ErrInvalidWindow, start, length, len(s.samples))
	}
	return Window{signal: s, start: start, length: length}, nil
}

// Window is a contiguous sub-range of a [Signal], identified by its start
// index and length. Windows are cheap value types: they reference the parent
// signal rather than copying samples.
type Window struct {
	signal *Signal
	start  int
	length int
}

// Start returns the index of the window's first sample in the parent signal.
func (w Window) Start() int { return w.start }

// Len returns the number of samples in the window.
func (w Window) Len() int { return w.length }

// StartTime returns the window's start time in seconds from the beginning of
// the parent signal.
func (w Window) StartTime() float64 { return w.signal.Time(w.start) }

// Duration returns the window's length in seconds.
func (w Window) Duration() float64 {
	return float64(w.length) / w.signal.sampleRate
}

// Samples returns the window's sample slice. Shared with the parent signal;
// treat it as read-only.
func (w Window) Samples() []float64 {
	return w.signal.samples[w.start : w.start+w.length]
}

// LocalTime returns the window's local time axis, beginning at 0. Feature
// extraction and snippet persistence use this normalised axis so windows
// compare independently of where they occur in the recording.
func (w Window) LocalTime() []float64 {
	ts := make([]float64, w.length)
	for i := range ts {
		ts[i] = float64(i) / w.signal.sampleRate
	}
	return ts
}

// SampleRate returns the sample rate of the parent signal in Hz.
func (w Window) SampleRate() float64 { return w.signal.sampleRate }
