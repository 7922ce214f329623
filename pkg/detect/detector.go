// Package detect implements the streaming event-detection stage: a
// zero-crossing threshold detector and the sliding-window scanner that drives
// it across a recording.
//
// # How detection works
//
// Baseline electrode noise oscillates around zero and crosses it constantly.
// A genuine ocular event is a sustained excursion to one side and back, so the
// window that contains it has far fewer sign changes. Counting zero crossings
// and thresholding the count therefore separates "event" from "no event" with
// a single cheap scalar — no model required.
//
// The statistic depends only on the sign pattern of the samples, which makes
// detection invariant to uniform amplitude rescaling. It is, however, brittle
// against baseline drift and changes in the noise floor between recording
// sessions: the threshold is exposed as configuration and may need
// recalibration per session. No automatic calibration is performed.
package detect

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when scanner or detector parameters are
// unusable. Configuration errors are always fatal before scanning starts,
// never discovered mid-scan.
var ErrInvalidConfig = errors.New("detect: invalid configuration")

// DefaultThreshold is the zero-crossing threshold for a one-second window at
// the reference sample rate. Use [ThresholdFor] to scale it to other window
// sizes.
const DefaultThreshold = 200

// referenceWindow is the window size (in samples) the default threshold was
// tuned on: one second at 500 Hz.
const referenceWindow = 500

// ThresholdFor scales [DefaultThreshold] proportionally to windowSize. The
// crossing count grows linearly with window length for a stationary process,
// so the threshold must follow.
func ThresholdFor(windowSize int) int {
	t := DefaultThreshold * windowSize / referenceWindow
	if t < 1 {
		t = 1
	}
	return t
}

// Detector decides whether a sample window contains an event.
// Implementations must be pure: no state carried between calls.
type Detector interface {
	// Detect reports whether the window holds an event.
	Detect(samples []float64) bool
}

// ZeroCrossing detects events by counting sign changes and comparing against
// a threshold. A window is an event when its crossing count is strictly below
// Threshold.
type ZeroCrossing struct {
	// Threshold is the crossing count at or above which a window is treated
	// as baseline noise. Must be positive.
	Threshold int
}

// NewZeroCrossing returns a detector with the given threshold, failing with
// [ErrInvalidConfig] when the threshold is not positive.
func NewZeroCrossing(threshold int) (*ZeroCrossing, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("%w: threshold must be positive, got %d", ErrInvalidConfig, threshold)
	}
	return &ZeroCrossing{Threshold: threshold}, nil
}

// Detect implements [Detector].
func (z *ZeroCrossing) Detect(samples []float64) bool {
	return Crossings(samples) < z.Threshold
}

// Crossings counts adjacent sample pairs whose product is <= 0: sign changes
// and zero touches both count.
func Crossings(samples []float64) int {
	n := 0
	for i := 0; i+1 < len(samples); i++ {
		if samples[i]*samples[i+1] <= 0 {
			n++
		}
	}
	return n
}
