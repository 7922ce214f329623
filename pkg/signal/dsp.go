package signal

import "fmt"

// Normalize centres samples on their mean and scales them so the maximum
// absolute amplitude is 1. It returns a new slice; the input is not modified.
//
// Normalisation makes snippets from different recording sessions comparable:
// electrode gain and baseline offset vary per session, but the waveform shape
// is what carries the event.
//
// A flat signal (all samples equal) has no amplitude to scale by and fails
// with [ErrInvalidWindow].
func Normalize(samples []float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: cannot normalize empty slice", ErrInvalidWindow)
	}
	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(len(samples))

	out := make([]float64, len(samples))
	maxAbs := 0.0
	for i, v := range samples {
		out[i] = v - mean
		if a := abs(out[i]); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return nil, fmt.Errorf("%w: flat signal has no amplitude", ErrInvalidWindow)
	}
	for i := range out {
		out[i] /= maxAbs
	}
	return out, nil
}

// Smooth applies a boxcar (moving average) filter of the given width and
// returns a new slice. Live capture hardware produces high-frequency quantisation
// noise that inflates the zero-crossing count; smoothing before detection
// restores the count to the range the detector thresholds were tuned on.
//
// Width is clamped to [1, len(samples)]. Edges use a shrunken kernel so the
// output has the same length as the input.
func Smooth(samples []float64, width int) []float64 {
	if width < 1 {
		width = 1
	}
	if width > len(samples) {
		width = len(samples)
	}
	out := make([]float64, len(samples))
	half := width / 2
	for i := range samples {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(samples) {
			hi = len(samples)
		}
		sum := 0.0
		for _, v := range samples[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

// SmoothWidth returns the boxcar width used for live-source smoothing: one
// fiftieth of the buffer length, with a floor of 1.
func SmoothWidth(n int) int {
	w := n / 50
	if w < 1 {
		w = 1
	}
	return w
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
