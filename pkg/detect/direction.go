package detect

import (
	"fmt"

	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/signal"
)

// Direction classifies a detected window as a left or right eye movement
// using the positions of its extrema. A leftward movement produces a positive
// excursion before the negative one, so its maximum occurs before its
// minimum; a rightward movement is the mirror image.
//
// This is the rule-based two-class baseline. It knows nothing about blinks or
// noise — run it only on windows the detector already flagged.
//
// A window whose maximum and minimum share an index (a single-sample window)
// carries no direction information and fails with [signal.ErrInvalidWindow].
func Direction(w signal.Window) (event.Label, error) {
	samples := w.Samples()
	maxIdx, minIdx := 0, 0
	for i, v := range samples {
		if v > samples[maxIdx] {
			maxIdx = i
		}
		if v < samples[minIdx] {
			minIdx = i
		}
	}
	if maxIdx == minIdx {
		return "", fmt.Errorf("%w: extrema coincide at index %d, no direction", signal.ErrInvalidWindow, maxIdx)
	}
	if maxIdx < minIdx {
		return event.Left, nil
	}
	return event.Right, nil
}
