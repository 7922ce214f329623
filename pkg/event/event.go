// Package event defines the label vocabulary and the classified event type
// emitted by the scanning pipeline.
package event

import (
	"fmt"

	"github.com/Gasburger/BrainBox/pkg/signal"
)

// Label identifies the kind of ocular event a window contains. The baseline
// vocabulary covers the control gestures of an EOG headband; trainable
// classifiers may carry additional labels taken from the snippet corpus.
type Label string

const (
	// Left is a leftward eye movement: a positive deflection followed by a
	// negative one.
	Left Label = "left"

	// Right is a rightward eye movement: the mirror image of [Left].
	Right Label = "right"

	// Blink is an eye blink: a short symmetric spike.
	Blink Label = "blink"

	// Noise marks a window with no event — baseline electrode noise. Noise
	// windows carry no control meaning but are part of the training corpus so
	// classifiers learn to reject them.
	Noise Label = "noise"
)

// Baseline returns the labels every deployment understands.
func Baseline() []Label {
	return []Label{Left, Right, Blink, Noise}
}

// ParseLabel validates s against the baseline vocabulary. Unknown labels are
// returned as-is with ok=false so callers working with extended corpora can
// decide whether to accept them.
func ParseLabel(s string) (Label, bool) {
	switch Label(s) {
	case Left, Right, Blink, Noise:
		return Label(s), true
	}
	return Label(s), false
}

// Event is a classified window: where in the recording it sits and what the
// pipeline decided it contains. Events are what downstream control logic
// consumes.
type Event struct {
	// Window is the signal region the classification applies to.
	Window signal.Window

	// Label is the classification outcome. [Noise] means "detected but
	// rejected by the classifier".
	Label Label

	// Crossings is the zero-crossing count the detector measured for the
	// window. Retained for instrumentation and threshold tuning.
	Crossings int
}

// String renders the event for log output.
func (e Event) String() string {
	return fmt.Sprintf("%s @ %.3fs (%d crossings)", e.Label, e.Window.StartTime(), e.Crossings)
}
