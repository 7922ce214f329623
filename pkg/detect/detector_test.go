package detect_test

import (
	"math"
	"testing"

	"github.com/Gasburger/BrainBox/pkg/detect"
)

// sine generates seconds worth of a pure sine at freq Hz sampled at rate Hz.
func sine(freq, seconds, rate float64) []float64 {
	n := int(seconds * rate)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return out
}

func TestCrossingsSineCalibration(t *testing.T) {
	// A pure sine at f Hz crosses zero ~2f times per second.
	const rate = 500.0
	for _, freq := range []float64{5, 20, 50, 110} {
		got := detect.Crossings(sine(freq, 1, rate))
		want := 2 * freq
		if math.Abs(float64(got)-want) > 2 {
			t.Errorf("freq %v: got %d crossings, want ~%v", freq, got, want)
		}
	}
}

func TestDetectorRejectsFastSine(t *testing.T) {
	// 2f >= threshold means the detector must call it "no event".
	det, err := detect.NewZeroCrossing(200)
	if err != nil {
		t.Fatalf("NewZeroCrossing: %v", err)
	}
	if det.Detect(sine(110, 1, 500)) {
		t.Error("110 Hz sine (220 crossings) classified as event, want no event")
	}
	if !det.Detect(sine(5, 1, 500)) {
		t.Error("5 Hz sine (10 crossings) classified as no event, want event")
	}
}

func TestDetectorScaleInvariance(t *testing.T) {
	det, err := detect.NewZeroCrossing(200)
	if err != nil {
		t.Fatalf("NewZeroCrossing: %v", err)
	}
	base := sine(30, 1, 500)
	want := det.Detect(base)
	for _, scale := range []float64{0.001, 0.5, 10, 1e6} {
		scaled := make([]float64, len(base))
		for i, v := range base {
			scaled[i] = v * scale
		}
		if got := det.Detect(scaled); got != want {
			t.Errorf("scale %v: got %v, want %v", scale, got, want)
		}
		if got, wantC := detect.Crossings(scaled), detect.Crossings(base); got != wantC {
			t.Errorf("scale %v: crossings %d, want %d", scale, got, wantC)
		}
	}
}

func TestCrossingsCountsZeroTouches(t *testing.T) {
	// Products of zero count as crossings.
	if got := detect.Crossings([]float64{1, 0, 1}); got != 2 {
		t.Errorf("zero touch: got %d, want 2", got)
	}
	if got := detect.Crossings([]float64{1, 1, 1}); got != 0 {
		t.Errorf("constant: got %d, want 0", got)
	}
	if got := detect.Crossings([]float64{1}); got != 0 {
		t.Errorf("single sample: got %d, want 0", got)
	}
	if got := detect.Crossings(nil); got != 0 {
		t.Errorf("empty: got %d, want 0", got)
	}
}

func TestNewZeroCrossingRejectsBadThreshold(t *testing.T) {
	for _, threshold := range []int{0, -1, -200} {
		if _, err := detect.NewZeroCrossing(threshold); err == nil {
			t.Errorf("threshold %d: expected error, got nil", threshold)
		}
	}
}

func TestThresholdFor(t *testing.T) {
	cases := []struct{ windowSize, want int }{
		{500, 200},  // reference window
		{1000, 400}, // double window, double threshold
		{250, 100},
		{1, 1}, // floor at 1
	}
	for _, tc := range cases {
		if got := detect.ThresholdFor(tc.windowSize); got != tc.want {
			t.Errorf("ThresholdFor(%d): got %d, want %d", tc.windowSize, got, tc.want)
		}
	}
}
