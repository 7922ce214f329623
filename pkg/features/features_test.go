package features_test

import (
	"errors"
	"math"
	"testing"

	"github.com/Gasburger/BrainBox/pkg/features"
)

func sine(freq float64, n int, rate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return out
}

// leftish is the canonical left-movement shape: a positive excursion followed
// by a negative one.
func leftish(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < n/2 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	// Ramp the edges slightly so the series is not piecewise constant.
	out[0], out[n-1] = 0.5, -0.5
	return out
}

func TestExtractDimension(t *testing.T) {
	v, err := features.Extract(sine(10, 500, 500))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(v) != features.Dim {
		t.Fatalf("got %d features, want %d", len(v), features.Dim)
	}
	if len(features.Names()) != features.Dim {
		t.Fatalf("got %d names, want %d", len(features.Names()), features.Dim)
	}
	for i, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			t.Errorf("feature %d (%s) is %v", i, features.Names()[i], f)
		}
	}
}

func TestExtractDimensionIndependentOfLength(t *testing.T) {
	for _, n := range []int{64, 100, 500, 4096} {
		v, err := features.Extract(sine(10, n, 500))
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(v) != features.Dim {
			t.Errorf("n=%d: got %d features, want %d", n, len(v), features.Dim)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	in := sine(7, 500, 500)
	a, err := features.Extract(in)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, err := features.Extract(in)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("feature %d: %v != %v across identical runs", i, a[i], b[i])
		}
	}
}

func TestExtractScaleAndOffsetInvariant(t *testing.T) {
	base := leftish(500)
	want, err := features.Extract(base)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, tf := range []struct{ scale, offset float64 }{
		{10, 0}, {0.001, 0}, {1, 5}, {250, -40},
	} {
		in := make([]float64, len(base))
		for i, v := range base {
			in[i] = v*tf.scale + tf.offset
		}
		got, err := features.Extract(in)
		if err != nil {
			t.Fatalf("scale=%v offset=%v: %v", tf.scale, tf.offset, err)
		}
		for i := range want {
			if math.Abs(got[i]-want[i]) > 1e-9 {
				t.Errorf("scale=%v offset=%v feature %d (%s): got %v, want %v",
					tf.scale, tf.offset, i, features.Names()[i], got[i], want[i])
			}
		}
	}
}

func TestExtractRejectsShortWindow(t *testing.T) {
	_, err := features.Extract(sine(10, features.MinSamples-1, 500))
	if !errors.Is(err, features.ErrInsufficientData) {
		t.Errorf("got %v, want ErrInsufficientData", err)
	}
}

func TestExtractRejectsFlatWindow(t *testing.T) {
	flat := make([]float64, 500)
	for i := range flat {
		flat[i] = 3.7
	}
	_, err := features.Extract(flat)
	if !errors.Is(err, features.ErrInsufficientData) {
		t.Errorf("got %v, want ErrInsufficientData", err)
	}
}

func TestOppositeShapesDiffer(t *testing.T) {
	left := leftish(500)
	right := make([]float64, len(left))
	for i, v := range left {
		right[i] = -v
	}
	lv, err := features.Extract(left)
	if err != nil {
		t.Fatalf("Extract(left): %v", err)
	}
	rv, err := features.Extract(right)
	if err != nil {
		t.Fatalf("Extract(right): %v", err)
	}
	// Mirrored waveforms must not collapse to the same vector, or no
	// classifier downstream could separate left from right.
	differs := false
	for i := range lv {
		if math.Abs(lv[i]-rv[i]) > 1e-9 {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("left and right shapes produced identical feature vectors")
	}
}

func TestSpectralCentroidTracksFrequency(t *testing.T) {
	// Higher-frequency sines must have a higher spectral centroid.
	names := features.Names()
	idx := -1
	for i, n := range names {
		if n == "spectral_centroid" {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatal("spectral_centroid not in feature names")
	}
	slow, err := features.Extract(sine(5, 1000, 500))
	if err != nil {
		t.Fatalf("Extract(slow): %v", err)
	}
	fast, err := features.Extract(sine(100, 1000, 500))
	if err != nil {
		t.Fatalf("Extract(fast): %v", err)
	}
	if slow[idx] >= fast[idx] {
		t.Errorf("centroid slow=%v >= fast=%v", slow[idx], fast[idx])
	}
}
