// Package features computes a fixed-length numeric summary of a window's
// waveform shape: 22 canonical time-series characteristics spanning
// distributional statistics, autocorrelation structure, successive-difference
// dynamics, and spectral shape.
//
// Extraction is a pure function of the input samples. The signal is z-scored
// internally, so every feature is invariant to amplitude scale and baseline
// offset, and the vector dimensionality is independent of the window length.
// That decoupling is what lets one trained classifier serve multiple window
// configurations.
package features

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/Gasburger/BrainBox/pkg/detect"
)

// Dim is the dimensionality of every extracted [Vector].
const Dim = 22

// MinSamples is the shortest window the extractor accepts. Autocorrelation
// and spectral features need enough lags to be meaningful; shorter windows
// fail with [ErrInsufficientData] instead of silently producing NaN.
const MinSamples = 64

// ErrInsufficientData is returned when a window is too short (or too
// degenerate) for feature extraction. Callers scanning a stream should record
// the window as unclassifiable and continue.
var ErrInsufficientData = errors.New("features: insufficient data")

// maxACFLag caps how far the autocorrelation features look back.
const maxACFLag = 100

// Vector is a [Dim]-dimensional feature summary of one window.
type Vector []float64

// Names returns the feature names in vector order, for reporting and
// misclassification inspection.
func Names() []string {
	return []string{
		"hist_mode_5",
		"hist_mode_10",
		"skewness",
		"kurtosis",
		"outlier_frac",
		"median_abs_dev",
		"positive_frac",
		"acf_lag1",
		"acf_lag2",
		"acf_first_zero",
		"acf_first_1e",
		"acf_first_min",
		"acf_sumsq_10",
		"time_reversal_asym",
		"mean_abs_diff",
		"zero_cross_rate",
		"stretch_above_mean",
		"stretch_decreasing",
		"high_fluct_frac",
		"spectral_centroid",
		"spectral_low_frac",
		"spectral_entropy",
	}
}

// Extract computes the feature vector for samples. It fails with
// [ErrInsufficientData] when the window is shorter than [MinSamples] or flat
// (zero variance), since z-scoring a flat window is undefined.
func Extract(samples []float64) (Vector, error) {
	if len(samples) < MinSamples {
		return nil, fmt.Errorf("%w: %d samples, need at least %d", ErrInsufficientData, len(samples), MinSamples)
	}

	mean := stat.Mean(samples, nil)
	std := stat.StdDev(samples, nil)
	if std == 0 || math.IsNaN(std) {
		return nil, fmt.Errorf("%w: flat window has no shape", ErrInsufficientData)
	}
	x := make([]float64, len(samples))
	for i, v := range samples {
		x[i] = (v - mean) / std
	}

	acf := autocorrelation(x)
	diffs := successiveDiffs(x)

	v := make(Vector, 0, Dim)
	v = append(v,
		histogramMode(x, 5),
		histogramMode(x, 10),
		stat.Skew(x, nil),
		stat.ExKurtosis(x, nil),
		outlierFraction(x, 2),
		medianAbsDev(x),
		positiveFraction(x),
		acfAt(acf, 1),
		acfAt(acf, 2),
		firstBelow(acf, 0),
		firstBelow(acf, 1/math.E),
		firstMinimum(acf),
		sumSquares(acf, 10),
		timeReversalAsymmetry(diffs),
		meanAbs(diffs),
		float64(detect.Crossings(x))/float64(len(x)-1),
		longestStretchAbove(x, 0),
		longestDecreasingRun(x),
		highFluctuationFraction(diffs),
	)
	v = append(v, spectralShape(x)...)

	if len(v) != Dim {
		panic(fmt.Sprintf("features: extracted %d features, want %d", len(v), Dim))
	}
	return v, nil
}

// histogramMode bins x into bins equal-width buckets over [min, max] and
// returns the centre of the fullest bucket.
func histogramMode(x []float64, bins int) float64 {
	lo, hi := x[0], x[0]
	for _, v := range x {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	width := (hi - lo) / float64(bins)
	if width == 0 {
		return lo
	}
	counts := make([]int, bins)
	for _, v := range x {
		b := int((v - lo) / width)
		if b == bins {
			b = bins - 1 // max value falls into the last bucket
		}
		counts[b]++
	}
	best := 0
	for b, c := range counts {
		if c > counts[best] {
			best = b
		}
	}
	return lo + (float64(best)+0.5)*width
}

// outlierFraction is the proportion of samples whose magnitude exceeds k
// standard deviations (x is already z-scored, so the unit is sigma).
func outlierFraction(x []float64, k float64) float64 {
	n := 0
	for _, v := range x {
		if math.Abs(v) > k {
			n++
		}
	}
	return float64(n) / float64(len(x))
}

func medianAbsDev(x []float64) float64 {
	abs := make([]float64, len(x))
	med := median(x)
	for i, v := range x {
		abs[i] = math.Abs(v - med)
	}
	return median(abs)
}

func median(x []float64) float64 {
	s := make([]float64, len(x))
	copy(s, x)
	slices.Sort(s)
	return stat.Quantile(0.5, stat.Empirical, s, nil)
}

func positiveFraction(x []float64) float64 {
	n := 0
	for _, v := range x {
		if v > 0 {
			n++
		}
	}
	return float64(n) / float64(len(x))
}

// autocorrelation returns acf[0..maxLag] with acf[0] == 1 for a z-scored
// series. Lags are capped at half the series length.
func autocorrelation(x []float64) []float64 {
	maxLag := len(x) / 2
	if maxLag > maxACFLag {
		maxLag = maxACFLag
	}
	denom := 0.0
	for _, v := range x {
		denom += v * v
	}
	acf := make([]float64, maxLag+1)
	if denom == 0 {
		return acf
	}
	for lag := 0; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i+lag < len(x); i++ {
			sum += x[i] * x[i+lag]
		}
		acf[lag] = sum / denom
	}
	return acf
}

func acfAt(acf []float64, lag int) float64 {
	if lag >= len(acf) {
		return 0
	}
	return acf[lag]
}

// firstBelow returns the first lag at which the ACF drops below threshold,
// normalised by the number of lags so the feature stays in [0, 1].
func firstBelow(acf []float64, threshold float64) float64 {
	for lag := 1; lag < len(acf); lag++ {
		if acf[lag] < threshold {
			return float64(lag) / float64(len(acf))
		}
	}
	return 1
}

// firstMinimum returns the first local-minimum lag of the ACF, normalised by
// the number of lags.
func firstMinimum(acf []float64) float64 {
	for lag := 1; lag+1 < len(acf); lag++ {
		if acf[lag] < acf[lag-1] && acf[lag] < acf[lag+1] {
			return float64(lag) / float64(len(acf))
		}
	}
	return 1
}

func sumSquares(acf []float64, lags int) float64 {
	sum := 0.0
	for lag := 1; lag <= lags && lag < len(acf); lag++ {
		sum += acf[lag] * acf[lag]
	}
	return sum
}

func successiveDiffs(x []float64) []float64 {
	d := make([]float64, len(x)-1)
	for i := range d {
		d[i] = x[i+1] - x[i]
	}
	return d
}

// timeReversalAsymmetry measures how differently the series behaves forwards
// versus backwards: the normalised third moment of successive differences.
// Symmetric waveforms score near zero.
func timeReversalAsymmetry(diffs []float64) float64 {
	m2, m3 := 0.0, 0.0
	for _, d := range diffs {
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= float64(len(diffs))
	m3 /= float64(len(diffs))
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

func meanAbs(xs []float64) float64 {
	sum := 0.0
	for _, v := range xs {
		sum += math.Abs(v)
	}
	return sum / float64(len(xs))
}

// longestStretchAbove returns the longest run of consecutive samples above
// threshold, as a fraction of the series length.
func longestStretchAbove(x []float64, threshold float64) float64 {
	longest, run := 0, 0
	for _, v := range x {
		if v > threshold {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return float64(longest) / float64(len(x))
}

// longestDecreasingRun returns the longest run of strictly decreasing
// consecutive samples, as a fraction of the series length.
func longestDecreasingRun(x []float64) float64 {
	longest, run := 0, 0
	for i := 1; i < len(x); i++ {
		if x[i] < x[i-1] {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return float64(longest) / float64(len(x))
}

// highFluctuationFraction is the proportion of successive differences larger
// in magnitude than the mean absolute difference.
func highFluctuationFraction(diffs []float64) float64 {
	threshold := meanAbs(diffs)
	n := 0
	for _, d := range diffs {
		if math.Abs(d) > threshold {
			n++
		}
	}
	return float64(n) / float64(len(diffs))
}

// spectralShape returns the three spectral features: centroid (normalised
// frequency in [0, 0.5]), fraction of power below a quarter of Nyquist, and
// normalised spectral entropy. The DC bin is excluded so baseline offset
// (already removed by z-scoring) cannot leak back in.
func spectralShape(x []float64) []float64 {
	fft := fourier.NewFFT(len(x))
	coeffs := fft.Coefficients(nil, x)

	power := make([]float64, len(coeffs)-1) // skip DC
	total := 0.0
	for i := 1; i < len(coeffs); i++ {
		p := cmplx.Abs(coeffs[i])
		p *= p
		power[i-1] = p
		total += p
	}
	if total == 0 {
		return []float64{0, 0, 0}
	}

	centroid := 0.0
	lowPower := 0.0
	entropy := 0.0
	quarter := len(power) / 2 // half of the Nyquist bin count
	for i, p := range power {
		freq := 0.5 * float64(i+1) / float64(len(power)) // normalised [0, 0.5]
		frac := p / total
		centroid += freq * frac
		if i < quarter {
			lowPower += frac
		}
		if frac > 0 {
			entropy -= frac * math.Log(frac)
		}
	}
	entropy /= math.Log(float64(len(power))) // normalise to [0, 1]

	return []float64{centroid, lowPower, entropy}
}
