// Package observe provides application-wide observability primitives for
// BrainBox: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all BrainBox metrics.
const meterName = "github.com/Gasburger/BrainBox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// DetectDuration tracks how long one sliding-window scan pass takes.
	DetectDuration metric.Float64Histogram

	// ExtractDuration tracks feature extraction latency per window.
	ExtractDuration metric.Float64Histogram

	// ClassifyDuration tracks classifier prediction latency per window.
	ClassifyDuration metric.Float64Histogram

	// --- Counters ---

	// WindowsScanned counts scanned windows. Use with attribute:
	//   attribute.Bool("event", ...)
	WindowsScanned metric.Int64Counter

	// EventsDetected counts detected events. Use with attribute:
	//   attribute.String("label", ...)
	EventsDetected metric.Int64Counter

	// SnippetsWritten counts snippet files written by the cutter. Use with
	// attribute: attribute.String("tag", ...)
	SnippetsWritten metric.Int64Counter

	// --- Error counters ---

	// ExtractionFailures counts windows whose feature extraction failed.
	ExtractionFailures metric.Int64Counter

	// --- Gauges ---

	// LiveBufferSamples tracks the current depth of the live scan buffer.
	LiveBufferSamples metric.Int64Gauge

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for per-window pipeline stages.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.DetectDuration, err = m.Float64Histogram("brainbox.detect.duration",
		metric.WithDescription("Latency of one sliding-window scan pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExtractDuration, err = m.Float64Histogram("brainbox.extract.duration",
		metric.WithDescription("Latency of feature extraction per window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ClassifyDuration, err = m.Float64Histogram("brainbox.classify.duration",
		metric.WithDescription("Latency of classifier prediction per window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.WindowsScanned, err = m.Int64Counter("brainbox.windows.scanned",
		metric.WithDescription("Total scanned windows by event outcome."),
	); err != nil {
		return nil, err
	}
	if met.EventsDetected, err = m.Int64Counter("brainbox.events.detected",
		metric.WithDescription("Total detected events by label."),
	); err != nil {
		return nil, err
	}
	if met.SnippetsWritten, err = m.Int64Counter("brainbox.snippets.written",
		metric.WithDescription("Total snippet files written by tag."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ExtractionFailures, err = m.Int64Counter("brainbox.extract.failures",
		metric.WithDescription("Total windows whose feature extraction failed."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.LiveBufferSamples, err = m.Int64Gauge("brainbox.live.buffer_samples",
		metric.WithDescription("Current depth of the live scan buffer in samples."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("brainbox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordWindow is a convenience method that counts one scanned window.
func (m *Metrics) RecordWindow(ctx context.Context, event bool) {
	m.WindowsScanned.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("event", event)),
	)
}

// RecordEvent is a convenience method that counts one detected event by its
// classified label.
func (m *Metrics) RecordEvent(ctx context.Context, label string) {
	m.EventsDetected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("label", label)),
	)
}

// RecordSnippet is a convenience method that counts one written snippet file.
func (m *Metrics) RecordSnippet(ctx context.Context, tag string) {
	m.SnippetsWritten.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tag", tag)),
	)
}

// RecordExtractionFailure is a convenience method that counts one failed
// feature extraction.
func (m *Metrics) RecordExtractionFailure(ctx context.Context) {
	m.ExtractionFailures.Add(ctx, 1)
}

// RecordBufferDepth is a convenience method that records the live buffer
// depth in samples.
func (m *Metrics) RecordBufferDepth(ctx context.Context, samples int) {
	m.LiveBufferSamples.Record(ctx, int64(samples))
}
