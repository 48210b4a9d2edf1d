// Package observe provides application-wide observability primitives for
// whisperd: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all whisperd metrics.
const meterName = "github.com/whisperd/whisperd"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per inference domain ---

	// ColdInferenceDuration tracks full-file batch transcription latency on
	// the cold (accuracy) engine.
	ColdInferenceDuration metric.Float64Histogram

	// HotInferenceDuration tracks streaming-window transcription latency on
	// the hot (latency) engine.
	HotInferenceDuration metric.Float64Histogram

	// AudioDecodeDuration tracks WAV/PCM decode and converter latency.
	AudioDecodeDuration metric.Float64Histogram

	// --- Counters ---

	// TriggerFires counts streaming trigger-predicate activations. Use with
	// attribute.String("mode", "ws_hot"|"cold_stream"|"http_hot_stream").
	TriggerFires metric.Int64Counter

	// DecodeErrors counts audio decode/convert failures. Use with
	// attribute.String("reason", ...).
	DecodeErrors metric.Int64Counter

	// InferenceErrors counts engine.Domain.Invoke failures. Use with
	// attribute.String("domain", "cold"|"hot").
	InferenceErrors metric.Int64Counter

	// ModelReloads counts successful and failed /load requests. Use with
	// attribute.String("domain", ...), attribute.String("status", "ok"|"error").
	ModelReloads metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live WebSocket sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for both sub-second streaming windows and multi-second batch transcriptions.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ColdInferenceDuration, err = m.Float64Histogram("whisperd.inference.cold.duration",
		metric.WithDescription("Latency of batch transcription on the cold engine."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HotInferenceDuration, err = m.Float64Histogram("whisperd.inference.hot.duration",
		metric.WithDescription("Latency of streaming-window transcription on the hot engine."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AudioDecodeDuration, err = m.Float64Histogram("whisperd.audio.decode.duration",
		metric.WithDescription("Latency of audio decode/convert prior to inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TriggerFires, err = m.Int64Counter("whisperd.streaming.trigger_fires",
		metric.WithDescription("Total streaming trigger-predicate activations by mode."),
	); err != nil {
		return nil, err
	}
	if met.DecodeErrors, err = m.Int64Counter("whisperd.audio.decode_errors",
		metric.WithDescription("Total audio decode/convert failures by reason."),
	); err != nil {
		return nil, err
	}
	if met.InferenceErrors, err = m.Int64Counter("whisperd.inference.errors",
		metric.WithDescription("Total inference failures by domain."),
	); err != nil {
		return nil, err
	}
	if met.ModelReloads, err = m.Int64Counter("whisperd.model.reloads",
		metric.WithDescription("Total /load reload attempts by domain and status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("whisperd.active_sessions",
		metric.WithDescription("Number of live WebSocket sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("whisperd.http.request.duration",
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

// RecordTriggerFire is a convenience method that records a trigger-predicate
// activation for the given streaming mode.
func (m *Metrics) RecordTriggerFire(ctx context.Context, mode string) {
	m.TriggerFires.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordDecodeError is a convenience method that records a decode failure.
func (m *Metrics) RecordDecodeError(ctx context.Context, reason string) {
	m.DecodeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordInferenceError is a convenience method that records an inference
// failure on the named domain ("cold" or "hot").
func (m *Metrics) RecordInferenceError(ctx context.Context, domain string) {
	m.InferenceErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("domain", domain)))
}

// RecordModelReload is a convenience method that records a /load attempt.
func (m *Metrics) RecordModelReload(ctx context.Context, domain, status string) {
	m.ModelReloads.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("status", status),
		),
	)
}
