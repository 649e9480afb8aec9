// Package observe provides observability primitives for voxtype: OpenTelemetry
// metrics with a Prometheus exporter bridge so the daemon can be scraped via
// the standard /metrics endpoint.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxtype metrics.
const meterName = "github.com/MrWong99/voxtype"

// Metrics holds all OpenTelemetry metric instruments for the daemon.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TranscriptionDuration tracks whisper inference latency per segment.
	TranscriptionDuration metric.Float64Histogram

	// SegmentDuration tracks the audio length of emitted segments in seconds.
	SegmentDuration metric.Float64Histogram

	// Segments counts segments handed to transcription. Use with attribute:
	//   attribute.String("mode", "vad"|"chunk")
	Segments metric.Int64Counter

	// Transcripts counts transcription results. Use with attribute:
	//   attribute.String("status", "ok"|"filtered")
	Transcripts metric.Int64Counter

	// FramesDropped counts capture buffers discarded under backpressure.
	FramesDropped metric.Int64Counter

	// DrainTimeouts counts stop sequences that hit the drain deadline and
	// finalised with audio still in flight.
	DrainTimeouts metric.Int64Counter

	// ActiveSessions tracks concurrently recording sessions (0 or 1 in
	// practice, but an UpDownCounter keeps start/stop bookkeeping honest).
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for local whisper inference.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20,
}

// segmentBuckets covers the possible segment lengths, from the shortest
// flushed remainder up to the force-emit ceiling.
var segmentBuckets = []float64{
	0.3, 0.5, 1, 2, 3, 5, 10, 20,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("voxtype.transcription.duration",
		metric.WithDescription("Latency of whisper inference per segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentDuration, err = m.Float64Histogram("voxtype.segment.duration",
		metric.WithDescription("Audio length of emitted segments."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(segmentBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Segments, err = m.Int64Counter("voxtype.segments",
		metric.WithDescription("Total segments handed to transcription by segmentation mode."),
	); err != nil {
		return nil, err
	}
	if met.Transcripts, err = m.Int64Counter("voxtype.transcripts",
		metric.WithDescription("Total transcription results by status."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("voxtype.frames.dropped",
		metric.WithDescription("Capture buffers discarded because the pipeline was full."),
	); err != nil {
		return nil, err
	}
	if met.DrainTimeouts, err = m.Int64Counter("voxtype.drain.timeouts",
		metric.WithDescription("Stop sequences that gave up waiting for in-flight audio."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxtype.active_sessions",
		metric.WithDescription("Number of sessions currently recording."),
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

// RecordTranscription records one inference with its latency and result
// status ("ok" or "filtered").
func (m *Metrics) RecordTranscription(ctx context.Context, d time.Duration, status string) {
	m.TranscriptionDuration.Record(ctx, d.Seconds())
	m.Transcripts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordSegment records one emitted segment with its audio length and the
// segmentation mode that produced it ("vad" or "chunk").
func (m *Metrics) RecordSegment(ctx context.Context, audioSecs float64, mode string) {
	m.SegmentDuration.Record(ctx, audioSecs)
	m.Segments.Add(ctx, 1,
		metric.WithAttributes(attribute.String("mode", mode)),
	)
}
