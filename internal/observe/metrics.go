// Package observe provides application-wide observability primitives for
// Ostinato: OpenTelemetry metrics and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Ostinato metrics.
const meterName = "github.com/MrWong99/ostinato"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ResolveDuration tracks query cache resolution latency.
	ResolveDuration metric.Float64Histogram

	// CacheHits counts cache hits. Use with attribute:
	//   attribute.String("command_id", ...)
	CacheHits metric.Int64Counter

	// CacheMisses counts cache misses. Use with attribute:
	//   attribute.Bool("populated", ...) — false means no clip matched.
	CacheMisses metric.Int64Counter

	// Playbacks counts command invocations by terminal outcome. Use with
	// attribute: attribute.String("outcome", ...)
	Playbacks metric.Int64Counter

	// ActiveVoiceConnections tracks currently open voice connections.
	ActiveVoiceConnections metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// cache resolutions, which are memory-bound on hits and one database
// round-trip on misses.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ResolveDuration, err = m.Float64Histogram("ostinato.cache.resolve.duration",
		metric.WithDescription("Latency of query cache resolution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("ostinato.cache.hits",
		metric.WithDescription("Total cache hits by command."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("ostinato.cache.misses",
		metric.WithDescription("Total cache misses, split by whether a new entry was populated."),
	); err != nil {
		return nil, err
	}
	if met.Playbacks, err = m.Int64Counter("ostinato.playbacks",
		metric.WithDescription("Total command invocations by terminal outcome."),
	); err != nil {
		return nil, err
	}
	if met.ActiveVoiceConnections, err = m.Int64UpDownCounter("ostinato.active_voice_connections",
		metric.WithDescription("Number of currently open voice connections."),
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

// RecordResolve records one cache resolution's latency.
func (m *Metrics) RecordResolve(ctx context.Context, d time.Duration) {
	m.ResolveDuration.Record(ctx, d.Seconds())
}

// RecordCacheHit records a cache hit for a command.
func (m *Metrics) RecordCacheHit(ctx context.Context, commandID string) {
	m.CacheHits.Add(ctx, 1,
		metric.WithAttributes(attribute.String("command_id", commandID)))
}

// RecordCacheMiss records a cache miss. populated is false when the miss
// produced no matching clips and nothing was stored.
func (m *Metrics) RecordCacheMiss(ctx context.Context, populated bool) {
	m.CacheMisses.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("populated", populated)))
}

// RecordPlayback records one command invocation's terminal outcome.
func (m *Metrics) RecordPlayback(ctx context.Context, outcome string) {
	m.Playbacks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// VoiceConnectionOpened increments the active voice connection gauge.
func (m *Metrics) VoiceConnectionOpened(ctx context.Context) {
	m.ActiveVoiceConnections.Add(ctx, 1)
}

// VoiceConnectionClosed decrements the active voice connection gauge.
func (m *Metrics) VoiceConnectionClosed(ctx context.Context) {
	m.ActiveVoiceConnections.Add(ctx, -1)
}
