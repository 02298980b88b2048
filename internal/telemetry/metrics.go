package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// FetchMetricsMeterName is the name used for the datasource fetch meter
	FetchMetricsMeterName = "github.com/projectenv/tools-index/fetch"

	// ValidationMetricsMeterName is the name used for the URL validation meter
	ValidationMetricsMeterName = "github.com/projectenv/tools-index/validation"

	// TransportMetricsMeterName is the name used for the outbound HTTP meter
	TransportMetricsMeterName = "github.com/projectenv/tools-index/transport"
)

// FetchMetrics holds the instruments for datasource fetches and the resulting catalog
type FetchMetrics struct {
	fetchDuration metric.Float64Histogram
	entries       metric.Int64Gauge
}

// NewFetchMetrics creates a new FetchMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewFetchMetrics(provider metric.MeterProvider) (*FetchMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FetchMetricsMeterName)

	fetchDuration, err := meter.Float64Histogram(
		"tools_index_fetch_duration_seconds",
		metric.WithDescription("Duration of datasource fetches in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	entries, err := meter.Int64Gauge(
		"tools_index_entries",
		metric.WithDescription("Number of download URLs per catalog section"),
		metric.WithUnit("{url}"),
	)
	if err != nil {
		return nil, err
	}

	return &FetchMetrics{
		fetchDuration: fetchDuration,
		entries:       entries,
	}, nil
}

// RecordFetchDuration records how long a datasource took to produce its partial catalog
func (m *FetchMetrics) RecordFetchDuration(ctx context.Context, datasource string, duration time.Duration, success bool) {
	if m == nil || m.fetchDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("datasource", datasource),
		attribute.Bool("success", success),
	}
	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordEntries records the number of URLs in a catalog section
func (m *FetchMetrics) RecordEntries(ctx context.Context, section string, count int64) {
	if m == nil || m.entries == nil {
		return
	}
	m.entries.Record(ctx, count, metric.WithAttributes(attribute.String("section", section)))
}

// ValidationMetrics holds the instruments for URL validation outcomes
type ValidationMetrics struct {
	probes metric.Int64Counter
}

// NewValidationMetrics creates a new ValidationMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewValidationMetrics(provider metric.MeterProvider) (*ValidationMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	probes, err := provider.Meter(ValidationMetricsMeterName).Int64Counter(
		"tools_index_validation_probes_total",
		metric.WithDescription("URL probes by outcome"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	return &ValidationMetrics{probes: probes}, nil
}

// RecordProbe records a probe of a URL in section with its resulting action
// ("keep", "keep_despite_failure", "reject").
func (m *ValidationMetrics) RecordProbe(ctx context.Context, section, action string) {
	if m == nil || m.probes == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("section", section),
		attribute.String("action", action),
	}
	m.probes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// TransportMetrics holds the instruments for outbound HTTP retries and rate limiting
type TransportMetrics struct {
	retries        metric.Int64Counter
	rateLimitWaits metric.Float64Histogram
}

// NewTransportMetrics creates a new TransportMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewTransportMetrics(provider metric.MeterProvider) (*TransportMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(TransportMetricsMeterName)

	retries, err := meter.Int64Counter(
		"tools_index_http_retries_total",
		metric.WithDescription("Outbound HTTP attempts that were retried"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	rateLimitWaits, err := meter.Float64Histogram(
		"tools_index_http_rate_limit_wait_seconds",
		metric.WithDescription("Time spent waiting for a per-host rate limit permit"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	return &TransportMetrics{
		retries:        retries,
		rateLimitWaits: rateLimitWaits,
	}, nil
}

// RecordRetry records a retried attempt against host
func (m *TransportMetrics) RecordRetry(ctx context.Context, host string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("host", host)))
}

// RecordRateLimitWait records time spent waiting for a permit for host
func (m *TransportMetrics) RecordRateLimitWait(ctx context.Context, host string, wait time.Duration) {
	if m == nil || m.rateLimitWaits == nil {
		return
	}
	m.rateLimitWaits.Record(ctx, wait.Seconds(), metric.WithAttributes(attribute.String("host", host)))
}
