package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collect returns the metrics recorded under the given meter name.
func collect(t *testing.T, reader *sdkmetric.ManualReader, meterName string) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != meterName {
			continue
		}
		for _, m := range scope.Metrics {
			found[m.Name] = m
		}
	}
	return found
}

func TestNewMetrics_NilProvider(t *testing.T) {
	t.Parallel()

	fetch, err := NewFetchMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, fetch)

	validation, err := NewValidationMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, validation)

	transport, err := NewTransportMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, transport)

	server, err := NewServerMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, server)
}

func TestNilMetrics_AreNoOps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var fetch *FetchMetrics
	fetch.RecordFetchDuration(ctx, "nodejs", time.Second, true)
	fetch.RecordEntries(ctx, "nodeVersions", 10)

	var validation *ValidationMetrics
	validation.RecordProbe(ctx, "nodeVersions", "keep")

	var transport *TransportMetrics
	transport.RecordRetry(ctx, "nodejs.org")
	transport.RecordRateLimitWait(ctx, "nodejs.org", time.Millisecond)
}

func TestFetchMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewFetchMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordFetchDuration(ctx, "maven", 2*time.Second, true)
	metrics.RecordFetchDuration(ctx, "temurin", 30*time.Second, false)
	metrics.RecordEntries(ctx, "mavenVersions", 42)

	found := collect(t, reader, FetchMetricsMeterName)

	hist, ok := found["tools_index_fetch_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)

	gauge, ok := found["tools_index_entries"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(42), gauge.DataPoints[0].Value)
	section, _ := gauge.DataPoints[0].Attributes.Value("section")
	assert.Equal(t, "mavenVersions", section.AsString())
}

func TestValidationMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewValidationMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordProbe(ctx, "gradleVersions", "keep")
	metrics.RecordProbe(ctx, "gradleVersions", "keep")
	metrics.RecordProbe(ctx, "gradleVersions", "reject")

	found := collect(t, reader, ValidationMetricsMeterName)

	sum, ok := found["tools_index_validation_probes_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	totals := map[string]int64{}
	for _, dp := range sum.DataPoints {
		action, _ := dp.Attributes.Value("action")
		totals[action.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"keep": 2, "reject": 1}, totals)
}

func TestTransportMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewTransportMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordRetry(ctx, "api.github.com")
	metrics.RecordRateLimitWait(ctx, "api.github.com", 250*time.Millisecond)

	found := collect(t, reader, TransportMetricsMeterName)
	assert.Contains(t, found, "tools_index_http_retries_total")
	assert.Contains(t, found, "tools_index_http_rate_limit_wait_seconds")
}
