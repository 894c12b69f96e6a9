package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsRecording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordIngest(ctx, "resume", "upload")
	m.RecordIngest(ctx, "jd", "text")
	m.RecordRetrieval(ctx, 7, 20*time.Millisecond, nil)
	m.RecordBusinessMetric(ctx, MetricResumeAnalyzed, true)
	m.RecordQueueJob(ctx, "analyze", "completed")

	err = m.TrackAIOperationWithTokens(ctx, "analysis", func(context.Context) *AIOperationResult {
		return &AIOperationResult{TokenUsage: &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
	})
	require.NoError(t, err)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["resumerag_documents_ingested_total"]))
	assert.Equal(t, int64(7), sumOf(t, got["resumerag_chunks_embedded_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["resumerag_capability_requests_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["resumerag_queue_jobs_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["resumerag_ai_requests_total"]))
	assert.Contains(t, got, "resumerag_retrieval_duration_seconds")
	assert.Contains(t, got, "resumerag_ai_token_usage_total")
	assert.NotContains(t, got, "resumerag_ai_errors_total")
}

func TestTrackAIOperationReturnsError(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = m.TrackAIOperationWithTokens(context.Background(), "feedback", func(context.Context) *AIOperationResult {
		return &AIOperationResult{Error: boom}
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), sumOf(t, collect(t, reader)["resumerag_ai_errors_total"]))
}

func TestZeroMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordIngest(ctx, "resume", "text")
		m.RecordRetrieval(ctx, 1, time.Second, nil)
		m.RecordBusinessMetric(ctx, MetricIdealAnswer, false)
		m.RecordRateLimitHit(ctx)
		m.RecordCertReload(ctx, true)
	})

	err := (&Metrics{}).TrackAIOperationWithTokens(ctx, "ask", func(context.Context) *AIOperationResult { return nil })
	assert.NoError(t, err)
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, om.Metrics())
	assert.NotNil(t, om.Tracer("test"))
	assert.NoError(t, om.Shutdown(context.Background()))

	var nilManager *ObservabilityManager
	assert.NotNil(t, nilManager.Metrics())
}
