package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Business metric types accepted by RecordBusinessMetric.
const (
	MetricResumeAnalyzed     = "resume_analyzed"
	MetricQuestionsGenerated = "questions_generated"
	MetricAnswerScored       = "answer_scored"
	MetricIdealAnswer        = "ideal_answer"
	MetricQuestionAsked      = "question_asked"
)

// Metrics holds all custom instruments. The zero value records nothing.
type Metrics struct {
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	DocumentsIngested metric.Int64Counter
	ChunksEmbedded    metric.Int64Counter
	RetrievalDuration metric.Float64Histogram

	Capabilities metric.Int64Counter
	QueueJobs    metric.Int64Counter

	CertReloadCount metric.Int64Counter
	RateLimitHits   metric.Int64Counter
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"resumerag_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}
	if m.AIRequestCount, err = meter.Int64Counter(
		"resumerag_ai_requests_total",
		metric.WithDescription("Total number of AI requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}
	if m.AIErrorCount, err = meter.Int64Counter(
		"resumerag_ai_errors_total",
		metric.WithDescription("Total number of AI request errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram(
		"resumerag_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.DocumentsIngested, err = meter.Int64Counter(
		"resumerag_documents_ingested_total",
		metric.WithDescription("Documents turned into text, by kind and source"),
	); err != nil {
		return nil, fmt.Errorf("failed to create documents ingested metric: %w", err)
	}
	if m.ChunksEmbedded, err = meter.Int64Counter(
		"resumerag_chunks_embedded_total",
		metric.WithDescription("Chunks sent to the embedder"),
	); err != nil {
		return nil, fmt.Errorf("failed to create chunks embedded metric: %w", err)
	}
	if m.RetrievalDuration, err = meter.Float64Histogram(
		"resumerag_retrieval_duration_seconds",
		metric.WithDescription("Time spent chunking, embedding and searching one document"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create retrieval duration metric: %w", err)
	}

	if m.Capabilities, err = meter.Int64Counter(
		"resumerag_capability_requests_total",
		metric.WithDescription("Completed capability runs, by type and outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create capability metric: %w", err)
	}
	if m.QueueJobs, err = meter.Int64Counter(
		"resumerag_queue_jobs_total",
		metric.WithDescription("Queue jobs processed, by kind and status"),
	); err != nil {
		return nil, fmt.Errorf("failed to create queue jobs metric: %w", err)
	}

	if m.CertReloadCount, err = meter.Int64Counter(
		"resumerag_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"),
	); err != nil {
		return nil, fmt.Errorf("failed to create certificate reload count metric: %w", err)
	}
	if m.RateLimitHits, err = meter.Int64Counter(
		"resumerag_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens runs fn inside an "ai.<operation>" span and
// records duration, request, error and token metrics.
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	tracer := otel.Tracer("resumerag.ai")
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m != nil && m.AIProcessingTime != nil {
		m.recordAIMetrics(ctx, operation, err, duration, result, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

func (m *Metrics) recordAIMetrics(ctx context.Context, operation string, err error, duration float64, result *AIOperationResult, span oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}

	m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.recordTokenUsage(ctx, result, attrs, span)

	span.SetAttributes(attrs...)
}

func (m *Metrics) recordTokenUsage(ctx context.Context, result *AIOperationResult, attrs []attribute.KeyValue, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil || m.AITokenUsage == nil {
		return
	}

	usage := result.TokenUsage
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		tokenAttrs := append(append([]attribute.KeyValue{}, attrs...), attribute.String("token_type", tt.tokenType))
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
	}

	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
}

// RecordBusinessMetric counts one completed capability run.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	if m == nil || m.Capabilities == nil {
		return
	}
	attrs := append([]attribute.KeyValue{
		attribute.String("capability", metricType),
		attribute.Bool("success", success),
	}, attributes...)
	m.Capabilities.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordIngest counts a document of the given kind (resume, jd) read from
// source (text, upload, s3).
func (m *Metrics) RecordIngest(ctx context.Context, kind, source string) {
	if m == nil || m.DocumentsIngested == nil {
		return
	}
	m.DocumentsIngested.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("source", source),
	))
}

// RecordRetrieval records one retrieval pass over a document.
func (m *Metrics) RecordRetrieval(ctx context.Context, chunks int, duration time.Duration, err error) {
	if m == nil || m.RetrievalDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	m.RetrievalDuration.Record(ctx, duration.Seconds(), attrs)
	m.ChunksEmbedded.Add(ctx, int64(chunks), attrs)
}

// RecordQueueJob counts a processed queue job.
func (m *Metrics) RecordQueueJob(ctx context.Context, kind, status string) {
	if m == nil || m.QueueJobs == nil {
		return
	}
	m.QueueJobs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

// RecordRateLimitHit counts a rejected request.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil || m.RateLimitHits == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCertReload counts a TLS certificate reload.
func (m *Metrics) RecordCertReload(ctx context.Context, success bool) {
	if m == nil || m.CertReloadCount == nil {
		return
	}
	m.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
