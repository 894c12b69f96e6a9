package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/evaluator"
	"resumerag/internal/ingest"
	"resumerag/internal/observability"
	"resumerag/internal/types"
)

// DocumentLoader reads a stored document and extracts its text.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, key, mime string) (types.Document, error)
}

// Capabilities is the evaluator surface the worker drives.
type Capabilities interface {
	AnalyzeResume(ctx context.Context, req evaluator.Request) (*types.AnalysisResult, error)
	GenerateQuestions(ctx context.Context, req evaluator.Request) ([]types.InterviewQuestion, error)
	AnswerFeedback(ctx context.Context, req evaluator.Request) (*types.FeedbackResult, error)
	IdealAnswer(ctx context.Context, req evaluator.Request) (*types.IdealAnswer, error)
	Ask(ctx context.Context, req evaluator.Request) (*types.AskResult, error)
}

// UpdatePublisher delivers job status updates.
type UpdatePublisher interface {
	PublishUpdate(ctx context.Context, update StatusUpdate) error
}

// Processor handles one job body at a time. It is safe for concurrent use
// when its dependencies are.
type Processor struct {
	loader    DocumentLoader
	evaluator Capabilities
	publisher UpdatePublisher
	metrics   *observability.Metrics
	logger    *errors.Logger
	now       func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(loader DocumentLoader, ev Capabilities, publisher UpdatePublisher, metrics *observability.Metrics, logger *errors.Logger) *Processor {
	return &Processor{
		loader:    loader,
		evaluator: ev,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle decodes body, runs the job and publishes processing followed by
// completed or failed. The returned error is the job failure, if any;
// callers ack the delivery either way.
func (p *Processor) Handle(ctx context.Context, body []byte) error {
	var job AnalysisJob
	if err := json.Unmarshal(body, &job); err != nil {
		p.logger.LogError(err, "Failed to decode job")
		if job.ID != "" {
			p.publish(ctx, job, StatusFailed, "invalid job payload", nil, "")
		}
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid job payload", err)
	}
	if job.ID == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "job id is required", nil)
	}

	logger := p.logger.With("job_id", job.ID, "kind", string(job.Kind))
	logger.Info("Processing job")
	p.publish(ctx, job, StatusProcessing, "analysis started", nil, "")

	result, err := p.run(ctx, job)
	if err != nil {
		logger.LogError(err, "Job failed")
		raw, _ := evaluator.RawOutput(err)
		p.publish(ctx, job, StatusFailed, evaluator.FailureMessage(err), nil, raw)
		p.metrics.RecordQueueJob(ctx, string(job.Kind), StatusFailed)
		return err
	}

	logger.Info("Job completed")
	p.publish(ctx, job, StatusCompleted, "analysis completed", result, "")
	p.metrics.RecordQueueJob(ctx, string(job.Kind), StatusCompleted)
	return nil
}

func (p *Processor) run(ctx context.Context, job AnalysisJob) (any, error) {
	req, err := p.buildRequest(ctx, job)
	if err != nil {
		return nil, err
	}

	switch job.Kind {
	case config.OpAnalysis:
		return p.evaluator.AnalyzeResume(ctx, req)
	case config.OpQuestions:
		return p.evaluator.GenerateQuestions(ctx, req)
	case config.OpFeedback:
		return p.evaluator.AnswerFeedback(ctx, req)
	case config.OpIdealAnswer:
		return p.evaluator.IdealAnswer(ctx, req)
	case config.OpAsk:
		return p.evaluator.Ask(ctx, req)
	default:
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown job kind: %q", job.Kind), nil)
	}
}

// buildRequest loads whatever documents the job names. Missing documents
// are left empty so the evaluator reports them with its usual messages.
func (p *Processor) buildRequest(ctx context.Context, job AnalysisJob) (evaluator.Request, error) {
	req := evaluator.Request{
		Question:  job.Question,
		Answer:    job.Answer,
		Options:   job.Options,
		User:      job.User,
		HistoryID: job.HistoryID,
	}

	if job.ResumeKey != "" {
		doc, err := p.loader.LoadDocument(ctx, job.ResumeKey, job.ResumeMime)
		if err != nil {
			return req, err
		}
		p.metrics.RecordIngest(ctx, "resume", "s3")
		req.Resume = doc
	}

	switch {
	case job.JDKey != "":
		doc, err := p.loader.LoadDocument(ctx, job.JDKey, job.JDMime)
		if err != nil {
			return req, err
		}
		p.metrics.RecordIngest(ctx, "jd", "s3")
		req.JobDescription = doc
	case strings.TrimSpace(job.JobDescription) != "":
		doc, err := ingest.FromText(job.JobDescription)
		if err != nil {
			return req, err
		}
		p.metrics.RecordIngest(ctx, "jd", "text")
		req.JobDescription = doc
	}
	return req, nil
}

func (p *Processor) publish(ctx context.Context, job AnalysisJob, status, message string, result any, raw string) {
	update := StatusUpdate{
		JobID:     job.ID,
		Kind:      string(job.Kind),
		Status:    status,
		Message:   message,
		Timestamp: p.now().UTC(),
		Result:    result,
		RawOutput: raw,
	}
	if err := p.publisher.PublishUpdate(ctx, update); err != nil {
		p.logger.Warn("Failed to publish job update",
			"job_id", job.ID,
			"status", status,
			"error", err.Error())
	}
}
