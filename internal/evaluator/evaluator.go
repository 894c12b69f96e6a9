// Package evaluator runs the five capabilities: it retrieves the relevant
// passages of both documents, asks the model and decodes its answer.
package evaluator

import (
	"context"
	stderrors "errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"resumerag/internal/ai"
	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/history"
	"resumerag/internal/normalize"
	"resumerag/internal/observability"
	"resumerag/internal/types"
)

// Validation messages shared with the HTTP layer.
const (
	MsgResumeNotPDF      = "Resume must be a PDF"
	MsgMissingResume     = "Missing resume file or text"
	MsgJDNotPDF          = "Job description must be a PDF"
	MsgMissingJD         = "Job description is required"
	MsgMissingQA         = "Missing question or answer"
	MsgMissingQuestion   = "Missing interview question"
	MsgInvalidJSON       = "Invalid JSON"
	AnonymousUser        = "anonymous"
	maxAskReferenceCount = 3
)

// Retriever returns the passages of doc most relevant to query.
type Retriever interface {
	Retrieve(ctx context.Context, doc types.Document, query string) (types.RetrievalResult, error)
}

// Generator turns prompt data into raw model output for an operation.
type Generator interface {
	Generate(ctx context.Context, op config.Operation, data ai.PromptData) (*ai.Completion, error)
}

// Request carries both documents and the capability-specific inputs.
type Request struct {
	Resume         types.Document
	JobDescription types.Document
	Question       string
	Answer         string
	Options        types.QuestionOptions
	User           string
	// HistoryID links answer feedback to a stored question set.
	HistoryID string
}

// Evaluator wires retrieval, generation, decoding and history together.
type Evaluator struct {
	retriever Retriever
	generator Generator
	history   history.Store
	metrics   *observability.Metrics
	logger    *errors.Logger
}

// New creates an Evaluator. store may be nil when history is disabled.
func New(retriever Retriever, generator Generator, store history.Store, metrics *observability.Metrics, logger *errors.Logger) *Evaluator {
	return &Evaluator{
		retriever: retriever,
		generator: generator,
		history:   store,
		metrics:   metrics,
		logger:    logger,
	}
}

// AnalyzeResume scores the resume against the job description.
func (e *Evaluator) AnalyzeResume(ctx context.Context, req Request) (*types.AnalysisResult, error) {
	if err := validateDocuments(req); err != nil {
		return nil, err
	}

	resumeCtx, jdCtx, err := e.retrieveBoth(ctx, req, queries[config.OpAnalysis])
	if err != nil {
		return nil, err
	}

	raw, err := e.generate(ctx, config.OpAnalysis, ai.PromptData{Resume: resumeCtx, JobDescription: jdCtx})
	if err != nil {
		return nil, err
	}

	result, err := decode[types.AnalysisResult](raw)
	e.metrics.RecordBusinessMetric(ctx, observability.MetricResumeAnalyzed, err == nil,
		attribute.Int("ats.score", int(result.ATSScore.TotalScore)))
	if err != nil {
		return nil, err
	}

	if e.history != nil {
		rec := history.NewResumeRecord(userOrAnonymous(req.User), req.JobDescription.Text, result)
		if err := e.history.SaveResume(ctx, rec); err != nil {
			e.logger.LogError(err, "Failed to save resume history", "user", rec.User)
		}
	}
	return &result, nil
}

// GenerateQuestions writes mock interview questions. The model may answer
// with a bare array or with {"questions": [...]}.
func (e *Evaluator) GenerateQuestions(ctx context.Context, req Request) ([]types.InterviewQuestion, error) {
	if err := validateDocuments(req); err != nil {
		return nil, err
	}
	opts := req.Options.WithDefaults()

	resumeCtx, jdCtx, err := e.retrieveBoth(ctx, req, queries[config.OpQuestions])
	if err != nil {
		return nil, err
	}

	raw, err := e.generate(ctx, config.OpQuestions, ai.PromptData{
		Resume:             resumeCtx,
		JobDescription:     jdCtx,
		NumQuestions:       opts.NumQuestions,
		QuestionType:       opts.QuestionType,
		QuestionDifficulty: opts.QuestionDifficulty,
		ExperienceLevel:    opts.ExperienceLevel,
		RoundType:          opts.RoundType,
		TargetJobRole:      opts.TargetJobRole,
		SkillFocus:         opts.SkillFocus,
	})
	if err != nil {
		return nil, err
	}

	questions, err := decodeQuestions(raw)
	e.metrics.RecordBusinessMetric(ctx, observability.MetricQuestionsGenerated, err == nil,
		attribute.Int("questions.count", len(questions)))
	if err != nil {
		return nil, err
	}

	if e.history != nil {
		rec := history.NewInterviewRecord(userOrAnonymous(req.User), req.JobDescription.Text, questions)
		if err := e.history.SaveInterview(ctx, rec); err != nil {
			e.logger.LogError(err, "Failed to save interview history", "user", rec.User)
		}
	}
	return questions, nil
}

// AnswerFeedback scores a candidate's answer.
func (e *Evaluator) AnswerFeedback(ctx context.Context, req Request) (*types.FeedbackResult, error) {
	if err := validateDocuments(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingInput, MsgMissingQA, nil)
	}

	resumeCtx, jdCtx, err := e.retrieveBoth(ctx, req, queries[config.OpFeedback])
	if err != nil {
		return nil, err
	}

	raw, err := e.generate(ctx, config.OpFeedback, ai.PromptData{
		Resume:         resumeCtx,
		JobDescription: jdCtx,
		Question:       req.Question,
		Answer:         req.Answer,
	})
	if err != nil {
		return nil, err
	}

	result, err := decode[types.FeedbackResult](raw)
	e.metrics.RecordBusinessMetric(ctx, observability.MetricAnswerScored, err == nil,
		attribute.Int("answer.score", int(result.ScoreOutOf10)))
	if err != nil {
		return nil, err
	}

	if e.history != nil && req.HistoryID != "" {
		if err := e.history.IncrementAnswers(ctx, userOrAnonymous(req.User), req.HistoryID); err != nil {
			e.logger.Warn("Failed to count submitted answer",
				"history_id", req.HistoryID,
				"error", err.Error())
		}
	}
	return &result, nil
}

// IdealAnswer writes a model answer for the question.
func (e *Evaluator) IdealAnswer(ctx context.Context, req Request) (*types.IdealAnswer, error) {
	if err := validateDocuments(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingInput, MsgMissingQuestion, nil)
	}

	resumeCtx, jdCtx, err := e.retrieveBoth(ctx, req, queries[config.OpIdealAnswer])
	if err != nil {
		return nil, err
	}

	raw, err := e.generate(ctx, config.OpIdealAnswer, ai.PromptData{
		Resume:         resumeCtx,
		JobDescription: jdCtx,
		Question:       req.Question,
	})
	if err != nil {
		return nil, err
	}

	result, err := decode[types.IdealAnswer](raw)
	e.metrics.RecordBusinessMetric(ctx, observability.MetricIdealAnswer, err == nil)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Ask answers a free-form question from the retrieved passages. The
// answer is plain text; the best passages are returned as references.
func (e *Evaluator) Ask(ctx context.Context, req Request) (*types.AskResult, error) {
	if err := validateDocuments(req); err != nil {
		return nil, err
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingInput, MsgMissingQuestion, nil)
	}

	q := queries[config.OpAsk]
	resumeHits, err := e.retriever.Retrieve(ctx, req.Resume, q.resume+" "+question)
	if err != nil {
		return nil, err
	}
	jdHits, err := e.retriever.Retrieve(ctx, req.JobDescription, q.jobDescription+" "+question)
	if err != nil {
		return nil, err
	}

	raw, err := e.generate(ctx, config.OpAsk, ai.PromptData{
		Resume:         resumeHits.Context,
		JobDescription: jdHits.Context,
		Question:       question,
	})
	e.metrics.RecordBusinessMetric(ctx, observability.MetricQuestionAsked, err == nil)
	if err != nil {
		return nil, err
	}

	result := &types.AskResult{Answer: strings.TrimSpace(raw)}
	for _, hits := range [][]types.SearchResult{resumeHits.Hits, jdHits.Hits} {
		for i := 0; i < len(hits) && i < maxAskReferenceCount; i++ {
			result.References = append(result.References, hits[i].Chunk.Text)
		}
	}
	return result, nil
}

func (e *Evaluator) retrieveBoth(ctx context.Context, req Request, q query) (string, string, error) {
	resume, err := e.retriever.Retrieve(ctx, req.Resume, q.resume)
	if err != nil {
		return "", "", err
	}
	jd, err := e.retriever.Retrieve(ctx, req.JobDescription, q.jobDescription)
	if err != nil {
		return "", "", err
	}
	return resume.Context, jd.Context, nil
}

func (e *Evaluator) generate(ctx context.Context, op config.Operation, data ai.PromptData) (string, error) {
	completion, err := e.generator.Generate(ctx, op, data)
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

func validateDocuments(req Request) error {
	if strings.TrimSpace(req.Resume.Text) == "" {
		return errors.NewValidationError(errors.ErrCodeMissingInput, MsgMissingResume, nil)
	}
	if strings.TrimSpace(req.JobDescription.Text) == "" {
		return errors.NewValidationError(errors.ErrCodeMissingInput, MsgMissingJD, nil)
	}
	return nil
}

func decode[T any](raw string) (T, error) {
	v, err := normalize.Decode[T](raw)
	if err != nil {
		return v, errors.NewProcessingError(errors.ErrCodeInvalidModelOutput, MsgInvalidJSON, err)
	}
	return v, nil
}

func decodeQuestions(raw string) ([]types.InterviewQuestion, error) {
	questions, err := normalize.Decode[[]types.InterviewQuestion](raw)
	if err == nil {
		return questions, nil
	}

	wrapped, werr := normalize.Decode[struct {
		Questions []types.InterviewQuestion `json:"questions"`
	}](raw)
	if werr == nil && wrapped.Questions != nil {
		return wrapped.Questions, nil
	}
	return nil, errors.NewProcessingError(errors.ErrCodeInvalidModelOutput, MsgInvalidJSON, err)
}

// RawOutput returns the model text behind an invalid-output error.
func RawOutput(err error) (string, bool) {
	var invalid *normalize.InvalidJSONError
	if stderrors.As(err, &invalid) {
		return invalid.Raw, true
	}
	return "", false
}

// FailureMessage renders err the way clients see it: validation and
// invalid-output messages verbatim, document failures and everything else
// with a prefix.
func FailureMessage(err error) string {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return "Unexpected server error: " + err.Error()
	}
	switch {
	case appErr.Type == errors.ErrorTypeValidation, appErr.Code == errors.ErrCodeInvalidModelOutput:
		return appErr.Message
	case appErr.Type == errors.ErrorTypeIO,
		appErr.Code == errors.ErrCodeDocumentProcessing,
		appErr.Code == errors.ErrCodeStorageFailed:
		return "Document processing failed: " + appErr.Message
	default:
		return "Unexpected server error: " + appErr.Error()
	}
}

func userOrAnonymous(user string) string {
	if user == "" {
		return AnonymousUser
	}
	return user
}
