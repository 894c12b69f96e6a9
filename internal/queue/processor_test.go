package queue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/evaluator"
	"resumerag/internal/normalize"
	"resumerag/internal/types"
)

type fakeLoader struct {
	docs map[string]string
	err  error
}

func (f *fakeLoader) LoadDocument(_ context.Context, key, _ string) (types.Document, error) {
	if f.err != nil {
		return types.Document{}, f.err
	}
	return types.Document{Text: f.docs[key], Source: "s3://test/" + key}, nil
}

type fakeCapabilities struct {
	requests []evaluator.Request
	err      error
}

func (f *fakeCapabilities) AnalyzeResume(_ context.Context, req evaluator.Request) (*types.AnalysisResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &types.AnalysisResult{ResumeSummary: "Strong backend profile"}, nil
}

func (f *fakeCapabilities) GenerateQuestions(_ context.Context, req evaluator.Request) ([]types.InterviewQuestion, error) {
	f.requests = append(f.requests, req)
	return []types.InterviewQuestion{{Question: "Why Go?"}}, f.err
}

func (f *fakeCapabilities) AnswerFeedback(_ context.Context, req evaluator.Request) (*types.FeedbackResult, error) {
	f.requests = append(f.requests, req)
	return &types.FeedbackResult{}, f.err
}

func (f *fakeCapabilities) IdealAnswer(_ context.Context, req evaluator.Request) (*types.IdealAnswer, error) {
	f.requests = append(f.requests, req)
	return &types.IdealAnswer{}, f.err
}

func (f *fakeCapabilities) Ask(_ context.Context, req evaluator.Request) (*types.AskResult, error) {
	f.requests = append(f.requests, req)
	return &types.AskResult{Answer: "yes"}, f.err
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []StatusUpdate
}

func (r *recordingPublisher) PublishUpdate(_ context.Context, u StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

func (r *recordingPublisher) statuses() []string {
	var out []string
	for _, u := range r.updates {
		out = append(out, u.Status)
	}
	return out
}

func newTestProcessor(loader DocumentLoader, caps Capabilities, pub UpdatePublisher) *Processor {
	p := NewProcessor(loader, caps, pub, nil, errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug))
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p
}

func jobBody(t *testing.T, job AnalysisJob) []byte {
	t.Helper()
	body, err := json.Marshal(job)
	require.NoError(t, err)
	return body
}

func TestHandleCompletedJob(t *testing.T) {
	loader := &fakeLoader{docs: map[string]string{"cv.pdf": "resume body", "jd.pdf": "jd body"}}
	caps := &fakeCapabilities{}
	pub := &recordingPublisher{}
	p := newTestProcessor(loader, caps, pub)

	err := p.Handle(context.Background(), jobBody(t, AnalysisJob{
		ID: "job-1", Kind: config.OpAnalysis, User: "alice",
		ResumeKey: "cv.pdf", ResumeMime: "application/pdf",
		JDKey: "jd.pdf", JDMime: "application/pdf",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{StatusProcessing, StatusCompleted}, pub.statuses())
	done := pub.updates[1]
	assert.Equal(t, "job-1", done.JobID)
	assert.Equal(t, "analysis", done.Kind)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), done.Timestamp)
	result, ok := done.Result.(*types.AnalysisResult)
	require.True(t, ok)
	assert.Equal(t, "Strong backend profile", result.ResumeSummary)

	require.Len(t, caps.requests, 1)
	assert.Equal(t, "resume body", caps.requests[0].Resume.Text)
	assert.Equal(t, "jd body", caps.requests[0].JobDescription.Text)
	assert.Equal(t, "alice", caps.requests[0].User)
}

func TestHandleUsesInlineJobDescription(t *testing.T) {
	loader := &fakeLoader{docs: map[string]string{"cv.pdf": "resume body"}}
	caps := &fakeCapabilities{}
	p := newTestProcessor(loader, caps, &recordingPublisher{})

	err := p.Handle(context.Background(), jobBody(t, AnalysisJob{
		ID: "job-2", Kind: config.OpAsk, ResumeKey: "cv.pdf",
		JobDescription: "  Backend role, Go required.  ", Question: "Go?",
	}))
	require.NoError(t, err)
	require.Len(t, caps.requests, 1)
	assert.Equal(t, "Backend role, Go required.", caps.requests[0].JobDescription.Text)
	assert.Equal(t, "Go?", caps.requests[0].Question)
}

func TestHandleFailures(t *testing.T) {
	tests := []struct {
		name    string
		loader  *fakeLoader
		capsErr error
		job     AnalysisJob
		message string
		raw     string
	}{
		{
			name:    "unknown kind",
			loader:  &fakeLoader{},
			job:     AnalysisJob{ID: "j", Kind: "translate"},
			message: `unknown job kind: "translate"`,
		},
		{
			name:    "download failure",
			loader:  &fakeLoader{err: errors.NewNetworkError(errors.ErrCodeStorageFailed, "failed to get object", nil)},
			job:     AnalysisJob{ID: "j", Kind: config.OpAnalysis, ResumeKey: "cv.pdf"},
			message: "Document processing failed: failed to get object",
		},
		{
			name:    "validation from evaluator",
			loader:  &fakeLoader{},
			capsErr: errors.NewValidationError(errors.ErrCodeMissingInput, evaluator.MsgMissingResume, nil),
			job:     AnalysisJob{ID: "j", Kind: config.OpAnalysis},
			message: evaluator.MsgMissingResume,
		},
		{
			name:   "invalid model output",
			loader: &fakeLoader{},
			capsErr: errors.NewProcessingError(errors.ErrCodeInvalidModelOutput, evaluator.MsgInvalidJSON,
				&normalize.InvalidJSONError{Raw: "not json"}),
			job:     AnalysisJob{ID: "j", Kind: config.OpAnalysis},
			message: evaluator.MsgInvalidJSON,
			raw:     "not json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			p := newTestProcessor(tt.loader, &fakeCapabilities{err: tt.capsErr}, pub)

			err := p.Handle(context.Background(), jobBody(t, tt.job))
			require.Error(t, err)

			assert.Equal(t, []string{StatusProcessing, StatusFailed}, pub.statuses())
			failed := pub.updates[1]
			assert.Equal(t, tt.message, failed.Message)
			assert.Equal(t, tt.raw, failed.RawOutput)
			assert.Nil(t, failed.Result)
		})
	}
}

func TestHandleRejectsBadPayload(t *testing.T) {
	pub := &recordingPublisher{}
	p := newTestProcessor(&fakeLoader{}, &fakeCapabilities{}, pub)

	err := p.Handle(context.Background(), []byte("{not json"))
	assert.True(t, errors.IsValidation(err))

	err = p.Handle(context.Background(), []byte(`{"kind":"analysis"}`))
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, pub.updates)
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "job.abc", RoutingKey("abc"))
}
