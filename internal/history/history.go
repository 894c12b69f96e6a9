// Package history persists completed resume analyses and generated
// interview question sets per user.
package history

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/types"
)

const (
	// DefaultLimit caps list results when the config does not.
	DefaultLimit = 50

	// MaxMemoryRecords bounds each MemoryStore collection. The oldest
	// records are dropped first.
	MaxMemoryRecords = 1000
)

// ErrNotFound is returned when a record does not exist for the user.
var ErrNotFound = fmt.Errorf("history record not found")

// Store keeps history records. List methods return newest first.
type Store interface {
	SaveResume(ctx context.Context, rec *types.ResumeHistory) error
	SaveInterview(ctx context.Context, rec *types.InterviewHistory) error
	ListResume(ctx context.Context, user string, limit int) ([]types.ResumeHistory, error)
	ListInterview(ctx context.Context, user string, limit int) ([]types.InterviewHistory, error)
	IncrementAnswers(ctx context.Context, user, id string) error
	// CountResume is the number of stored analyses across all users.
	CountResume(ctx context.Context) (int64, error)
	// CountQuestions is the number of individual questions across all
	// stored interview sets.
	CountQuestions(ctx context.Context) (int64, error)
	Name() string
	Close(ctx context.Context) error
}

// New opens the store selected by cfg.Driver. "none" (or empty) returns
// a nil Store, which callers treat as history being disabled.
func New(ctx context.Context, cfg config.HistoryConfig, logger *errors.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "mongo":
		s, err := NewMongoStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported history driver: %s", cfg.Driver), nil)
	}
}

// NewResumeRecord builds the history entry for an analysis. Strengths and
// suggestions are flattened into plain lists for display.
func NewResumeRecord(user, jobDescription string, result types.AnalysisResult) *types.ResumeHistory {
	return &types.ResumeHistory{
		User:            user,
		JobDescription:  jobDescription,
		AnalysisSummary: result.ResumeSummary,
		MatchScore:      int(result.ATSScore.TotalScore),
		Strengths:       FlattenStrengths(result.Strengths),
		Suggestions:     FlattenSuggestions(result.Suggestions),
		FullAnalysis:    result,
	}
}

// NewInterviewRecord builds the history entry for a question set.
func NewInterviewRecord(user, jobDescription string, questions []types.InterviewQuestion) *types.InterviewHistory {
	texts := make([]string, 0, len(questions))
	for _, q := range questions {
		texts = append(texts, q.Question)
	}
	return &types.InterviewHistory{
		User:           user,
		JobDescription: jobDescription,
		Questions:      texts,
		FullQuestions:  questions,
	}
}

func FlattenStrengths(s types.Strengths) []string {
	out := make([]string, 0, len(s.Technical)+len(s.ResumeQuality)+len(s.AlignmentWithJD))
	out = append(out, s.Technical...)
	out = append(out, s.ResumeQuality...)
	return append(out, s.AlignmentWithJD...)
}

// FlattenSuggestions lists every suggestion, rendering rewrite examples
// as `Rewrite: "current" → "suggested"`.
func FlattenSuggestions(s types.Suggestions) []string {
	var out []string
	out = append(out, s.Formatting.HighPriority...)
	out = append(out, s.Formatting.LowPriority...)
	out = append(out, s.KeywordOptimization.MissingKeywords...)
	out = append(out, s.KeywordOptimization.OverusedWords...)
	out = append(out, s.ContentImprovements...)
	for _, r := range s.RewriteExamples {
		if r.Current != "" && r.Suggested != "" {
			out = append(out, fmt.Sprintf("Rewrite: %q → %q", r.Current, r.Suggested))
		}
	}
	return out
}

func stampResume(rec *types.ResumeHistory) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}

func stampInterview(rec *types.InterviewHistory) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// MemoryStore keeps the most recent history in process memory. Counts
// cover every record saved, including ones since evicted.
type MemoryStore struct {
	mu         sync.RWMutex
	maxRecords int
	resumes    []types.ResumeHistory
	interviews []types.InterviewHistory

	resumeTotal   int64
	questionTotal int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding at most MaxMemoryRecords of each
// record kind.
func NewMemoryStore() *MemoryStore {
	return NewBoundedMemoryStore(MaxMemoryRecords)
}

// NewBoundedMemoryStore creates a store holding at most maxRecords of each
// record kind. maxRecords <= 0 means MaxMemoryRecords.
func NewBoundedMemoryStore(maxRecords int) *MemoryStore {
	if maxRecords <= 0 {
		maxRecords = MaxMemoryRecords
	}
	return &MemoryStore{maxRecords: maxRecords}
}

// evict drops the oldest entries so that at most limit remain.
func evict[T any](records []T, limit int) []T {
	if over := len(records) - limit; over > 0 {
		return slices.Delete(records, 0, over)
	}
	return records
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) SaveResume(_ context.Context, rec *types.ResumeHistory) error {
	stampResume(rec)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes = evict(append(m.resumes, *rec), m.maxRecords)
	m.resumeTotal++
	return nil
}

func (m *MemoryStore) SaveInterview(_ context.Context, rec *types.InterviewHistory) error {
	stampInterview(rec)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interviews = evict(append(m.interviews, *rec), m.maxRecords)
	m.questionTotal += int64(len(rec.Questions))
	return nil
}

func (m *MemoryStore) ListResume(_ context.Context, user string, limit int) ([]types.ResumeHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.ResumeHistory, 0)
	for i := len(m.resumes) - 1; i >= 0; i-- {
		if m.resumes[i].User == user {
			out = append(out, m.resumes[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out[:min(len(out), normalizeLimit(limit))], nil
}

func (m *MemoryStore) ListInterview(_ context.Context, user string, limit int) ([]types.InterviewHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.InterviewHistory, 0)
	for i := len(m.interviews) - 1; i >= 0; i-- {
		if m.interviews[i].User == user {
			out = append(out, m.interviews[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out[:min(len(out), normalizeLimit(limit))], nil
}

func (m *MemoryStore) IncrementAnswers(_ context.Context, user, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.interviews {
		if m.interviews[i].ID == id && m.interviews[i].User == user {
			m.interviews[i].AnswersSubmitted++
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) CountResume(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resumeTotal, nil
}

func (m *MemoryStore) CountQuestions(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.questionTotal, nil
}

func (m *MemoryStore) Close(context.Context) error { return nil }
