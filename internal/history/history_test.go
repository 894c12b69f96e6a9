package history

import (
	"context"
	"testing"
	"time"

	"resumerag/internal/config"
	"resumerag/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnalysis() types.AnalysisResult {
	return types.AnalysisResult{
		ResumeSummary: "Go developer with five years of backend work",
		ATSScore:      types.ATSScore{TotalScore: 81},
		Strengths: types.Strengths{
			Technical:       []string{"Go"},
			ResumeQuality:   []string{"Concise"},
			AlignmentWithJD: []string{"Kafka experience"},
		},
		Suggestions: types.Suggestions{
			Formatting:          types.FormattingSuggestions{HighPriority: []string{"Add dates"}},
			KeywordOptimization: types.KeywordOptimization{MissingKeywords: []string{"gRPC"}},
			ContentImprovements: []string{"Quantify impact"},
			RewriteExamples: []types.RewriteExample{
				{Current: "helped build", Suggested: "built"},
				{Current: "incomplete"},
			},
		},
	}
}

func TestNewResumeRecordFlattens(t *testing.T) {
	rec := NewResumeRecord("alice", "Go role", sampleAnalysis())

	assert.Equal(t, "alice", rec.User)
	assert.Equal(t, 81, rec.MatchScore)
	assert.Equal(t, "Go developer with five years of backend work", rec.AnalysisSummary)
	assert.Equal(t, []string{"Go", "Concise", "Kafka experience"}, rec.Strengths)
	assert.Equal(t, []string{
		"Add dates",
		"gRPC",
		"Quantify impact",
		`Rewrite: "helped build" → "built"`,
	}, rec.Suggestions)
}

func TestNewInterviewRecord(t *testing.T) {
	rec := NewInterviewRecord("bob", "SRE role", []types.InterviewQuestion{
		{QuestionNum: 1, Question: "What is an SLO?"},
		{QuestionNum: 2, Question: "Walk me through an incident."},
	})
	assert.Equal(t, []string{"What is an SLO?", "Walk me through an incident."}, rec.Questions)
	assert.Len(t, rec.FullQuestions, 2)
	assert.Zero(t, rec.AnswersSubmitted)
}

func TestMemoryStoreListsNewestFirstPerUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, user := range []string{"alice", "bob", "alice", "alice"} {
		rec := NewResumeRecord(user, "jd", sampleAnalysis())
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.SaveResume(ctx, rec))
		assert.NotEmpty(t, rec.ID)
	}

	got, err := store.ListResume(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, base.Add(3*time.Minute), got[0].CreatedAt)
	assert.Equal(t, base, got[2].CreatedAt)

	limited, err := store.ListResume(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := store.ListResume(ctx, "carol", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryStoreSameInstantKeepsInsertionNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := NewInterviewRecord("alice", "first", nil)
	first.CreatedAt = at
	second := NewInterviewRecord("alice", "second", nil)
	second.CreatedAt = at
	require.NoError(t, store.SaveInterview(ctx, first))
	require.NoError(t, store.SaveInterview(ctx, second))

	got, err := store.ListInterview(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].JobDescription)
}

func TestMemoryStoreIncrementAnswers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := NewInterviewRecord("alice", "jd", nil)
	require.NoError(t, store.SaveInterview(ctx, rec))

	require.NoError(t, store.IncrementAnswers(ctx, "alice", rec.ID))
	require.NoError(t, store.IncrementAnswers(ctx, "alice", rec.ID))
	assert.ErrorIs(t, store.IncrementAnswers(ctx, "mallory", rec.ID), ErrNotFound)
	assert.ErrorIs(t, store.IncrementAnswers(ctx, "alice", "missing"), ErrNotFound)

	got, err := store.ListInterview(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, got[0].AnswersSubmitted)
}

func TestNewSelectsDriver(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, config.HistoryConfig{Driver: "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(ctx, config.HistoryConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())

	_, err = New(ctx, config.HistoryConfig{Driver: "sqlite"}, nil)
	assert.Error(t, err)
}

func TestMemoryStoreEvictsOldestAndKeepsTotals(t *testing.T) {
	ctx := context.Background()
	store := NewBoundedMemoryStore(2)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, jd := range []string{"first", "second", "third"} {
		rec := NewResumeRecord("alice", jd, sampleAnalysis())
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.SaveResume(ctx, rec))
	}

	got, err := store.ListResume(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].JobDescription)
	assert.Equal(t, "second", got[1].JobDescription)

	resumes, err := store.CountResume(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, resumes)
}

func TestMemoryStoreCountQuestionsAcrossUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	empty, err := store.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty)

	require.NoError(t, store.SaveInterview(ctx, NewInterviewRecord("alice", "jd", []types.InterviewQuestion{
		{QuestionNum: 1, Question: "a"}, {QuestionNum: 2, Question: "b"},
	})))
	require.NoError(t, store.SaveInterview(ctx, NewInterviewRecord("bob", "jd", []types.InterviewQuestion{
		{QuestionNum: 1, Question: "c"}, {QuestionNum: 2, Question: "d"}, {QuestionNum: 3, Question: "e"},
	})))

	total, err := store.CountQuestions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
}
