package ai

import (
	"os"
	"path/filepath"
	"testing"

	"resumerag/internal/config"
	"resumerag/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptsCoverEveryOperation(t *testing.T) {
	for _, op := range config.Operations {
		pair, ok := DefaultPrompts[op]
		require.True(t, ok, op)
		assert.NotEmpty(t, pair.System, op)
		assert.Contains(t, pair.User, "{{.Resume}}", op)
		assert.Contains(t, pair.User, "{{.JobDescription}}", op)
	}
}

func TestRenderPromptDefaults(t *testing.T) {
	data := PromptData{
		Resume:             "Built Kafka pipelines in Go",
		JobDescription:     "Backend engineer, Go and Kafka",
		NumQuestions:       7,
		QuestionType:       "System Design",
		QuestionDifficulty: "Hard",
		ExperienceLevel:    "Senior",
		RoundType:          "Technical",
		TargetJobRole:      "Staff Engineer",
		SkillFocus:         "Kafka",
	}

	req, err := RenderPrompt(config.OpQuestions, nil, data)
	require.NoError(t, err)
	assert.Equal(t, config.OpQuestions, req.Operation)
	assert.NotEmpty(t, req.System)
	assert.Contains(t, req.User, "Write 7 mock interview questions")
	assert.Contains(t, req.User, "Built Kafka pipelines in Go")
	assert.Contains(t, req.User, "Skill focus: Kafka")
	assert.Contains(t, req.User, `"question_num"`)
	assert.NotContains(t, req.User, "{{")
}

func TestRenderPromptAnalysisKeepsSchema(t *testing.T) {
	req, err := RenderPrompt(config.OpAnalysis, nil, PromptData{Resume: "r", JobDescription: "j"})
	require.NoError(t, err)
	for _, key := range []string{`"ats_score"`, `"weak_phrasing"`, `"rewrite_examples"`, `"suggested_resume_title"`} {
		assert.Contains(t, req.User, key)
	}
}

func TestRenderPromptIdealAnswerBulletFormat(t *testing.T) {
	req, err := RenderPrompt(config.OpIdealAnswer, nil, PromptData{Question: "Tell me about a failure"})
	require.NoError(t, err)
	assert.Contains(t, req.User, "Tell me about a failure")
	assert.Contains(t, req.User, `\n\n`)
	assert.Contains(t, req.User, "• ")
}

func TestRenderPromptOverrides(t *testing.T) {
	dir := t.TempDir()
	userFile := filepath.Join(dir, "feedback_user.txt")
	require.NoError(t, os.WriteFile(userFile, []byte("Q={{.Question}} A={{.Answer}}"), 0o600))

	store, err := config.NewPromptStore(config.PromptConfig{
		Feedback: config.PromptOverride{
			System:   "inline system",
			User:     "inline user ignored",
			UserFile: userFile,
		},
	}, nil)
	require.NoError(t, err)

	req, err := RenderPrompt(config.OpFeedback, store, PromptData{Question: "Why Go?", Answer: "Simplicity"})
	require.NoError(t, err)
	assert.Equal(t, "inline system", req.System)
	assert.Equal(t, "Q=Why Go? A=Simplicity", req.User)

	other, err := RenderPrompt(config.OpAsk, store, PromptData{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts[config.OpAsk].System, other.System)
}

func TestRenderPromptBadOverride(t *testing.T) {
	store, err := config.NewPromptStore(config.PromptConfig{
		Ask: config.PromptOverride{User: "{{.Nope}}"},
	}, nil)
	require.NoError(t, err)

	_, err = RenderPrompt(config.OpAsk, store, PromptData{})
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidConfig, appErr.Code)
	assert.Equal(t, "config", appErr.Context["source"])
}

func TestRenderPromptUnknownOperation(t *testing.T) {
	_, err := RenderPrompt(config.Operation("tailor"), nil, PromptData{})
	assert.Error(t, err)
}
