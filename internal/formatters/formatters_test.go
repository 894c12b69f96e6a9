package formatters

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumerag/internal/types"
)

func TestJSONFallbackForAnyType(t *testing.T) {
	out, err := GlobalRegistry.Format(map[string]int{"a": 1}, "json")
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1, decoded["a"])
}

func TestUnknownTypeHasNoTextFormatter(t *testing.T) {
	_, err := GlobalRegistry.Format(struct{}{}, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no formatter found")
}

func TestSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text"}, GlobalRegistry.GetSupportedFormats())
}

func TestQuestionsText(t *testing.T) {
	questions := []types.InterviewQuestion{
		{QuestionNum: 1, Question: "Explain goroutines.", QuestionType: "Technical", QuestionDifficulty: "Easy"},
		{Question: "Tell me about a conflict."},
	}

	out, err := GlobalRegistry.Format(questions, "text")
	require.NoError(t, err)

	assert.Contains(t, out, "=== INTERVIEW QUESTIONS ===")
	assert.Contains(t, out, "1. Explain goroutines.\n   [Technical, Easy]")
	assert.Contains(t, out, "2. Tell me about a conflict.")
}

func TestFeedbackMarkdown(t *testing.T) {
	result := &types.FeedbackResult{
		ScoreOutOf10:    7,
		Strengths:       []string{"clear structure"},
		AreasToImprove:  []string{"quantify impact"},
		OverallFeedback: "Solid answer.",
	}

	out, err := GlobalRegistry.Format(result, "markdown")
	require.NoError(t, err)

	assert.Contains(t, out, "# Answer Feedback")
	assert.Contains(t, out, "**Score:** 7/10")
	assert.Contains(t, out, "## Strengths\n\n- clear structure")
	assert.NotContains(t, out, "Follow-up questions", "empty lists are omitted")
}

func TestAnalysisText(t *testing.T) {
	result := &types.AnalysisResult{
		ResumeSummary: "Backend developer.",
		ATSScore:      types.ATSScore{TotalScore: 82, FinalAssessment: "Strong match"},
		Weaknesses:    types.Weaknesses{MissingSkills: []string{"Kubernetes"}},
		Suggestions: types.Suggestions{
			RewriteExamples: []types.RewriteExample{{Current: "worked on APIs", Suggested: "built 12 REST APIs"}},
		},
	}

	out, err := GlobalRegistry.Format(result, "text")
	require.NoError(t, err)

	assert.Contains(t, out, "Total: 82/100")
	assert.Contains(t, out, "Assessment: Strong match")
	assert.Contains(t, out, "Missing skills:\n- Kubernetes")
	assert.Contains(t, out, "- worked on APIs\n  -> built 12 REST APIs")
}

func TestAskAndIdealAnswer(t *testing.T) {
	out, err := GlobalRegistry.Format(&types.AskResult{Answer: "Yes.", References: []string{"resume"}}, "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Answer\n\nYes.")
	assert.Contains(t, out, "- resume")

	out, err = GlobalRegistry.Format(&types.IdealAnswer{IdealAnswer: "• point", Explanation: "because"}, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "• point")
	assert.Contains(t, out, "Why it works:\nbecause")
}
