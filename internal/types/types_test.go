package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in      string
		want    FlexInt
		wantErr bool
	}{
		{`85`, 85, false},
		{`84.6`, 85, false},
		{`"72"`, 72, false},
		{`"72/100"`, 72, false},
		{`"90%"`, 90, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"Q1"`, 1, false},
		{`"Question 3"`, 3, false},
		{`"high"`, 0, false},
		{`[1]`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got FlexInt
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlexString(t *testing.T) {
	var edu Education
	require.NoError(t, json.Unmarshal([]byte(`{"degree":"B.Tech","cgpa":8.7,"years":2019}`), &edu))
	assert.Equal(t, FlexString("B.Tech"), edu.Degree)
	assert.Equal(t, FlexString("8.7"), edu.CGPA)
	assert.Equal(t, FlexString("2019"), edu.Years)

	var s FlexString
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1}`), &s))
	assert.Equal(t, FlexString(`{"a":1}`), s)
}

func TestFlexStrings(t *testing.T) {
	tests := []struct {
		in   string
		want FlexStrings
	}{
		{`["Go","Redis"]`, FlexStrings{"Go", "Redis"}},
		{`"Go, Redis"`, FlexStrings{"Go, Redis"}},
		{`[1, true, "x", null, ""]`, FlexStrings{"1", "true", "x"}},
		{`[{"name":"Go"}]`, FlexStrings{`{"name":"Go"}`}},
		{`null`, nil},
		{`""`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got FlexStrings
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModelShapesDecode(t *testing.T) {
	t.Run("tech stack as string", func(t *testing.T) {
		var result AnalysisResult
		raw := `{"sections": {"work_experience": [{"title": "SRE", "tech_stack": "Go, Redis"}]}}`
		require.NoError(t, json.Unmarshal([]byte(raw), &result))
		require.Len(t, result.Sections.WorkExperience, 1)
		assert.Equal(t, FlexStrings{"Go, Redis"}, result.Sections.WorkExperience[0].TechStack)
	})

	t.Run("question number label", func(t *testing.T) {
		var questions []InterviewQuestion
		raw := `[{"question_num": "Q1", "question": "Why Go?"}, {"question_num": "intro", "question": "Hi"}]`
		require.NoError(t, json.Unmarshal([]byte(raw), &questions))
		assert.Equal(t, FlexInt(1), questions[0].QuestionNum)
		assert.Equal(t, FlexInt(0), questions[1].QuestionNum)
		assert.Equal(t, "Why Go?", questions[0].Question)
	})
}

func TestAnalysisResultDecodesModelShape(t *testing.T) {
	raw := `{
		"resume_summary": "Backend engineer",
		"jd_summary": "Go role",
		"ats_score": {"total_score": "78", "skills_match": 80, "keyword_match": 70, "format_penalty": 5, "final_assessment": "Good fit"},
		"sections": {"basic_info": {"name": "A", "email": "a@x.io", "phone": 5551234}, "skills": ["Go"]},
		"weaknesses": {"weak_phrasing": {"verbs": ["helped"]}},
		"suggestions": {"rewrite_examples": [{"current": "helped", "suggested": "led"}]},
		"red_flags": []
	}`

	var result AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))
	assert.Equal(t, FlexInt(78), result.ATSScore.TotalScore)
	assert.Equal(t, FlexString("5551234"), result.Sections.BasicInfo.Phone)
	assert.Equal(t, FlexStrings{"helped"}, result.Weaknesses.WeakPhrasing.Verbs)
	assert.Equal(t, "led", result.Suggestions.RewriteExamples[0].Suggested)
}

func TestQuestionOptionsWithDefaults(t *testing.T) {
	opts := QuestionOptions{}.WithDefaults()
	assert.Equal(t, QuestionOptions{
		NumQuestions:       5,
		SkillFocus:         "As per JD",
		QuestionType:       "Technical, Behavioral",
		QuestionDifficulty: "Medium",
		ExperienceLevel:    "1-2 years",
		RoundType:          "Technical",
		TargetJobRole:      "Software Engineer",
	}, opts)

	custom := QuestionOptions{NumQuestions: 50, RoundType: "HR"}.WithDefaults()
	assert.Equal(t, MaxNumQuestions, custom.NumQuestions)
	assert.Equal(t, "HR", custom.RoundType)
}
