package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resumerag/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters.
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	for _, format := range []string{"text", "markdown"} {
		s := style{markdown: format == "markdown"}
		registry.RegisterFormatter(format, typeAnalysis, &AnalysisFormatter{style: s})
		registry.RegisterFormatter(format, typeQuestions, &QuestionsFormatter{style: s})
		registry.RegisterFormatter(format, typeFeedback, &FeedbackFormatter{style: s})
		registry.RegisterFormatter(format, typeIdealAnswer, &IdealAnswerFormatter{style: s})
		registry.RegisterFormatter(format, typeAsk, &AskFormatter{style: s})
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted.
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

const (
	typeAnalysis    = "AnalysisResult"
	typeQuestions   = "InterviewQuestions"
	typeFeedback    = "FeedbackResult"
	typeIdealAnswer = "IdealAnswer"
	typeAsk         = "AskResult"
)

func getDataType(data any) string {
	switch data.(type) {
	case *types.AnalysisResult:
		return typeAnalysis
	case []types.InterviewQuestion:
		return typeQuestions
	case *types.FeedbackResult:
		return typeFeedback
	case *types.IdealAnswer:
		return typeIdealAnswer
	case *types.AskResult:
		return typeAsk
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// style renders headings and lists as plain text or markdown.
type style struct {
	markdown bool
}

func (s style) title(b *strings.Builder, text string) {
	if s.markdown {
		fmt.Fprintf(b, "# %s\n\n", text)
		return
	}
	fmt.Fprintf(b, "=== %s ===\n\n", strings.ToUpper(text))
}

func (s style) section(b *strings.Builder, text string) {
	if s.markdown {
		fmt.Fprintf(b, "## %s\n\n", text)
		return
	}
	fmt.Fprintf(b, "%s:\n", text)
}

func (s style) field(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	if s.markdown {
		fmt.Fprintf(b, "**%s:** %s\n\n", label, value)
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

// list writes a titled bullet list; empty lists are skipped.
func (s style) list(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	s.section(b, label)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func (s style) paragraph(b *strings.Builder, text string) {
	if text == "" {
		return
	}
	b.WriteString(text)
	b.WriteString("\n\n")
}

// AnalysisFormatter renders a resume analysis.
type AnalysisFormatter struct{ style }

func (f *AnalysisFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.AnalysisResult)
	if !ok || result == nil {
		return "", fmt.Errorf("expected *AnalysisResult, got %T", data)
	}

	var b strings.Builder
	f.title(&b, "Resume Analysis")

	score := result.ATSScore
	f.section(&b, "ATS Score")
	f.field(&b, "Total", fmt.Sprintf("%d/100", score.TotalScore))
	f.field(&b, "Skills match", fmt.Sprintf("%d", score.SkillsMatch))
	f.field(&b, "Keyword match", fmt.Sprintf("%d", score.KeywordMatch))
	f.field(&b, "Format penalty", fmt.Sprintf("%d", score.FormatPenalty))
	f.field(&b, "Assessment", score.FinalAssessment)
	b.WriteString("\n")

	f.section(&b, "Resume Summary")
	f.paragraph(&b, result.ResumeSummary)
	f.section(&b, "Job Description Summary")
	f.paragraph(&b, result.JDSummary)
	f.field(&b, "Suggested resume title", result.SuggestedResumeTitle)

	f.list(&b, "Skills", result.Sections.Skills)
	f.list(&b, "Technical strengths", result.Strengths.Technical)
	f.list(&b, "Alignment with the job description", result.Strengths.AlignmentWithJD)
	f.list(&b, "Missing skills", result.Weaknesses.MissingSkills)
	f.list(&b, "Content gaps", result.Weaknesses.ContentGaps)
	f.list(&b, "High priority formatting fixes", result.Suggestions.Formatting.HighPriority)
	f.list(&b, "Missing keywords", result.Suggestions.KeywordOptimization.MissingKeywords)
	f.list(&b, "Content improvements", result.Suggestions.ContentImprovements)

	if len(result.Suggestions.RewriteExamples) > 0 {
		f.section(&b, "Rewrite examples")
		for _, ex := range result.Suggestions.RewriteExamples {
			fmt.Fprintf(&b, "- %s\n  -> %s\n", ex.Current, ex.Suggested)
		}
		b.WriteString("\n")
	}
	f.list(&b, "Red flags", result.RedFlags)

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func (f *AnalysisFormatter) SupportedType() string { return typeAnalysis }

// QuestionsFormatter renders generated interview questions.
type QuestionsFormatter struct{ style }

func (f *QuestionsFormatter) Format(data any) (string, error) {
	questions, ok := data.([]types.InterviewQuestion)
	if !ok {
		return "", fmt.Errorf("expected []InterviewQuestion, got %T", data)
	}

	var b strings.Builder
	f.title(&b, "Interview Questions")
	for i, q := range questions {
		num := int(q.QuestionNum)
		if num == 0 {
			num = i + 1
		}
		fmt.Fprintf(&b, "%d. %s\n", num, q.Question)
		if q.QuestionType != "" || q.QuestionDifficulty != "" {
			fmt.Fprintf(&b, "   [%s, %s]\n", q.QuestionType, q.QuestionDifficulty)
		}
	}
	return b.String(), nil
}

func (f *QuestionsFormatter) SupportedType() string { return typeQuestions }

// FeedbackFormatter renders answer feedback.
type FeedbackFormatter struct{ style }

func (f *FeedbackFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.FeedbackResult)
	if !ok || result == nil {
		return "", fmt.Errorf("expected *FeedbackResult, got %T", data)
	}

	var b strings.Builder
	f.title(&b, "Answer Feedback")
	f.field(&b, "Score", fmt.Sprintf("%d/10", result.ScoreOutOf10))
	b.WriteString("\n")
	f.paragraph(&b, result.OverallFeedback)
	f.list(&b, "Strengths", result.Strengths)
	f.list(&b, "Areas to improve", result.AreasToImprove)
	f.list(&b, "Suggestions", result.ImprovementSuggestions)
	f.list(&b, "Follow-up questions", result.FollowUpQuestions)
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func (f *FeedbackFormatter) SupportedType() string { return typeFeedback }

// IdealAnswerFormatter renders a model answer.
type IdealAnswerFormatter struct{ style }

func (f *IdealAnswerFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.IdealAnswer)
	if !ok || result == nil {
		return "", fmt.Errorf("expected *IdealAnswer, got %T", data)
	}

	var b strings.Builder
	f.title(&b, "Ideal Answer")
	f.paragraph(&b, result.IdealAnswer)
	f.section(&b, "Why it works")
	f.paragraph(&b, result.Explanation)
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func (f *IdealAnswerFormatter) SupportedType() string { return typeIdealAnswer }

// AskFormatter renders a free-form answer.
type AskFormatter struct{ style }

func (f *AskFormatter) Format(data any) (string, error) {
	result, ok := data.(*types.AskResult)
	if !ok || result == nil {
		return "", fmt.Errorf("expected *AskResult, got %T", data)
	}

	var b strings.Builder
	f.title(&b, "Answer")
	f.paragraph(&b, result.Answer)
	f.list(&b, "References", result.References)
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func (f *AskFormatter) SupportedType() string { return typeAsk }
