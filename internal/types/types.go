package types

import "time"

// Document is raw text plus where it came from. It lives for one request.
type Document struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Chunk is a piece of a Document and its embedding.
type Chunk struct {
	Index  int       `json:"index"`
	Text   string    `json:"text"`
	Vector []float32 `json:"-"`
}

// SearchResult is one ranked hit from a vector search.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// RetrievalResult holds the hits for one query, best first, and their
// texts joined with single spaces.
type RetrievalResult struct {
	Query   string         `json:"query"`
	Hits    []SearchResult `json:"hits"`
	Context string         `json:"context"`
}

// ATSScore is the applicant-tracking-system style score block.
type ATSScore struct {
	TotalScore      FlexInt `json:"total_score"`
	SkillsMatch     FlexInt `json:"skills_match"`
	KeywordMatch    FlexInt `json:"keyword_match"`
	FormatPenalty   FlexInt `json:"format_penalty"`
	FinalAssessment string  `json:"final_assessment"`
}

type BasicInfo struct {
	Name  FlexString `json:"name"`
	Email FlexString `json:"email"`
	Phone FlexString `json:"phone"`
}

type Education struct {
	Degree    FlexString `json:"degree"`
	Institute FlexString `json:"institute"`
	CGPA      FlexString `json:"cgpa"`
	Years     FlexString `json:"years"`
}

type WorkExperience struct {
	Title     FlexString  `json:"title"`
	Company   FlexString  `json:"company"`
	Duration  FlexString  `json:"duration"`
	TechStack FlexStrings `json:"tech_stack"`
}

type Project struct {
	Name        FlexString  `json:"name"`
	Description FlexString  `json:"description"`
	TechStack   FlexStrings `json:"tech_stack"`
	Impact      FlexString  `json:"impact"`
}

// Sections is the structured extraction of the resume.
type Sections struct {
	BasicInfo      BasicInfo        `json:"basic_info"`
	Education      []Education      `json:"education"`
	WorkExperience []WorkExperience `json:"work_experience"`
	Projects       []Project        `json:"projects"`
	Skills         FlexStrings      `json:"skills"`
	Certifications FlexStrings      `json:"certifications"`
}

type Strengths struct {
	Technical       FlexStrings `json:"technical"`
	ResumeQuality   FlexStrings `json:"resume_quality"`
	AlignmentWithJD FlexStrings `json:"alignment_with_jd"`
}

type WeakPhrasing struct {
	Verbs    FlexStrings `json:"verbs"`
	Examples FlexStrings `json:"examples"`
}

type FormatIssues struct {
	Layout    FlexStrings `json:"layout"`
	Technical FlexStrings `json:"technical"`
}

type Weaknesses struct {
	MissingSkills FlexStrings  `json:"missing_skills"`
	WeakPhrasing  WeakPhrasing `json:"weak_phrasing"`
	FormatIssues  FormatIssues `json:"format_issues"`
	ContentGaps   FlexStrings  `json:"content_gaps"`
}

type FormattingSuggestions struct {
	HighPriority FlexStrings `json:"high_priority"`
	LowPriority  FlexStrings `json:"low_priority"`
}

type KeywordOptimization struct {
	MissingKeywords FlexStrings `json:"missing_keywords"`
	OverusedWords   FlexStrings `json:"overused_words"`
}

type RewriteExample struct {
	Current   string `json:"current"`
	Suggested string `json:"suggested"`
}

type Suggestions struct {
	Formatting          FormattingSuggestions `json:"formatting"`
	KeywordOptimization KeywordOptimization   `json:"keyword_optimization"`
	ContentImprovements FlexStrings           `json:"content_improvements"`
	RewriteExamples     []RewriteExample      `json:"rewrite_examples"`
}

// AnalysisResult is the resume-versus-job-description analysis.
type AnalysisResult struct {
	ResumeSummary        string      `json:"resume_summary"`
	JDSummary            string      `json:"jd_summary"`
	ATSScore             ATSScore    `json:"ats_score"`
	Sections             Sections    `json:"sections"`
	Strengths            Strengths   `json:"strengths"`
	Weaknesses           Weaknesses  `json:"weaknesses"`
	Suggestions          Suggestions `json:"suggestions"`
	RedFlags             FlexStrings `json:"red_flags"`
	SuggestedResumeTitle string      `json:"suggested_resume_title"`
}

// InterviewQuestion is one generated mock interview question.
type InterviewQuestion struct {
	QuestionType       string  `json:"question_type"`
	QuestionDifficulty string  `json:"question_difficulty"`
	QuestionNum        FlexInt `json:"question_num"`
	Question           string  `json:"question"`
}

// FeedbackResult scores a candidate's answer to one question.
type FeedbackResult struct {
	Strengths              FlexStrings `json:"strengths"`
	AreasToImprove         FlexStrings `json:"areas_to_improve"`
	ScoreOutOf10           FlexInt     `json:"score_out_of_10"`
	ImprovementSuggestions FlexStrings `json:"improvement_suggestions"`
	FollowUpQuestions      FlexStrings `json:"follow_up_questions"`
	OverallFeedback        string      `json:"overall_feedback"`
}

// IdealAnswer is a model answer as "• " bullets separated by blank lines.
type IdealAnswer struct {
	IdealAnswer string `json:"ideal_answer"`
	Explanation string `json:"explanation"`
}

// AskResult answers a free-form question about the two documents.
type AskResult struct {
	Answer     string   `json:"answer"`
	References []string `json:"references,omitempty"`
}

// QuestionOptions shape interview question generation.
type QuestionOptions struct {
	NumQuestions       int    `json:"numQuestions"`
	SkillFocus         string `json:"skillFocus"`
	QuestionType       string `json:"questionType"`
	QuestionDifficulty string `json:"questionDifficulty"`
	ExperienceLevel    string `json:"experienceLevel"`
	RoundType          string `json:"roundType"`
	TargetJobRole      string `json:"targetJobRole"`
}

const (
	DefaultNumQuestions = 5
	MaxNumQuestions     = 20
)

// WithDefaults fills empty options and clamps NumQuestions to
// [1, MaxNumQuestions].
func (o QuestionOptions) WithDefaults() QuestionOptions {
	if o.NumQuestions <= 0 {
		o.NumQuestions = DefaultNumQuestions
	}
	o.NumQuestions = min(o.NumQuestions, MaxNumQuestions)
	if o.SkillFocus == "" {
		o.SkillFocus = "As per JD"
	}
	if o.QuestionType == "" {
		o.QuestionType = "Technical, Behavioral"
	}
	if o.QuestionDifficulty == "" {
		o.QuestionDifficulty = "Medium"
	}
	if o.ExperienceLevel == "" {
		o.ExperienceLevel = "1-2 years"
	}
	if o.RoundType == "" {
		o.RoundType = "Technical"
	}
	if o.TargetJobRole == "" {
		o.TargetJobRole = "Software Engineer"
	}
	return o
}

// ResumeHistory records one completed resume analysis.
type ResumeHistory struct {
	ID              string         `json:"id" bson:"_id"`
	User            string         `json:"user" bson:"user"`
	JobDescription  string         `json:"jobDescription" bson:"jobDescription"`
	AnalysisSummary string         `json:"analysisSummary" bson:"analysisSummary"`
	MatchScore      int            `json:"matchScore" bson:"matchScore"`
	Strengths       []string       `json:"strengths" bson:"strengths"`
	Suggestions     []string       `json:"suggestions" bson:"suggestions"`
	FullAnalysis    AnalysisResult `json:"fullAnalysis" bson:"fullAnalysis"`
	CreatedAt       time.Time      `json:"createdAt" bson:"createdAt"`
}

// InterviewHistory records one generated question set.
type InterviewHistory struct {
	ID               string              `json:"id" bson:"_id"`
	User             string              `json:"user" bson:"user"`
	JobDescription   string              `json:"jobDescription" bson:"jobDescription"`
	Questions        []string            `json:"questions" bson:"questions"`
	FullQuestions    []InterviewQuestion `json:"fullQuestions" bson:"fullQuestions"`
	AnswersSubmitted int                 `json:"answersSubmitted" bson:"answersSubmitted"`
	CreatedAt        time.Time           `json:"createdAt" bson:"createdAt"`
}
