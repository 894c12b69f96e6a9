package ai

import (
	"fmt"
	"strings"
	"text/template"

	"resumerag/internal/config"
	"resumerag/internal/errors"
)

// PromptData fills the placeholders of every prompt template. Resume and
// JobDescription hold retrieved context, not whole documents.
type PromptData struct {
	Resume             string
	JobDescription     string
	Question           string
	Answer             string
	NumQuestions       int
	QuestionType       string
	QuestionDifficulty string
	ExperienceLevel    string
	RoundType          string
	TargetJobRole      string
	SkillFocus         string
}

// PromptPair is the system/user template source for one operation.
type PromptPair struct {
	System string
	User   string
}

const jsonOutputRules = `Rules for the output:
- Return only the JSON, with no commentary before or after it.
- Do not wrap the JSON in markdown code fences.
- Use an empty string, empty list or empty object for anything that does not apply.
- The JSON must be strictly valid.`

// DefaultPrompts holds the built-in templates per operation.
var DefaultPrompts = map[config.Operation]PromptPair{
	config.OpAnalysis: {
		System: `You are a senior technical recruiter who reviews resumes against job descriptions. Judge substance, impact and how well the candidate's story fits the role, not only keyword overlap. Never invent facts that are not in the resume.`,
		User: `Compare the candidate's resume with the job description and produce a structured analysis that shows the candidate how well they fit and how to improve the resume for this role.

Resume:
{{.Resume}}

Job Description:
{{.JobDescription}}

Respond with one JSON object using exactly these keys and this nesting:

{
  "resume_summary": "<short summary>",
  "jd_summary": "<short summary>",
  "ats_score": {
    "total_score": <int 0-100>,
    "skills_match": <int>,
    "keyword_match": <int>,
    "format_penalty": <int>,
    "final_assessment": "<short assessment>"
  },
  "sections": {
    "basic_info": {"name": "<name>", "email": "<email>", "phone": "<phone>"},
    "education": [{"degree": "<degree>", "institute": "<institute>", "cgpa": "<cgpa>", "years": "<years>"}],
    "work_experience": [{"title": "<title>", "company": "<company>", "duration": "<duration>", "tech_stack": ["<tech>"]}],
    "projects": [{"name": "<name>", "description": "<description>", "tech_stack": ["<tech>"], "impact": "<impact>"}],
    "skills": ["<skill>"],
    "certifications": ["<certification>"]
  },
  "strengths": {
    "technical": ["<point>"],
    "resume_quality": ["<point>"],
    "alignment_with_jd": ["<point>"]
  },
  "weaknesses": {
    "missing_skills": ["<skill>"],
    "weak_phrasing": {"verbs": ["<verb>"], "examples": ["<example>"]},
    "format_issues": {"layout": ["<issue>"], "technical": ["<issue>"]},
    "content_gaps": ["<gap>"]
  },
  "suggestions": {
    "formatting": {"high_priority": ["<tip>"], "low_priority": ["<tip>"]},
    "keyword_optimization": {"missing_keywords": ["<keyword>"], "overused_words": ["<word>"]},
    "content_improvements": ["<suggestion>"],
    "rewrite_examples": [{"current": "<current>", "suggested": "<suggested>"}]
  },
  "red_flags": ["<flag>"],
  "suggested_resume_title": "<title>"
}

total_score is your overall judgement out of 100.

` + jsonOutputRules,
	},
	config.OpQuestions: {
		System: `You are an experienced technical interviewer who writes personalised mock interview questions.`,
		User: `Write {{.NumQuestions}} mock interview questions for this candidate, tailored to their resume, the job description and the requirements below.

Candidate Resume:
{{.Resume}}

Job Description:
{{.JobDescription}}

Requirements:
- Question type: {{.QuestionType}} (for example DSA, CS Fundamentals, Resume, Behavioral, System Design)
- Difficulty: {{.QuestionDifficulty}} (Easy, Medium or Hard)
- Experience level: {{.ExperienceLevel}}
- Interview round: {{.RoundType}} (for example Technical, HR, Managerial)
- Target role: {{.TargetJobRole}}
- Skill focus: {{.SkillFocus}}

Match the depth of each question to the experience level and round. Do not repeat or rephrase a question.

Respond with a JSON array. Each element is an object with these keys:
- "question_type": the category of the question
- "question_difficulty": the difficulty level
- "question_num": the question number, starting at 1
- "question": the question text

` + jsonOutputRules,
	},
	config.OpFeedback: {
		System: `You are an experienced technical interviewer who gives candidates specific, actionable feedback on their answers.`,
		User: `Evaluate the candidate's answer to the interview question in light of their resume and the job description.

Resume:
{{.Resume}}

Job Description:
{{.JobDescription}}

Interview Question:
{{.Question}}

Candidate's Answer:
{{.Answer}}

Respond with one JSON object:
{
  "strengths": ["<point>"],
  "areas_to_improve": ["<point>"],
  "score_out_of_10": <int>,
  "improvement_suggestions": ["<suggestion>"],
  "follow_up_questions": ["<question>"],
  "overall_feedback": "<short summary>"
}

` + jsonOutputRules,
	},
	config.OpIdealAnswer: {
		System: `You are a technical interviewer and career coach who writes model answers grounded in the candidate's real experience.`,
		User: `Write the ideal answer this candidate could give to the interview question. Base it on the experience in their resume, address what the job description expects, and keep it specific and realistic for their profile. Then explain why the answer works: how it addresses the question and the role, and which points make it stand out.

Resume:
{{.Resume}}

Job Description:
{{.JobDescription}}

Interview Question:
{{.Question}}

Respond with one JSON object:
{"ideal_answer": "• <first point>\n\n• <second point>", "explanation": "• <first point>\n\n• <second point>"}

Both values are bullet lists. Start every bullet with "• " and separate bullets with a blank line (\n\n).

` + jsonOutputRules,
	},
	config.OpAsk: {
		System: `You are a career assistant. Answer questions about a candidate using only the resume and job description excerpts you are given. Say so when the excerpts do not contain the answer.`,
		User: `Resume excerpts:
{{.Resume}}

Job Description excerpts:
{{.JobDescription}}

Question:
{{.Question}}

Answer concisely in plain text.`,
	},
}

var defaultTemplates = func() map[config.Operation][2]*template.Template {
	parsed := make(map[config.Operation][2]*template.Template, len(DefaultPrompts))
	for op, pair := range DefaultPrompts {
		parsed[op] = [2]*template.Template{
			template.Must(template.New(string(op) + ".system").Parse(pair.System)),
			template.Must(template.New(string(op) + ".user").Parse(pair.User)),
		}
	}
	return parsed
}()

// RenderPrompt builds the system and user prompt for op. Overrides from
// store (file first, then inline config) replace the built-in templates.
func RenderPrompt(op config.Operation, store *config.PromptStore, data PromptData) (Request, error) {
	defaults, ok := defaultTemplates[op]
	if !ok {
		return Request{}, errors.NewInternalError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("no prompt for operation %s", op), nil)
	}
	override := store.Get(op)

	system, err := render(defaults[0], override.System, data)
	if err != nil {
		return Request{}, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("failed to render %s system prompt", op), err).WithContext("source", override.SystemSource)
	}
	user, err := render(defaults[1], override.User, data)
	if err != nil {
		return Request{}, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("failed to render %s user prompt", op), err).WithContext("source", override.UserSource)
	}

	return Request{Operation: op, System: system, User: user}, nil
}

func render(fallback *template.Template, override string, data PromptData) (string, error) {
	tmpl := fallback
	if strings.TrimSpace(override) != "" {
		var err error
		tmpl, err = template.New(fallback.Name()).Option("missingkey=error").Parse(override)
		if err != nil {
			return "", err
		}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
