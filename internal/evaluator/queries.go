package evaluator

import "resumerag/internal/config"

// query is the pair of retrieval queries one capability runs against the
// resume and the job description.
type query struct {
	resume         string
	jobDescription string
}

// For ask, the user's question is appended to both queries.
var queries = map[config.Operation]query{
	config.OpAnalysis: {
		resume:         "Extract skills, education, work experience, and projects from resume.",
		jobDescription: "Extract required skills and technologies from job description.",
	},
	config.OpQuestions: {
		resume:         "Extract skills, experience, and projects from resume for mock questions.",
		jobDescription: "Extract responsibilities and requirements from job description.",
	},
	config.OpFeedback: {
		resume:         "Extract relevant resume details for answer evaluation.",
		jobDescription: "Extract job requirements for answer evaluation.",
	},
	config.OpIdealAnswer: {
		resume:         "Extract candidate strengths and experiences for ideal response.",
		jobDescription: "Extract job expectations for crafting ideal answer.",
	},
	config.OpAsk: {
		resume:         "Extract resume details relevant to the question.",
		jobDescription: "Extract job description details relevant to the question.",
	},
}
