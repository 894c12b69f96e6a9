// Package queue runs capabilities for jobs delivered over AMQP and reports
// their progress on a topic exchange.
package queue

import (
	"time"

	"resumerag/internal/config"
	"resumerag/internal/types"
)

// Job statuses published on the update exchange.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// AnalysisJob asks the worker to run one capability. Documents are object
// keys in the configured bucket; JobDescription may carry the JD as text
// instead of JDKey.
type AnalysisJob struct {
	ID             string                `json:"id"`
	Kind           config.Operation      `json:"kind"`
	User           string                `json:"user,omitempty"`
	ResumeKey      string                `json:"resumeKey"`
	ResumeMime     string                `json:"resumeMime"`
	JDKey          string                `json:"jdKey,omitempty"`
	JDMime         string                `json:"jdMime,omitempty"`
	JobDescription string                `json:"jobDescription,omitempty"`
	Question       string                `json:"question,omitempty"`
	Answer         string                `json:"answer,omitempty"`
	HistoryID      string                `json:"historyId,omitempty"`
	Options        types.QuestionOptions `json:"options"`
}

// StatusUpdate is the message body published for every job transition.
type StatusUpdate struct {
	JobID     string    `json:"job_id"`
	Kind      string    `json:"kind,omitempty"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Result    any       `json:"result,omitempty"`
	RawOutput string    `json:"raw_output,omitempty"`
}

// RoutingKey is the topic key updates for jobID are published under.
func RoutingKey(jobID string) string {
	return "job." + jobID
}
