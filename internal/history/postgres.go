package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS resume_history (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	job_description  TEXT NOT NULL,
	analysis_summary TEXT NOT NULL,
	match_score      INTEGER NOT NULL,
	strengths        TEXT[] NOT NULL,
	suggestions      TEXT[] NOT NULL,
	full_analysis    JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS resume_history_user_created ON resume_history (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS interview_history (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	job_description   TEXT NOT NULL,
	questions         TEXT[] NOT NULL,
	full_questions    JSONB NOT NULL,
	answers_submitted INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS interview_history_user_created ON interview_history (user_id, created_at DESC);
`

// PostgresStore keeps history in two PostgreSQL tables.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens cfg.URI with lib/pq and creates the tables.
func NewPostgresStore(ctx context.Context, cfg config.HistoryConfig, logger *errors.Logger) (*PostgresStore, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	db, err := sql.Open("postgres", cfg.URI)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to open postgres", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(initCtx); err != nil {
		_ = db.Close()
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to ping postgres", err)
	}
	if _, err := db.ExecContext(initCtx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to create history tables", err)
	}

	logger.Info("History store connected", "driver", "postgres")
	return &PostgresStore{db: db, timeout: timeout}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) SaveResume(ctx context.Context, rec *types.ResumeHistory) error {
	stampResume(rec)
	full, err := json.Marshal(rec.FullAnalysis)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeHistoryFailed, "failed to encode analysis", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resume_history
			(id, user_id, job_description, analysis_summary, match_score, strengths, suggestions, full_analysis, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.User, rec.JobDescription, rec.AnalysisSummary, rec.MatchScore,
		pq.Array(nonNil(rec.Strengths)), pq.Array(nonNil(rec.Suggestions)), full, rec.CreatedAt)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to save resume history", err)
	}
	return nil
}

func (s *PostgresStore) SaveInterview(ctx context.Context, rec *types.InterviewHistory) error {
	stampInterview(rec)
	full, err := json.Marshal(rec.FullQuestions)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeHistoryFailed, "failed to encode questions", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interview_history
			(id, user_id, job_description, questions, full_questions, answers_submitted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.User, rec.JobDescription, pq.Array(nonNil(rec.Questions)), full, rec.AnswersSubmitted, rec.CreatedAt)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to save interview history", err)
	}
	return nil
}

func (s *PostgresStore) ListResume(ctx context.Context, user string, limit int) ([]types.ResumeHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, job_description, analysis_summary, match_score, strengths, suggestions, full_analysis, created_at
		FROM resume_history WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		user, normalizeLimit(limit))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to list resume history", err)
	}
	defer rows.Close()

	out := make([]types.ResumeHistory, 0)
	for rows.Next() {
		var rec types.ResumeHistory
		var full []byte
		if err := rows.Scan(&rec.ID, &rec.User, &rec.JobDescription, &rec.AnalysisSummary, &rec.MatchScore,
			pq.Array(&rec.Strengths), pq.Array(&rec.Suggestions), &full, &rec.CreatedAt); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to read resume history", err)
		}
		if err := json.Unmarshal(full, &rec.FullAnalysis); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to decode stored analysis", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to list resume history", err)
	}
	return out, nil
}

func (s *PostgresStore) ListInterview(ctx context.Context, user string, limit int) ([]types.InterviewHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, job_description, questions, full_questions, answers_submitted, created_at
		FROM interview_history WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		user, normalizeLimit(limit))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to list interview history", err)
	}
	defer rows.Close()

	out := make([]types.InterviewHistory, 0)
	for rows.Next() {
		var rec types.InterviewHistory
		var full []byte
		if err := rows.Scan(&rec.ID, &rec.User, &rec.JobDescription, pq.Array(&rec.Questions), &full,
			&rec.AnswersSubmitted, &rec.CreatedAt); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to read interview history", err)
		}
		if err := json.Unmarshal(full, &rec.FullQuestions); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to decode stored questions", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to list interview history", err)
	}
	return out, nil
}

func (s *PostgresStore) IncrementAnswers(ctx context.Context, user, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE interview_history SET answers_submitted = answers_submitted + 1 WHERE id = $1 AND user_id = $2`,
		id, user)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to update interview history", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountResume(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM resume_history`, "failed to count resume history")
}

func (s *PostgresStore) CountQuestions(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COALESCE(SUM(cardinality(questions)), 0) FROM interview_history`,
		"failed to count interview questions")
}

func (s *PostgresStore) count(ctx context.Context, query, failure string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, errors.NewIOError(errors.ErrCodeHistoryFailed, failure, err)
	}
	return n, nil
}

func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
