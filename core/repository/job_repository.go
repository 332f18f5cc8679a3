package repository

import (
	"context"
	"database/sql"
	"time"

	"video-orchestrator/core/models"
)

// JobRepository handles database operations for generation jobs. It
// implements the scheduler's durable store.
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `
	id, batch_id, prompt, model, duration_seconds, aspect_ratio, status,
	progress, external_id, result_asset_ref,
	error_category, error_message, error_retryable, error_occurred_at,
	retry_count, queued_at, started_at, completed_at
`

// SaveJobs inserts a batch of jobs in one transaction. Either every job is
// persisted or none are.
func (r *JobRepository) SaveJobs(ctx context.Context, jobs []models.GenerationJob) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO generation_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	for _, job := range jobs {
		if _, err := tx.ExecContext(ctx, query, jobArgs(job)...); err != nil {
			return err
		}
		if err := r.recordTransitionTx(ctx, tx, job.ID, nil, job.Status, "job_submitted"); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateJob overwrites the stored state of one job.
func (r *JobRepository) UpdateJob(ctx context.Context, job models.GenerationJob) error {
	query := `
		UPDATE generation_jobs SET
			prompt = $2, status = $3, progress = $4, external_id = $5,
			result_asset_ref = $6, error_category = $7, error_message = $8,
			error_retryable = $9, error_occurred_at = $10, retry_count = $11,
			queued_at = $12, started_at = $13, completed_at = $14, updated_at = NOW()
		WHERE id = $1
	`

	var category, message *string
	var retryable *bool
	var occurredAt *time.Time
	if job.ErrorInfo != nil {
		c := string(job.ErrorInfo.Category)
		category = &c
		message = &job.ErrorInfo.Message
		retryable = &job.ErrorInfo.Retryable
		occurredAt = &job.ErrorInfo.OccurredAt
	}

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.Prompt,
		job.Status,
		job.Progress,
		job.ExternalID,
		job.ResultAssetRef,
		category,
		message,
		retryable,
		occurredAt,
		job.RetryCount,
		job.QueuedAt,
		job.StartedAt,
		job.CompletedAt,
	)
	return err
}

// GetJob retrieves a job by ID
func (r *JobRepository) GetJob(ctx context.Context, id string) (*models.GenerationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE id = $1`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobsByStatus retrieves all jobs in a given status, oldest first.
func (r *JobRepository) ListJobsByStatus(ctx context.Context, status models.JobStatus) ([]models.GenerationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE status = $1 ORDER BY queued_at ASC`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ListJobsByBatch retrieves all jobs of a batch, oldest first.
func (r *JobRepository) ListJobsByBatch(ctx context.Context, batchID string) ([]models.GenerationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE batch_id = $1 ORDER BY queued_at ASC`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// RecordTransition updates job status atomically with event logging.
func (r *JobRepository) RecordTransition(ctx context.Context, jobID string, from, to models.JobStatus, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE generation_jobs SET status = $1, updated_at = NOW() WHERE id = $2`,
		to, jobID,
	); err != nil {
		return err
	}
	if err := r.recordTransitionTx(ctx, tx, jobID, &from, to, reason); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *JobRepository) recordTransitionTx(ctx context.Context, tx *sql.Tx, jobID string, from *models.JobStatus, to models.JobStatus, reason string) error {
	var fromStr *string
	if from != nil {
		s := string(*from)
		fromStr = &s
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO job_events (job_id, from_status, to_status, reason) VALUES ($1, $2, $3, $4)`,
		jobID, fromStr, to, reason,
	)
	return err
}

// RecordRetryAttempt persists one retry attempt for a job. Attempts are
// append-only; a later terminal update re-inserts the settled outcome.
func (r *JobRepository) RecordRetryAttempt(ctx context.Context, jobID string, attempt models.RetryAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO retry_attempts (job_id, attempt_number, at, previous_error, modified_input, outcome)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		jobID,
		attempt.AttemptNumber,
		attempt.Timestamp,
		attempt.PreviousErrorSummary,
		attempt.ModifiedInput,
		attempt.Outcome,
	)
	return err
}

// GetRetryAttempts retrieves the retry history of a job in attempt order.
func (r *JobRepository) GetRetryAttempts(ctx context.Context, jobID string) ([]models.RetryAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT attempt_number, at, previous_error, modified_input, outcome
		FROM retry_attempts
		WHERE job_id = $1
		ORDER BY attempt_number ASC, id ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.RetryAttempt
	for rows.Next() {
		var a models.RetryAttempt
		if err := rows.Scan(&a.AttemptNumber, &a.Timestamp, &a.PreviousErrorSummary, &a.ModifiedInput, &a.Outcome); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.GenerationJob, error) {
	var job models.GenerationJob
	var progress sql.NullInt64
	var externalID, resultAssetRef sql.NullString
	var category, message sql.NullString
	var retryable sql.NullBool
	var occurredAt sql.NullTime
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.BatchID,
		&job.Prompt,
		&job.Model,
		&job.Duration,
		&job.AspectRatio,
		&job.Status,
		&progress,
		&externalID,
		&resultAssetRef,
		&category,
		&message,
		&retryable,
		&occurredAt,
		&job.RetryCount,
		&job.QueuedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if progress.Valid {
		p := int(progress.Int64)
		job.Progress = &p
	}
	if externalID.Valid {
		job.ExternalID = &externalID.String
	}
	if resultAssetRef.Valid {
		job.ResultAssetRef = &resultAssetRef.String
	}
	if category.Valid {
		job.ErrorInfo = &models.ErrorRecord{
			Category:   models.ErrorCategory(category.String),
			Message:    message.String,
			OccurredAt: occurredAt.Time,
			Retryable:  retryable.Bool,
		}
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}

func jobArgs(job models.GenerationJob) []interface{} {
	var category, message *string
	var retryable *bool
	var occurredAt *time.Time
	if job.ErrorInfo != nil {
		c := string(job.ErrorInfo.Category)
		category = &c
		message = &job.ErrorInfo.Message
		retryable = &job.ErrorInfo.Retryable
		occurredAt = &job.ErrorInfo.OccurredAt
	}

	return []interface{}{
		job.ID,
		job.BatchID,
		job.Prompt,
		job.Model,
		job.Duration,
		job.AspectRatio,
		job.Status,
		job.Progress,
		job.ExternalID,
		job.ResultAssetRef,
		category,
		message,
		retryable,
		occurredAt,
		job.RetryCount,
		job.QueuedAt,
		job.StartedAt,
		job.CompletedAt,
	}
}
