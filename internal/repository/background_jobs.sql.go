package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const backgroundJobColumns = `id, job_type, queue, payload, status, priority, attempts, max_retries, timeout_seconds,
    scheduled_at, started_at, completed_at, last_error, created_at, updated_at`

func scanBackgroundJob(row interface{ Scan(...any) error }) (BackgroundJob, error) {
	var j BackgroundJob
	err := row.Scan(
		&j.ID,
		&j.JobType,
		&j.Queue,
		&j.Payload,
		&j.Status,
		&j.Priority,
		&j.Attempts,
		&j.MaxRetries,
		&j.TimeoutSeconds,
		&j.ScheduledAt,
		&j.StartedAt,
		&j.CompletedAt,
		&j.LastError,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	return j, err
}

const enqueueJob = `
INSERT INTO background_jobs (job_type, queue, payload, priority, max_retries, scheduled_at, timeout_seconds)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + backgroundJobColumns

type EnqueueJobParams struct {
	JobType        string
	Queue          string
	Payload        json.RawMessage
	Priority       int32
	MaxRetries     int32
	ScheduledAt    time.Time
	TimeoutSeconds int32
}

func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (BackgroundJob, error) {
	row := q.db.QueryRow(ctx, enqueueJob,
		arg.JobType,
		arg.Queue,
		arg.Payload,
		arg.Priority,
		arg.MaxRetries,
		arg.ScheduledAt,
		arg.TimeoutSeconds,
	)
	return scanBackgroundJob(row)
}

// An empty queue claims from every queue. SKIP LOCKED lets several
// workers poll the same table without blocking each other.
const claimNextJob = `
UPDATE background_jobs
SET status = 'processing', attempts = attempts + 1, started_at = now(), updated_at = now()
WHERE id = (
    SELECT id FROM background_jobs
    WHERE status = 'pending'
      AND scheduled_at <= now()
      AND ($1::text = '' OR queue = $1)
    ORDER BY priority DESC, scheduled_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + backgroundJobColumns

func (q *Queries) ClaimNextJob(ctx context.Context, queue string) (BackgroundJob, error) {
	return scanBackgroundJob(q.db.QueryRow(ctx, claimNextJob, queue))
}

const completeJob = `
UPDATE background_jobs
SET status = 'completed', completed_at = now(), last_error = NULL, updated_at = now()
WHERE id = $1`

func (q *Queries) CompleteJob(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, completeJob, id)
	return err
}

// A job with attempts left goes back to pending at RetryAt.
const failJob = `
UPDATE background_jobs
SET status = CASE WHEN attempts < max_retries THEN 'pending' ELSE 'failed' END,
    scheduled_at = CASE WHEN attempts < max_retries THEN $3 ELSE scheduled_at END,
    last_error = $2,
    updated_at = now()
WHERE id = $1
RETURNING ` + backgroundJobColumns

type FailJobParams struct {
	ID        uuid.UUID
	LastError string
	RetryAt   time.Time
}

func (q *Queries) FailJob(ctx context.Context, arg FailJobParams) (BackgroundJob, error) {
	return scanBackgroundJob(q.db.QueryRow(ctx, failJob, arg.ID, arg.LastError, arg.RetryAt))
}

// Pending and processing rows are never purged.
const deleteFinishedJobs = `
DELETE FROM background_jobs
WHERE status IN ('completed', 'failed') AND updated_at < $1`

func (q *Queries) DeleteFinishedJobs(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteFinishedJobs, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
