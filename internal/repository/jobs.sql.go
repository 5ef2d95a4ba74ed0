package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const jobColumns = `id, client_id, service, date, time_slot, status, total_amount, recurring_type, recurring_day, notes, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID,
		&j.ClientID,
		&j.Service,
		&j.Date,
		&j.TimeSlot,
		&j.Status,
		&j.TotalAmount,
		&j.RecurringType,
		&j.RecurringDay,
		&j.Notes,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	return j, err
}

const createJob = `
INSERT INTO jobs (client_id, service, date, time_slot, status, total_amount, recurring_type, recurring_day, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + jobColumns

type CreateJobParams struct {
	ClientID      uuid.UUID
	Service       string
	Date          time.Time
	TimeSlot      string
	Status        string
	TotalAmount   decimal.Decimal
	RecurringType string
	RecurringDay  string
	Notes         string
}

func (q *Queries) CreateJob(ctx context.Context, arg CreateJobParams) (Job, error) {
	row := q.db.QueryRow(ctx, createJob,
		arg.ClientID,
		arg.Service,
		arg.Date,
		arg.TimeSlot,
		arg.Status,
		arg.TotalAmount,
		arg.RecurringType,
		arg.RecurringDay,
		arg.Notes,
	)
	return scanJob(row)
}

const getJob = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

func (q *Queries) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	return scanJob(q.db.QueryRow(ctx, getJob, id))
}

const listJobs = `
SELECT ` + jobColumns + `
FROM jobs
WHERE ($1::uuid IS NULL OR client_id = $1)
  AND ($2::text IS NULL OR status = $2)
  AND ($3::date IS NULL OR date >= $3)
  AND ($4::date IS NULL OR date <= $4)
ORDER BY date, time_slot`

type ListJobsParams struct {
	ClientID *uuid.UUID
	Status   *string
	From     *time.Time
	To       *time.Time
}

func (q *Queries) ListJobs(ctx context.Context, arg ListJobsParams) ([]Job, error) {
	rows, err := q.db.Query(ctx, listJobs, arg.ClientID, arg.Status, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateJob = `
UPDATE jobs
SET client_id = $2, service = $3, date = $4, time_slot = $5, status = $6, total_amount = $7,
    recurring_type = $8, recurring_day = $9, notes = $10, updated_at = now()
WHERE id = $1
RETURNING ` + jobColumns

type UpdateJobParams struct {
	ID            uuid.UUID
	ClientID      uuid.UUID
	Service       string
	Date          time.Time
	TimeSlot      string
	Status        string
	TotalAmount   decimal.Decimal
	RecurringType string
	RecurringDay  string
	Notes         string
}

func (q *Queries) UpdateJob(ctx context.Context, arg UpdateJobParams) (Job, error) {
	row := q.db.QueryRow(ctx, updateJob,
		arg.ID,
		arg.ClientID,
		arg.Service,
		arg.Date,
		arg.TimeSlot,
		arg.Status,
		arg.TotalAmount,
		arg.RecurringType,
		arg.RecurringDay,
		arg.Notes,
	)
	return scanJob(row)
}

const deleteJob = `DELETE FROM jobs WHERE id = $1`

func (q *Queries) DeleteJob(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteJob, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
