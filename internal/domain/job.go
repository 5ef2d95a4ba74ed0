package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/repository"
)

// Job statuses.
const (
	JobStatusScheduled  = "Scheduled"
	JobStatusInProgress = "InProgress"
	JobStatusCompleted  = "Completed"
	JobStatusCancelled  = "Cancelled"
)

// Recurrence types.
const (
	RecurringNone     = "none"
	RecurringWeekly   = "weekly"
	RecurringBiweekly = "biweekly"
	RecurringMonthly  = "monthly"
)

func IsValidJobStatus(s string) bool {
	switch s {
	case JobStatusScheduled, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

func IsValidRecurringType(s string) bool {
	switch s {
	case RecurringNone, RecurringWeekly, RecurringBiweekly, RecurringMonthly:
		return true
	}
	return false
}

// JobService manages scheduled service jobs. Jobs are records only:
// overlapping bookings are allowed.
type JobService interface {
	CreateJob(ctx context.Context, params JobParams) (*repository.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*repository.Job, error)
	ListJobs(ctx context.Context, params ListJobsParams) ([]repository.Job, error)
	UpdateJob(ctx context.Context, id uuid.UUID, params JobParams) (*repository.Job, error)
	DeleteJob(ctx context.Context, id uuid.UUID) error
}

// JobParams holds the writable job fields.
type JobParams struct {
	ClientID      uuid.UUID
	Service       string
	Date          time.Time
	TimeSlot      string
	Status        string // Defaults to Scheduled
	TotalAmount   decimal.Decimal
	RecurringType string // Defaults to none
	RecurringDay  string
	Notes         string
}

// ListJobsParams filters job listings.
type ListJobsParams struct {
	ClientID *uuid.UUID
	Status   *string
	From     *time.Time
	To       *time.Time
}
