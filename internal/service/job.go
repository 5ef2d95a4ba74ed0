package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
)

// JobService is re-exported from domain for handler convenience.
type JobService = domain.JobService

type jobService struct {
	repo   repository.Querier
	logger *slog.Logger
}

// NewJobService creates a new JobService instance.
func NewJobService(repo repository.Querier, logger *slog.Logger) JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobService{repo: repo, logger: logger}
}

func validateJob(op string, p *domain.JobParams) error {
	p.Service = strings.TrimSpace(p.Service)
	if p.Status == "" {
		p.Status = domain.JobStatusScheduled
	}
	if p.RecurringType == "" {
		p.RecurringType = domain.RecurringNone
	}

	var verr error
	if p.ClientID == uuid.Nil {
		verr = fieldError(verr, op, "client_id", "client is required")
	}
	if p.Service == "" {
		verr = fieldError(verr, op, "service", "service is required")
	}
	if p.Date.IsZero() {
		verr = fieldError(verr, op, "date", "date is required")
	}
	if !domain.IsValidJobStatus(p.Status) {
		verr = fieldError(verr, op, "status", "unknown job status")
	}
	if !domain.IsValidRecurringType(p.RecurringType) {
		verr = fieldError(verr, op, "recurring_type", "recurring type must be none, weekly, biweekly or monthly")
	}
	if p.TotalAmount.IsNegative() {
		verr = fieldError(verr, op, "total_amount", "total amount must not be negative")
	}
	return verr
}

func (s *jobService) ensureClient(ctx context.Context, op string, id uuid.UUID) error {
	if _, err := s.repo.GetClient(ctx, id); err != nil {
		return notFoundOr(err, op, "client", id)
	}
	return nil
}

func (s *jobService) CreateJob(ctx context.Context, params domain.JobParams) (*repository.Job, error) {
	const op = "job.create"
	if err := validateJob(op, &params); err != nil {
		return nil, err
	}
	if err := s.ensureClient(ctx, op, params.ClientID); err != nil {
		return nil, err
	}

	j, err := s.repo.CreateJob(ctx, repository.CreateJobParams{
		ClientID:      params.ClientID,
		Service:       params.Service,
		Date:          params.Date,
		TimeSlot:      params.TimeSlot,
		Status:        params.Status,
		TotalAmount:   params.TotalAmount,
		RecurringType: params.RecurringType,
		RecurringDay:  params.RecurringDay,
		Notes:         params.Notes,
	})
	if err != nil {
		return nil, domain.Persistence(err, op, "failed to save job")
	}

	s.logger.InfoContext(ctx, "job created", "job_id", j.ID, "client_id", j.ClientID, "date", j.Date)
	return &j, nil
}

func (s *jobService) GetJob(ctx context.Context, id uuid.UUID) (*repository.Job, error) {
	j, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "job.get", "job", id)
	}
	return &j, nil
}

func (s *jobService) ListJobs(ctx context.Context, params domain.ListJobsParams) ([]repository.Job, error) {
	if params.Status != nil && !domain.IsValidJobStatus(*params.Status) {
		return nil, domain.NewValidationError("job.list", "status", "unknown job status")
	}

	jobs, err := s.repo.ListJobs(ctx, repository.ListJobsParams{
		ClientID: params.ClientID,
		Status:   params.Status,
		From:     params.From,
		To:       params.To,
	})
	if err != nil {
		return nil, domain.Internal(err, "job.list", "failed to list jobs")
	}
	return jobs, nil
}

func (s *jobService) UpdateJob(ctx context.Context, id uuid.UUID, params domain.JobParams) (*repository.Job, error) {
	const op = "job.update"
	if err := validateJob(op, &params); err != nil {
		return nil, err
	}
	if err := s.ensureClient(ctx, op, params.ClientID); err != nil {
		return nil, err
	}

	j, err := s.repo.UpdateJob(ctx, repository.UpdateJobParams{
		ID:            id,
		ClientID:      params.ClientID,
		Service:       params.Service,
		Date:          params.Date,
		TimeSlot:      params.TimeSlot,
		Status:        params.Status,
		TotalAmount:   params.TotalAmount,
		RecurringType: params.RecurringType,
		RecurringDay:  params.RecurringDay,
		Notes:         params.Notes,
	})
	if err != nil {
		return nil, notFoundOr(err, op, "job", id)
	}
	return &j, nil
}

func (s *jobService) DeleteJob(ctx context.Context, id uuid.UUID) error {
	const op = "job.delete"
	n, err := s.repo.DeleteJob(ctx, id)
	if err != nil {
		return domain.Persistence(err, op, "failed to delete job")
	}
	if n == 0 {
		return domain.NotFound(op, "job", id.String())
	}
	return nil
}
