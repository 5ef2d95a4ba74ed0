package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/jobs"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/telemetry"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often to check for new jobs
	PollInterval time.Duration

	// MaxConcurrency is the maximum number of jobs to process concurrently
	MaxConcurrency int

	// Queue name to process (empty string = all queues)
	Queue string

	// RetryBackoff is the delay before the first retry. It doubles with
	// every attempt, capped at MaxBackoff.
	RetryBackoff time.Duration
	MaxBackoff   time.Duration

	// ShutdownTimeout bounds how long Start waits for in-flight jobs.
	ShutdownTimeout time.Duration
}

// Worker processes background jobs
type Worker struct {
	config        Config
	queries       repository.Querier
	notifications domain.NotificationService
	invoices      domain.InvoiceService
	logger        *slog.Logger
	now           func() time.Time

	wg sync.WaitGroup
}

// NewWorker creates a new background job worker
func NewWorker(
	queries repository.Querier,
	notifications domain.NotificationService,
	invoices domain.InvoiceService,
	config Config,
	logger *slog.Logger,
) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 5
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = 30 * time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Minute
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		config:        config,
		queries:       queries,
		notifications: notifications,
		invoices:      invoices,
		logger:        logger.With("component", "worker", "worker_id", config.WorkerID),
		now:           time.Now,
	}
}

// Start begins processing jobs until the context is cancelled. In-flight
// jobs are given ShutdownTimeout to finish on a detached context.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"queue", w.config.Queue,
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
	)

	// Jobs run on their own context so cancelling ctx stops polling
	// without aborting work already claimed.
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.config.MaxConcurrency)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			w.drain(cancelJobs)
			return nil

		case <-ticker.C:
			select {
			case sem <- struct{}{}:
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }()
					w.RunOnce(jobCtx)
				}()
			default:
				// At max concurrency, skip this poll
			}
		}
	}
}

func (w *Worker) drain(cancel context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("shutdown timeout reached, cancelling in-flight jobs")
		cancel()
		<-done
	}
}

// RunOnce claims and processes at most one job. It reports whether a job
// was claimed.
func (w *Worker) RunOnce(ctx context.Context) bool {
	job, err := w.queries.ClaimNextJob(ctx, w.config.Queue)
	if err != nil {
		if !repository.IsNotFound(err) {
			w.logger.ErrorContext(ctx, "failed to claim job", "error", err)
		}
		return false
	}

	logger := w.logger.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts)
	logger.InfoContext(ctx, "processing job")

	telemetry.Breadcrumb(ctx, "job", "processing "+job.JobType, map[string]any{"job_id": job.ID.String()})

	started := time.Now()
	err = w.processJob(ctx, &job)
	telemetry.Business.JobFinished(job.JobType, started, err)

	if err != nil {
		retryAt := w.now().Add(w.backoff(job.Attempts))
		failed, failErr := w.queries.FailJob(ctx, repository.FailJobParams{
			ID:        job.ID,
			LastError: err.Error(),
			RetryAt:   retryAt,
		})
		if failErr != nil {
			logger.ErrorContext(ctx, "failed to record job failure", "error", failErr, "job_error", err)
			return true
		}
		if failed.Status == "failed" {
			logger.ErrorContext(ctx, "job failed permanently", "error", err)
			telemetry.Capture(ctx, err, map[string]any{
				"job_id":   job.ID.String(),
				"job_type": job.JobType,
				"attempts": job.Attempts,
			})
		} else {
			logger.WarnContext(ctx, "job failed, will retry", "error", err, "retry_at", retryAt)
		}
		return true
	}

	if err := w.queries.CompleteJob(ctx, job.ID); err != nil {
		logger.ErrorContext(ctx, "failed to mark job completed", "error", err)
		return true
	}
	logger.InfoContext(ctx, "job completed", "duration", time.Since(started))
	return true
}

// backoff returns RetryBackoff doubled per previous attempt, capped at
// MaxBackoff.
func (w *Worker) backoff(attempts int32) time.Duration {
	d := w.config.RetryBackoff
	for i := int32(1); i < attempts; i++ {
		d *= 2
		if d >= w.config.MaxBackoff {
			return w.config.MaxBackoff
		}
	}
	return d
}

// processJob processes a single job
func (w *Worker) processJob(ctx context.Context, job *repository.BackgroundJob) (err error) {
	timeout := time.Duration(job.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	switch {
	case jobs.IsEmailJob(job.JobType):
		if w.notifications == nil {
			return errors.New("email jobs are not configured on this worker")
		}
		return jobs.ProcessEmailJob(jobCtx, job, w.notifications)

	case jobs.IsInvoiceJob(job.JobType):
		count, err := jobs.ProcessInvoiceJob(jobCtx, job, w.invoices, w.now())
		if err != nil {
			return fmt.Errorf("failed to process invoice job: %w", err)
		}
		w.logger.InfoContext(ctx, "invoice job finished", "job_type", job.JobType, "affected", count)
		return nil

	case jobs.IsCleanupJob(job.JobType):
		count, err := jobs.ProcessCleanupJob(jobCtx, job, w.queries, w.now())
		if err != nil {
			return fmt.Errorf("failed to process cleanup job: %w", err)
		}
		w.logger.InfoContext(ctx, "finished jobs purged", "deleted", count)
		return nil
	}

	return fmt.Errorf("unknown job type: %s", job.JobType)
}
