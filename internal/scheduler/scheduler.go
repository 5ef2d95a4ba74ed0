// Package scheduler enqueues recurring background jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dukerupert/bizznex/internal/jobs"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/telemetry"
)

const (
	// DefaultOverdueSpec runs the overdue sweep daily at 01:00.
	DefaultOverdueSpec = "0 1 * * *"
	// DefaultPurgeSpec purges old finished jobs on Sundays at 03:00.
	DefaultPurgeSpec = "0 3 * * 0"
)

// Config holds the cron specs for each recurring job.
type Config struct {
	OverdueSpec  string
	PurgeSpec    string
	JobRetention time.Duration
	Location     *time.Location
}

// Scheduler wraps a cron runner whose entries only enqueue jobs; the
// worker does the actual processing.
type Scheduler struct {
	cron      *cron.Cron
	overdue   cron.EntryID
	queries   repository.Querier
	retention time.Duration
	logger    *slog.Logger
}

// New registers the recurring jobs. It fails when a spec does not parse.
func New(queries repository.Querier, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if cfg.OverdueSpec == "" {
		cfg.OverdueSpec = DefaultOverdueSpec
	}
	if cfg.PurgeSpec == "" {
		cfg.PurgeSpec = DefaultPurgeSpec
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(cfg.Location)),
		queries:   queries,
		retention: cfg.JobRetention,
		logger:    logger.With("component", "scheduler"),
	}

	var err error
	if s.overdue, err = s.cron.AddFunc(cfg.OverdueSpec, s.enqueueOverdue); err != nil {
		return nil, fmt.Errorf("invalid overdue schedule %q: %w", cfg.OverdueSpec, err)
	}
	if _, err = s.cron.AddFunc(cfg.PurgeSpec, s.enqueuePurge); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", cfg.PurgeSpec, err)
	}
	return s, nil
}

func (s *Scheduler) enqueueOverdue() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := jobs.EnqueueMarkOverdueInvoices(ctx, s.queries, time.Now()); err != nil {
		s.logger.Error("failed to enqueue overdue sweep", "error", err)
		return
	}
	telemetry.Business.JobEnqueued(jobs.JobTypeMarkOverdueInvoices)
	s.logger.Info("overdue sweep enqueued")
}

func (s *Scheduler) enqueuePurge() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := jobs.EnqueuePurgeFinishedJobs(ctx, s.queries, s.retention, time.Now()); err != nil {
		s.logger.Error("failed to enqueue job purge", "error", err)
		return
	}
	telemetry.Business.JobEnqueued(jobs.JobTypePurgeFinishedJobs)
}

// Run starts the cron runner and blocks until ctx is cancelled, then
// waits for any running entry to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started", "entries", len(s.cron.Entries()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// Next returns when the overdue sweep fires next. Zero before Run.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.overdue).Next
}
