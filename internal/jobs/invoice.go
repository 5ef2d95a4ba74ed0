package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
)

// Job type constants for invoice jobs
const (
	JobTypeMarkOverdueInvoices = "invoice:mark_overdue"
)

// QueueInvoicing is the queue invoice maintenance jobs are placed on.
const QueueInvoicing = "invoicing"

// MarkOverdueInvoicesPayload represents the payload for the nightly overdue check
type MarkOverdueInvoicesPayload struct{}

// EnqueueMarkOverdueInvoices enqueues a job to mark overdue invoices.
// Typically scheduled to run nightly.
func EnqueueMarkOverdueInvoices(ctx context.Context, q repository.Querier, scheduledAt time.Time) error {
	payloadJSON, err := json.Marshal(MarkOverdueInvoicesPayload{})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:        JobTypeMarkOverdueInvoices,
		Queue:          QueueInvoicing,
		Payload:        payloadJSON,
		Priority:       50, // Lower priority - can run in off-peak hours
		MaxRetries:     3,
		ScheduledAt:    scheduledAt,
		TimeoutSeconds: 120,
	})

	return err
}

// ProcessInvoiceJob processes an invoice job based on its type. It
// returns the number of invoices affected.
func ProcessInvoiceJob(ctx context.Context, job *repository.BackgroundJob, invoices domain.InvoiceService, now time.Time) (int64, error) {
	switch job.JobType {
	case JobTypeMarkOverdueInvoices:
		return invoices.MarkOverdue(ctx, now)
	default:
		return 0, fmt.Errorf("unknown invoice job type: %s", job.JobType)
	}
}

// IsInvoiceJob checks if a job type is an invoice job
func IsInvoiceJob(jobType string) bool {
	return jobType == JobTypeMarkOverdueInvoices
}
