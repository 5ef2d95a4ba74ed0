package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
)

// Job type constants for email jobs
const (
	JobTypeInvoiceEmail   = "email:invoice"
	JobTypePaymentReceipt = "email:payment_receipt"
)

// QueueEmail is the queue email jobs are placed on.
const QueueEmail = "email"

// InvoiceEmailPayload represents the payload for mailing an invoice to its client
type InvoiceEmailPayload struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
}

// PaymentReceiptPayload represents the payload for a payment receipt email job
type PaymentReceiptPayload struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// EnqueueInvoiceEmail enqueues a job to email an invoice to its client
func EnqueueInvoiceEmail(ctx context.Context, q repository.Querier, payload InvoiceEmailPayload) error {
	return enqueueEmail(ctx, q, JobTypeInvoiceEmail, payload)
}

// EnqueuePaymentReceipt enqueues a job to email a payment receipt
func EnqueuePaymentReceipt(ctx context.Context, q repository.Querier, payload PaymentReceiptPayload) error {
	return enqueueEmail(ctx, q, JobTypePaymentReceipt, payload)
}

func enqueueEmail(ctx context.Context, q repository.Querier, jobType string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:        jobType,
		Queue:          QueueEmail,
		Payload:        payloadJSON,
		Priority:       100,
		MaxRetries:     3,
		ScheduledAt:    time.Now(),
		TimeoutSeconds: 30,
	})

	return err
}

// ProcessEmailJob processes an email job based on its type
func ProcessEmailJob(ctx context.Context, job *repository.BackgroundJob, notifier domain.NotificationService) error {
	switch job.JobType {
	case JobTypeInvoiceEmail:
		var payload InvoiceEmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal invoice email payload: %w", err)
		}
		return notifier.SendInvoiceEmail(ctx, payload.InvoiceID)

	case JobTypePaymentReceipt:
		var payload PaymentReceiptPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal payment receipt payload: %w", err)
		}
		return notifier.SendPaymentReceipt(ctx, payload.InvoiceID, payload.Amount)

	default:
		return fmt.Errorf("unknown email job type: %s", job.JobType)
	}
}

// IsEmailJob checks if a job type is an email job
func IsEmailJob(jobType string) bool {
	switch jobType {
	case JobTypeInvoiceEmail, JobTypePaymentReceipt:
		return true
	}
	return false
}
