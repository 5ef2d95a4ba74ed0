package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/repository"
)

// Email history statuses.
const (
	EmailStatusSuccess = "success"
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
)

// NotificationService sends email and keeps a history of every attempt.
type NotificationService interface {
	// SendEmail sends one message. History is recorded whether or not the
	// provider accepts it.
	SendEmail(ctx context.Context, params SendEmailParams) (*SendEmailResult, error)

	RecordHistory(ctx context.Context, entry repository.CreateEmailHistoryParams) (*repository.EmailHistory, error)
	ListHistory(ctx context.Context, limit int32) ([]repository.EmailHistory, error)
	DeleteHistory(ctx context.Context, id uuid.UUID) error

	// SendInvoiceEmail mails the invoice summary to the client.
	SendInvoiceEmail(ctx context.Context, invoiceID uuid.UUID) error

	// SendPaymentReceipt mails a receipt for a recorded payment.
	SendPaymentReceipt(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal) error
}

// SendEmailParams contains parameters for sending an email.
type SendEmailParams struct {
	To        string
	Subject   string
	Body      string
	IsHTML    bool
	InvoiceID *uuid.UUID
}

// SendEmailResult reports the outcome of a send.
type SendEmailResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
