package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/email"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/telemetry"
)

// NotificationService is re-exported from domain for handler convenience.
type NotificationService = domain.NotificationService

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// NotificationConfig identifies the sender on outgoing mail.
type NotificationConfig struct {
	FromAddress string
	FromName    string
	CompanyName string
}

type notificationService struct {
	store     repository.Querier
	sender    email.Sender
	templates *email.Templates
	invoices  InvoiceService
	config    NotificationConfig
	logger    *slog.Logger
}

// NewNotificationService creates a new NotificationService instance.
// invoices is used to load and render documents for invoice mail.
func NewNotificationService(
	store repository.Querier,
	sender email.Sender,
	templates *email.Templates,
	invoices InvoiceService,
	config NotificationConfig,
	logger *slog.Logger,
) NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationService{
		store:     store,
		sender:    sender,
		templates: templates,
		invoices:  invoices,
		config:    config,
		logger:    logger,
	}
}

func (s *notificationService) from() string {
	if s.config.FromName == "" {
		return s.config.FromAddress
	}
	return (&mail.Address{Name: s.config.FromName, Address: s.config.FromAddress}).String()
}

// SendEmail validates and sends one message, then records the attempt in
// the history whatever the outcome.
func (s *notificationService) SendEmail(ctx context.Context, params domain.SendEmailParams) (*domain.SendEmailResult, error) {
	return s.send(ctx, "manual", params, nil)
}

func (s *notificationService) send(ctx context.Context, kind string, params domain.SendEmailParams, attachments []email.Attachment) (*domain.SendEmailResult, error) {
	const op = "email.send"

	params.To = strings.TrimSpace(params.To)
	params.Subject = strings.TrimSpace(params.Subject)
	if params.To == "" {
		return nil, ErrMissingRecipient
	}
	if _, err := mail.ParseAddress(params.To); err != nil {
		return nil, domain.NewValidationError(op, "to", "recipient is not a valid email address")
	}
	if params.Subject == "" {
		return nil, ErrMissingSubject
	}

	msg := &email.Email{
		To:          []string{params.To},
		From:        s.from(),
		Subject:     params.Subject,
		Attachments: attachments,
	}
	if params.IsHTML {
		msg.HTMLBody = params.Body
	} else {
		msg.TextBody = params.Body
	}

	messageID, sendErr := s.sender.Send(ctx, msg)
	telemetry.Business.EmailDelivered(kind, sendErr)

	entry := repository.CreateEmailHistoryParams{
		ToAddress: params.To,
		Subject:   params.Subject,
		Body:      params.Body,
		IsHTML:    params.IsHTML,
		Status:    domain.EmailStatusSent,
		InvoiceID: params.InvoiceID,
	}
	result := &domain.SendEmailResult{Success: sendErr == nil, MessageID: messageID}

	if sendErr != nil {
		raw := sendErr.Error()
		if emailErr, ok := email.AsEmailError(sendErr); ok && emailErr.Raw != "" {
			raw = emailErr.Raw
		}
		result.Error = raw
		entry.Status = domain.EmailStatusFailed
		entry.Error = &raw
	} else if messageID != "" {
		entry.ProviderMessageID = &messageID
	}

	if _, err := s.RecordHistory(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record email history", "to", params.To, "error", err)
	}

	if sendErr != nil {
		s.logger.WarnContext(ctx, "email delivery failed", "to", params.To, "kind", kind, "error", sendErr)
		return result, domain.WrapError(sendErr, domain.EINTERNAL, op, "Failed to send email")
	}

	s.logger.InfoContext(ctx, "email sent", "to", params.To, "kind", kind, "message_id", messageID)
	return result, nil
}

func (s *notificationService) RecordHistory(ctx context.Context, entry repository.CreateEmailHistoryParams) (*repository.EmailHistory, error) {
	switch entry.Status {
	case "":
		entry.Status = domain.EmailStatusSent
	case domain.EmailStatusSent, domain.EmailStatusFailed, domain.EmailStatusSuccess:
	default:
		return nil, domain.NewValidationError("email.record_history", "status", "unknown email status "+entry.Status)
	}
	h, err := s.store.CreateEmailHistory(ctx, entry)
	if err != nil {
		return nil, domain.Persistence(err, "email.record_history", "failed to record email history")
	}
	return &h, nil
}

func (s *notificationService) ListHistory(ctx context.Context, limit int32) ([]repository.EmailHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	history, err := s.store.ListEmailHistory(ctx, limit)
	if err != nil {
		return nil, domain.Internal(err, "email.list_history", "failed to list email history")
	}
	return history, nil
}

func (s *notificationService) DeleteHistory(ctx context.Context, id uuid.UUID) error {
	const op = "email.delete_history"
	n, err := s.store.DeleteEmailHistory(ctx, id)
	if err != nil {
		return domain.Persistence(err, op, "failed to delete email history")
	}
	if n == 0 {
		return domain.NotFound(op, "email", id.String())
	}
	return nil
}

func (s *notificationService) clientEmail(detail *domain.InvoiceDetail) (string, string, error) {
	if detail.Client == nil || detail.Client.Email == "" {
		return "", "", ErrClientHasNoEmail
	}
	return detail.Client.Email, detail.Client.Name, nil
}

// SendInvoiceEmail mails the invoice with its PDF attached.
func (s *notificationService) SendInvoiceEmail(ctx context.Context, invoiceID uuid.UUID) error {
	detail, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	to, clientName, err := s.clientEmail(detail)
	if err != nil {
		return err
	}

	rendered, err := s.templates.Render(email.InvoiceEmail{
		CompanyName:   s.config.CompanyName,
		ClientName:    clientName,
		InvoiceNumber: detail.Invoice.InvoiceNumber,
		InvoiceDate:   detail.Invoice.InvoiceDate.Format(time.DateOnly),
		DueDate:       detail.Invoice.DueDate.Format(time.DateOnly),
		Total:         detail.Invoice.TotalAmount.StringFixed(2),
		Notes:         detail.Invoice.Notes,
	})
	if err != nil {
		return domain.Internal(err, "email.invoice", "failed to render invoice email")
	}

	doc, err := s.invoices.RenderDocument(ctx, detail)
	if err != nil {
		return err
	}

	_, err = s.send(ctx, "invoice", domain.SendEmailParams{
		To:        to,
		Subject:   rendered.Subject,
		Body:      rendered.HTMLBody,
		IsHTML:    true,
		InvoiceID: &detail.Invoice.ID,
	}, []email.Attachment{{
		Filename:    fmt.Sprintf("invoice-%s.pdf", detail.Invoice.InvoiceNumber),
		ContentType: "application/pdf",
		Content:     doc,
	}})
	return err
}

// SendPaymentReceipt mails a receipt for amount against the invoice.
func (s *notificationService) SendPaymentReceipt(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal) error {
	detail, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	to, clientName, err := s.clientEmail(detail)
	if err != nil {
		return err
	}

	balance := detail.Balance()
	rendered, err := s.templates.Render(email.PaymentReceiptEmail{
		CompanyName:   s.config.CompanyName,
		ClientName:    clientName,
		InvoiceNumber: detail.Invoice.InvoiceNumber,
		Amount:        amount.StringFixed(2),
		Balance:       balance.StringFixed(2),
		PaidInFull:    !balance.IsPositive(),
	})
	if err != nil {
		return domain.Internal(err, "email.receipt", "failed to render receipt email")
	}

	_, err = s.send(ctx, "payment_receipt", domain.SendEmailParams{
		To:        to,
		Subject:   rendered.Subject,
		Body:      rendered.HTMLBody,
		IsHTML:    true,
		InvoiceID: &detail.Invoice.ID,
	}, nil)
	return err
}
