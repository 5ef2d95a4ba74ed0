package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/events"
	"github.com/dukerupert/bizznex/internal/jobs"
	"github.com/dukerupert/bizznex/internal/pdf"
	"github.com/dukerupert/bizznex/internal/repository"
	"github.com/dukerupert/bizznex/internal/telemetry"
)

// InvoiceService is re-exported from domain for handler convenience.
type InvoiceService = domain.InvoiceService

type (
	CreateInvoiceParams = domain.CreateInvoiceParams
	RecordPaymentParams = domain.RecordPaymentParams
	InvoiceDetail       = domain.InvoiceDetail
)

const (
	defaultPaymentTermDays = 30
	defaultInvoicePageSize = 50
	maxInvoicePageSize     = 500

	// numberAttempts bounds retries when a generated invoice number
	// collides with one created concurrently.
	numberAttempts = 5
)

// InvoiceEvent is published on invoice lifecycle subjects.
type InvoiceEvent struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Payment       decimal.Decimal `json:"payment,omitempty"`
	Method        string          `json:"method,omitempty"`
}

type invoiceService struct {
	store     repository.Store
	renderer  pdf.Renderer
	publisher events.Publisher
	company   pdf.CompanyData
	currency  string
	logger    *slog.Logger
	now       func() time.Time
}

// InvoiceServiceConfig carries the business profile printed on documents.
type InvoiceServiceConfig struct {
	Company  pdf.CompanyData
	Currency string
}

// NewInvoiceService creates a new InvoiceService instance.
func NewInvoiceService(
	store repository.Store,
	renderer pdf.Renderer,
	publisher events.Publisher,
	cfg InvoiceServiceConfig,
	logger *slog.Logger,
) InvoiceService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if renderer == nil {
		renderer = pdf.NewRenderer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceService{
		store:     store,
		renderer:  renderer,
		publisher: publisher,
		company:   cfg.Company,
		currency:  cfg.Currency,
		logger:    logger,
		now:       time.Now,
	}
}

// normalizeInvoiceParams applies defaults and returns a ValidationError
// listing every bad field.
func normalizeInvoiceParams(op string, p *domain.CreateInvoiceParams, now time.Time) error {
	p.InvoiceNumber = strings.TrimSpace(p.InvoiceNumber)
	if p.Status == "" {
		p.Status = domain.InvoiceStatusPending
	}
	if p.InvoiceDate.IsZero() {
		p.InvoiceDate = now
	}
	if p.DueDate.IsZero() {
		p.DueDate = p.InvoiceDate.AddDate(0, 0, defaultPaymentTermDays)
	}

	var verr error
	if p.ClientID == uuid.Nil {
		verr = fieldError(verr, op, "client_id", "client is required")
	}
	if len(p.Items) == 0 {
		verr = fieldError(verr, op, "items", "at least one item is required")
	}
	for i := range p.Items {
		item := &p.Items[i]
		item.Description = strings.TrimSpace(item.Description)
		if item.Description == "" {
			verr = fieldError(verr, op, itemField(i, "description"), "description is required")
		}
		if item.Quantity < 1 {
			verr = fieldError(verr, op, itemField(i, "quantity"), "quantity must be at least 1")
		}
		if item.Rate.IsNegative() {
			verr = fieldError(verr, op, itemField(i, "rate"), "rate must not be negative")
		}
	}
	for i := range p.TaxItems {
		t := &p.TaxItems[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			t.Name = "Tax"
		}
		if t.Rate.IsNegative() {
			verr = fieldError(verr, op, "tax_items["+strconv.Itoa(i)+"].rate", "rate must not be negative")
		}
	}
	if p.Status != domain.InvoiceStatusDraft && p.Status != domain.InvoiceStatusPending {
		verr = fieldError(verr, op, "status", "status must be Draft or Pending")
	}
	if p.DueDate.Before(p.InvoiceDate) {
		verr = fieldError(verr, op, "due_date", "due date must not be before the invoice date")
	}
	return verr
}

func itemField(i int, name string) string {
	return "items[" + strconv.Itoa(i) + "]." + name
}

// CreateInvoice stores the header and items in one transaction.
func (s *invoiceService) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*InvoiceDetail, error) {
	const op = "invoice.create"

	if err := normalizeInvoiceParams(op, &params, s.now()); err != nil {
		return nil, err
	}

	client, err := s.store.GetClient(ctx, params.ClientID)
	if err != nil {
		return nil, notFoundOr(err, op, "client", params.ClientID)
	}

	if params.JobID != nil {
		job, err := s.store.GetJob(ctx, *params.JobID)
		if err != nil {
			return nil, notFoundOr(err, op, "job", *params.JobID)
		}
		if job.ClientID != params.ClientID {
			return nil, ErrJobClientMismatch
		}
	}

	totals := domain.ComputeTotals(params.Items, params.TaxItems)

	var (
		invoice repository.Invoice
		items   []repository.InvoiceItem
	)

	explicitNumber := params.InvoiceNumber != ""
	for attempt := 0; attempt < numberAttempts; attempt++ {
		number := params.InvoiceNumber
		if !explicitNumber {
			number, err = s.nextNumber(ctx, s.store, params.InvoiceDate, int64(attempt))
			if err != nil {
				return nil, err
			}
		}

		err = s.store.InTx(ctx, func(q repository.Querier) error {
			var txErr error
			invoice, txErr = q.CreateInvoice(ctx, repository.CreateInvoiceParams{
				ClientID:      params.ClientID,
				JobID:         params.JobID,
				InvoiceNumber: number,
				InvoiceDate:   params.InvoiceDate,
				DueDate:       params.DueDate,
				Subtotal:      totals.Subtotal,
				TaxRate:       totals.TaxRate,
				TaxAmount:     totals.TaxAmount,
				TotalAmount:   totals.Total,
				Status:        params.Status,
				Notes:         params.Notes,
			})
			if txErr != nil {
				return txErr
			}

			items = make([]repository.InvoiceItem, 0, len(params.Items))
			for i, li := range params.Items {
				item, txErr := q.CreateInvoiceItem(ctx, repository.CreateInvoiceItemParams{
					InvoiceID:   invoice.ID,
					Description: li.Description,
					Quantity:    li.Quantity,
					Rate:        li.Rate,
					Amount:      domain.ComputeLineAmount(li.Quantity, li.Rate),
					Position:    int32(i),
				})
				if txErr != nil {
					return txErr
				}
				items = append(items, item)
			}

			if params.SendEmail && params.Status == domain.InvoiceStatusPending && client.Email != "" {
				if txErr := jobs.EnqueueInvoiceEmail(ctx, q, jobs.InvoiceEmailPayload{InvoiceID: invoice.ID}); txErr != nil {
					return txErr
				}
			}
			return nil
		})
		if err == nil {
			break
		}
		if repository.IsUniqueViolation(err) {
			if explicitNumber {
				return nil, ErrInvoiceNumberTaken
			}
			s.logger.WarnContext(ctx, "invoice number collision, retrying", "number", number, "attempt", attempt+1)
			continue
		}
		if repository.IsForeignKeyViolation(err) {
			return nil, domain.NotFound(op, "client", params.ClientID.String())
		}
		return nil, domain.Persistence(err, op, "failed to save invoice")
	}
	if err != nil {
		return nil, ErrNumberSpaceExhausted
	}

	if params.SendEmail && client.Email != "" && params.Status == domain.InvoiceStatusPending {
		telemetry.Business.JobEnqueued(jobs.JobTypeInvoiceEmail)
	}
	telemetry.Business.InvoiceCreated(invoice.Status, invoice.TotalAmount)
	s.publish(ctx, events.SubjectInvoiceCreated, invoiceEvent(invoice))

	s.logger.InfoContext(ctx, "invoice created",
		"invoice_id", invoice.ID,
		"number", invoice.InvoiceNumber,
		"client_id", invoice.ClientID,
		"total", invoice.TotalAmount.StringFixed(2),
		"status", invoice.Status,
	)

	return &InvoiceDetail{
		Invoice:  invoice,
		Items:    items,
		Payments: []repository.InvoicePayment{},
		Client:   &client,
		TaxItems: totals.TaxItems,
	}, nil
}

// GetInvoice retrieves an invoice with its items, payments and client.
func (s *invoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error) {
	const op = "invoice.get"

	invoice, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, op, "invoice", id)
	}

	items, err := s.store.ListInvoiceItems(ctx, id)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load invoice items")
	}
	payments, err := s.store.ListInvoicePayments(ctx, id)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load invoice payments")
	}

	detail := &InvoiceDetail{
		Invoice:  invoice,
		Items:    items,
		Payments: payments,
		TaxItems: storedTaxItems(invoice),
	}

	client, err := s.store.GetClient(ctx, invoice.ClientID)
	switch {
	case err == nil:
		detail.Client = &client
	case !repository.IsNotFound(err):
		return nil, domain.Internal(err, op, "failed to load client")
	}

	return detail, nil
}

// storedTaxItems rebuilds a single combined tax line. Individual tax
// items collapse into tax_rate and tax_amount when stored.
func storedTaxItems(inv repository.Invoice) []domain.TaxItem {
	if inv.TaxRate.IsZero() && inv.TaxAmount.IsZero() {
		return nil
	}
	return []domain.TaxItem{{Name: "Tax", Rate: inv.TaxRate, Amount: inv.TaxAmount}}
}

func (s *invoiceService) ListInvoices(ctx context.Context, params domain.ListInvoicesParams) ([]repository.Invoice, error) {
	if params.Status != nil {
		switch *params.Status {
		case domain.InvoiceStatusDraft, domain.InvoiceStatusPending, domain.InvoiceStatusPaid, domain.InvoiceStatusOverdue:
		default:
			return nil, domain.NewValidationError("invoice.list", "status", "unknown invoice status")
		}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultInvoicePageSize
	}
	if limit > maxInvoicePageSize {
		limit = maxInvoicePageSize
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	invoices, err := s.store.ListInvoices(ctx, repository.ListInvoicesParams{
		ClientID: params.ClientID,
		Status:   params.Status,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, domain.Internal(err, "invoice.list", "failed to list invoices")
	}
	return invoices, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	const op = "invoice.delete"
	n, err := s.store.DeleteInvoice(ctx, id)
	if err != nil {
		return domain.Persistence(err, op, "failed to delete invoice")
	}
	if n == 0 {
		return domain.NotFound(op, "invoice", id.String())
	}
	s.logger.InfoContext(ctx, "invoice deleted", "invoice_id", id)
	return nil
}

// RecordPayment applies a payment inside a transaction that locks the
// invoice row, so two concurrent payments cannot overshoot the balance.
func (s *invoiceService) RecordPayment(ctx context.Context, params RecordPaymentParams) (*repository.Invoice, error) {
	const op = "invoice.record_payment"

	method := params.Method
	if method == "" {
		method = domain.PaymentMethodOther
	}
	if !domain.IsValidPaymentMethod(method) {
		return nil, domain.NewValidationError(op, "payment_method", "unknown payment method")
	}
	paidOn := params.Date
	if paidOn.IsZero() {
		paidOn = s.now()
	}
	note := strings.TrimSpace(params.Note)

	var (
		updated     repository.Invoice
		previous    string
		clientEmail string
	)

	err := s.store.InTx(ctx, func(q repository.Querier) error {
		inv, err := q.GetInvoiceForUpdate(ctx, params.InvoiceID)
		if err != nil {
			return notFoundOr(err, op, "invoice", params.InvoiceID)
		}

		switch inv.Status {
		case domain.InvoiceStatusPaid:
			return ErrInvoiceAlreadyPaid
		case domain.InvoiceStatusDraft:
			return ErrInvoiceNotIssued
		}

		balance := inv.TotalAmount.Sub(inv.AmountPaid)
		if !params.Amount.IsPositive() || params.Amount.GreaterThan(balance) {
			return domain.InvalidPaymentAmount(op, balance.StringFixed(2))
		}

		newPaid := inv.AmountPaid.Add(params.Amount)
		status := domain.DeriveStatusAfterPayment(inv.Status, newPaid, inv.TotalAmount)

		apply := repository.ApplyInvoicePaymentParams{
			ID:            inv.ID,
			AmountPaid:    newPaid,
			Status:        status,
			PaymentDate:   &paidOn,
			PaymentMethod: &method,
		}
		if note != "" {
			apply.PaymentNote = &note
		}

		updated, err = q.ApplyInvoicePayment(ctx, apply)
		if err != nil {
			return domain.Persistence(err, op, "failed to update invoice")
		}

		if _, err := q.CreateInvoicePayment(ctx, repository.CreateInvoicePaymentParams{
			InvoiceID: inv.ID,
			Amount:    params.Amount,
			PaidOn:    paidOn,
			Method:    method,
			Note:      note,
		}); err != nil {
			return domain.Persistence(err, op, "failed to record payment")
		}

		client, err := q.GetClient(ctx, inv.ClientID)
		if err != nil && !repository.IsNotFound(err) {
			return domain.Internal(err, op, "failed to load client")
		}
		if client.Email != "" {
			if err := jobs.EnqueuePaymentReceipt(ctx, q, jobs.PaymentReceiptPayload{
				InvoiceID: inv.ID,
				Amount:    params.Amount,
			}); err != nil {
				return domain.Persistence(err, op, "failed to queue receipt")
			}
			clientEmail = client.Email
		}

		previous = inv.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.Business.PaymentRecorded(method, params.Amount)
	if clientEmail != "" {
		telemetry.Business.JobEnqueued(jobs.JobTypePaymentReceipt)
	}

	evt := invoiceEvent(updated)
	evt.Payment = params.Amount
	evt.Method = method
	s.publish(ctx, events.SubjectPaymentRecorded, evt)
	if updated.Status == domain.InvoiceStatusPaid && previous != domain.InvoiceStatusPaid {
		s.publish(ctx, events.SubjectInvoicePaid, evt)
	}

	s.logger.InfoContext(ctx, "payment recorded",
		"invoice_id", updated.ID,
		"amount", params.Amount.StringFixed(2),
		"method", method,
		"status", updated.Status,
		"previous_status", previous,
	)

	return &updated, nil
}

// MarkOverdue flags Pending invoices whose due date is before asOf's
// calendar date. An invoice is not overdue on its due date.
func (s *invoiceService) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	asOf = domain.CalendarDate(asOf)
	n, err := s.store.MarkInvoicesOverdue(ctx, asOf)
	if err != nil {
		return 0, domain.Persistence(err, "invoice.mark_overdue", "failed to mark invoices overdue")
	}
	telemetry.Business.OverdueMarked(n)
	if n > 0 {
		s.logger.InfoContext(ctx, "invoices marked overdue", "count", n, "as_of", asOf.Format(time.DateOnly))
	}
	return n, nil
}

func (s *invoiceService) NextInvoiceNumber(ctx context.Context, at time.Time) (string, error) {
	return s.nextNumber(ctx, s.store, at, 0)
}

// nextNumber returns the number after the highest one used this month,
// skipped ahead by bump after a collision.
func (s *invoiceService) nextNumber(ctx context.Context, q repository.Querier, at time.Time, bump int64) (string, error) {
	if at.IsZero() {
		at = s.now()
	}
	n, err := q.MaxInvoiceSequence(ctx, domain.InvoiceNumberPrefix(at))
	if err != nil {
		return "", domain.Internal(err, "invoice.next_number", "failed to allocate invoice number")
	}
	return domain.FormatInvoiceNumber(at, n+1+bump), nil
}

func (s *invoiceService) RenderDocument(ctx context.Context, detail *InvoiceDetail) ([]byte, error) {
	const op = "invoice.render"
	if detail == nil || detail.Invoice.InvoiceNumber == "" {
		return nil, ErrNothingToRender
	}

	doc, err := s.renderer.Render(DocumentData(detail, s.company, s.currency))
	telemetry.Business.DocumentRendered(err)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to render invoice")
	}
	return doc, nil
}

// DocumentData builds the normalized document payload from an invoice.
func DocumentData(detail *InvoiceDetail, company pdf.CompanyData, currency string) pdf.InvoiceData {
	inv := detail.Invoice
	data := pdf.InvoiceData{
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.InvoiceDate.Format(time.DateOnly),
		DueDate:       inv.DueDate.Format(time.DateOnly),
		Status:        inv.Status,
		Company:       company,
		Subtotal:      inv.Subtotal,
		Total:         inv.TotalAmount,
		AmountPaid:    inv.AmountPaid,
		Notes:         inv.Notes,
		Currency:      currency,
	}
	if detail.Client != nil {
		data.Client = pdf.ClientData{
			Name:    detail.Client.Name,
			Address: detail.Client.Address,
			Email:   detail.Client.Email,
			Phone:   detail.Client.Phone,
		}
	}
	for _, item := range detail.Items {
		data.Items = append(data.Items, pdf.InvoiceItem{
			Description: item.Description,
			Quantity:    int(item.Quantity),
			UnitPrice:   item.Rate,
			Total:       item.Amount,
		})
	}
	for _, t := range detail.TaxItems {
		data.Taxes = append(data.Taxes, pdf.TaxLine{Name: t.Name, Rate: t.Rate, Amount: domain.RoundMoney(t.Amount)})
	}
	return data
}

// DraftDetail builds an unsaved invoice from create params so a document
// can be rendered without persisting anything.
func DraftDetail(params CreateInvoiceParams, client *repository.Client, now time.Time) (*InvoiceDetail, error) {
	if err := normalizeInvoiceParams("invoice.draft", &params, now); err != nil {
		return nil, err
	}

	totals := domain.ComputeTotals(params.Items, params.TaxItems)
	detail := &InvoiceDetail{
		Invoice: repository.Invoice{
			ClientID:      params.ClientID,
			JobID:         params.JobID,
			InvoiceNumber: params.InvoiceNumber,
			InvoiceDate:   params.InvoiceDate,
			DueDate:       params.DueDate,
			Subtotal:      totals.Subtotal,
			TaxRate:       totals.TaxRate,
			TaxAmount:     totals.TaxAmount,
			TotalAmount:   totals.Total,
			AmountPaid:    decimal.Zero,
			Status:        params.Status,
			Notes:         params.Notes,
		},
		Client:   client,
		TaxItems: totals.TaxItems,
	}
	for i, li := range params.Items {
		detail.Items = append(detail.Items, repository.InvoiceItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			Rate:        li.Rate,
			Amount:      domain.ComputeLineAmount(li.Quantity, li.Rate),
			Position:    int32(i),
		})
	}
	return detail, nil
}

func invoiceEvent(inv repository.Invoice) InvoiceEvent {
	return InvoiceEvent{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		Status:        inv.Status,
		Total:         inv.TotalAmount,
		AmountPaid:    inv.AmountPaid,
	}
}

// publish is best effort; a broker outage never fails the request.
func (s *invoiceService) publish(ctx context.Context, subject string, payload any) {
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "subject", subject, "error", err)
	}
}
