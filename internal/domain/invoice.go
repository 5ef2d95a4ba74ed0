package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/repository"
)

// Invoice statuses.
const (
	InvoiceStatusDraft   = "Draft"
	InvoiceStatusPending = "Pending"
	InvoiceStatusPaid    = "Paid"
	InvoiceStatusOverdue = "Overdue"
)

// Payment methods accepted by RecordPayment.
const (
	PaymentMethodCreditCard   = "CreditCard"
	PaymentMethodCash         = "Cash"
	PaymentMethodBankTransfer = "BankTransfer"
	PaymentMethodPayPal       = "PayPal"
	PaymentMethodStripe       = "Stripe"
	PaymentMethodOther        = "Other"
)

var paymentMethods = map[string]bool{
	PaymentMethodCreditCard:   true,
	PaymentMethodCash:         true,
	PaymentMethodBankTransfer: true,
	PaymentMethodPayPal:       true,
	PaymentMethodStripe:       true,
	PaymentMethodOther:        true,
}

// IsValidPaymentMethod reports whether method is a known payment method.
func IsValidPaymentMethod(method string) bool {
	return paymentMethods[method]
}

// Invoice-related domain errors.
var (
	ErrInvoiceAlreadyPaid = &Error{Code: EINVALID, Message: "Invoice already paid"}
	ErrInvoiceNotIssued   = &Error{Code: EINVALID, Message: "Invoice has not been issued"}
)

var hundred = decimal.NewFromInt(100)

// LineItem is one billable line on an invoice.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int32           `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// TaxItem is a named percentage applied to the subtotal. Tax items are
// not stored individually; they collapse into the invoice's tax_rate and
// tax_amount.
type TaxItem struct {
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// ComputeLineAmount returns quantity * rate.
func ComputeLineAmount(quantity int32, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt32(quantity))
}

// ComputeSubtotal sums the line amounts, recomputing each from its
// quantity and rate.
func ComputeSubtotal(items []LineItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(ComputeLineAmount(item.Quantity, item.Rate))
	}
	return subtotal
}

// ComputeTaxAmounts returns a copy of taxItems with each amount set to
// subtotal * rate / 100. The input slice is not modified.
func ComputeTaxAmounts(subtotal decimal.Decimal, taxItems []TaxItem) []TaxItem {
	out := make([]TaxItem, len(taxItems))
	for i, t := range taxItems {
		t.Amount = subtotal.Mul(t.Rate).Div(hundred)
		out[i] = t
	}
	return out
}

// ComputeGrandTotal returns subtotal plus the sum of the tax amounts.
func ComputeGrandTotal(subtotal decimal.Decimal, taxItems []TaxItem) decimal.Decimal {
	total := subtotal
	for _, t := range taxItems {
		total = total.Add(t.Amount)
	}
	return total
}

// TotalTaxRate sums the rates of taxItems.
func TotalTaxRate(taxItems []TaxItem) decimal.Decimal {
	rate := decimal.Zero
	for _, t := range taxItems {
		rate = rate.Add(t.Rate)
	}
	return rate
}

// RoundMoney rounds d to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Totals is the stored money breakdown of an invoice.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
	TaxItems  []TaxItem
}

// ComputeTotals runs the calculators and rounds the stored amounts to
// cents. Total is built from the rounded parts so it always equals
// Subtotal + TaxAmount.
func ComputeTotals(items []LineItem, taxItems []TaxItem) Totals {
	subtotal := RoundMoney(ComputeSubtotal(items))
	computed := ComputeTaxAmounts(subtotal, taxItems)

	tax := decimal.Zero
	for _, t := range computed {
		tax = tax.Add(t.Amount)
	}
	tax = RoundMoney(tax)

	return Totals{
		Subtotal:  subtotal,
		TaxRate:   TotalTaxRate(taxItems),
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
		TaxItems:  computed,
	}
}

// DeriveStatusAfterPayment returns the invoice status once newAmountPaid
// has been applied. A fully paid invoice is Paid; otherwise an Overdue
// invoice stays Overdue and anything else is Pending.
func DeriveStatusAfterPayment(previous string, newAmountPaid, total decimal.Decimal) string {
	switch {
	case newAmountPaid.GreaterThanOrEqual(total):
		return InvoiceStatusPaid
	case previous == InvoiceStatusOverdue:
		return InvoiceStatusOverdue
	default:
		return InvoiceStatusPending
	}
}

// CalendarDate returns midnight UTC of t's calendar date, matching how
// DATE columns come back from the database.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InvoiceNumberPrefix returns the "INV-YYYYMM-" prefix for invoices
// issued in the month of t.
func InvoiceNumberPrefix(t time.Time) string {
	return fmt.Sprintf("INV-%04d%02d-", t.Year(), int(t.Month()))
}

// FormatInvoiceNumber returns the seq-th invoice number of the month,
// e.g. INV-202403-007.
func FormatInvoiceNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("%s%03d", InvoiceNumberPrefix(t), seq)
}

// InvoiceService manages invoices, their items and payments.
type InvoiceService interface {
	// CreateInvoice validates params, computes totals and stores the
	// header and items atomically.
	CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*InvoiceDetail, error)

	// GetInvoice retrieves an invoice with its items, payments and client.
	GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error)

	ListInvoices(ctx context.Context, params ListInvoicesParams) ([]repository.Invoice, error)

	DeleteInvoice(ctx context.Context, id uuid.UUID) error

	// RecordPayment applies a payment and derives the new status.
	RecordPayment(ctx context.Context, params RecordPaymentParams) (*repository.Invoice, error)

	// MarkOverdue moves unpaid Pending invoices due before asOf to Overdue.
	// Called by the nightly background job.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)

	// NextInvoiceNumber returns the next free number for the month of at.
	NextInvoiceNumber(ctx context.Context, at time.Time) (string, error)

	// RenderDocument renders an invoice to PDF.
	RenderDocument(ctx context.Context, detail *InvoiceDetail) ([]byte, error)
}

// CreateInvoiceParams contains parameters for creating an invoice.
type CreateInvoiceParams struct {
	ClientID      uuid.UUID
	JobID         *uuid.UUID
	InvoiceNumber string // Optional - generated when empty
	InvoiceDate   time.Time
	DueDate       time.Time
	Status        string // Draft or Pending, defaults to Pending
	Notes         string
	Items         []LineItem
	TaxItems      []TaxItem

	// SendEmail queues the invoice email once a Pending invoice is stored.
	SendEmail bool
}

// ListInvoicesParams filters invoice listings.
type ListInvoicesParams struct {
	ClientID *uuid.UUID
	Status   *string
	Limit    int32
	Offset   int32
}

// RecordPaymentParams contains parameters for recording a payment.
type RecordPaymentParams struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	Date      time.Time
	Method    string // Defaults to Other
	Note      string
}

// InvoiceDetail aggregates an invoice with its items, payments and client.
type InvoiceDetail struct {
	Invoice  repository.Invoice          `json:"invoice"`
	Items    []repository.InvoiceItem    `json:"items"`
	Payments []repository.InvoicePayment `json:"payments"`
	Client   *repository.Client          `json:"client,omitempty"`
	TaxItems []TaxItem                   `json:"tax_items,omitempty"`
}

// Balance returns the amount still owed.
func (d *InvoiceDetail) Balance() decimal.Decimal {
	return d.Invoice.TotalAmount.Sub(d.Invoice.AmountPaid)
}
