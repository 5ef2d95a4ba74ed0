package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so errors match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if id, ok := field.Interface().(uuid.UUID); ok && id != uuid.Nil {
			return id.String()
		}
		return ""
	}, uuid.UUID{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Date); ok {
			return d.Time
		}
		return time.Time{}
	}, Date{})

	return v
}

// validateRequest runs the struct tags on req and converts failures into a
// domain.ValidationError keyed by JSON field path.
func validateRequest(op string, req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Internal(err, op, "failed to validate request")
	}

	out := &domain.ValidationError{Op: op, Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		path := fieldPath(fe)
		if _, exists := out.Fields[path]; !exists {
			out.Fields[path] = fieldMessage(path, fe)
		}
	}
	return out
}

// fieldPath drops the struct name from the namespace: "InvoiceRequest.items[0].rate"
// becomes "items[0].rate".
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}

func fieldMessage(path string, fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email address"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "gte":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return path + " is invalid"
	}
}

// Date accepts "2006-01-02" or RFC 3339 timestamps. Empty strings and null
// decode to the zero time.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

func (d *Date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// ClientRequest is the body of POST and PUT /api/clients.
type ClientRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
	Type    string `json:"type" validate:"omitempty,oneof=Residential Commercial Municipal"`
	Notes   string `json:"notes"`
}

func (r ClientRequest) params() domain.ClientParams {
	return domain.ClientParams{
		Name:    strings.TrimSpace(r.Name),
		Email:   strings.TrimSpace(r.Email),
		Phone:   r.Phone,
		Address: r.Address,
		Type:    r.Type,
		Notes:   r.Notes,
	}
}

// JobRequest is the body of POST and PUT /api/jobs.
type JobRequest struct {
	ClientID      uuid.UUID       `json:"client_id" validate:"required"`
	Service       string          `json:"service" validate:"required,max=200"`
	Date          Date            `json:"date" validate:"required"`
	TimeSlot      string          `json:"time_slot" validate:"max=50"`
	Status        string          `json:"status" validate:"omitempty,oneof=Scheduled InProgress Completed Cancelled"`
	TotalAmount   decimal.Decimal `json:"total_amount" validate:"gte=0"`
	RecurringType string          `json:"recurring_type" validate:"omitempty,oneof=none weekly biweekly monthly"`
	RecurringDay  string          `json:"recurring_day"`
	Notes         string          `json:"notes"`
}

func (r JobRequest) params() domain.JobParams {
	return domain.JobParams{
		ClientID:      r.ClientID,
		Service:       strings.TrimSpace(r.Service),
		Date:          r.Date.Time,
		TimeSlot:      r.TimeSlot,
		Status:        r.Status,
		TotalAmount:   r.TotalAmount,
		RecurringType: r.RecurringType,
		RecurringDay:  r.RecurringDay,
		Notes:         r.Notes,
	}
}

// LineItemRequest is one invoice line.
type LineItemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    int32           `json:"quantity" validate:"gte=1"`
	Rate        decimal.Decimal `json:"rate" validate:"gte=0"`
}

// TaxItemRequest is one named tax percentage.
type TaxItemRequest struct {
	Name string          `json:"name" validate:"required"`
	Rate decimal.Decimal `json:"rate" validate:"gte=0,lte=100"`
}

// InvoiceRequest is the body of POST /api/invoices and the draft form of
// POST /api/generate-invoice-pdf.
type InvoiceRequest struct {
	ClientID      uuid.UUID         `json:"client_id" validate:"required"`
	JobID         *uuid.UUID        `json:"job_id"`
	InvoiceNumber string            `json:"invoice_number" validate:"max=50"`
	InvoiceDate   Date              `json:"invoice_date"`
	DueDate       Date              `json:"due_date"`
	Status        string            `json:"status" validate:"omitempty,oneof=Draft Pending"`
	Notes         string            `json:"notes"`
	Items         []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	TaxItems      []TaxItemRequest  `json:"tax_items" validate:"dive"`
	SendEmail     bool              `json:"send_email"`
}

func (r InvoiceRequest) params() domain.CreateInvoiceParams {
	p := domain.CreateInvoiceParams{
		ClientID:      r.ClientID,
		JobID:         r.JobID,
		InvoiceNumber: strings.TrimSpace(r.InvoiceNumber),
		InvoiceDate:   r.InvoiceDate.Time,
		DueDate:       r.DueDate.Time,
		Status:        r.Status,
		Notes:         r.Notes,
		SendEmail:     r.SendEmail,
	}
	for _, item := range r.Items {
		p.Items = append(p.Items, domain.LineItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		})
	}
	for _, t := range r.TaxItems {
		p.TaxItems = append(p.TaxItems, domain.TaxItem{Name: t.Name, Rate: t.Rate})
	}
	return p
}

// PaymentRequest is the body of POST /api/update-invoice-status.
type PaymentRequest struct {
	InvoiceID     uuid.UUID       `json:"invoice_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentDate   Date            `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
	PaymentNote   string          `json:"payment_note"`
}

func (r PaymentRequest) params() domain.RecordPaymentParams {
	return domain.RecordPaymentParams{
		InvoiceID: r.InvoiceID,
		Amount:    r.Amount,
		Date:      r.PaymentDate.Time,
		Method:    r.PaymentMethod,
		Note:      r.PaymentNote,
	}
}

// DocumentRequest is the body of POST /api/generate-invoice-pdf. Either
// InvoiceID names a stored invoice, or the embedded draft is rendered and,
// when Save is set, stored first.
type DocumentRequest struct {
	InvoiceID *uuid.UUID      `json:"invoice_id"`
	Save      bool            `json:"save"`
	Client    *ClientSnapshot `json:"client"`
	InvoiceRequest
}

// ClientSnapshot is the client as the caller last saw it. Drafts fall
// back to it when the client cannot be loaded.
type ClientSnapshot struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (s *ClientSnapshot) client(id uuid.UUID) *repository.Client {
	c := &repository.Client{ID: id}
	if s != nil {
		c.Name = strings.TrimSpace(s.Name)
		c.Email = strings.TrimSpace(s.Email)
		c.Phone = strings.TrimSpace(s.Phone)
		c.Address = strings.TrimSpace(s.Address)
	}
	return c
}

// EmailRequest is the body of POST /api/send-email.
type EmailRequest struct {
	To        string     `json:"to" validate:"required,email"`
	Subject   string     `json:"subject" validate:"required,max=998"`
	Body      string     `json:"body"`
	IsHTML    bool       `json:"isHtml"`
	InvoiceID *uuid.UUID `json:"invoice_id"`
}

func (r EmailRequest) params() domain.SendEmailParams {
	return domain.SendEmailParams{
		To:        strings.TrimSpace(r.To),
		Subject:   r.Subject,
		Body:      r.Body,
		IsHTML:    r.IsHTML,
		InvoiceID: r.InvoiceID,
	}
}

// EquipmentRequest is the body of POST and PUT /api/equipment.
type EquipmentRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Type         string `json:"type" validate:"max=100"`
	Status       string `json:"status" validate:"omitempty,oneof=Available InUse Maintenance Retired"`
	Condition    string `json:"condition" validate:"omitempty,oneof=Excellent Good Fair Poor"`
	PurchaseDate *Date  `json:"purchase_date"`
	Notes        string `json:"notes"`
}

func (r EquipmentRequest) params() domain.EquipmentParams {
	return domain.EquipmentParams{
		Name:         strings.TrimSpace(r.Name),
		Type:         r.Type,
		Status:       r.Status,
		Condition:    r.Condition,
		PurchaseDate: r.PurchaseDate.ptr(),
		Notes:        r.Notes,
	}
}

// MaintenanceRequest is the body of POST /api/equipment/{id}/maintenance.
type MaintenanceRequest struct {
	PerformedOn Date            `json:"performed_on" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Cost        decimal.Decimal `json:"cost" validate:"gte=0"`
}

// ExpenseRequest is the body of POST and PUT /api/expenses.
type ExpenseRequest struct {
	Date        Date            `json:"date" validate:"required"`
	Category    string          `json:"category" validate:"required,max=100"`
	Vendor      string          `json:"vendor" validate:"max=200"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	JobID       *uuid.UUID      `json:"job_id"`
}

func (r ExpenseRequest) params() domain.ExpenseParams {
	return domain.ExpenseParams{
		Date:        r.Date.Time,
		Category:    strings.TrimSpace(r.Category),
		Vendor:      r.Vendor,
		Description: r.Description,
		Amount:      r.Amount,
		JobID:       r.JobID,
	}
}
