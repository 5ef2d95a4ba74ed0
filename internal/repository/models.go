package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Client struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Type      string    `json:"type"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Derived from jobs and invoices on read.
	ActiveJobs  int64           `json:"active_jobs"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	LastService *time.Time      `json:"last_service"`
}

type Job struct {
	ID            uuid.UUID       `json:"id"`
	ClientID      uuid.UUID       `json:"client_id"`
	Service       string          `json:"service"`
	Date          time.Time       `json:"date"`
	TimeSlot      string          `json:"time_slot"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	RecurringType string          `json:"recurring_type"`
	RecurringDay  string          `json:"recurring_day"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	ClientID      uuid.UUID       `json:"client_id"`
	JobID         *uuid.UUID      `json:"job_id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       time.Time       `json:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Status        string          `json:"status"`
	PaymentDate   *time.Time      `json:"payment_date"`
	PaymentMethod *string         `json:"payment_method"`
	PaymentNote   *string         `json:"payment_note"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type InvoiceItem struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    int32           `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	Position    int32           `json:"position"`
}

type InvoicePayment struct {
	ID        uuid.UUID       `json:"id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    time.Time       `json:"paid_on"`
	Method    string          `json:"method"`
	Note      string          `json:"note"`
	CreatedAt time.Time       `json:"created_at"`
}

type Profile struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	StripeCustomerID     *string   `json:"stripe_customer_id"`
	StripeSubscriptionID *string   `json:"stripe_subscription_id"`
	SubscriptionStatus   *string   `json:"subscription_status"`
	Plan                 *string   `json:"plan"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type Equipment struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Condition    string     `json:"condition"`
	PurchaseDate *time.Time `json:"purchase_date"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type EquipmentMaintenance struct {
	ID          uuid.UUID       `json:"id"`
	EquipmentID uuid.UUID       `json:"equipment_id"`
	PerformedOn time.Time       `json:"performed_on"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Expense struct {
	ID          uuid.UUID       `json:"id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Vendor      string          `json:"vendor"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	JobID       *uuid.UUID      `json:"job_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ExpenseCategoryTotal struct {
	Category string          `json:"category"`
	Count    int64           `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

type EmailHistory struct {
	ID                uuid.UUID  `json:"id"`
	ToAddress         string     `json:"to"`
	Subject           string     `json:"subject"`
	Body              string     `json:"body"`
	IsHTML            bool       `json:"is_html"`
	Status            string     `json:"status"`
	Error             *string    `json:"error,omitempty"`
	ProviderMessageID *string    `json:"provider_message_id,omitempty"`
	InvoiceID         *uuid.UUID `json:"invoice_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type BackgroundJob struct {
	ID             uuid.UUID       `json:"id"`
	JobType        string          `json:"job_type"`
	Queue          string          `json:"queue"`
	Payload        json.RawMessage `json:"payload"`
	Status         string          `json:"status"`
	Priority       int32           `json:"priority"`
	Attempts       int32           `json:"attempts"`
	MaxRetries     int32           `json:"max_retries"`
	TimeoutSeconds int32           `json:"timeout_seconds"`
	ScheduledAt    time.Time       `json:"scheduled_at"`
	StartedAt      *time.Time      `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
	LastError      *string         `json:"last_error"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
