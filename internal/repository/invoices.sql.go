package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `id, client_id, job_id, invoice_number, invoice_date, due_date, subtotal, tax_rate, tax_amount,
    total_amount, amount_paid, status, payment_date, payment_method, payment_note, notes, created_at, updated_at`

func scanInvoice(row interface{ Scan(...any) error }) (Invoice, error) {
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.ClientID,
		&i.JobID,
		&i.InvoiceNumber,
		&i.InvoiceDate,
		&i.DueDate,
		&i.Subtotal,
		&i.TaxRate,
		&i.TaxAmount,
		&i.TotalAmount,
		&i.AmountPaid,
		&i.Status,
		&i.PaymentDate,
		&i.PaymentMethod,
		&i.PaymentNote,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createInvoice = `
INSERT INTO invoices (client_id, job_id, invoice_number, invoice_date, due_date, subtotal, tax_rate, tax_amount, total_amount, status, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + invoiceColumns

type CreateInvoiceParams struct {
	ClientID      uuid.UUID
	JobID         *uuid.UUID
	InvoiceNumber string
	InvoiceDate   time.Time
	DueDate       time.Time
	Subtotal      decimal.Decimal
	TaxRate       decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
	Status        string
	Notes         string
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, createInvoice,
		arg.ClientID,
		arg.JobID,
		arg.InvoiceNumber,
		arg.InvoiceDate,
		arg.DueDate,
		arg.Subtotal,
		arg.TaxRate,
		arg.TaxAmount,
		arg.TotalAmount,
		arg.Status,
		arg.Notes,
	)
	return scanInvoice(row)
}

const getInvoice = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

func (q *Queries) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, id))
}

const getInvoiceForUpdate = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`

// GetInvoiceForUpdate locks the invoice row until the surrounding
// transaction ends.
func (q *Queries) GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoiceForUpdate, id))
}

const listInvoices = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE ($1::uuid IS NULL OR client_id = $1)
  AND ($2::text IS NULL OR status = $2)
ORDER BY invoice_date DESC, invoice_number DESC
LIMIT $3 OFFSET $4`

type ListInvoicesParams struct {
	ClientID *uuid.UUID
	Status   *string
	Limit    int32
	Offset   int32
}

func (q *Queries) ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoices, arg.ClientID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Invoice
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const maxInvoiceSequence = `
SELECT COALESCE(MAX(substring(invoice_number FROM char_length($1) + 1)::bigint), 0)
FROM invoices
WHERE invoice_number LIKE $1 || '%'
  AND substring(invoice_number FROM char_length($1) + 1) ~ '^[0-9]{1,18}$'`

// MaxInvoiceSequence returns the highest numeric suffix among invoice
// numbers starting with prefix, or 0.
func (q *Queries) MaxInvoiceSequence(ctx context.Context, prefix string) (int64, error) {
	var seq int64
	err := q.db.QueryRow(ctx, maxInvoiceSequence, prefix).Scan(&seq)
	return seq, err
}

const applyInvoicePayment = `
UPDATE invoices
SET amount_paid = $2, status = $3, payment_date = $4, payment_method = $5, payment_note = $6, updated_at = now()
WHERE id = $1
RETURNING ` + invoiceColumns

type ApplyInvoicePaymentParams struct {
	ID            uuid.UUID
	AmountPaid    decimal.Decimal
	Status        string
	PaymentDate   *time.Time
	PaymentMethod *string
	PaymentNote   *string
}

func (q *Queries) ApplyInvoicePayment(ctx context.Context, arg ApplyInvoicePaymentParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, applyInvoicePayment,
		arg.ID,
		arg.AmountPaid,
		arg.Status,
		arg.PaymentDate,
		arg.PaymentMethod,
		arg.PaymentNote,
	)
	return scanInvoice(row)
}

const updateInvoiceStatus = `
UPDATE invoices SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + invoiceColumns

type UpdateInvoiceStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateInvoiceStatus(ctx context.Context, arg UpdateInvoiceStatusParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, updateInvoiceStatus, arg.ID, arg.Status))
}

const markInvoicesOverdue = `
UPDATE invoices
SET status = 'Overdue', updated_at = now()
WHERE status = 'Pending' AND due_date < $1::date AND amount_paid < total_amount`

func (q *Queries) MarkInvoicesOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	result, err := q.db.Exec(ctx, markInvoicesOverdue, asOf)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteInvoice = `DELETE FROM invoices WHERE id = $1`

func (q *Queries) DeleteInvoice(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteInvoice, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createInvoiceItem = `
INSERT INTO invoice_items (invoice_id, description, quantity, rate, amount, position)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, invoice_id, description, quantity, rate, amount, position`

type CreateInvoiceItemParams struct {
	InvoiceID   uuid.UUID
	Description string
	Quantity    int32
	Rate        decimal.Decimal
	Amount      decimal.Decimal
	Position    int32
}

func (q *Queries) CreateInvoiceItem(ctx context.Context, arg CreateInvoiceItemParams) (InvoiceItem, error) {
	row := q.db.QueryRow(ctx, createInvoiceItem,
		arg.InvoiceID,
		arg.Description,
		arg.Quantity,
		arg.Rate,
		arg.Amount,
		arg.Position,
	)
	var i InvoiceItem
	err := row.Scan(&i.ID, &i.InvoiceID, &i.Description, &i.Quantity, &i.Rate, &i.Amount, &i.Position)
	return i, err
}

const listInvoiceItems = `
SELECT id, invoice_id, description, quantity, rate, amount, position
FROM invoice_items
WHERE invoice_id = $1
ORDER BY position`

func (q *Queries) ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error) {
	rows, err := q.db.Query(ctx, listInvoiceItems, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var i InvoiceItem
		if err := rows.Scan(&i.ID, &i.InvoiceID, &i.Description, &i.Quantity, &i.Rate, &i.Amount, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createInvoicePayment = `
INSERT INTO invoice_payments (invoice_id, amount, paid_on, method, note)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, invoice_id, amount, paid_on, method, note, created_at`

type CreateInvoicePaymentParams struct {
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	PaidOn    time.Time
	Method    string
	Note      string
}

func (q *Queries) CreateInvoicePayment(ctx context.Context, arg CreateInvoicePaymentParams) (InvoicePayment, error) {
	row := q.db.QueryRow(ctx, createInvoicePayment, arg.InvoiceID, arg.Amount, arg.PaidOn, arg.Method, arg.Note)
	var p InvoicePayment
	err := row.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaidOn, &p.Method, &p.Note, &p.CreatedAt)
	return p, err
}

const listInvoicePayments = `
SELECT id, invoice_id, amount, paid_on, method, note, created_at
FROM invoice_payments
WHERE invoice_id = $1
ORDER BY paid_on, created_at`

func (q *Queries) ListInvoicePayments(ctx context.Context, invoiceID uuid.UUID) ([]InvoicePayment, error) {
	rows, err := q.db.Query(ctx, listInvoicePayments, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoicePayment
	for rows.Next() {
		var p InvoicePayment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaidOn, &p.Method, &p.Note, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
