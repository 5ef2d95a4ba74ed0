package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const expenseColumns = `id, date, category, vendor, description, amount, job_id, created_at, updated_at`

func scanExpense(row interface{ Scan(...any) error }) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Date, &e.Category, &e.Vendor, &e.Description, &e.Amount, &e.JobID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

const createExpense = `
INSERT INTO expenses (date, category, vendor, description, amount, job_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	Date        time.Time
	Category    string
	Vendor      string
	Description string
	Amount      decimal.Decimal
	JobID       *uuid.UUID
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, createExpense, arg.Date, arg.Category, arg.Vendor, arg.Description, arg.Amount, arg.JobID)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

func (q *Queries) GetExpense(ctx context.Context, id uuid.UUID) (Expense, error) {
	return scanExpense(q.db.QueryRow(ctx, getExpense, id))
}

const listExpenses = `
SELECT ` + expenseColumns + `
FROM expenses
WHERE ($1::date IS NULL OR date >= $1)
  AND ($2::date IS NULL OR date <= $2)
  AND ($3::text IS NULL OR category = $3)
ORDER BY date DESC, created_at DESC`

type ListExpensesParams struct {
	From     *time.Time
	To       *time.Time
	Category *string
}

func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]Expense, error) {
	rows, err := q.db.Query(ctx, listExpenses, arg.From, arg.To, arg.Category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateExpense = `
UPDATE expenses
SET date = $2, category = $3, vendor = $4, description = $5, amount = $6, job_id = $7, updated_at = now()
WHERE id = $1
RETURNING ` + expenseColumns

type UpdateExpenseParams struct {
	ID          uuid.UUID
	Date        time.Time
	Category    string
	Vendor      string
	Description string
	Amount      decimal.Decimal
	JobID       *uuid.UUID
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, updateExpense, arg.ID, arg.Date, arg.Category, arg.Vendor, arg.Description, arg.Amount, arg.JobID)
	return scanExpense(row)
}

const deleteExpense = `DELETE FROM expenses WHERE id = $1`

func (q *Queries) DeleteExpense(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const summarizeExpenses = `
SELECT category, count(*), COALESCE(sum(amount), 0)
FROM expenses
WHERE ($1::date IS NULL OR date >= $1)
  AND ($2::date IS NULL OR date <= $2)
GROUP BY category
ORDER BY category`

type SummarizeExpensesParams struct {
	From *time.Time
	To   *time.Time
}

func (q *Queries) SummarizeExpenses(ctx context.Context, arg SummarizeExpensesParams) ([]ExpenseCategoryTotal, error) {
	rows, err := q.db.Query(ctx, summarizeExpenses, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ExpenseCategoryTotal
	for rows.Next() {
		var t ExpenseCategoryTotal
		if err := rows.Scan(&t.Category, &t.Count, &t.Total); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
