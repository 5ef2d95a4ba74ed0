package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/repository"
)

// ExpenseService records business expenses.
type ExpenseService interface {
	CreateExpense(ctx context.Context, params ExpenseParams) (*repository.Expense, error)
	GetExpense(ctx context.Context, id uuid.UUID) (*repository.Expense, error)
	ListExpenses(ctx context.Context, params ListExpensesParams) ([]repository.Expense, error)
	UpdateExpense(ctx context.Context, id uuid.UUID, params ExpenseParams) (*repository.Expense, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) error

	// ExpenseSummary totals expenses per category over an optional range.
	ExpenseSummary(ctx context.Context, from, to *time.Time) (*ExpenseSummary, error)
}

type ExpenseParams struct {
	Date        time.Time
	Category    string
	Vendor      string
	Description string
	Amount      decimal.Decimal
	JobID       *uuid.UUID
}

type ListExpensesParams struct {
	From     *time.Time
	To       *time.Time
	Category *string
}

// ExpenseSummary is the per-category breakdown plus the grand total.
type ExpenseSummary struct {
	Categories []repository.ExpenseCategoryTotal `json:"categories"`
	Total      decimal.Decimal                   `json:"total"`
}
