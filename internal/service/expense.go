package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
)

// ExpenseService is re-exported from domain for handler convenience.
type ExpenseService = domain.ExpenseService

type expenseService struct {
	repo   repository.Querier
	logger *slog.Logger
}

// NewExpenseService creates a new ExpenseService instance.
func NewExpenseService(repo repository.Querier, logger *slog.Logger) ExpenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &expenseService{repo: repo, logger: logger}
}

func validateExpense(op string, p *domain.ExpenseParams) error {
	p.Category = strings.TrimSpace(p.Category)
	p.Vendor = strings.TrimSpace(p.Vendor)

	var verr error
	if p.Date.IsZero() {
		verr = fieldError(verr, op, "date", "date is required")
	}
	if p.Category == "" {
		verr = fieldError(verr, op, "category", "category is required")
	}
	if !p.Amount.IsPositive() {
		verr = fieldError(verr, op, "amount", "amount must be greater than 0")
	}
	return verr
}

func validRange(op string, from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return domain.NewValidationError(op, "to", "end of range is before its start")
	}
	return nil
}

func (s *expenseService) CreateExpense(ctx context.Context, params domain.ExpenseParams) (*repository.Expense, error) {
	const op = "expense.create"
	if err := validateExpense(op, &params); err != nil {
		return nil, err
	}

	e, err := s.repo.CreateExpense(ctx, repository.CreateExpenseParams{
		Date:        params.Date,
		Category:    params.Category,
		Vendor:      params.Vendor,
		Description: params.Description,
		Amount:      params.Amount,
		JobID:       params.JobID,
	})
	if err != nil {
		if repository.IsForeignKeyViolation(err) && params.JobID != nil {
			return nil, domain.NotFound(op, "job", params.JobID.String())
		}
		return nil, domain.Persistence(err, op, "failed to save expense")
	}
	return &e, nil
}

func (s *expenseService) GetExpense(ctx context.Context, id uuid.UUID) (*repository.Expense, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "expense.get", "expense", id)
	}
	return &e, nil
}

func (s *expenseService) ListExpenses(ctx context.Context, params domain.ListExpensesParams) ([]repository.Expense, error) {
	const op = "expense.list"
	if err := validRange(op, params.From, params.To); err != nil {
		return nil, err
	}
	items, err := s.repo.ListExpenses(ctx, repository.ListExpensesParams{
		From:     params.From,
		To:       params.To,
		Category: params.Category,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list expenses")
	}
	return items, nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, id uuid.UUID, params domain.ExpenseParams) (*repository.Expense, error) {
	const op = "expense.update"
	if err := validateExpense(op, &params); err != nil {
		return nil, err
	}

	e, err := s.repo.UpdateExpense(ctx, repository.UpdateExpenseParams{
		ID:          id,
		Date:        params.Date,
		Category:    params.Category,
		Vendor:      params.Vendor,
		Description: params.Description,
		Amount:      params.Amount,
		JobID:       params.JobID,
	})
	if err != nil {
		if repository.IsForeignKeyViolation(err) && params.JobID != nil {
			return nil, domain.NotFound(op, "job", params.JobID.String())
		}
		return nil, notFoundOr(err, op, "expense", id)
	}
	return &e, nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	const op = "expense.delete"
	n, err := s.repo.DeleteExpense(ctx, id)
	if err != nil {
		return domain.Persistence(err, op, "failed to delete expense")
	}
	if n == 0 {
		return domain.NotFound(op, "expense", id.String())
	}
	return nil
}

func (s *expenseService) ExpenseSummary(ctx context.Context, from, to *time.Time) (*domain.ExpenseSummary, error) {
	const op = "expense.summary"
	if err := validRange(op, from, to); err != nil {
		return nil, err
	}

	categories, err := s.repo.SummarizeExpenses(ctx, repository.SummarizeExpensesParams{From: from, To: to})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to summarize expenses")
	}
	if categories == nil {
		categories = []repository.ExpenseCategoryTotal{}
	}

	total := decimal.Zero
	for _, c := range categories {
		total = total.Add(c.Total)
	}
	return &domain.ExpenseSummary{Categories: categories, Total: total}, nil
}
