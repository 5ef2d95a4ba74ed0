package api

import (
	"net/http"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/handler"
)

// ExpenseHandler serves /api/expenses.
type ExpenseHandler struct {
	expenses domain.ExpenseService
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(expenses domain.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// List handles GET /api/expenses with optional ?from=, ?to= and ?category=,
// or ?id= for a single expense.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok, err := handler.OptionalID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if ok {
		expense, err := h.expenses.GetExpense(r.Context(), id)
		if err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		handler.Success(w, expense)
		return
	}

	params := domain.ListExpensesParams{Category: queryString(r, "category")}
	if params.From, err = queryDate(r, "from"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if params.To, err = queryDate(r, "to"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	expenses, err := h.expenses.ListExpenses(r.Context(), params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, expenses)
}

// Summary handles GET /api/expenses/summary?from=&to=.
func (h *ExpenseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	summary, err := h.expenses.ExpenseSummary(r.Context(), from, to)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, summary)
}

// Create handles POST /api/expenses.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("expense.create", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	expense, err := h.expenses.CreateExpense(r.Context(), req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Created(w, expense)
}

// Update handles PUT /api/expenses?id= and PUT /api/expenses/{id}.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req ExpenseRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("expense.update", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	expense, err := h.expenses.UpdateExpense(r.Context(), id, req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, expense)
}

// Delete handles DELETE /api/expenses?id= and DELETE /api/expenses/{id}.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.expenses.DeleteExpense(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, map[string]string{"id": id.String()})
}
