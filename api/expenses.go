package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns all stored expenses of the building.
// GET /api/expenses
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Store.ListExpenses(r.Context(), scopeOf(r).BuildingID)
	if err != nil {
		writeFailure(w, "Failed to list expenses", err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DueExpenses returns the expenses that appear in a month, recurring ones
// included, with their display amounts.
// GET /api/expenses/due?month=YYYY-MM
func (h *Handler) DueExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := h.monthParam(r)
	if err != nil {
		writeFailure(w, "Invalid month", err)
		return
	}

	expenses, err := h.Store.ListExpenses(r.Context(), scopeOf(r).BuildingID)
	if err != nil {
		writeFailure(w, "Failed to list expenses", err)
		return
	}

	due := billing.DueExpenses(expenses, month)
	dtos := make([]DueExpenseDTO, len(due))
	for i, d := range due {
		dtos[i] = toDueExpenseDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpense records an expense.
// POST /api/expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to add expenses", err)
		return
	}

	var req ExpenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	e := billing.Expense{
		ID:         billing.ExpenseID(billing.NewID()),
		BuildingID: scope.BuildingID,
		CreatedAt:  h.Now(),
	}
	if err := applyExpense(&e, req); err != nil {
		writeFailure(w, "Invalid expense", err)
		return
	}

	if err := h.Store.SaveExpense(r.Context(), e); err != nil {
		writeFailure(w, "Failed to create expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

// GetExpense returns one stored expense.
// GET /api/expenses/{id}
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.Store.GetExpense(r.Context(), scopeOf(r).BuildingID, billing.ExpenseID(chi.URLParam(r, "id")))
	if err != nil {
		writeFailure(w, "Failed to get expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(*e))
}

// UpdateExpense replaces an expense. Deactivating a recurring expense stops
// it from appearing in any month.
// PUT /api/expenses/{id}
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to edit expenses", err)
		return
	}
	ctx := r.Context()

	e, err := h.Store.GetExpense(ctx, scope.BuildingID, billing.ExpenseID(chi.URLParam(r, "id")))
	if err != nil {
		writeFailure(w, "Failed to get expense", err)
		return
	}

	var req ExpenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := applyExpense(e, req); err != nil {
		writeFailure(w, "Invalid expense", err)
		return
	}

	if err := h.Store.SaveExpense(ctx, *e); err != nil {
		writeFailure(w, "Failed to update expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(*e))
}

// DeleteExpense removes an expense.
// DELETE /api/expenses/{id}
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to delete expenses", err)
		return
	}

	if err := h.Store.DeleteExpense(r.Context(), scope.BuildingID, billing.ExpenseID(chi.URLParam(r, "id"))); err != nil {
		writeFailure(w, "Failed to delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func applyExpense(e *billing.Expense, req ExpenseRequest) error {
	if !req.Amount.IsPositive() {
		return billing.Invalid("amount", "must be positive")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return billing.Invalid("category", "required")
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return err
	}
	recurrence := billing.Recurrence(req.Recurrence)
	if recurrence == "" {
		recurrence = billing.RecurrenceOneTime
	}
	if !recurrence.Valid() {
		return billing.Invalid("recurrence", "must be one_time, monthly or bi_monthly")
	}
	if req.SharedBuildings < 0 {
		return billing.Invalid("shared_buildings", "must not be negative")
	}

	if req.OriginalAmount != nil && !req.OriginalAmount.IsPositive() {
		return billing.Invalid("original_amount", "must be positive")
	}

	// A shared expense is split from its original amount. An update that
	// sends back the stored share keeps the stored original.
	original := req.Amount
	if req.OriginalAmount != nil {
		original = *req.OriginalAmount
	} else if e.OriginalAmount.Valid && req.Amount.Equal(e.Amount) {
		original = e.OriginalAmount.Decimal
	}

	e.Category = category
	e.Description = strings.TrimSpace(req.Description)
	e.Date = date
	e.Recurrence = recurrence
	e.Active = req.Active == nil || *req.Active
	e.ReceiptURL = strings.TrimSpace(req.ReceiptURL)
	e.SharedBuildings = req.SharedBuildings
	e.OriginalAmount = decimal.NullDecimal{}
	e.Amount = req.Amount
	if req.SharedBuildings > 1 {
		e.OriginalAmount = decimal.NewNullDecimal(original)
		e.Amount = billing.SplitShared(original, req.SharedBuildings)
	}
	return nil
}
