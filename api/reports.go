package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/export"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	htmlContentType = "text/html; charset=utf-8"
)

// =============================================================================
// MONTHLY REPORT
// =============================================================================

// MonthlyReport returns income, outstanding fees, due expenses and the cash
// balance at the end of the month.
// GET /api/reports/monthly?month=YYYY-MM
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	ctx := r.Context()

	month, err := h.monthParam(r)
	if err != nil {
		writeFailure(w, "Invalid month", err)
		return
	}

	building, err := h.Store.GetBuilding(ctx, scope.BuildingID)
	if err != nil {
		writeFailure(w, "Failed to get building", err)
		return
	}
	payments, err := h.Store.ListPayments(ctx, scope.BuildingID, billing.PaymentFilter{Through: &month})
	if err != nil {
		writeFailure(w, "Failed to list payments", err)
		return
	}
	charges, err := h.Store.ListCharges(ctx, scope.BuildingID, "")
	if err != nil {
		writeFailure(w, "Failed to list extra charges", err)
		return
	}
	expenses, err := h.Store.ListExpenses(ctx, scope.BuildingID)
	if err != nil {
		writeFailure(w, "Failed to list expenses", err)
		return
	}

	summary := billing.Summarize(*building, month, payments, charges, expenses)
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// =============================================================================
// CSV EXPORTS
// =============================================================================

// ExportPaymentsCSV downloads the month's payments.
// GET /api/exports/payments.csv?month=YYYY-MM
func (h *Handler) ExportPaymentsCSV(w http.ResponseWriter, r *http.Request) {
	month, _, rows, err := h.monthPayments(r)
	if err != nil {
		writeFailure(w, "Failed to export payments", err)
		return
	}

	var buf bytes.Buffer
	if err := export.PaymentsCSV(&buf, rows); err != nil {
		writeFailure(w, "Failed to export payments", err)
		return
	}
	writeDocument(w, csvContentType, fmt.Sprintf("payments-%s.csv", month), buf.Bytes())
}

// ExportExpensesCSV downloads the month's due expenses.
// GET /api/exports/expenses.csv?month=YYYY-MM
func (h *Handler) ExportExpensesCSV(w http.ResponseWriter, r *http.Request) {
	month, _, rows, err := h.monthExpenses(r)
	if err != nil {
		writeFailure(w, "Failed to export expenses", err)
		return
	}

	var buf bytes.Buffer
	if err := export.ExpensesCSV(&buf, rows); err != nil {
		writeFailure(w, "Failed to export expenses", err)
		return
	}
	writeDocument(w, csvContentType, fmt.Sprintf("expenses-%s.csv", month), buf.Bytes())
}

// =============================================================================
// PRINT PAGES
// =============================================================================

// PrintPayments renders the month's payment list for printing.
// GET /api/print/payments?month=YYYY-MM
func (h *Handler) PrintPayments(w http.ResponseWriter, r *http.Request) {
	month, building, rows, err := h.monthPayments(r)
	if err != nil {
		writeFailure(w, "Failed to print payments", err)
		return
	}

	var buf bytes.Buffer
	if err := export.PaymentsPrintHTML(&buf, export.HeaderOf(*building), month, rows); err != nil {
		writeFailure(w, "Failed to print payments", err)
		return
	}
	writeDocument(w, htmlContentType, "", buf.Bytes())
}

// PrintExpenses renders the month's expense list for printing.
// GET /api/print/expenses?month=YYYY-MM
func (h *Handler) PrintExpenses(w http.ResponseWriter, r *http.Request) {
	month, building, rows, err := h.monthExpenses(r)
	if err != nil {
		writeFailure(w, "Failed to print expenses", err)
		return
	}

	var buf bytes.Buffer
	if err := export.ExpensesPrintHTML(&buf, export.HeaderOf(*building), month, rows); err != nil {
		writeFailure(w, "Failed to print expenses", err)
		return
	}
	writeDocument(w, htmlContentType, "", buf.Bytes())
}

// PrintReceipt renders a receipt for one payment. Tenants can print their own.
// GET /api/print/receipts/{paymentID}
func (h *Handler) PrintReceipt(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	ctx := r.Context()

	p, err := h.Store.GetPayment(ctx, scope.BuildingID, billing.PaymentID(chi.URLParam(r, "paymentID")))
	if err != nil {
		writeFailure(w, "Failed to get payment", err)
		return
	}
	own, err := h.ownTenants(ctx, scope)
	if err != nil {
		writeFailure(w, "Failed to list tenants", err)
		return
	}
	if own != nil && !own[p.TenantID] {
		writeFailure(w, "Failed to get payment", billing.ErrNotFound)
		return
	}
	if !p.Paid {
		writeFailure(w, "Payment is not paid", billing.Invalid("payment", "no receipt for an unpaid payment"))
		return
	}

	building, err := h.Store.GetBuilding(ctx, scope.BuildingID)
	if err != nil {
		writeFailure(w, "Failed to get building", err)
		return
	}
	tenants, err := h.Store.ListTenants(ctx, scope.BuildingID)
	if err != nil {
		writeFailure(w, "Failed to list tenants", err)
		return
	}

	rows := export.PaymentRows([]billing.Payment{*p}, tenants)
	var buf bytes.Buffer
	if err := export.ReceiptHTML(&buf, export.HeaderOf(*building), export.Receipt{Payment: rows[0], Issued: h.Now()}); err != nil {
		writeFailure(w, "Failed to print receipt", err)
		return
	}
	writeDocument(w, htmlContentType, "", buf.Bytes())
}

// PrintNotice renders what a tenant still owes through the month.
// GET /api/print/notices/{tenantID}?month=YYYY-MM
func (h *Handler) PrintNotice(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	ctx := r.Context()

	month, err := h.monthParam(r)
	if err != nil {
		writeFailure(w, "Invalid month", err)
		return
	}

	tenant, err := h.Store.GetTenant(ctx, scope.BuildingID, billing.TenantID(chi.URLParam(r, "tenantID")))
	if err != nil {
		writeFailure(w, "Failed to get tenant", err)
		return
	}
	if !ownsRow(scope, *tenant) {
		writeFailure(w, "Failed to get tenant", billing.ErrNotFound)
		return
	}

	building, err := h.Store.GetBuilding(ctx, scope.BuildingID)
	if err != nil {
		writeFailure(w, "Failed to get building", err)
		return
	}
	unpaid := false
	payments, err := h.Store.ListPayments(ctx, scope.BuildingID, billing.PaymentFilter{TenantID: tenant.ID, Through: &month, Paid: &unpaid})
	if err != nil {
		writeFailure(w, "Failed to list payments", err)
		return
	}
	charges, err := h.Store.ListCharges(ctx, scope.BuildingID, tenant.ID)
	if err != nil {
		writeFailure(w, "Failed to list extra charges", err)
		return
	}

	notice := export.NewNotice(*tenant, month, payments, charges, h.Now())
	var buf bytes.Buffer
	if err := export.NoticeHTML(&buf, export.HeaderOf(*building), notice); err != nil {
		writeFailure(w, "Failed to print notice", err)
		return
	}
	writeDocument(w, htmlContentType, "", buf.Bytes())
}

// =============================================================================
// HELPERS
// =============================================================================

// monthPayments loads the rows of the payment list. Committee only.
func (h *Handler) monthPayments(r *http.Request) (billing.Month, *billing.Building, []export.PaymentRow, error) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		return billing.Month{}, nil, nil, err
	}
	month, err := h.monthParam(r)
	if err != nil {
		return billing.Month{}, nil, nil, err
	}

	ctx := r.Context()
	building, err := h.Store.GetBuilding(ctx, scope.BuildingID)
	if err != nil {
		return billing.Month{}, nil, nil, err
	}
	payments, err := h.Store.ListPayments(ctx, scope.BuildingID, billing.PaymentFilter{Month: &month})
	if err != nil {
		return billing.Month{}, nil, nil, err
	}
	tenants, err := h.Store.ListTenants(ctx, scope.BuildingID)
	if err != nil {
		return billing.Month{}, nil, nil, err
	}
	return month, building, export.PaymentRows(payments, tenants), nil
}

// monthExpenses loads the rows of the expense list.
func (h *Handler) monthExpenses(r *http.Request) (billing.Month, *billing.Building, []export.ExpenseRow, error) {
	scope := scopeOf(r)
	month, err := h.monthParam(r)
	if err != nil {
		return billing.Month{}, nil, nil, err
	}

	building, expenses, err := h.buildingExpenses(r.Context(), scope.BuildingID)
	if err != nil {
		return billing.Month{}, nil, nil, err
	}
	return month, building, export.ExpenseRows(billing.DueExpenses(expenses, month)), nil
}

func (h *Handler) buildingExpenses(ctx context.Context, id billing.BuildingID) (*billing.Building, []billing.Expense, error) {
	building, err := h.Store.GetBuilding(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	expenses, err := h.Store.ListExpenses(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return building, expenses, nil
}
