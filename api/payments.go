package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns payment rows. Filters: month, tenant_id, paid.
// Tenants only see their own payments.
// GET /api/payments?month=YYYY-MM
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	ctx := r.Context()
	q := r.URL.Query()

	var filter billing.PaymentFilter
	if raw := q.Get("month"); raw != "" {
		month, err := billing.ParseMonth(raw)
		if err != nil {
			writeFailure(w, "Invalid month", err)
			return
		}
		filter.Month = &month
	}
	if raw := q.Get("paid"); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			writeFailure(w, "Invalid paid filter", billing.Invalid("paid", "must be true or false"))
			return
		}
		filter.Paid = &paid
	}
	filter.TenantID = billing.TenantID(q.Get("tenant_id"))

	payments, err := h.Store.ListPayments(ctx, scope.BuildingID, filter)
	if err != nil {
		writeFailure(w, "Failed to list payments", err)
		return
	}

	own, err := h.ownTenants(ctx, scope)
	if err != nil {
		writeFailure(w, "Failed to list tenants", err)
		return
	}
	if own != nil {
		kept := payments[:0]
		for _, p := range payments {
			if own[p.TenantID] {
				kept = append(kept, p)
			}
		}
		payments = kept
	}

	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// MaterializePayments creates the month's missing payment rows. An empty
// body means the current month.
// POST /api/payments/materialize
func (h *Handler) MaterializePayments(w http.ResponseWriter, r *http.Request) {
	var req MaterializeRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	month := billing.MonthOf(h.Now())
	if req.Month != "" {
		var err error
		month, err = billing.ParseMonth(req.Month)
		if err != nil {
			writeFailure(w, "Invalid month", err)
			return
		}
	}

	report, err := h.Materializer.Materialize(r.Context(), scopeOf(r), month)
	if err != nil {
		writeFailure(w, "Failed to create monthly payments", err)
		return
	}

	skipped := report.Skipped
	if skipped == nil {
		skipped = []billing.TenantRef{}
	}
	writeJSON(w, http.StatusOK, MaterializeResponse{
		Month:          report.Month.String(),
		Created:        report.Created,
		AlreadyExisted: report.AlreadyExisted,
		SkippedNoFee:   report.SkippedNoFee,
		Skipped:        skipped,
		Message:        report.Summary(),
	})
}

// MarkPaymentPaid marks a payment as paid now.
// POST /api/payments/{id}/paid
func (h *Handler) MarkPaymentPaid(w http.ResponseWriter, r *http.Request) {
	h.setPaymentPaid(w, r, true)
}

// MarkPaymentUnpaid clears the paid flag and date.
// POST /api/payments/{id}/unpaid
func (h *Handler) MarkPaymentUnpaid(w http.ResponseWriter, r *http.Request) {
	h.setPaymentPaid(w, r, false)
}

func (h *Handler) setPaymentPaid(w http.ResponseWriter, r *http.Request, paid bool) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to update payments", err)
		return
	}
	ctx := r.Context()

	p, err := h.Store.GetPayment(ctx, scope.BuildingID, billing.PaymentID(chi.URLParam(r, "id")))
	if err != nil {
		writeFailure(w, "Failed to get payment", err)
		return
	}

	p.Paid = paid
	p.PaidAt = nil
	if paid {
		now := h.Now()
		p.PaidAt = &now
	}

	if err := h.Store.UpdatePayment(ctx, *p); err != nil {
		writeFailure(w, "Failed to update payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// UpdatePayment corrects a payment's amount or method by hand. Materialized
// rows are never rewritten automatically.
// PUT /api/payments/{id}
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to update payments", err)
		return
	}
	ctx := r.Context()

	var req PaymentUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Amount.IsNegative() {
		writeFailure(w, "Invalid payment", billing.Invalid("amount", "must not be negative"))
		return
	}
	method := billing.PaymentMethod(req.PaymentMethod)
	if method != "" && !method.Valid() {
		writeFailure(w, "Invalid payment", billing.Invalid("payment_method", "must be cash or standing_order"))
		return
	}

	p, err := h.Store.GetPayment(ctx, scope.BuildingID, billing.PaymentID(chi.URLParam(r, "id")))
	if err != nil {
		writeFailure(w, "Failed to get payment", err)
		return
	}
	p.Amount = req.Amount
	if method != "" {
		p.PaymentMethod = method
	}

	if err := h.Store.UpdatePayment(ctx, *p); err != nil {
		writeFailure(w, "Failed to update payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// ownTenants returns the tenant rows linked to a tenant-role user. It
// returns nil for roles that read the whole building.
func (h *Handler) ownTenants(ctx context.Context, scope billing.BuildingScope) (map[billing.TenantID]bool, error) {
	if scope.CanWrite() {
		return nil, nil
	}
	tenants, err := h.Store.ListTenants(ctx, scope.BuildingID)
	if err != nil {
		return nil, err
	}
	own := make(map[billing.TenantID]bool)
	for _, t := range tenants {
		if ownsRow(scope, t) {
			own[t.ID] = true
		}
	}
	return own, nil
}
