package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// =============================================================================
// EXTRA CHARGE HANDLERS
// =============================================================================

// ListCharges returns extra charges, optionally for one tenant.
// GET /api/extra-charges?tenant_id=
func (h *Handler) ListCharges(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	ctx := r.Context()

	charges, err := h.Store.ListCharges(ctx, scope.BuildingID, billing.TenantID(r.URL.Query().Get("tenant_id")))
	if err != nil {
		writeFailure(w, "Failed to list extra charges", err)
		return
	}
	own, err := h.ownTenants(ctx, scope)
	if err != nil {
		writeFailure(w, "Failed to list tenants", err)
		return
	}

	dtos := make([]ChargeDTO, 0, len(charges))
	for _, c := range charges {
		if own == nil || own[c.TenantID] {
			dtos = append(dtos, toChargeDTO(c))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCharge bills a tenant outside the monthly cycle.
// POST /api/extra-charges
func (h *Handler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to add extra charges", err)
		return
	}
	ctx := r.Context()

	var req ChargeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !req.Amount.IsPositive() {
		writeFailure(w, "Invalid extra charge", billing.Invalid("amount", "must be positive"))
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		writeFailure(w, "Invalid extra charge", billing.Invalid("reason", "required"))
		return
	}
	if req.TenantID == "" {
		writeFailure(w, "Invalid extra charge", billing.Invalid("tenant_id", "required"))
		return
	}

	now := h.Now()
	date := now
	if req.Date != "" {
		var err error
		if date, err = parseDate("date", req.Date); err != nil {
			writeFailure(w, "Invalid extra charge", err)
			return
		}
	}

	if _, err := h.Store.GetTenant(ctx, scope.BuildingID, billing.TenantID(req.TenantID)); err != nil {
		writeFailure(w, "Failed to get tenant", err)
		return
	}

	c := billing.ExtraCharge{
		ID:         billing.ChargeID(billing.NewID()),
		BuildingID: scope.BuildingID,
		TenantID:   billing.TenantID(req.TenantID),
		Amount:     req.Amount,
		Reason:     reason,
		Date:       date,
		CreatedAt:  now,
	}
	if err := h.Store.SaveCharge(ctx, c); err != nil {
		writeFailure(w, "Failed to create extra charge", err)
		return
	}
	writeJSON(w, http.StatusCreated, toChargeDTO(c))
}

// MarkChargePaid marks an extra charge as paid now.
// POST /api/extra-charges/{id}/paid
func (h *Handler) MarkChargePaid(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to update extra charges", err)
		return
	}
	ctx := r.Context()

	c, err := h.Store.GetCharge(ctx, scope.BuildingID, billing.ChargeID(chi.URLParam(r, "id")))
	if err != nil {
		writeFailure(w, "Failed to get extra charge", err)
		return
	}
	now := h.Now()
	c.Paid = true
	c.PaidAt = &now

	if err := h.Store.SaveCharge(ctx, *c); err != nil {
		writeFailure(w, "Failed to update extra charge", err)
		return
	}
	writeJSON(w, http.StatusOK, toChargeDTO(*c))
}

// DeleteCharge removes an extra charge.
// DELETE /api/extra-charges/{id}
func (h *Handler) DeleteCharge(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to delete extra charges", err)
		return
	}

	if err := h.Store.DeleteCharge(r.Context(), scope.BuildingID, billing.ChargeID(chi.URLParam(r, "id"))); err != nil {
		writeFailure(w, "Failed to delete extra charge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
