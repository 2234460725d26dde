package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// =============================================================================
// TENANT HANDLERS
// =============================================================================

// ListTenants returns the building's tenants. Tenants only see their own row.
// GET /api/tenants
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	ctx := r.Context()

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

	dtos := make([]TenantDTO, 0, len(tenants))
	for _, t := range tenants {
		if ownsRow(scope, t) {
			dtos = append(dtos, toTenantDTO(t, building))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTenant adds a tenant to the caller's building.
// POST /api/tenants
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to add tenants", err)
		return
	}

	var req TenantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	building, err := h.Store.GetBuilding(r.Context(), scope.BuildingID)
	if err != nil {
		writeFailure(w, "Failed to get building", err)
		return
	}

	t := billing.Tenant{
		ID:         billing.TenantID(billing.NewID()),
		BuildingID: scope.BuildingID,
		CreatedAt:  h.Now(),
	}
	if err := applyTenant(&t, req); err != nil {
		writeFailure(w, "Invalid tenant", err)
		return
	}

	if err := h.Store.SaveTenant(r.Context(), t); err != nil {
		writeFailure(w, "Failed to create tenant", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenantDTO(t, building))
}

// GetTenant returns one tenant with its effective fee.
// GET /api/tenants/{id}
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	ctx := r.Context()

	t, err := h.Store.GetTenant(ctx, scope.BuildingID, billing.TenantID(chi.URLParam(r, "id")))
	if err != nil {
		writeFailure(w, "Failed to get tenant", err)
		return
	}
	if !ownsRow(scope, *t) {
		writeFailure(w, "Failed to get tenant", billing.ErrNotFound)
		return
	}

	building, err := h.Store.GetBuilding(ctx, scope.BuildingID)
	if err != nil {
		writeFailure(w, "Failed to get building", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(*t, building))
}

// UpdateTenant replaces the tenant's editable fields.
// PUT /api/tenants/{id}
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to edit tenants", err)
		return
	}
	ctx := r.Context()

	t, err := h.Store.GetTenant(ctx, scope.BuildingID, billing.TenantID(chi.URLParam(r, "id")))
	if err != nil {
		writeFailure(w, "Failed to get tenant", err)
		return
	}

	var req TenantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := applyTenant(t, req); err != nil {
		writeFailure(w, "Invalid tenant", err)
		return
	}

	building, err := h.Store.GetBuilding(ctx, scope.BuildingID)
	if err != nil {
		writeFailure(w, "Failed to get building", err)
		return
	}
	if err := h.Store.SaveTenant(ctx, *t); err != nil {
		writeFailure(w, "Failed to update tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(*t, building))
}

// DeleteTenant removes a tenant. Existing payments are kept.
// DELETE /api/tenants/{id}
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to delete tenants", err)
		return
	}

	if err := h.Store.DeleteTenant(r.Context(), scope.BuildingID, billing.TenantID(chi.URLParam(r, "id"))); err != nil {
		writeFailure(w, "Failed to delete tenant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownsRow reports whether the scope may read the tenant's rows. Committee
// members and admins read all rows of the building.
func ownsRow(scope billing.BuildingScope, t billing.Tenant) bool {
	return scope.CanWrite() || (t.UserID != "" && t.UserID == scope.UserID)
}

func applyTenant(t *billing.Tenant, req TenantRequest) error {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return billing.Invalid("full_name", "required")
	}

	method := billing.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = billing.MethodCash
	}
	if !method.Valid() {
		return billing.Invalid("payment_method", "must be cash or standing_order")
	}
	if req.MonthlyFee != nil && req.MonthlyFee.IsNegative() {
		return billing.Invalid("monthly_fee", "must not be negative")
	}
	if req.PaymentDay < 0 || req.PaymentDay > 31 {
		return billing.Invalid("payment_day", "must be between 1 and 31")
	}

	t.FullName = name
	t.Apartment = strings.TrimSpace(req.Apartment)
	t.Floor = strings.TrimSpace(req.Floor)
	t.Phone = strings.TrimSpace(req.Phone)
	// Omitted keeps the account link; an empty string removes it.
	if req.UserID != nil {
		t.UserID = billing.UserID(strings.TrimSpace(*req.UserID))
	}
	t.PaymentMethod = method
	t.StandingOrderActive = method == billing.MethodStandingOrder && req.StandingOrderActive
	t.PaymentDay = req.PaymentDay
	t.MonthlyFee = decimal.NullDecimal{}
	if req.MonthlyFee != nil {
		t.MonthlyFee = decimal.NewNullDecimal(*req.MonthlyFee)
	}
	return nil
}
