package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/invite"
)

// =============================================================================
// INVITE HANDLERS
// =============================================================================

// ListInvites returns the building's invites without their codes.
// GET /api/invites
func (h *Handler) ListInvites(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := scope.RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to list invites", err)
		return
	}

	invites, err := h.Store.ListInvites(r.Context(), scope.BuildingID)
	if err != nil {
		writeFailure(w, "Failed to list invites", err)
		return
	}
	dtos := make([]InviteDTO, len(invites))
	for i, inv := range invites {
		dtos[i] = toInviteDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateInvite issues an invite link. The code is only returned here.
// POST /api/invites
func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	var req CreateInviteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Invites.Create(r.Context(), scopeOf(r), invite.CreateRequest{
		TenantID: billing.TenantID(req.TenantID),
		Role:     billing.Role(req.Role),
	})
	if err != nil {
		writeFailure(w, "Failed to create invite", err)
		return
	}

	dto := toInviteDTO(created.Invite)
	dto.Code = created.Code
	dto.Link = invite.Link(h.baseURL(r), created.Invite.ID, created.Code)
	writeJSON(w, http.StatusCreated, dto)
}

// RedeemInvite attaches the caller's user to the invite's building. Public
// and rate limited; the code is the only credential.
// POST /api/invites/{id}/redeem
func (h *Handler) RedeemInvite(w http.ResponseWriter, r *http.Request) {
	var req RedeemInviteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	redemption, err := h.Invites.Redeem(r.Context(), billing.InviteID(chi.URLParam(r, "id")), invite.RedeemRequest{
		Code:     req.Code,
		UserID:   billing.UserID(req.UserID),
		FullName: req.FullName,
	})
	if err != nil {
		writeFailure(w, "Failed to redeem invite", err)
		return
	}

	building, err := h.Store.GetBuilding(r.Context(), redemption.Scope.BuildingID)
	if err != nil {
		writeFailure(w, "Failed to get building", err)
		return
	}
	writeJSON(w, http.StatusOK, RedeemInviteResponse{
		BuildingID: string(redemption.Scope.BuildingID),
		Role:       string(redemption.Scope.Role),
		Tenant:     toTenantDTO(redemption.Tenant, building),
	})
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.PublicURL != "" {
		return h.PublicURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
