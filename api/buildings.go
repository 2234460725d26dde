package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// =============================================================================
// BUILDING HANDLERS
// =============================================================================

// ListBuildings returns every building for admins and the caller's own
// building otherwise.
// GET /api/buildings
func (h *Handler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)

	var buildings []billing.Building
	if scope.Role == billing.RoleAdmin {
		all, err := h.Store.ListBuildings(r.Context())
		if err != nil {
			writeFailure(w, "Failed to list buildings", err)
			return
		}
		buildings = all
	} else {
		b, err := h.Store.GetBuilding(r.Context(), scope.BuildingID)
		if err != nil {
			writeFailure(w, "Failed to get building", err)
			return
		}
		buildings = []billing.Building{*b}
	}

	dtos := make([]BuildingDTO, len(buildings))
	for i, b := range buildings {
		dtos[i] = toBuildingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBuilding adds a building. Admin only.
// POST /api/buildings
func (h *Handler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	if scopeOf(r).Role != billing.RoleAdmin {
		writeFailure(w, "Only admins can create buildings", billing.ErrForbidden)
		return
	}

	var req BuildingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b := billing.Building{ID: billing.BuildingID(billing.NewID()), CreatedAt: h.Now()}
	if err := applyBuilding(&b, req); err != nil {
		writeFailure(w, "Invalid building", err)
		return
	}

	if err := h.Store.SaveBuilding(r.Context(), b); err != nil {
		writeFailure(w, "Failed to create building", err)
		return
	}
	log.Printf("[API] building %s created", b.ID)
	writeJSON(w, http.StatusCreated, toBuildingDTO(b))
}

// GetBuilding returns a building the caller belongs to.
// GET /api/buildings/{id}
func (h *Handler) GetBuilding(w http.ResponseWriter, r *http.Request) {
	b, err := h.visibleBuilding(r)
	if err != nil {
		writeFailure(w, "Failed to get building", err)
		return
	}
	writeJSON(w, http.StatusOK, toBuildingDTO(*b))
}

// UpdateBuilding edits the building's settings (name, default fee, logo...).
// PUT /api/buildings/{id}
func (h *Handler) UpdateBuilding(w http.ResponseWriter, r *http.Request) {
	if err := scopeOf(r).RequireWrite(); err != nil {
		writeFailure(w, "Not allowed to edit the building", err)
		return
	}
	b, err := h.visibleBuilding(r)
	if err != nil {
		writeFailure(w, "Failed to get building", err)
		return
	}

	var req BuildingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := applyBuilding(b, req); err != nil {
		writeFailure(w, "Invalid building", err)
		return
	}

	if err := h.Store.SaveBuilding(r.Context(), *b); err != nil {
		writeFailure(w, "Failed to update building", err)
		return
	}
	writeJSON(w, http.StatusOK, toBuildingDTO(*b))
}

// visibleBuilding loads {id} if the scope may see it. Other buildings are
// reported as not found.
func (h *Handler) visibleBuilding(r *http.Request) (*billing.Building, error) {
	scope := scopeOf(r)
	id := billing.BuildingID(chi.URLParam(r, "id"))
	if scope.Role != billing.RoleAdmin && id != scope.BuildingID {
		return nil, billing.ErrNotFound
	}
	return h.Store.GetBuilding(r.Context(), id)
}

func applyBuilding(b *billing.Building, req BuildingRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return billing.Invalid("name", "required")
	}
	if req.DefaultFee != nil && req.DefaultFee.IsNegative() {
		return billing.Invalid("default_fee", "must not be negative")
	}
	for i, lot := range req.ParkingLots {
		if strings.TrimSpace(lot.Name) == "" {
			return billing.Invalid("parking_lots", "lot "+strconv.Itoa(i+1)+" has no name")
		}
	}

	b.Name = name
	b.Address = strings.TrimSpace(req.Address)
	b.LogoURL = strings.TrimSpace(req.LogoURL)
	b.OpeningBalance = req.OpeningBalance
	b.ParkingLots = req.ParkingLots
	b.DefaultFee = decimal.NullDecimal{}
	if req.DefaultFee != nil {
		b.DefaultFee = decimal.NewNullDecimal(*req.DefaultFee)
	}
	return nil
}
