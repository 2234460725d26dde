/*
handlers.go - HTTP API handlers for the building committee service

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the billing, export and invite
  packages.

ENDPOINTS:
  Buildings:     buildings.go
  Tenants:       tenants.go
  Expenses:      expenses.go
  Payments:      payments.go (including monthly materialization)
  Extra charges: charges.go
  Reports:       reports.go (monthly summary, CSV exports, print pages)
  Invites:       invites.go
  Scenarios:     scenarios.go (dev only)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (sqlite, gorm or memory)
  - Materializer: Monthly payment rows
  - Invites: Invite issuing and redemption

REQUEST FLOW:
  1. Authenticate middleware puts the BuildingScope in the context
  2. Parse and validate input
  3. Call domain logic with the scope
  4. Serialize response
  5. Map errors to status codes (statusFor)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing or invalid token
  - 403: Role may not perform the action
  - 404: Resource not found in the caller's building
  - 409: Conflict (duplicate payment, used invite)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Authentication and rate limiting
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Yairkad/vaad-bayit-sub000/auth"
	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/invite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        billing.Store
	Materializer *billing.Materializer
	Invites      *invite.Service

	// PublicURL prefixes invite links. Empty means the request host.
	PublicURL string
	// DevSecret, when set, signs a committee token for loaded scenarios.
	DevSecret string

	Now func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store billing.Store, invites *invite.Service) *Handler {
	return &Handler{
		Store:        store,
		Materializer: billing.NewMaterializer(store),
		Invites:      invites,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// scopeOf returns the scope set by Authenticate.
func scopeOf(r *http.Request) billing.BuildingScope {
	scope, _ := auth.ScopeFrom(r.Context())
	return scope
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func (h *Handler) monthParam(r *http.Request) (billing.Month, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return billing.MonthOf(h.Now()), nil
	}
	return billing.ParseMonth(raw)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return billing.Invalid("body", err.Error())
	}
	return nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, billing.Invalid(field, "use YYYY-MM-DD")
	}
	return t, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message, Code: codeFor(status)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeFailure picks the status from the error.
func writeFailure(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, billing.ErrForbidden):
		return http.StatusForbidden
	case billing.IsNotFound(err):
		return http.StatusNotFound
	case billing.IsConflict(err):
		return http.StatusConflict
	case billing.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "internal"
	}
}

// writeDocument sends a rendered export with its content type.
func writeDocument(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
