/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:       Request logging
  2. Recoverer:    Panic recovery (500 instead of crash)
  3. RequestID:    Unique ID per request for tracing
  4. CORS:         Cross-origin requests for the frontend
  5. Authenticate: Bearer JWT -> BuildingScope (all building routes)

ROUTE GROUPS:
  /api/buildings/*      Buildings (admins create, committee edits own)
  /api/tenants/*        Tenants
  /api/expenses/*       Expenses and the month's due list
  /api/payments/*       Monthly payments and materialization
  /api/extra-charges/*  Ad-hoc charges
  /api/reports/*        Monthly summary
  /api/exports/*        CSV downloads
  /api/print/*          Printable HTML pages
  /api/invites/*        Invite links (redeem is public, rate limited)
  /api/scenarios/*      Demo scenarios (dev mode only, no auth)

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Authentication and rate limiting
  - cmd/vaad/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	JWTSecret       string
	CORSOrigins     []string
	RedeemPerMinute int
	DevMode         bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	limiter := NewRateLimiter(opts.RedeemPerMinute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Public: the invite code is the credential
		r.With(limiter.Limit).Post("/invites/{id}/redeem", h.RedeemInvite)

		// Scenario routes
		if opts.DevMode {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(opts.JWTSecret))

			// Building routes
			r.Route("/buildings", func(r chi.Router) {
				r.Get("/", h.ListBuildings)
				r.Post("/", h.CreateBuilding)
				r.Get("/{id}", h.GetBuilding)
				r.Put("/{id}", h.UpdateBuilding)
			})

			// Tenant routes
			r.Route("/tenants", func(r chi.Router) {
				r.Get("/", h.ListTenants)
				r.Post("/", h.CreateTenant)
				r.Get("/{id}", h.GetTenant)
				r.Put("/{id}", h.UpdateTenant)
				r.Delete("/{id}", h.DeleteTenant)
			})

			// Expense routes
			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", h.ListExpenses)
				r.Post("/", h.CreateExpense)
				r.Get("/due", h.DueExpenses)
				r.Get("/{id}", h.GetExpense)
				r.Put("/{id}", h.UpdateExpense)
				r.Delete("/{id}", h.DeleteExpense)
			})

			// Payment routes
			r.Route("/payments", func(r chi.Router) {
				r.Get("/", h.ListPayments)
				r.Post("/materialize", h.MaterializePayments)
				r.Put("/{id}", h.UpdatePayment)
				r.Post("/{id}/paid", h.MarkPaymentPaid)
				r.Post("/{id}/unpaid", h.MarkPaymentUnpaid)
			})

			// Extra charge routes
			r.Route("/extra-charges", func(r chi.Router) {
				r.Get("/", h.ListCharges)
				r.Post("/", h.CreateCharge)
				r.Post("/{id}/paid", h.MarkChargePaid)
				r.Delete("/{id}", h.DeleteCharge)
			})

			// Report, export and print routes
			r.Get("/reports/monthly", h.MonthlyReport)
			r.Get("/exports/payments.csv", h.ExportPaymentsCSV)
			r.Get("/exports/expenses.csv", h.ExportExpensesCSV)
			r.Route("/print", func(r chi.Router) {
				r.Get("/payments", h.PrintPayments)
				r.Get("/expenses", h.PrintExpenses)
				r.Get("/receipts/{paymentID}", h.PrintReceipt)
				r.Get("/notices/{tenantID}", h.PrintNotice)
			})

			// Invite routes
			r.Get("/invites", h.ListInvites)
			r.Post("/invites", h.CreateInvite)
		})
	})

	return r
}
