/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built buildings that populate the database with realistic
	data for demos. Each scenario creates one building with tenants,
	expenses and, where relevant, materialized payments.

AVAILABLE SCENARIOS:

	fee-resolution:     Default fee, overrides and a zero override
	unbilled-tenants:   No default fee; tenants without a fee are skipped
	recurring-expenses: One-time, monthly, bi-monthly and shared expenses
	collection:         Three months of payments, some unpaid, extra charges

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create the building and its tenants
 3. Add expenses and extra charges
 4. Materialize the months the scenario needs

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "collection"}

USAGE VIA CLI:

	vaad seed collection

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to Seed

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - server.go: scenario routes are only mounted in dev mode
  - cmd/vaad/main.go: seed command
*/
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Yairkad/vaad-bayit-sub000/auth"
	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fee-resolution",
		Name:        "Fee Resolution",
		Description: "Default fee 300, one tenant overrides to 450, one has a zero override; March materialized",
		Category:    "fees",
	},
	{
		ID:          "unbilled-tenants",
		Name:        "Unbilled Tenants",
		Description: "No default fee: only tenants with their own fee get a payment row",
		Category:    "fees",
	},
	{
		ID:          "recurring-expenses",
		Name:        "Recurring Expenses",
		Description: "Monthly cleaning, bi-monthly water, a one-time repair and a shared insurance policy",
		Category:    "expenses",
	},
	{
		ID:          "collection",
		Name:        "Collection",
		Description: "January to March payments with unpaid months and extra charges for notices",
		Category:    "collection",
	},
}

// ScenarioIDs lists the known scenario IDs.
func ScenarioIDs() []string {
	ids := make([]string, len(scenarios))
	for i, s := range scenarios {
		ids[i] = s.ID
	}
	return ids
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario resets the database and loads a predefined scenario. In dev
// mode the response carries a committee token for the new building.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	buildingID, err := h.Seed(r.Context(), req.ScenarioID)
	if err != nil {
		writeFailure(w, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	resp := map[string]string{"status": "loaded", "scenario": req.ScenarioID, "building_id": string(buildingID)}
	if h.DevSecret != "" {
		scope := billing.BuildingScope{BuildingID: buildingID, UserID: "demo-committee", Role: billing.RoleCommittee}
		token, err := auth.NewToken(scope, h.DevSecret, 24*time.Hour)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to sign demo token", err)
			return
		}
		resp["token"] = token
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeFailure(w, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(ctx context.Context) error {
	resetter, ok := h.Store.(billing.Resetter)
	if !ok {
		return billing.ErrStoreRequired
	}
	if err := resetter.Reset(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// Seed resets the database and loads the scenario. It returns the
// scenario's building.
func (h *Handler) Seed(ctx context.Context, scenarioID string) (billing.BuildingID, error) {
	var load func(context.Context) (billing.BuildingID, error)
	switch scenarioID {
	case "fee-resolution":
		load = h.loadFeeResolutionScenario
	case "unbilled-tenants":
		load = h.loadUnbilledTenantsScenario
	case "recurring-expenses":
		load = h.loadRecurringExpensesScenario
	case "collection":
		load = h.loadCollectionScenario
	default:
		return "", billing.Invalid("scenario_id", fmt.Sprintf("unknown scenario %q", scenarioID))
	}

	if err := h.reset(ctx); err != nil {
		return "", err
	}
	buildingID, err := load(ctx)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.currentScenario = scenarioID
	h.mu.Unlock()
	log.Printf("[Scenarios] loaded %s (building %s)", scenarioID, buildingID)
	return buildingID, nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadFeeResolutionScenario(ctx context.Context) (billing.BuildingID, error) {
	b := demoBuilding("demo-fees", "Herzl 12", decimal.NewNullDecimal(decimal.NewFromInt(300)))
	tenants := []billing.Tenant{
		demoTenant(b.ID, "fees-a", "Dana Levi", "1", "1", billing.MethodCash, decimal.NullDecimal{}),
		demoTenant(b.ID, "fees-b", "Avi Cohen", "1", "2", billing.MethodStandingOrder, decimal.NewNullDecimal(decimal.NewFromInt(450))),
		// A zero override falls back to the building default.
		demoTenant(b.ID, "fees-c", "Noa Mizrahi", "2", "3", billing.MethodCash, decimal.NewNullDecimal(decimal.Zero)),
	}
	if err := h.seedBuilding(ctx, b, tenants...); err != nil {
		return "", err
	}
	if err := h.materialize(ctx, b.ID, billing.NewMonth(2025, time.March)); err != nil {
		return "", err
	}
	return b.ID, nil
}

func (h *Handler) loadUnbilledTenantsScenario(ctx context.Context) (billing.BuildingID, error) {
	b := demoBuilding("demo-unbilled", "Bialik 5", decimal.NullDecimal{})
	tenants := []billing.Tenant{
		demoTenant(b.ID, "unbilled-a", "Yossi Peretz", "0", "1", billing.MethodCash, decimal.NewNullDecimal(decimal.NewFromInt(250))),
		demoTenant(b.ID, "unbilled-b", "Rina Azulay", "0", "2", billing.MethodCash, decimal.NullDecimal{}),
		demoTenant(b.ID, "unbilled-c", "Moshe Katz", "1", "3", billing.MethodStandingOrder, decimal.NullDecimal{}),
	}
	if err := h.seedBuilding(ctx, b, tenants...); err != nil {
		return "", err
	}
	if err := h.materialize(ctx, b.ID, billing.NewMonth(2025, time.March)); err != nil {
		return "", err
	}
	return b.ID, nil
}

func (h *Handler) loadRecurringExpensesScenario(ctx context.Context) (billing.BuildingID, error) {
	b := demoBuilding("demo-expenses", "Rothschild 40", decimal.NewNullDecimal(decimal.NewFromInt(350)))
	b.OpeningBalance = decimal.NewFromInt(5000)
	if err := h.seedBuilding(ctx, b); err != nil {
		return "", err
	}

	insurance := decimal.NewFromInt(3000)
	expenses := []billing.Expense{
		demoExpense(b.ID, "exp-cleaning", "Cleaning", "Stairwell cleaning", date(2025, 1, 1), billing.RecurrenceMonthly, decimal.NewFromInt(400)),
		demoExpense(b.ID, "exp-water", "Water", "Common area water", date(2025, 1, 15), billing.RecurrenceBiMonthly, decimal.NewFromInt(200)),
		demoExpense(b.ID, "exp-elevator", "Repairs", "Elevator door repair", date(2025, 3, 10), billing.RecurrenceOneTime, decimal.NewFromInt(1500)),
	}

	gardening := demoExpense(b.ID, "exp-gardening", "Garden", "Gardener (cancelled)", date(2025, 1, 5), billing.RecurrenceMonthly, decimal.NewFromInt(250))
	gardening.Active = false
	expenses = append(expenses, gardening)

	shared := demoExpense(b.ID, "exp-insurance", "Insurance", "Building insurance, shared by 3 entrances", date(2025, 2, 1), billing.RecurrenceOneTime, billing.SplitShared(insurance, 3))
	shared.SharedBuildings = 3
	shared.OriginalAmount = decimal.NewNullDecimal(insurance)
	expenses = append(expenses, shared)

	for _, e := range expenses {
		if err := h.Store.SaveExpense(ctx, e); err != nil {
			return "", fmt.Errorf("failed to save expense %s: %w", e.ID, err)
		}
	}
	return b.ID, nil
}

func (h *Handler) loadCollectionScenario(ctx context.Context) (billing.BuildingID, error) {
	b := demoBuilding("demo-collection", "Weizmann 8", decimal.NewNullDecimal(decimal.NewFromInt(320)))
	b.OpeningBalance = decimal.NewFromInt(1200)
	tenants := []billing.Tenant{
		demoTenant(b.ID, "col-a", "Shira Ben David", "1", "1", billing.MethodCash, decimal.NullDecimal{}),
		demoTenant(b.ID, "col-b", "Eli Friedman", "1", "2", billing.MethodStandingOrder, decimal.NullDecimal{}),
		demoTenant(b.ID, "col-c", "Tamar Golan", "2", "3", billing.MethodCash, decimal.NewNullDecimal(decimal.NewFromInt(400))),
	}
	if err := h.seedBuilding(ctx, b, tenants...); err != nil {
		return "", err
	}

	for m := billing.NewMonth(2025, time.January); m.BeforeOrEqual(billing.NewMonth(2025, time.March)); m = m.Add(1) {
		if err := h.materialize(ctx, b.ID, m); err != nil {
			return "", err
		}
	}

	// Shira paid January only; Tamar paid everything.
	payments, err := h.Store.ListPayments(ctx, b.ID, billing.PaymentFilter{})
	if err != nil {
		return "", err
	}
	for _, p := range payments {
		paid := p.TenantID == "col-c" || (p.TenantID == "col-a" && p.Month == billing.NewMonth(2025, time.January))
		if !paid || p.Paid {
			continue
		}
		paidAt := p.Month.Start().AddDate(0, 0, 9)
		p.Paid = true
		p.PaidAt = &paidAt
		if err := h.Store.UpdatePayment(ctx, p); err != nil {
			return "", err
		}
	}

	charges := []billing.ExtraCharge{
		{ID: "chg-key", BuildingID: b.ID, TenantID: "col-a", Amount: decimal.NewFromInt(50), Reason: "Replacement entrance key", Date: date(2025, 2, 12)},
		{ID: "chg-paint", BuildingID: b.ID, TenantID: "col-c", Amount: decimal.NewFromInt(700), Reason: "Stairwell painting share", Date: date(2025, 3, 3)},
	}
	for _, c := range charges {
		c.CreatedAt = c.Date
		if err := h.Store.SaveCharge(ctx, c); err != nil {
			return "", fmt.Errorf("failed to save extra charge %s: %w", c.ID, err)
		}
	}

	cleaning := demoExpense(b.ID, "col-cleaning", "Cleaning", "Stairwell cleaning", date(2025, 1, 1), billing.RecurrenceMonthly, decimal.NewFromInt(450))
	if err := h.Store.SaveExpense(ctx, cleaning); err != nil {
		return "", fmt.Errorf("failed to save expense %s: %w", cleaning.ID, err)
	}
	return b.ID, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) seedBuilding(ctx context.Context, b billing.Building, tenants ...billing.Tenant) error {
	if err := h.Store.SaveBuilding(ctx, b); err != nil {
		return fmt.Errorf("failed to save building %s: %w", b.ID, err)
	}
	for _, t := range tenants {
		if err := h.Store.SaveTenant(ctx, t); err != nil {
			return fmt.Errorf("failed to save tenant %s: %w", t.ID, err)
		}
	}
	return nil
}

func (h *Handler) materialize(ctx context.Context, buildingID billing.BuildingID, month billing.Month) error {
	scope := billing.BuildingScope{BuildingID: buildingID, UserID: "scenario-loader", Role: billing.RoleAdmin}
	_, err := h.Materializer.Materialize(ctx, scope, month)
	return err
}

func demoBuilding(id billing.BuildingID, name string, fee decimal.NullDecimal) billing.Building {
	return billing.Building{
		ID:         id,
		Name:       name,
		Address:    name + ", Tel Aviv",
		DefaultFee: fee,
		ParkingLots: []billing.ParkingLot{
			{Name: "P1", Type: "covered"},
			{Name: "P2", Type: "open"},
		},
		CreatedAt: date(2024, 12, 1),
	}
}

func demoTenant(buildingID billing.BuildingID, id billing.TenantID, name, floor, apt string, method billing.PaymentMethod, fee decimal.NullDecimal) billing.Tenant {
	return billing.Tenant{
		ID:                  id,
		BuildingID:          buildingID,
		FullName:            name,
		Floor:               floor,
		Apartment:           apt,
		PaymentMethod:       method,
		StandingOrderActive: method == billing.MethodStandingOrder,
		MonthlyFee:          fee,
		CreatedAt:           date(2024, 12, 1),
	}
}

func demoExpense(buildingID billing.BuildingID, id billing.ExpenseID, category, description string, d time.Time, kind billing.Recurrence, amount decimal.Decimal) billing.Expense {
	return billing.Expense{
		ID:          id,
		BuildingID:  buildingID,
		Amount:      amount,
		Category:    category,
		Description: description,
		Date:        d,
		Recurrence:  kind,
		Active:      true,
		CreatedAt:   d,
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
