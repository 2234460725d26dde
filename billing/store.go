/*
store.go - Persistence interfaces for building rows

PURPOSE:
  Defines the interface between the billing logic and the database. Every
  read and write is filtered by building, standing in for the row-level
  security policies of the hosted backend.

KEY INTERFACES:
  BuildingStore, TenantStore, ExpenseStore, PaymentStore, ChargeStore,
  InviteStore: per-table CRUD
  Store: all of the above
  Resetter: optional, wipes all data (demo scenarios only)

INSERT-IF-ABSENT:
  InsertPaymentsIfAbsent() inserts a batch of payments inside ONE
  transaction, skipping any (tenant, month) pair that already has a row.
  It returns how many rows were actually written. Either the whole batch
  is applied or none of it is.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: database/sql + SQLite
  - store/gormdb/gormdb.go: GORM, PostgreSQL in production
  - billing/store/memory.go: in-memory for testing

SEE ALSO:
  - materialize.go: main consumer of InsertPaymentsIfAbsent
*/
package billing

import "context"

type BuildingStore interface {
	// SaveBuilding inserts or updates a building.
	SaveBuilding(ctx context.Context, b Building) error
	// GetBuilding returns ErrNotFound when the building does not exist.
	GetBuilding(ctx context.Context, id BuildingID) (*Building, error)
	ListBuildings(ctx context.Context) ([]Building, error)
}

type TenantStore interface {
	SaveTenant(ctx context.Context, t Tenant) error
	GetTenant(ctx context.Context, buildingID BuildingID, id TenantID) (*Tenant, error)
	// ListTenants returns the building's tenants ordered by floor, apartment.
	ListTenants(ctx context.Context, buildingID BuildingID) ([]Tenant, error)
	// DeleteTenant removes the tenant. Its payments stay as history.
	DeleteTenant(ctx context.Context, buildingID BuildingID, id TenantID) error
}

type ExpenseStore interface {
	SaveExpense(ctx context.Context, e Expense) error
	GetExpense(ctx context.Context, buildingID BuildingID, id ExpenseID) (*Expense, error)
	// ListExpenses returns all expenses of a building ordered by date.
	ListExpenses(ctx context.Context, buildingID BuildingID) ([]Expense, error)
	DeleteExpense(ctx context.Context, buildingID BuildingID, id ExpenseID) error
}

type PaymentStore interface {
	// ListPayments returns payments ordered by month then tenant.
	ListPayments(ctx context.Context, buildingID BuildingID, filter PaymentFilter) ([]Payment, error)
	GetPayment(ctx context.Context, buildingID BuildingID, id PaymentID) (*Payment, error)
	// UpdatePayment rewrites amount and paid state of an existing payment.
	UpdatePayment(ctx context.Context, p Payment) error
	// InsertPaymentsIfAbsent atomically inserts the payments whose
	// (tenant, month) has no row yet and returns the number inserted.
	InsertPaymentsIfAbsent(ctx context.Context, payments []Payment) (int, error)
}

type ChargeStore interface {
	SaveCharge(ctx context.Context, c ExtraCharge) error
	GetCharge(ctx context.Context, buildingID BuildingID, id ChargeID) (*ExtraCharge, error)
	// ListCharges returns charges by date; an empty tenantID means all tenants.
	ListCharges(ctx context.Context, buildingID BuildingID, tenantID TenantID) ([]ExtraCharge, error)
	DeleteCharge(ctx context.Context, buildingID BuildingID, id ChargeID) error
}

type InviteStore interface {
	SaveInvite(ctx context.Context, inv Invite) error
	// GetInvite looks an invite up by ID alone; the redeemer has no scope yet.
	GetInvite(ctx context.Context, id InviteID) (*Invite, error)
	ListInvites(ctx context.Context, buildingID BuildingID) ([]Invite, error)
	// RedeemInvite marks the invite used and saves the tenant in one
	// transaction. Returns ErrInviteRedeemed if it was used concurrently.
	RedeemInvite(ctx context.Context, inv Invite, tenant Tenant) error
}

// Store is the full persistence surface.
type Store interface {
	BuildingStore
	TenantStore
	ExpenseStore
	PaymentStore
	ChargeStore
	InviteStore
}

// Resetter wipes all rows. Only demo scenarios use it.
type Resetter interface {
	Reset(ctx context.Context) error
}
