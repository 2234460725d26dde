/*
Package billing provides the committee billing engine of a residential building.

PURPOSE:
  Domain types and the few pieces of real logic in the system: resolving a
  tenant's monthly fee, deciding which expenses are due in a month, and
  materializing one Payment row per tenant per month.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal.Decimal, never float
  - Building, Tenant, Expense, Payment, ExtraCharge, Invite: stored rows
  - BuildingScope: the explicit "who is acting on which building" value
    threaded through every call instead of an ambient session

DESIGN PRINCIPLES:
  1. Explicit scope: every store query filters by BuildingID from the scope
  2. Precision: money is decimal.Decimal
  3. Type safety: typed IDs keep building and tenant IDs apart
  4. Idempotence: payments are unique per (tenant, month)

SEE ALSO:
  - fee.go: Fee Resolver
  - recurrence.go: Recurrence Filter
  - materialize.go: Payment Materializer
  - store.go: persistence interfaces
*/
package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type BuildingID string
type TenantID string
type ExpenseID string
type PaymentID string
type ChargeID string
type InviteID string
type UserID string

// NewID returns a random identifier for a new row.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// SCOPE - Who is acting on which building
// =============================================================================

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCommittee Role = "committee"
	RoleTenant    Role = "tenant"
)

// BuildingScope identifies the building an operation runs against and the
// acting user. It is passed explicitly into every resolver and store call.
type BuildingScope struct {
	BuildingID BuildingID
	UserID     UserID
	Role       Role
}

// CanWrite reports whether the role may mutate the building's rows.
func (s BuildingScope) CanWrite() bool {
	return s.Role == RoleAdmin || s.Role == RoleCommittee
}

// Validate checks the scope is usable for a building-level operation.
func (s BuildingScope) Validate() error {
	if s.BuildingID == "" {
		return ErrScopeRequired
	}
	return nil
}

// RequireWrite validates the scope and its write permission.
func (s BuildingScope) RequireWrite() error {
	if err := s.Validate(); err != nil {
		return err
	}
	if !s.CanWrite() {
		return ErrForbidden
	}
	return nil
}

// =============================================================================
// BUILDING
// =============================================================================

// ParkingLot is a named parking definition with a free-text type tag.
type ParkingLot struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Building struct {
	ID             BuildingID
	Name           string
	Address        string
	LogoURL        string
	DefaultFee     decimal.NullDecimal
	OpeningBalance decimal.Decimal
	ParkingLots    []ParkingLot
	CreatedAt      time.Time
}

// =============================================================================
// TENANT
// =============================================================================

type PaymentMethod string

const (
	MethodCash          PaymentMethod = "cash"
	MethodStandingOrder PaymentMethod = "standing_order"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCash || m == MethodStandingOrder
}

// Tenant is a resident record (BuildingMember). UserID is empty until an
// invite is redeemed or a committee member links an account.
type Tenant struct {
	ID                  TenantID
	BuildingID          BuildingID
	FullName            string
	Apartment           string
	Floor               string
	Phone               string
	UserID              UserID
	PaymentMethod       PaymentMethod
	StandingOrderActive bool
	MonthlyFee          decimal.NullDecimal
	PaymentDay          int
	CreatedAt           time.Time
}

// AutoPaid reports whether new payments start as paid: the tenant pays by
// standing order and the order is active.
func (t Tenant) AutoPaid() bool {
	return t.PaymentMethod == MethodStandingOrder && t.StandingOrderActive
}

// =============================================================================
// EXPENSE
// =============================================================================

type Recurrence string

const (
	RecurrenceOneTime   Recurrence = "one_time"
	RecurrenceMonthly   Recurrence = "monthly"
	RecurrenceBiMonthly Recurrence = "bi_monthly"
)

func (r Recurrence) Valid() bool {
	return r == RecurrenceOneTime || r == RecurrenceMonthly || r == RecurrenceBiMonthly
}

// Recurring reports whether the expense repeats after its own month.
func (r Recurrence) Recurring() bool {
	return r == RecurrenceMonthly || r == RecurrenceBiMonthly
}

// Expense is a building expense. Recurring expenses are stored once and are
// virtual for every later month. For bi-monthly rows Amount is the two-month total.
type Expense struct {
	ID              ExpenseID
	BuildingID      BuildingID
	Amount          decimal.Decimal
	Category        string
	Description     string
	Date            time.Time
	Recurrence      Recurrence
	Active          bool
	SharedBuildings int
	OriginalAmount  decimal.NullDecimal
	ReceiptURL      string
	CreatedAt       time.Time
}

// Shared reports whether the expense was split across several buildings.
func (e Expense) Shared() bool {
	return e.SharedBuildings > 1
}

// =============================================================================
// PAYMENT
// =============================================================================

// Payment is one tenant's monthly fee row. At most one per (tenant, month).
type Payment struct {
	ID            PaymentID
	BuildingID    BuildingID
	TenantID      TenantID
	Month         Month
	Amount        decimal.Decimal
	Paid          bool
	PaidAt        *time.Time
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
}

// PaymentFilter narrows ListPayments. Zero values mean "any".
type PaymentFilter struct {
	Month    *Month
	Through  *Month
	TenantID TenantID
	Paid     *bool
}

// =============================================================================
// EXTRA CHARGE
// =============================================================================

// ExtraCharge is an ad-hoc one-off charge outside the monthly cycle.
type ExtraCharge struct {
	ID         ChargeID
	BuildingID BuildingID
	TenantID   TenantID
	Amount     decimal.Decimal
	Reason     string
	Date       time.Time
	Paid       bool
	PaidAt     *time.Time
	CreatedAt  time.Time
}

// =============================================================================
// INVITE
// =============================================================================

// Invite is a one-time link that attaches a user account to a building.
// Only the bcrypt hash of the secret code is stored.
type Invite struct {
	ID         InviteID
	BuildingID BuildingID
	TenantID   TenantID
	Role       Role
	SecretHash []byte
	ExpiresAt  time.Time
	RedeemedAt *time.Time
	RedeemedBy UserID
	CreatedBy  UserID
	CreatedAt  time.Time
}

// Redeemed reports whether the invite was used.
func (i Invite) Redeemed() bool {
	return i.RedeemedAt != nil
}
