/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the billing model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Responses carry money as strings with two decimals ("450.50").
  Requests accept a JSON number or string (decimal.Decimal).

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// BuildingDTO represents a building in API responses.
type BuildingDTO struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Address        string               `json:"address,omitempty"`
	LogoURL        string               `json:"logo_url,omitempty"`
	DefaultFee     *string              `json:"default_fee"`
	OpeningBalance string               `json:"opening_balance"`
	ParkingLots    []billing.ParkingLot `json:"parking_lots"`
	CreatedAt      string               `json:"created_at,omitempty"`
}

// BuildingRequest creates or updates a building.
type BuildingRequest struct {
	Name           string               `json:"name"`
	Address        string               `json:"address"`
	LogoURL        string               `json:"logo_url"`
	DefaultFee     *decimal.Decimal     `json:"default_fee"`
	OpeningBalance decimal.Decimal      `json:"opening_balance"`
	ParkingLots    []billing.ParkingLot `json:"parking_lots"`
}

// TenantDTO represents a tenant in API responses.
type TenantDTO struct {
	ID                  string  `json:"id"`
	FullName            string  `json:"full_name"`
	Apartment           string  `json:"apartment"`
	Floor               string  `json:"floor,omitempty"`
	Phone               string  `json:"phone,omitempty"`
	UserID              string  `json:"user_id,omitempty"`
	PaymentMethod       string  `json:"payment_method"`
	StandingOrderActive bool    `json:"standing_order_active"`
	MonthlyFee          *string `json:"monthly_fee"`
	EffectiveFee        string  `json:"effective_fee"`
	PaymentDay          int     `json:"payment_day,omitempty"`
	CreatedAt           string  `json:"created_at,omitempty"`
}

// TenantRequest creates or updates a tenant.
type TenantRequest struct {
	FullName            string           `json:"full_name"`
	Apartment           string           `json:"apartment"`
	Floor               string           `json:"floor"`
	Phone               string           `json:"phone"`
	UserID              *string          `json:"user_id"`
	PaymentMethod       string           `json:"payment_method"`
	StandingOrderActive bool             `json:"standing_order_active"`
	MonthlyFee          *decimal.Decimal `json:"monthly_fee"`
	PaymentDay          int              `json:"payment_day"`
}

// ExpenseDTO represents a stored expense.
type ExpenseDTO struct {
	ID              string  `json:"id"`
	Amount          string  `json:"amount"`
	DisplayAmount   string  `json:"display_amount"`
	Category        string  `json:"category"`
	Description     string  `json:"description,omitempty"`
	Date            string  `json:"date"`
	Recurrence      string  `json:"recurrence"`
	Active          bool    `json:"active"`
	SharedBuildings int     `json:"shared_buildings,omitempty"`
	OriginalAmount  *string `json:"original_amount,omitempty"`
	ReceiptURL      string  `json:"receipt_url,omitempty"`
}

// ExpenseRequest creates or updates an expense. When SharedBuildings is
// greater than one, OriginalAmount (or Amount on create) is the total split
// across the buildings.
type ExpenseRequest struct {
	Amount          decimal.Decimal  `json:"amount"`
	Category        string           `json:"category"`
	Description     string           `json:"description"`
	Date            string           `json:"date"`
	Recurrence      string           `json:"recurrence"`
	Active          *bool            `json:"active"`
	SharedBuildings int              `json:"shared_buildings"`
	OriginalAmount  *decimal.Decimal `json:"original_amount"`
	ReceiptURL      string           `json:"receipt_url"`
}

// DueExpenseDTO is an expense as it appears in a month.
type DueExpenseDTO struct {
	ExpenseDTO
	Month   string `json:"month"`
	Virtual bool   `json:"virtual"`
}

// PaymentDTO represents a monthly payment row.
type PaymentDTO struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenant_id"`
	Month         string  `json:"month"`
	Amount        string  `json:"amount"`
	Paid          bool    `json:"paid"`
	PaidAt        *string `json:"paid_at"`
	PaymentMethod string  `json:"payment_method"`
}

// PaymentUpdateRequest corrects a payment by hand.
type PaymentUpdateRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
}

// MaterializeRequest asks for a month's payment rows.
type MaterializeRequest struct {
	Month string `json:"month"`
}

// MaterializeResponse reports what a run did.
type MaterializeResponse struct {
	Month          string              `json:"month"`
	Created        int                 `json:"created"`
	AlreadyExisted int                 `json:"already_existed"`
	SkippedNoFee   int                 `json:"skipped_no_fee"`
	Skipped        []billing.TenantRef `json:"skipped"`
	Message        string              `json:"message"`
}

// ChargeDTO represents an extra charge.
type ChargeDTO struct {
	ID       string  `json:"id"`
	TenantID string  `json:"tenant_id"`
	Amount   string  `json:"amount"`
	Reason   string  `json:"reason"`
	Date     string  `json:"date"`
	Paid     bool    `json:"paid"`
	PaidAt   *string `json:"paid_at"`
}

// ChargeRequest creates an extra charge. Date defaults to today.
type ChargeRequest struct {
	TenantID string          `json:"tenant_id"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason"`
	Date     string          `json:"date"`
}

// MonthlySummaryDTO is the committee dashboard for a month.
type MonthlySummaryDTO struct {
	Month          string          `json:"month"`
	Billed         string          `json:"billed"`
	Collected      string          `json:"collected"`
	Outstanding    string          `json:"outstanding"`
	PaidCount      int             `json:"paid_count"`
	UnpaidCount    int             `json:"unpaid_count"`
	ExtraCollected string          `json:"extra_collected"`
	ExpensesDue    string          `json:"expenses_due"`
	Net            string          `json:"net"`
	CashBalance    string          `json:"cash_balance"`
	DueExpenses    []DueExpenseDTO `json:"due_expenses"`
}

// CreateInviteRequest issues an invite.
type CreateInviteRequest struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// InviteDTO represents an invite. Code and Link are only set on creation.
type InviteDTO struct {
	ID         string  `json:"id"`
	TenantID   string  `json:"tenant_id,omitempty"`
	Role       string  `json:"role"`
	ExpiresAt  string  `json:"expires_at"`
	RedeemedAt *string `json:"redeemed_at"`
	RedeemedBy string  `json:"redeemed_by,omitempty"`
	Code       string  `json:"code,omitempty"`
	Link       string  `json:"link,omitempty"`
}

// RedeemInviteRequest is posted by the invitee.
type RedeemInviteRequest struct {
	Code     string `json:"code"`
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
}

// RedeemInviteResponse tells the identity provider what to grant.
type RedeemInviteResponse struct {
	BuildingID string    `json:"building_id"`
	Role       string    `json:"role"`
	Tenant     TenantDTO `json:"tenant"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"` // "fees", "expenses" or "collection"
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func moneyPtr(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := money(d.Decimal)
	return &s
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func toBuildingDTO(b billing.Building) BuildingDTO {
	lots := b.ParkingLots
	if lots == nil {
		lots = []billing.ParkingLot{}
	}
	return BuildingDTO{
		ID:             string(b.ID),
		Name:           b.Name,
		Address:        b.Address,
		LogoURL:        b.LogoURL,
		DefaultFee:     moneyPtr(b.DefaultFee),
		OpeningBalance: money(b.OpeningBalance),
		ParkingLots:    lots,
		CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toTenantDTO(t billing.Tenant, b *billing.Building) TenantDTO {
	dto := TenantDTO{
		ID:                  string(t.ID),
		FullName:            t.FullName,
		Apartment:           t.Apartment,
		Floor:               t.Floor,
		Phone:               t.Phone,
		UserID:              string(t.UserID),
		PaymentMethod:       string(t.PaymentMethod),
		StandingOrderActive: t.StandingOrderActive,
		MonthlyFee:          moneyPtr(t.MonthlyFee),
		PaymentDay:          t.PaymentDay,
		CreatedAt:           t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b != nil {
		dto.EffectiveFee = money(billing.TenantFee(t, *b))
	} else {
		dto.EffectiveFee = money(billing.ResolveFee(t.MonthlyFee, decimal.NullDecimal{}))
	}
	return dto
}

func toExpenseDTO(e billing.Expense) ExpenseDTO {
	dto := ExpenseDTO{
		ID:              string(e.ID),
		Amount:          money(e.Amount),
		DisplayAmount:   money(billing.DisplayAmount(e)),
		Category:        e.Category,
		Description:     e.Description,
		Date:            e.Date.Format("2006-01-02"),
		Recurrence:      string(e.Recurrence),
		Active:          e.Active,
		SharedBuildings: e.SharedBuildings,
		ReceiptURL:      e.ReceiptURL,
	}
	if e.Shared() {
		dto.OriginalAmount = moneyPtr(e.OriginalAmount)
	}
	return dto
}

func toDueExpenseDTO(d billing.DueExpense) DueExpenseDTO {
	dto := DueExpenseDTO{ExpenseDTO: toExpenseDTO(d.Expense), Month: d.Month.String(), Virtual: d.Virtual}
	dto.DisplayAmount = money(d.Amount)
	return dto
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            string(p.ID),
		TenantID:      string(p.TenantID),
		Month:         p.Month.String(),
		Amount:        money(p.Amount),
		Paid:          p.Paid,
		PaidAt:        timePtr(p.PaidAt),
		PaymentMethod: string(p.PaymentMethod),
	}
}

func toPaymentDTOs(payments []billing.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toChargeDTO(c billing.ExtraCharge) ChargeDTO {
	return ChargeDTO{
		ID:       string(c.ID),
		TenantID: string(c.TenantID),
		Amount:   money(c.Amount),
		Reason:   c.Reason,
		Date:     c.Date.Format("2006-01-02"),
		Paid:     c.Paid,
		PaidAt:   timePtr(c.PaidAt),
	}
}

func toInviteDTO(inv billing.Invite) InviteDTO {
	return InviteDTO{
		ID:         string(inv.ID),
		TenantID:   string(inv.TenantID),
		Role:       string(inv.Role),
		ExpiresAt:  inv.ExpiresAt.UTC().Format(time.RFC3339),
		RedeemedAt: timePtr(inv.RedeemedAt),
		RedeemedBy: string(inv.RedeemedBy),
	}
}

func toSummaryDTO(s billing.MonthlySummary) MonthlySummaryDTO {
	due := make([]DueExpenseDTO, len(s.DueExpenses))
	for i, d := range s.DueExpenses {
		due[i] = toDueExpenseDTO(d)
	}
	return MonthlySummaryDTO{
		Month:          s.Month.String(),
		Billed:         money(s.Billed),
		Collected:      money(s.Collected),
		Outstanding:    money(s.Outstanding),
		PaidCount:      s.PaidCount,
		UnpaidCount:    s.UnpaidCount,
		ExtraCollected: money(s.ExtraCollected),
		ExpensesDue:    money(s.ExpensesDue),
		Net:            money(s.Net),
		CashBalance:    money(s.CashBalance),
		DueExpenses:    due,
	}
}
