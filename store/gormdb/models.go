package gormdb

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// Row types mirror the hosted schema. Money columns are numeric and map to
// decimal.Decimal; months are "YYYY-MM-01" strings so both drivers compare
// them the same way.

type buildingRow struct {
	ID             string `gorm:"primaryKey;size:64"`
	Name           string `gorm:"not null"`
	Address        string
	LogoURL        string
	DefaultFee     decimal.NullDecimal  `gorm:"type:numeric(12,2)"`
	OpeningBalance decimal.Decimal      `gorm:"type:numeric(12,2);not null;default:0"`
	ParkingLots    []billing.ParkingLot `gorm:"serializer:json"`
	CreatedAt      time.Time
}

func (buildingRow) TableName() string { return "buildings" }

type tenantRow struct {
	ID                  string `gorm:"primaryKey;size:64"`
	BuildingID          string `gorm:"size:64;not null;index"`
	FullName            string `gorm:"not null"`
	Apartment           string
	Floor               string
	Phone               string
	UserID              string              `gorm:"size:64;index"`
	PaymentMethod       string              `gorm:"size:32;not null;default:cash"`
	StandingOrderActive bool                `gorm:"not null;default:false"`
	MonthlyFee          decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	PaymentDay          int
	CreatedAt           time.Time
}

func (tenantRow) TableName() string { return "tenants" }

type expenseRow struct {
	ID              string          `gorm:"primaryKey;size:64"`
	BuildingID      string          `gorm:"size:64;not null;index:idx_expenses_building_date"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Category        string          `gorm:"not null"`
	Description     string
	Date            time.Time           `gorm:"not null;index:idx_expenses_building_date"`
	Recurrence      string              `gorm:"size:16;not null;default:one_time"`
	Active          bool                `gorm:"not null"`
	SharedBuildings int                 `gorm:"not null;default:0"`
	OriginalAmount  decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	ReceiptURL      string
	CreatedAt       time.Time
}

func (expenseRow) TableName() string { return "expenses" }

type paymentRow struct {
	ID            string          `gorm:"primaryKey;size:64"`
	BuildingID    string          `gorm:"size:64;not null;index:idx_payments_building_month"`
	TenantID      string          `gorm:"size:64;not null;uniqueIndex:idx_payments_tenant_month"`
	Month         string          `gorm:"size:10;not null;uniqueIndex:idx_payments_tenant_month;index:idx_payments_building_month"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Paid          bool            `gorm:"not null;default:false"`
	PaidAt        *time.Time
	PaymentMethod string `gorm:"size:32"`
	CreatedAt     time.Time
}

func (paymentRow) TableName() string { return "payments" }

type chargeRow struct {
	ID         string          `gorm:"primaryKey;size:64"`
	BuildingID string          `gorm:"size:64;not null;index:idx_extra_charges_building"`
	TenantID   string          `gorm:"size:64;not null;index:idx_extra_charges_building"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Reason     string
	Date       time.Time `gorm:"not null"`
	Paid       bool      `gorm:"not null;default:false"`
	PaidAt     *time.Time
	CreatedAt  time.Time
}

func (chargeRow) TableName() string { return "extra_charges" }

type inviteRow struct {
	ID         string    `gorm:"primaryKey;size:64"`
	BuildingID string    `gorm:"size:64;not null;index"`
	TenantID   string    `gorm:"size:64"`
	Role       string    `gorm:"size:16;not null"`
	SecretHash []byte    `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null"`
	RedeemedAt *time.Time
	RedeemedBy string `gorm:"size:64"`
	CreatedBy  string `gorm:"size:64"`
	CreatedAt  time.Time
}

func (inviteRow) TableName() string { return "invites" }

// =============================================================================
// CONVERSIONS
// =============================================================================

func fromBuilding(b billing.Building) buildingRow {
	return buildingRow{
		ID:             string(b.ID),
		Name:           b.Name,
		Address:        b.Address,
		LogoURL:        b.LogoURL,
		DefaultFee:     b.DefaultFee,
		OpeningBalance: b.OpeningBalance,
		ParkingLots:    b.ParkingLots,
		CreatedAt:      b.CreatedAt,
	}
}

func (r buildingRow) toBuilding() billing.Building {
	return billing.Building{
		ID:             billing.BuildingID(r.ID),
		Name:           r.Name,
		Address:        r.Address,
		LogoURL:        r.LogoURL,
		DefaultFee:     r.DefaultFee,
		OpeningBalance: r.OpeningBalance,
		ParkingLots:    r.ParkingLots,
		CreatedAt:      r.CreatedAt,
	}
}

func fromTenant(t billing.Tenant) tenantRow {
	return tenantRow{
		ID:                  string(t.ID),
		BuildingID:          string(t.BuildingID),
		FullName:            t.FullName,
		Apartment:           t.Apartment,
		Floor:               t.Floor,
		Phone:               t.Phone,
		UserID:              string(t.UserID),
		PaymentMethod:       string(t.PaymentMethod),
		StandingOrderActive: t.StandingOrderActive,
		MonthlyFee:          t.MonthlyFee,
		PaymentDay:          t.PaymentDay,
		CreatedAt:           t.CreatedAt,
	}
}

func (r tenantRow) toTenant() billing.Tenant {
	return billing.Tenant{
		ID:                  billing.TenantID(r.ID),
		BuildingID:          billing.BuildingID(r.BuildingID),
		FullName:            r.FullName,
		Apartment:           r.Apartment,
		Floor:               r.Floor,
		Phone:               r.Phone,
		UserID:              billing.UserID(r.UserID),
		PaymentMethod:       billing.PaymentMethod(r.PaymentMethod),
		StandingOrderActive: r.StandingOrderActive,
		MonthlyFee:          r.MonthlyFee,
		PaymentDay:          r.PaymentDay,
		CreatedAt:           r.CreatedAt,
	}
}

func fromExpense(e billing.Expense) expenseRow {
	return expenseRow{
		ID:              string(e.ID),
		BuildingID:      string(e.BuildingID),
		Amount:          e.Amount,
		Category:        e.Category,
		Description:     e.Description,
		Date:            e.Date,
		Recurrence:      string(e.Recurrence),
		Active:          e.Active,
		SharedBuildings: e.SharedBuildings,
		OriginalAmount:  e.OriginalAmount,
		ReceiptURL:      e.ReceiptURL,
		CreatedAt:       e.CreatedAt,
	}
}

func (r expenseRow) toExpense() billing.Expense {
	return billing.Expense{
		ID:              billing.ExpenseID(r.ID),
		BuildingID:      billing.BuildingID(r.BuildingID),
		Amount:          r.Amount,
		Category:        r.Category,
		Description:     r.Description,
		Date:            r.Date.UTC(),
		Recurrence:      billing.Recurrence(r.Recurrence),
		Active:          r.Active,
		SharedBuildings: r.SharedBuildings,
		OriginalAmount:  r.OriginalAmount,
		ReceiptURL:      r.ReceiptURL,
		CreatedAt:       r.CreatedAt,
	}
}

func fromPayment(p billing.Payment) paymentRow {
	return paymentRow{
		ID:            string(p.ID),
		BuildingID:    string(p.BuildingID),
		TenantID:      string(p.TenantID),
		Month:         p.Month.DateKey(),
		Amount:        p.Amount,
		Paid:          p.Paid,
		PaidAt:        p.PaidAt,
		PaymentMethod: string(p.PaymentMethod),
		CreatedAt:     p.CreatedAt,
	}
}

func (r paymentRow) toPayment() (billing.Payment, error) {
	month, err := billing.ParseMonth(r.Month)
	if err != nil {
		return billing.Payment{}, err
	}
	return billing.Payment{
		ID:            billing.PaymentID(r.ID),
		BuildingID:    billing.BuildingID(r.BuildingID),
		TenantID:      billing.TenantID(r.TenantID),
		Month:         month,
		Amount:        r.Amount,
		Paid:          r.Paid,
		PaidAt:        r.PaidAt,
		PaymentMethod: billing.PaymentMethod(r.PaymentMethod),
		CreatedAt:     r.CreatedAt,
	}, nil
}

func fromCharge(c billing.ExtraCharge) chargeRow {
	return chargeRow{
		ID:         string(c.ID),
		BuildingID: string(c.BuildingID),
		TenantID:   string(c.TenantID),
		Amount:     c.Amount,
		Reason:     c.Reason,
		Date:       c.Date,
		Paid:       c.Paid,
		PaidAt:     c.PaidAt,
		CreatedAt:  c.CreatedAt,
	}
}

func (r chargeRow) toCharge() billing.ExtraCharge {
	return billing.ExtraCharge{
		ID:         billing.ChargeID(r.ID),
		BuildingID: billing.BuildingID(r.BuildingID),
		TenantID:   billing.TenantID(r.TenantID),
		Amount:     r.Amount,
		Reason:     r.Reason,
		Date:       r.Date.UTC(),
		Paid:       r.Paid,
		PaidAt:     r.PaidAt,
		CreatedAt:  r.CreatedAt,
	}
}

func fromInvite(inv billing.Invite) inviteRow {
	return inviteRow{
		ID:         string(inv.ID),
		BuildingID: string(inv.BuildingID),
		TenantID:   string(inv.TenantID),
		Role:       string(inv.Role),
		SecretHash: inv.SecretHash,
		ExpiresAt:  inv.ExpiresAt,
		RedeemedAt: inv.RedeemedAt,
		RedeemedBy: string(inv.RedeemedBy),
		CreatedBy:  string(inv.CreatedBy),
		CreatedAt:  inv.CreatedAt,
	}
}

func (r inviteRow) toInvite() billing.Invite {
	return billing.Invite{
		ID:         billing.InviteID(r.ID),
		BuildingID: billing.BuildingID(r.BuildingID),
		TenantID:   billing.TenantID(r.TenantID),
		Role:       billing.Role(r.Role),
		SecretHash: r.SecretHash,
		ExpiresAt:  r.ExpiresAt,
		RedeemedAt: r.RedeemedAt,
		RedeemedBy: billing.UserID(r.RedeemedBy),
		CreatedBy:  billing.UserID(r.CreatedBy),
		CreatedAt:  r.CreatedAt,
	}
}
