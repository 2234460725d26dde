// Package storetest runs the same behavioural checks against every
// billing.Store implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

var (
	march = billing.NewMonth(2025, time.March)
	april = billing.NewMonth(2025, time.April)
	t0    = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

// Run executes the suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) billing.Store) {
	t.Run("Buildings", func(t *testing.T) { testBuildings(t, newStore(t)) })
	t.Run("TenantsScopedByBuilding", func(t *testing.T) { testTenants(t, newStore(t)) })
	t.Run("Expenses", func(t *testing.T) { testExpenses(t, newStore(t)) })
	t.Run("PaymentsInsertIfAbsent", func(t *testing.T) { testInsertIfAbsent(t, newStore(t)) })
	t.Run("PaymentsFilterAndUpdate", func(t *testing.T) { testPaymentFilter(t, newStore(t)) })
	t.Run("PaymentsSurviveTenantDelete", func(t *testing.T) { testPaymentHistory(t, newStore(t)) })
	t.Run("Charges", func(t *testing.T) { testCharges(t, newStore(t)) })
	t.Run("InviteRedeemOnce", func(t *testing.T) { testInvites(t, newStore(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

func seed(t *testing.T, s billing.Store) {
	t.Helper()
	ctx := context.Background()
	fee := decimal.NewNullDecimal(decimal.RequireFromString("300"))
	require.NoError(t, s.SaveBuilding(ctx, billing.Building{ID: "b1", Name: "Herzl 12", DefaultFee: fee, CreatedAt: t0}))
	require.NoError(t, s.SaveBuilding(ctx, billing.Building{ID: "b2", Name: "Rothschild 5", CreatedAt: t0}))
	require.NoError(t, s.SaveTenant(ctx, billing.Tenant{ID: "t1", BuildingID: "b1", FullName: "Dana Levi", Apartment: "2", Floor: "1", PaymentMethod: billing.MethodCash, CreatedAt: t0}))
	require.NoError(t, s.SaveTenant(ctx, billing.Tenant{ID: "t2", BuildingID: "b1", FullName: "Avi Cohen", Apartment: "1", Floor: "1", PaymentMethod: billing.MethodStandingOrder, StandingOrderActive: true,
		MonthlyFee: decimal.NewNullDecimal(decimal.RequireFromString("450.50")), PaymentDay: 10, CreatedAt: t0}))
	require.NoError(t, s.SaveTenant(ctx, billing.Tenant{ID: "t3", BuildingID: "b2", FullName: "Other Building", Apartment: "1", PaymentMethod: billing.MethodCash, CreatedAt: t0}))
}

func payment(id, tenant string, month billing.Month, amount string) billing.Payment {
	return billing.Payment{
		ID:            billing.PaymentID(id),
		BuildingID:    "b1",
		TenantID:      billing.TenantID(tenant),
		Month:         month,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: billing.MethodCash,
		CreatedAt:     t0,
	}
}

func testBuildings(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s)

	b, err := s.GetBuilding(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Herzl 12", b.Name)
	require.True(t, b.DefaultFee.Valid)
	assert.True(t, b.DefaultFee.Decimal.Equal(decimal.RequireFromString("300")))

	b2, err := s.GetBuilding(ctx, "b2")
	require.NoError(t, err)
	assert.False(t, b2.DefaultFee.Valid, "unset default fee stays unset")

	b.Address = "Herzl 12, Haifa"
	b.ParkingLots = []billing.ParkingLot{{Name: "P1", Type: "covered"}}
	require.NoError(t, s.SaveBuilding(ctx, *b))
	b, err = s.GetBuilding(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Herzl 12, Haifa", b.Address)
	assert.Equal(t, []billing.ParkingLot{{Name: "P1", Type: "covered"}}, b.ParkingLots)

	all, err := s.ListBuildings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.GetBuilding(ctx, "missing")
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func testTenants(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s)

	tenants, err := s.ListTenants(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, billing.TenantID("t2"), tenants[0].ID, "ordered by floor then apartment")
	assert.True(t, tenants[0].MonthlyFee.Valid)
	assert.True(t, tenants[0].MonthlyFee.Decimal.Equal(decimal.RequireFromString("450.50")))
	assert.Equal(t, 10, tenants[0].PaymentDay)
	assert.True(t, tenants[0].AutoPaid())
	assert.False(t, tenants[1].MonthlyFee.Valid)

	_, err = s.GetTenant(ctx, "b2", "t1")
	assert.ErrorIs(t, err, billing.ErrNotFound, "another building's tenant is invisible")

	err = s.DeleteTenant(ctx, "b2", "t1")
	assert.ErrorIs(t, err, billing.ErrNotFound)

	require.NoError(t, s.DeleteTenant(ctx, "b1", "t1"))
	tenants, err = s.ListTenants(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, tenants, 1)
}

func testExpenses(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s)

	e := billing.Expense{
		ID:              "e1",
		BuildingID:      "b1",
		Amount:          decimal.RequireFromString("200"),
		Category:        "cleaning",
		Date:            time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Recurrence:      billing.RecurrenceBiMonthly,
		Active:          true,
		SharedBuildings: 2,
		OriginalAmount:  decimal.NewNullDecimal(decimal.RequireFromString("400")),
		CreatedAt:       t0,
	}
	require.NoError(t, s.SaveExpense(ctx, e))
	require.NoError(t, s.SaveExpense(ctx, billing.Expense{ID: "e0", BuildingID: "b1", Amount: decimal.RequireFromString("50"),
		Category: "repair", Date: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), Recurrence: billing.RecurrenceOneTime, Active: true, CreatedAt: t0}))

	got, err := s.GetExpense(ctx, "b1", "e1")
	require.NoError(t, err)
	assert.Equal(t, billing.RecurrenceBiMonthly, got.Recurrence)
	assert.True(t, got.Date.Equal(e.Date))
	assert.True(t, got.OriginalAmount.Decimal.Equal(decimal.RequireFromString("400")))
	assert.Equal(t, 2, got.SharedBuildings)

	list, err := s.ListExpenses(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, billing.ExpenseID("e0"), list[0].ID, "ordered by date")

	_, err = s.GetExpense(ctx, "b2", "e1")
	assert.ErrorIs(t, err, billing.ErrNotFound)

	require.NoError(t, s.DeleteExpense(ctx, "b1", "e0"))
	assert.ErrorIs(t, s.DeleteExpense(ctx, "b1", "e0"), billing.ErrNotFound)
}

func testInsertIfAbsent(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s)

	n, err := s.InsertPaymentsIfAbsent(ctx, []billing.Payment{
		payment("p1", "t1", march, "300"),
		payment("p2", "t2", march, "450.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Second batch repeats t1/March under a new ID and adds t1/April.
	n, err = s.InsertPaymentsIfAbsent(ctx, []billing.Payment{
		payment("p3", "t1", march, "999"),
		payment("p4", "t1", april, "300"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := s.ListPayments(ctx, "b1", billing.PaymentFilter{Month: &march, TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, billing.PaymentID("p1"), rows[0].ID)
	assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("300")), "existing row is never overwritten")

	_, err = s.GetPayment(ctx, "b1", "p3")
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func testPaymentFilter(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s)

	_, err := s.InsertPaymentsIfAbsent(ctx, []billing.Payment{
		payment("p1", "t1", march, "300"),
		payment("p2", "t2", march, "450.50"),
		payment("p3", "t1", april, "300"),
	})
	require.NoError(t, err)

	all, err := s.ListPayments(ctx, "b1", billing.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	through, err := s.ListPayments(ctx, "b1", billing.PaymentFilter{Through: &march})
	require.NoError(t, err)
	assert.Len(t, through, 2)

	other, err := s.ListPayments(ctx, "b2", billing.PaymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)

	p, err := s.GetPayment(ctx, "b1", "p1")
	require.NoError(t, err)
	paidAt := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	p.Paid = true
	p.PaidAt = &paidAt
	require.NoError(t, s.UpdatePayment(ctx, *p))

	paid := true
	rows, err := s.ListPayments(ctx, "b1", billing.PaymentFilter{Month: &march, Paid: &paid})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, billing.PaymentID("p1"), rows[0].ID)
	require.NotNil(t, rows[0].PaidAt)
	assert.True(t, rows[0].PaidAt.Equal(paidAt))

	unpaid := false
	rows, err = s.ListPayments(ctx, "b1", billing.PaymentFilter{Month: &march, Paid: &unpaid})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, billing.PaymentID("p2"), rows[0].ID)

	p.BuildingID = "b2"
	assert.ErrorIs(t, s.UpdatePayment(ctx, *p), billing.ErrNotFound, "cannot update across buildings")
}

func testPaymentHistory(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s)

	_, err := s.InsertPaymentsIfAbsent(ctx, []billing.Payment{payment("p1", "t1", march, "300")})
	require.NoError(t, err)
	require.NoError(t, s.DeleteTenant(ctx, "b1", "t1"))

	rows, err := s.ListPayments(ctx, "b1", billing.PaymentFilter{Month: &march})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func testCharges(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s)

	c := billing.ExtraCharge{ID: "c1", BuildingID: "b1", TenantID: "t1", Amount: decimal.RequireFromString("50"),
		Reason: "key copy", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), CreatedAt: t0}
	require.NoError(t, s.SaveCharge(ctx, c))
	require.NoError(t, s.SaveCharge(ctx, billing.ExtraCharge{ID: "c2", BuildingID: "b1", TenantID: "t2", Amount: decimal.RequireFromString("20"),
		Reason: "intercom", Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), CreatedAt: t0}))

	forT1, err := s.ListCharges(ctx, "b1", "t1")
	require.NoError(t, err)
	require.Len(t, forT1, 1)
	assert.Equal(t, "key copy", forT1[0].Reason)

	all, err := s.ListCharges(ctx, "b1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, billing.ChargeID("c2"), all[0].ID, "ordered by date")

	paidAt := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	c.Paid = true
	c.PaidAt = &paidAt
	require.NoError(t, s.SaveCharge(ctx, c))
	got, err := s.GetCharge(ctx, "b1", "c1")
	require.NoError(t, err)
	assert.True(t, got.Paid)

	_, err = s.GetCharge(ctx, "b2", "c1")
	assert.ErrorIs(t, err, billing.ErrNotFound)
	require.NoError(t, s.DeleteCharge(ctx, "b1", "c1"))
	assert.ErrorIs(t, s.DeleteCharge(ctx, "b1", "c1"), billing.ErrNotFound)
}

func testInvites(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s)

	inv := billing.Invite{
		ID:         "inv-1",
		BuildingID: "b1",
		Role:       billing.RoleTenant,
		SecretHash: []byte("$2a$10$hash"),
		ExpiresAt:  t0.Add(72 * time.Hour),
		CreatedBy:  "u-committee",
		CreatedAt:  t0,
	}
	require.NoError(t, s.SaveInvite(ctx, inv))

	got, err := s.GetInvite(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, inv.SecretHash, got.SecretHash)
	assert.False(t, got.Redeemed())

	list, err := s.ListInvites(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	now := t0.Add(time.Hour)
	got.RedeemedAt = &now
	got.RedeemedBy = "u-new"
	tenant := billing.Tenant{ID: "t9", BuildingID: "b1", FullName: "New Tenant", UserID: "u-new", PaymentMethod: billing.MethodCash, CreatedAt: now}
	require.NoError(t, s.RedeemInvite(ctx, *got, tenant))

	again := tenant
	again.ID = "t10"
	assert.ErrorIs(t, s.RedeemInvite(ctx, *got, again), billing.ErrInviteRedeemed)

	_, err = s.GetTenant(ctx, "b1", "t10")
	assert.ErrorIs(t, err, billing.ErrNotFound, "a failed redeem writes no tenant")

	joined, err := s.GetTenant(ctx, "b1", "t9")
	require.NoError(t, err)
	assert.Equal(t, billing.UserID("u-new"), joined.UserID)

	got, err = s.GetInvite(ctx, "inv-1")
	require.NoError(t, err)
	assert.True(t, got.Redeemed())
	assert.Equal(t, billing.UserID("u-new"), got.RedeemedBy)
}

func testReset(t *testing.T, s billing.Store) {
	ctx := context.Background()
	seed(t, s)

	r, ok := s.(billing.Resetter)
	require.True(t, ok, "store should support Reset")
	require.NoError(t, r.Reset(ctx))

	all, err := s.ListBuildings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
