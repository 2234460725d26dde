package billing_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/billing/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var committee = billing.BuildingScope{BuildingID: "b1", UserID: "u-committee", Role: billing.RoleCommittee}

var march = billing.NewMonth(2025, time.March)

func newTestMaterializer(t *testing.T) (*billing.Materializer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	m := billing.NewMaterializer(mem)
	m.Now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	seq := 0
	m.NewID = func() string {
		seq++
		return fmt.Sprintf("pay-%d", seq)
	}
	return m, mem
}

func seedBuilding(t *testing.T, mem *store.Memory, defaultFee decimal.NullDecimal, tenants ...billing.Tenant) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, mem.SaveBuilding(ctx, billing.Building{ID: "b1", Name: "Herzl 12", DefaultFee: defaultFee}))
	for _, tn := range tenants {
		tn.BuildingID = "b1"
		require.NoError(t, mem.SaveTenant(ctx, tn))
	}
}

func cashTenant(id, apt string, fee decimal.NullDecimal) billing.Tenant {
	return billing.Tenant{ID: billing.TenantID(id), FullName: "Tenant " + id, Apartment: apt, PaymentMethod: billing.MethodCash, MonthlyFee: fee}
}

// =============================================================================
// MATERIALIZE
// =============================================================================

func TestMaterialize_EndToEnd(t *testing.T) {
	// GIVEN: default 300; A no override, B override 450, C override 0
	// WHEN:  materializing March
	// THEN:  A=300, B=450, and C's zero override falls back to the default
	m, mem := newTestMaterializer(t)
	seedBuilding(t, mem, money("300"),
		cashTenant("A", "1", decimal.NullDecimal{}),
		cashTenant("B", "2", money("450")),
		cashTenant("C", "3", money("0")),
	)
	ctx := context.Background()

	report, err := m.Materialize(ctx, committee, march)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Created)
	assert.Equal(t, 0, report.SkippedNoFee)

	rows, err := mem.ListPayments(ctx, "b1", billing.PaymentFilter{Month: &march})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	amounts := map[billing.TenantID]string{}
	for _, p := range rows {
		amounts[p.TenantID] = p.Amount.String()
		assert.False(t, p.Paid, "cash payments start unpaid")
		assert.Equal(t, march, p.Month)
	}
	assert.Equal(t, map[billing.TenantID]string{"A": "300", "B": "450", "C": "300"}, amounts)
}

func TestMaterialize_SkipsTenantsWithoutFee(t *testing.T) {
	// GIVEN: building default 0; A no override, B override 450, C override 0
	// WHEN:  materializing March twice
	// THEN:  only B gets a row; A and C are counted as skipped both times,
	//        the second run creates nothing
	m, mem := newTestMaterializer(t)
	seedBuilding(t, mem, money("0"),
		cashTenant("A", "1", decimal.NullDecimal{}),
		cashTenant("B", "2", money("450")),
		cashTenant("C", "3", money("0")),
	)
	ctx := context.Background()

	report, err := m.Materialize(ctx, committee, march)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 2, report.SkippedNoFee)
	assert.Equal(t, 0, report.AlreadyExisted)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, billing.TenantID("A"), report.Skipped[0].ID)
	assert.Equal(t, billing.TenantID("C"), report.Skipped[1].ID)
	assert.Contains(t, report.Summary(), "2 tenants skipped (no fee configured)")

	again, err := m.Materialize(ctx, committee, march)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 1, again.AlreadyExisted)
	assert.Equal(t, 2, again.SkippedNoFee)

	rows, err := mem.ListPayments(ctx, "b1", billing.PaymentFilter{Month: &march})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMaterialize_Idempotent(t *testing.T) {
	m, mem := newTestMaterializer(t)
	seedBuilding(t, mem, money("300"),
		cashTenant("A", "1", decimal.NullDecimal{}),
		cashTenant("B", "2", money("450")),
		cashTenant("C", "3", decimal.NullDecimal{}),
	)
	ctx := context.Background()

	_, err := m.Materialize(ctx, committee, march)
	require.NoError(t, err)
	again, err := m.Materialize(ctx, committee, march)
	require.NoError(t, err)

	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 3, again.AlreadyExisted)
	assert.Empty(t, again.Payments)

	rows, err := mem.ListPayments(ctx, "b1", billing.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestMaterialize_StandingOrderStartsPaid(t *testing.T) {
	m, mem := newTestMaterializer(t)
	active := billing.Tenant{ID: "so-on", Apartment: "1", PaymentMethod: billing.MethodStandingOrder, StandingOrderActive: true}
	inactive := billing.Tenant{ID: "so-off", Apartment: "2", PaymentMethod: billing.MethodStandingOrder, StandingOrderActive: false}
	cash := billing.Tenant{ID: "cash", Apartment: "3", PaymentMethod: billing.MethodCash, StandingOrderActive: true}
	seedBuilding(t, mem, money("250"), active, inactive, cash)

	report, err := m.Materialize(context.Background(), committee, march)
	require.NoError(t, err)
	require.Len(t, report.Payments, 3)

	paid := map[billing.TenantID]bool{}
	for _, p := range report.Payments {
		paid[p.TenantID] = p.Paid
		if p.Paid {
			require.NotNil(t, p.PaidAt)
		} else {
			assert.Nil(t, p.PaidAt)
		}
	}
	assert.Equal(t, map[billing.TenantID]bool{"so-on": true, "so-off": false, "cash": false}, paid)
}

func TestMaterialize_OnlyMissingTenantsGetRows(t *testing.T) {
	// GIVEN: A already has a March row with a hand-corrected amount
	// WHEN:  materializing March
	// THEN:  A's row is untouched, B gets a new row
	m, mem := newTestMaterializer(t)
	seedBuilding(t, mem, money("300"),
		cashTenant("A", "1", decimal.NullDecimal{}),
		cashTenant("B", "2", decimal.NullDecimal{}),
	)
	ctx := context.Background()
	_, err := mem.InsertPaymentsIfAbsent(ctx, []billing.Payment{{
		ID: "manual", BuildingID: "b1", TenantID: "A", Month: march, Amount: dec("280"), PaymentMethod: billing.MethodCash,
	}})
	require.NoError(t, err)

	report, err := m.Materialize(ctx, committee, march)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.AlreadyExisted)

	manual, err := mem.GetPayment(ctx, "b1", "manual")
	require.NoError(t, err)
	assert.Equal(t, "280", manual.Amount.String())
}

func TestMaterialize_InsertFailureReportsWholeRunFailed(t *testing.T) {
	m, mem := newTestMaterializer(t)
	seedBuilding(t, mem, money("300"), cashTenant("A", "1", decimal.NullDecimal{}))
	mem.FailInserts = errors.New("constraint violation")

	report, err := m.Materialize(context.Background(), committee, march)

	require.Error(t, err)
	var merr *billing.MaterializeError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, march, merr.Month)
	assert.Equal(t, 0, report.Created, "no partial accounting on failure")

	mem.FailInserts = nil
	retry, err := m.Materialize(context.Background(), committee, march)
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Created)
}

func TestMaterialize_ScopeChecks(t *testing.T) {
	m, mem := newTestMaterializer(t)
	seedBuilding(t, mem, money("300"), cashTenant("A", "1", decimal.NullDecimal{}))
	ctx := context.Background()

	_, err := m.Materialize(ctx, billing.BuildingScope{Role: billing.RoleCommittee}, march)
	assert.ErrorIs(t, err, billing.ErrScopeRequired)

	_, err = m.Materialize(ctx, billing.BuildingScope{BuildingID: "b1", Role: billing.RoleTenant}, march)
	assert.ErrorIs(t, err, billing.ErrForbidden)

	_, err = m.Materialize(ctx, committee, billing.Month{Year: 2025, Month: 13})
	assert.ErrorIs(t, err, billing.ErrInvalidMonth)

	_, err = m.Materialize(ctx, billing.BuildingScope{BuildingID: "other", Role: billing.RoleAdmin}, march)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestMaterialize_OtherBuildingsUntouched(t *testing.T) {
	m, mem := newTestMaterializer(t)
	seedBuilding(t, mem, money("300"), cashTenant("A", "1", decimal.NullDecimal{}))
	ctx := context.Background()
	require.NoError(t, mem.SaveBuilding(ctx, billing.Building{ID: "b2", DefaultFee: money("999")}))
	require.NoError(t, mem.SaveTenant(ctx, billing.Tenant{ID: "Z", BuildingID: "b2", PaymentMethod: billing.MethodCash}))

	_, err := m.Materialize(ctx, committee, march)
	require.NoError(t, err)

	rows, err := mem.ListPayments(ctx, "b2", billing.PaymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPlanPayments_Pure(t *testing.T) {
	b := billing.Building{ID: "b1", DefaultFee: money("300")}
	tenants := []billing.Tenant{
		cashTenant("A", "1", decimal.NullDecimal{}),
		cashTenant("B", "2", money("450")),
	}
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ids := func() string { return "id" }

	report := billing.PlanPayments(march, b, tenants, map[billing.TenantID]bool{"B": true}, now, ids)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.AlreadyExisted)
	require.Len(t, report.Payments, 1)
	assert.Equal(t, billing.TenantID("A"), report.Payments[0].TenantID)
	assert.Equal(t, now, report.Payments[0].CreatedAt)
}
