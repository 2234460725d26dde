package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/billing/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) billing.Store {
		return newTestStore(t)
	})
}

func TestInsertPaymentsIfAbsent_DuplicateInBatch(t *testing.T) {
	// GIVEN: one batch that names the same (tenant, month) twice
	// WHEN:  inserting it
	// THEN:  the unique index keeps the first row only
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveBuilding(ctx, billing.Building{ID: "b1", Name: "Herzl 12"}))

	march := billing.NewMonth(2025, time.March)
	batch := []billing.Payment{
		{ID: "p1", BuildingID: "b1", TenantID: "t1", Month: march, Amount: decimal.NewFromInt(300)},
		{ID: "p2", BuildingID: "b1", TenantID: "t1", Month: march, Amount: decimal.NewFromInt(300)},
	}
	n, err := store.InsertPaymentsIfAbsent(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsertPaymentsIfAbsent_RollsBackOnError(t *testing.T) {
	// GIVEN: a batch whose second row references a missing building
	// WHEN:  inserting it
	// THEN:  the foreign key fails the batch and the first row is not kept
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveBuilding(ctx, billing.Building{ID: "b1", Name: "Herzl 12"}))

	march := billing.NewMonth(2025, time.March)
	batch := []billing.Payment{
		{ID: "p1", BuildingID: "b1", TenantID: "t1", Month: march, Amount: decimal.NewFromInt(300)},
		{ID: "p2", BuildingID: "missing", TenantID: "t2", Month: march, Amount: decimal.NewFromInt(300)},
	}
	_, err := store.InsertPaymentsIfAbsent(ctx, batch)
	require.Error(t, err)

	rows, err := store.ListPayments(ctx, "b1", billing.PaymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPaymentMonthStoredAsFirstOfMonth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveBuilding(ctx, billing.Building{ID: "b1", Name: "Herzl 12"}))

	march := billing.NewMonth(2025, time.March)
	_, err := store.InsertPaymentsIfAbsent(ctx, []billing.Payment{
		{ID: "p1", BuildingID: "b1", TenantID: "t1", Month: march, Amount: decimal.NewFromInt(300)},
	})
	require.NoError(t, err)

	var raw string
	require.NoError(t, store.db.QueryRow("SELECT month FROM payments WHERE id = 'p1'").Scan(&raw))
	assert.Equal(t, "2025-03-01", raw)
}
