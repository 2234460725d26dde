package gormdb

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
	store, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) billing.Store {
		return newTestStore(t)
	})
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.Error(t, err)
}

func TestInactiveExpenseStaysInactive(t *testing.T) {
	// GIVEN: a recurring expense saved with Active=false
	// WHEN:  reading it back
	// THEN:  the flag survives the insert
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveBuilding(ctx, billing.Building{ID: "b1", Name: "Herzl 12"}))
	require.NoError(t, store.SaveExpense(ctx, billing.Expense{
		ID:         "e1",
		BuildingID: "b1",
		Amount:     decimal.NewFromInt(100),
		Category:   "elevator",
		Date:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Recurrence: billing.RecurrenceMonthly,
		Active:     false,
	}))

	got, err := store.GetExpense(ctx, "b1", "e1")
	require.NoError(t, err)
	assert.False(t, got.Active)
}
