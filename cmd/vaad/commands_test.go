package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yairkad/vaad-bayit-sub000/auth"
	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/billing/store"
)

func TestWriteExport(t *testing.T) {
	// GIVEN: a building with one materialized March payment and a monthly expense
	// WHEN: exporting each kind in each format
	// THEN: the output carries the rows
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveBuilding(ctx, billing.Building{ID: "b1", Name: "Herzl 12", DefaultFee: decimal.NewNullDecimal(decimal.NewFromInt(300))}))
	require.NoError(t, mem.SaveTenant(ctx, billing.Tenant{ID: "t1", BuildingID: "b1", FullName: "Dana Levi", PaymentMethod: billing.MethodCash}))
	require.NoError(t, mem.SaveExpense(ctx, billing.Expense{
		ID: "e1", BuildingID: "b1", Amount: decimal.NewFromInt(400), Category: "Cleaning",
		Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Recurrence: billing.RecurrenceMonthly, Active: true,
	}))

	march := billing.NewMonth(2025, time.March)
	_, err := billing.NewMaterializer(mem).Materialize(ctx, billing.BuildingScope{BuildingID: "b1", UserID: "cli", Role: billing.RoleAdmin}, march)
	require.NoError(t, err)

	tests := []struct {
		kind, format, want string
	}{
		{"payments", "csv", "Dana Levi"},
		{"payments", "html", `dir="rtl"`},
		{"expenses", "csv", "Cleaning"},
		{"expenses", "html", "400.00"},
	}
	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeExport(ctx, &buf, mem, "b1", march, tt.kind, tt.format))
			assert.Contains(t, buf.String(), tt.want)
		})
	}

	var buf bytes.Buffer
	err = writeExport(ctx, &buf, mem, "missing", march, "payments", "csv")
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("DEV_MODE", "false")

	var out bytes.Buffer
	cmd := tokenCmd(&globalFlags{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--building", "b1", "--user", "u-1", "--role", "tenant"})
	require.NoError(t, cmd.Execute())

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), "cli-secret")
	require.NoError(t, err)
	assert.Equal(t, billing.BuildingScope{BuildingID: "b1", UserID: "u-1", Role: billing.RoleTenant}, claims.Scope())

	cmd = tokenCmd(&globalFlags{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--role", "committee"})
	assert.Error(t, cmd.Execute(), "committee tokens need a building")
}

func TestMonthOrCurrent(t *testing.T) {
	m, err := monthOrCurrent("2025-03")
	require.NoError(t, err)
	assert.Equal(t, billing.NewMonth(2025, time.March), m)

	_, err = monthOrCurrent("03/2025")
	assert.Error(t, err)

	m, err = monthOrCurrent("")
	require.NoError(t, err)
	assert.Equal(t, billing.MonthOf(time.Now().UTC()), m)
}

func TestAdminScope(t *testing.T) {
	scope, err := adminScope("b1")
	require.NoError(t, err)
	assert.Equal(t, billing.RoleAdmin, scope.Role)

	_, err = adminScope("")
	assert.Error(t, err)
}

func TestServeCommand_RejectsNonPositiveCheckInterval(t *testing.T) {
	var out bytes.Buffer
	cmd := serveCmd(&globalFlags{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--auto-materialize", "--check-interval=0"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--check-interval must be positive")
}
