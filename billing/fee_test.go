package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

func money(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolveFee(t *testing.T) {
	none := decimal.NullDecimal{}

	tests := []struct {
		name     string
		override decimal.NullDecimal
		def      decimal.NullDecimal
		want     string
	}{
		{"override wins when positive", money("450"), money("300"), "450"},
		{"zero override falls back to default", money("0"), money("300"), "300"},
		{"negative override falls back to default", money("-10"), money("300"), "300"},
		{"no override uses default", none, money("300"), "300"},
		{"override without default", money("120.50"), none, "120.5"},
		{"nothing configured is zero", none, none, "0"},
		{"zero default is zero", none, money("0"), "0"},
		{"negative default is zero", none, money("-5"), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := billing.ResolveFee(tt.override, tt.def)
			assert.True(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestTenantFee_UsesBuildingDefault(t *testing.T) {
	b := billing.Building{ID: "b1", DefaultFee: money("300")}
	tenant := billing.Tenant{ID: "t1", BuildingID: "b1"}

	assert.Equal(t, "300", billing.TenantFee(tenant, b).String())
}
