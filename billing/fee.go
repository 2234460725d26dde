package billing

import "github.com/shopspring/decimal"

// ResolveFee picks the effective monthly fee of a tenant.
//
// The tenant override wins only when present and strictly positive; an
// override of zero falls back to the building default. An absent or
// non-positive default resolves to zero, the "unbilled" state.
func ResolveFee(override, buildingDefault decimal.NullDecimal) decimal.Decimal {
	if override.Valid && override.Decimal.IsPositive() {
		return override.Decimal
	}
	if buildingDefault.Valid && buildingDefault.Decimal.IsPositive() {
		return buildingDefault.Decimal
	}
	return decimal.Zero
}

// TenantFee resolves the fee for a tenant of the given building.
func TenantFee(t Tenant, b Building) decimal.Decimal {
	return ResolveFee(t.MonthlyFee, b.DefaultFee)
}
