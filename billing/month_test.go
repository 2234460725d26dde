package billing_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

func TestParseMonth(t *testing.T) {
	m, err := billing.ParseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, billing.NewMonth(2025, time.March), m)

	m, err = billing.ParseMonth("2025-03-17")
	require.NoError(t, err)
	assert.Equal(t, billing.NewMonth(2025, time.March), m)

	_, err = billing.ParseMonth("2025-13")
	assert.ErrorIs(t, err, billing.ErrInvalidMonth)

	_, err = billing.ParseMonth("march")
	assert.ErrorIs(t, err, billing.ErrInvalidMonth)
}

func TestMonth_Arithmetic(t *testing.T) {
	jan := billing.NewMonth(2025, time.January)

	assert.Equal(t, billing.NewMonth(2025, time.December), jan.Add(11))
	assert.Equal(t, billing.NewMonth(2026, time.February), jan.Add(13))
	assert.Equal(t, billing.NewMonth(2024, time.November), jan.Add(-2))
	assert.Equal(t, 11, billing.MonthsBetween(jan, billing.NewMonth(2025, time.December)))
	assert.Equal(t, -1, billing.MonthsBetween(jan, billing.NewMonth(2024, time.December)))
	assert.True(t, jan.Before(jan.Add(1)))
	assert.True(t, jan.BeforeOrEqual(jan))
}

func TestMonth_Bounds(t *testing.T) {
	feb := billing.NewMonth(2024, time.February)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), feb.Start())
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), feb.End())
	assert.Equal(t, "2024-02-01", feb.DateKey())
	assert.True(t, feb.Contains(time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC)))
	assert.False(t, feb.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMonth_JSON(t *testing.T) {
	var payload struct {
		Month billing.Month `json:"month"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"month":"2025-07"}`), &payload))
	assert.Equal(t, billing.NewMonth(2025, time.July), payload.Month)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"month":"2025-07"}`, string(out))
}
