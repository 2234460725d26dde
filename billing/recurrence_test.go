package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

func expense(date time.Time, kind billing.Recurrence, amount string) billing.Expense {
	return billing.Expense{
		ID:         "exp-1",
		BuildingID: "b1",
		Amount:     dec(amount),
		Category:   "cleaning",
		Date:       date,
		Recurrence: kind,
		Active:     true,
	}
}

func TestIsDue_OneTime(t *testing.T) {
	e := expense(time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), billing.RecurrenceOneTime, "500")

	assert.True(t, billing.IsDue(e, billing.NewMonth(2025, time.March)))
	assert.False(t, billing.IsDue(e, billing.NewMonth(2025, time.February)))
	assert.False(t, billing.IsDue(e, billing.NewMonth(2025, time.April)))
	assert.False(t, billing.IsDue(e, billing.NewMonth(2026, time.March)))
}

func TestIsDue_Monthly(t *testing.T) {
	start := billing.NewMonth(2025, time.May)
	e := expense(time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), billing.RecurrenceMonthly, "80")

	assert.False(t, billing.IsDue(e, start.Add(-1)), "not due before start")
	for i := 0; i < 24; i++ {
		assert.True(t, billing.IsDue(e, start.Add(i)), "due %d months after start", i)
	}
}

func TestIsDue_InactiveRecurringNeverDue(t *testing.T) {
	// GIVEN: deactivated monthly and bi-monthly expenses
	// WHEN: checking months where the date rule alone would say due
	// THEN: neither is due
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, kind := range []billing.Recurrence{billing.RecurrenceMonthly, billing.RecurrenceBiMonthly} {
		e := expense(date, kind, "200")
		e.Active = false
		for i := 0; i < 12; i++ {
			assert.False(t, billing.IsDue(e, billing.NewMonth(2025, time.January).Add(i)), "%s month %d", kind, i)
		}
	}
}

func TestIsDue_BiMonthlyParity(t *testing.T) {
	start := billing.NewMonth(2025, time.January)
	e := expense(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), billing.RecurrenceBiMonthly, "200")

	for i := 0; i < 24; i++ {
		assert.Equal(t, i%2 == 0, billing.IsDue(e, start.Add(i)), "month offset %d", i)
	}
	assert.False(t, billing.IsDue(e, start.Add(-2)), "never due before start even when parity matches")
}

func TestIsDue_BiMonthlyWorkedExample(t *testing.T) {
	// Expense dated 2025-01-15, bi-monthly, amount 200.
	e := expense(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), billing.RecurrenceBiMonthly, "200")

	assert.True(t, billing.IsDue(e, billing.NewMonth(2025, time.January)))
	assert.False(t, billing.IsDue(e, billing.NewMonth(2025, time.February)))
	assert.True(t, billing.IsDue(e, billing.NewMonth(2025, time.March)))
	// December is 11 months after January: odd, so not due.
	assert.Equal(t, 11, billing.MonthsBetween(billing.NewMonth(2025, time.January), billing.NewMonth(2025, time.December)))
	assert.False(t, billing.IsDue(e, billing.NewMonth(2025, time.December)))
	// Crossing the year keeps parity: January 2026 is 12 months later.
	assert.True(t, billing.IsDue(e, billing.NewMonth(2026, time.January)))

	assert.Equal(t, "100", billing.DisplayAmount(e).String())
}

func TestIsDue_Pure(t *testing.T) {
	e := expense(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), billing.RecurrenceBiMonthly, "200")
	m := billing.NewMonth(2025, time.July)

	first := billing.IsDue(e, m)
	second := billing.IsDue(e, m)
	assert.Equal(t, first, second)
}

func TestIsDue_UnknownRecurrence(t *testing.T) {
	e := expense(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), billing.Recurrence("weekly"), "200")
	assert.False(t, billing.IsDue(e, billing.NewMonth(2025, time.January)))
}

func TestDisplayAmount_HalvesBiMonthlyInEveryDueMonth(t *testing.T) {
	e := expense(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), billing.RecurrenceBiMonthly, "333")
	start := billing.NewMonth(2025, time.January)

	for i := 0; i < 12; i += 2 {
		due := billing.DueExpenses([]billing.Expense{e}, start.Add(i))
		require.Len(t, due, 1)
		assert.True(t, due[0].Amount.Equal(dec("166.5")), "month %d got %s", i, due[0].Amount)
	}

	monthly := expense(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), billing.RecurrenceMonthly, "333")
	assert.Equal(t, "333", billing.DisplayAmount(monthly).String())
}

func TestDueExpenses_FiltersAndMarksVirtual(t *testing.T) {
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	elevator := expense(jan, billing.RecurrenceMonthly, "150")
	elevator.ID = "elevator"
	garden := expense(jan, billing.RecurrenceBiMonthly, "400")
	garden.ID = "garden"
	paint := expense(mar, billing.RecurrenceOneTime, "2000")
	paint.ID = "paint"
	old := expense(jan, billing.RecurrenceOneTime, "90")
	old.ID = "old"

	due := billing.DueExpenses([]billing.Expense{paint, garden, old, elevator}, billing.NewMonth(2025, time.March))

	require.Len(t, due, 3)
	ids := []billing.ExpenseID{due[0].Expense.ID, due[1].Expense.ID, due[2].Expense.ID}
	assert.Contains(t, ids, billing.ExpenseID("elevator"))
	assert.Contains(t, ids, billing.ExpenseID("garden"))
	assert.Equal(t, billing.ExpenseID("paint"), due[2].Expense.ID, "ordered by date")
	assert.True(t, due[0].Virtual)
	assert.False(t, due[2].Virtual)
}

func TestSpentThrough(t *testing.T) {
	e := expense(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), billing.RecurrenceBiMonthly, "200")

	assert.Equal(t, "0", billing.SpentThrough(e, billing.NewMonth(2024, time.December)).String())
	assert.Equal(t, "200", billing.SpentThrough(e, billing.NewMonth(2025, time.February)).String())
	assert.Equal(t, "600", billing.SpentThrough(e, billing.NewMonth(2025, time.May)).String())

	one := expense(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), billing.RecurrenceOneTime, "75")
	assert.Equal(t, "75", billing.SpentThrough(one, billing.NewMonth(2025, time.June)).String())
}

func TestSplitShared(t *testing.T) {
	assert.Equal(t, "333.33", billing.SplitShared(dec("1000"), 3).String())
	assert.Equal(t, "500", billing.SplitShared(dec("1000"), 2).String())
	assert.Equal(t, "1000", billing.SplitShared(dec("1000"), 1).String())
	assert.Equal(t, "1000", billing.SplitShared(dec("1000"), 0).String())
}
