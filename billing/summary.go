package billing

import (
	"github.com/shopspring/decimal"
)

// MonthlySummary is the committee dashboard for one month.
type MonthlySummary struct {
	BuildingID  BuildingID
	Month       Month
	Billed      decimal.Decimal
	Collected   decimal.Decimal
	Outstanding decimal.Decimal
	PaidCount   int
	UnpaidCount int

	ExtraCollected decimal.Decimal
	ExpensesDue    decimal.Decimal
	DueExpenses    []DueExpense

	// Net is collected fees plus collected extra charges minus the month's
	// displayed expenses.
	Net decimal.Decimal
	// CashBalance is the opening balance plus everything collected minus
	// everything spent, through the end of the month.
	CashBalance decimal.Decimal
}

// Summarize builds the month's summary. payments and charges may span any
// range; only rows relevant to the month (or, for the cash balance, up to
// its end) are counted.
func Summarize(b Building, month Month, payments []Payment, charges []ExtraCharge, expenses []Expense) MonthlySummary {
	s := MonthlySummary{
		BuildingID:     b.ID,
		Month:          month,
		Billed:         decimal.Zero,
		Collected:      decimal.Zero,
		Outstanding:    decimal.Zero,
		ExtraCollected: decimal.Zero,
		ExpensesDue:    decimal.Zero,
	}

	cash := b.OpeningBalance

	for _, p := range payments {
		if p.Paid && p.Month.BeforeOrEqual(month) {
			cash = cash.Add(p.Amount)
		}
		if p.Month != month {
			continue
		}
		s.Billed = s.Billed.Add(p.Amount)
		if p.Paid {
			s.Collected = s.Collected.Add(p.Amount)
			s.PaidCount++
		} else {
			s.Outstanding = s.Outstanding.Add(p.Amount)
			s.UnpaidCount++
		}
	}

	for _, c := range charges {
		if !c.Paid || MonthOf(c.Date).After(month) {
			continue
		}
		cash = cash.Add(c.Amount)
		if month.Contains(c.Date) {
			s.ExtraCollected = s.ExtraCollected.Add(c.Amount)
		}
	}

	s.DueExpenses = DueExpenses(expenses, month)
	for _, d := range s.DueExpenses {
		s.ExpensesDue = s.ExpensesDue.Add(d.Amount)
	}
	for _, e := range expenses {
		cash = cash.Sub(SpentThrough(e, month))
	}

	s.Net = s.Collected.Add(s.ExtraCollected).Sub(s.ExpensesDue)
	s.CashBalance = cash
	return s
}
