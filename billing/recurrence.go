/*
recurrence.go - Which expenses appear in which month

PURPOSE:
  Recurring expenses are stored once. Whether one "appears" in a month is
  decided here, on the fly, from its start date, recurrence kind and
  active flag.

RULES:
  one_time:   due only in the month of the expense date
  monthly:    active AND start month <= target
  bi_monthly: active AND start month <= target AND (target - start) even

  Inactive recurring expenses are never due, whatever the dates say.

AMOUNTS:
  A bi-monthly row stores the two-month total. Month views show half of it
  (DisplayAmount). Cash movements use the stored amount in each due month.

SEE ALSO:
  - summary.go: monthly totals and cash balance
  - export/: CSV and print views of due expenses
*/
package billing

import (
	"sort"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// IsDue reports whether the expense appears in the target month.
func IsDue(e Expense, target Month) bool {
	start := MonthOf(e.Date)

	switch e.Recurrence {
	case RecurrenceOneTime:
		return start == target

	case RecurrenceMonthly:
		if !e.Active {
			return false
		}
		return start.BeforeOrEqual(target)

	case RecurrenceBiMonthly:
		if !e.Active {
			return false
		}
		diff := MonthsBetween(start, target)
		return diff >= 0 && diff%2 == 0

	default:
		return false
	}
}

// DisplayAmount is the per-month amount shown for the expense.
func DisplayAmount(e Expense) decimal.Decimal {
	if e.Recurrence == RecurrenceBiMonthly {
		return e.Amount.Div(two)
	}
	return e.Amount
}

// DueExpense is an expense as it appears in a specific month.
type DueExpense struct {
	Expense Expense
	Month   Month
	Amount  decimal.Decimal
	// Virtual is true when the row is a recurring occurrence after the
	// expense's own month.
	Virtual bool
}

// DueExpenses filters expenses to those due in the month, ordered by
// date then category.
func DueExpenses(expenses []Expense, month Month) []DueExpense {
	var due []DueExpense
	for _, e := range expenses {
		if !IsDue(e, month) {
			continue
		}
		due = append(due, DueExpense{
			Expense: e,
			Month:   month,
			Amount:  DisplayAmount(e),
			Virtual: MonthOf(e.Date) != month,
		})
	}
	sort.SliceStable(due, func(i, j int) bool {
		di, dj := due[i].Expense.Date, due[j].Expense.Date
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return due[i].Expense.Category < due[j].Expense.Category
	})
	return due
}

// SpentThrough sums the cash paid for an expense from its start month up to
// and including the target month.
func SpentThrough(e Expense, target Month) decimal.Decimal {
	start := MonthOf(e.Date)
	if target.Before(start) {
		return decimal.Zero
	}
	if !e.Recurrence.Recurring() {
		return e.Amount
	}
	total := decimal.Zero
	for m := start; m.BeforeOrEqual(target); m = m.Add(1) {
		if IsDue(e, m) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// SplitShared returns one building's share of an expense shared by n
// buildings, rounded to cents. n < 2 returns the original amount.
func SplitShared(original decimal.Decimal, n int) decimal.Decimal {
	if n < 2 {
		return original
	}
	return original.Div(decimal.NewFromInt(int64(n))).Round(2)
}
