package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

func TestSummarize(t *testing.T) {
	// GIVEN: opening balance 1000, Feb and Mar fees, one paid extra charge,
	//        a monthly 100 expense from January and a bi-monthly 200 from January
	b := billing.Building{ID: "b1", OpeningBalance: dec("1000"), DefaultFee: decimal.NewNullDecimal(dec("300"))}
	feb := billing.NewMonth(2025, time.February)

	payments := []billing.Payment{
		{TenantID: "A", Month: feb, Amount: dec("300"), Paid: true},
		{TenantID: "A", Month: march, Amount: dec("300"), Paid: true},
		{TenantID: "B", Month: march, Amount: dec("450"), Paid: false},
		{TenantID: "A", Month: march.Add(1), Amount: dec("300"), Paid: true},
	}
	charges := []billing.ExtraCharge{
		{TenantID: "B", Amount: dec("50"), Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Paid: true},
		{TenantID: "B", Amount: dec("70"), Date: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), Paid: false},
	}
	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	expenses := []billing.Expense{
		expense(jan, billing.RecurrenceMonthly, "100"),
		expense(jan, billing.RecurrenceBiMonthly, "200"),
	}

	// WHEN: summarizing March
	s := billing.Summarize(b, march, payments, charges, expenses)

	// THEN
	assert.Equal(t, "750", s.Billed.String())
	assert.Equal(t, "300", s.Collected.String())
	assert.Equal(t, "450", s.Outstanding.String())
	assert.Equal(t, 1, s.PaidCount)
	assert.Equal(t, 1, s.UnpaidCount)
	assert.Equal(t, "50", s.ExtraCollected.String())
	// March: monthly 100 + bi-monthly shown as 100
	assert.Len(t, s.DueExpenses, 2)
	assert.Equal(t, "200", s.ExpensesDue.String())
	assert.Equal(t, "150", s.Net.String())
	// 1000 + 600 fees + 50 charge - 300 monthly - 400 bi-monthly (Jan, Mar)
	assert.Equal(t, "950", s.CashBalance.String())
}

func TestSummarize_EmptyMonth(t *testing.T) {
	b := billing.Building{ID: "b1", OpeningBalance: dec("250")}

	s := billing.Summarize(b, march, nil, nil, nil)

	assert.True(t, s.Billed.IsZero())
	assert.True(t, s.Net.IsZero())
	assert.Equal(t, "250", s.CashBalance.String())
	assert.Empty(t, s.DueExpenses)
}

func TestSummarize_ChargeLateOnLastDay(t *testing.T) {
	// GIVEN: a paid charge recorded on March 31 in the afternoon
	b := billing.Building{ID: "b1"}
	charges := []billing.ExtraCharge{
		{TenantID: "A", Amount: dec("50"), Date: time.Date(2025, 3, 31, 14, 0, 0, 0, time.UTC), Paid: true},
		{TenantID: "A", Amount: dec("20"), Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), Paid: true},
	}

	// WHEN: summarizing March
	s := billing.Summarize(b, march, nil, charges, nil)

	// THEN: the charge belongs to March, the April one does not
	assert.Equal(t, "50", s.ExtraCollected.String())
	assert.Equal(t, "50", s.CashBalance.String())
}
