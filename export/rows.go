/*
Package export renders payments and expenses for people: a CSV file for
spreadsheets and printable HTML pages (lists, receipts, unpaid notices).

PURPOSE:
  Stateless formatting of rows the caller already resolved. Nothing here
  touches the store; the only errors returned are write errors.

CONVENTIONS:
  - CSV files start with a UTF-8 byte-order mark so spreadsheet tools keep
    Hebrew text intact.
  - Missing optional values are an empty CSV cell and "-" in HTML.
  - Money is printed with two decimals.
*/
package export

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// BuildingHeader is the identity block printed at the top of every page.
type BuildingHeader struct {
	Name    string
	Address string
	LogoURL string
	// Dir is the text direction, "rtl" or "ltr". Empty means "rtl".
	Dir string
}

// HeaderOf builds the page header of a building.
func HeaderOf(b billing.Building) BuildingHeader {
	return BuildingHeader{Name: b.Name, Address: b.Address, LogoURL: b.LogoURL, Dir: "rtl"}
}

// Direction returns the effective text direction.
func (h BuildingHeader) Direction() string {
	if h.Dir == "ltr" {
		return "ltr"
	}
	return "rtl"
}

// PaymentRow is one payment joined with its tenant.
type PaymentRow struct {
	PaymentID  billing.PaymentID
	TenantName string
	Apartment  string
	Floor      string
	Month      billing.Month
	Amount     decimal.Decimal
	Paid       bool
	PaidAt     *time.Time
	Method     billing.PaymentMethod
}

// PaymentRows joins payments with tenant names. Payments of deleted tenants
// keep an empty name.
func PaymentRows(payments []billing.Payment, tenants []billing.Tenant) []PaymentRow {
	byID := make(map[billing.TenantID]billing.Tenant, len(tenants))
	for _, t := range tenants {
		byID[t.ID] = t
	}

	rows := make([]PaymentRow, 0, len(payments))
	for _, p := range payments {
		t := byID[p.TenantID]
		rows = append(rows, PaymentRow{
			PaymentID:  p.ID,
			TenantName: t.FullName,
			Apartment:  t.Apartment,
			Floor:      t.Floor,
			Month:      p.Month,
			Amount:     p.Amount,
			Paid:       p.Paid,
			PaidAt:     p.PaidAt,
			Method:     p.PaymentMethod,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Month != rows[j].Month {
			return rows[i].Month.Before(rows[j].Month)
		}
		if rows[i].Floor != rows[j].Floor {
			return rows[i].Floor < rows[j].Floor
		}
		return rows[i].Apartment < rows[j].Apartment
	})
	return rows
}

// ExpenseRow is an expense as shown in a month.
type ExpenseRow struct {
	Date        time.Time
	Category    string
	Description string
	Recurrence  billing.Recurrence
	Amount      decimal.Decimal
	ReceiptURL  string
}

// ExpenseRows converts the month's due expenses. Amounts are the display
// amounts (half for bi-monthly).
func ExpenseRows(due []billing.DueExpense) []ExpenseRow {
	rows := make([]ExpenseRow, 0, len(due))
	for _, d := range due {
		rows = append(rows, ExpenseRow{
			Date:        d.Expense.Date,
			Category:    d.Expense.Category,
			Description: d.Expense.Description,
			Recurrence:  d.Expense.Recurrence,
			Amount:      d.Amount,
			ReceiptURL:  d.Expense.ReceiptURL,
		})
	}
	return rows
}

// Totals of a payment list.
type Totals struct {
	Billed      decimal.Decimal
	Collected   decimal.Decimal
	Outstanding decimal.Decimal
}

func paymentTotals(rows []PaymentRow) Totals {
	t := Totals{Billed: decimal.Zero, Collected: decimal.Zero, Outstanding: decimal.Zero}
	for _, r := range rows {
		t.Billed = t.Billed.Add(r.Amount)
		if r.Paid {
			t.Collected = t.Collected.Add(r.Amount)
		} else {
			t.Outstanding = t.Outstanding.Add(r.Amount)
		}
	}
	return t
}

func expenseTotal(rows []ExpenseRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

// =============================================================================
// CELL FORMATTING
// =============================================================================

const dateLayout = "2006-01-02"

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

func statusLabel(paid bool) string {
	if paid {
		return "Paid"
	}
	return "Unpaid"
}

func methodLabel(m billing.PaymentMethod) string {
	switch m {
	case billing.MethodCash:
		return "Cash"
	case billing.MethodStandingOrder:
		return "Standing order"
	default:
		return ""
	}
}

func recurrenceLabel(r billing.Recurrence) string {
	switch r {
	case billing.RecurrenceOneTime:
		return "One-time"
	case billing.RecurrenceMonthly:
		return "Monthly"
	case billing.RecurrenceBiMonthly:
		return "Bi-monthly"
	default:
		return ""
	}
}
