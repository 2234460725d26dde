package export_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/export"
)

var march = billing.NewMonth(2025, time.March)

func fixtureRows() []export.PaymentRow {
	paidAt := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	tenants := []billing.Tenant{
		{ID: "t1", FullName: "דנה לוי", Apartment: "3", Floor: "1"},
		{ID: "t2", FullName: "Avi Cohen", Apartment: "1", Floor: "1"},
	}
	payments := []billing.Payment{
		{ID: "p1", TenantID: "t1", Month: march, Amount: decimal.NewFromInt(300), PaymentMethod: billing.MethodCash},
		{ID: "p2", TenantID: "t2", Month: march, Amount: decimal.RequireFromString("450.5"), Paid: true, PaidAt: &paidAt, PaymentMethod: billing.MethodStandingOrder},
		{ID: "p3", TenantID: "gone", Month: march, Amount: decimal.NewFromInt(300)},
	}
	return export.PaymentRows(payments, tenants)
}

// =============================================================================
// ROWS
// =============================================================================

func TestPaymentRows_JoinAndOrder(t *testing.T) {
	rows := fixtureRows()
	require.Len(t, rows, 3)

	// Deleted tenant sorts first (empty floor), then apartment 1 before 3.
	assert.Equal(t, "", rows[0].TenantName)
	assert.Equal(t, "Avi Cohen", rows[1].TenantName)
	assert.Equal(t, "דנה לוי", rows[2].TenantName)
}

func TestExpenseRows_UseDisplayAmount(t *testing.T) {
	// GIVEN: a bi-monthly expense of 200 due in March
	// WHEN:  building export rows
	// THEN:  the row carries the display amount 100
	e := billing.Expense{ID: "e1", Amount: decimal.NewFromInt(200), Category: "cleaning",
		Date: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), Recurrence: billing.RecurrenceBiMonthly, Active: true}

	rows := export.ExpenseRows(billing.DueExpenses([]billing.Expense{e}, march))
	require.Len(t, rows, 1)
	assert.Equal(t, "100", rows[0].Amount.String())
}

// =============================================================================
// CSV
// =============================================================================

func TestPaymentsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.PaymentsCSV(&buf, fixtureRows()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"), "starts with a byte-order mark")

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, []string{"Tenant", "Apartment", "Floor", "Month", "Amount", "Status", "Paid At", "Method"}, records[0])
	assert.Equal(t, []string{"", "", "", "2025-03", "300.00", "Unpaid", "", ""}, records[1])
	assert.Equal(t, []string{"Avi Cohen", "1", "1", "2025-03", "450.50", "Paid", "2025-03-04", "Standing order"}, records[2])
	assert.Equal(t, "דנה לוי", records[3][0], "non-Latin text is preserved")
}

func TestExpensesCSV_EmptyOptionalCells(t *testing.T) {
	rows := []export.ExpenseRow{{
		Date:       time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		Category:   "repair",
		Recurrence: billing.RecurrenceOneTime,
		Amount:     decimal.NewFromInt(80),
	}}

	var buf bytes.Buffer
	require.NoError(t, export.ExpensesCSV(&buf, rows))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"2025-03-02", "repair", "", "One-time", "80.00", ""}, records[1])
}

func TestPaymentsCSV_NoRowsStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.PaymentsCSV(&buf, nil))
	assert.Equal(t, "\ufeffTenant,Apartment,Floor,Month,Amount,Status,Paid At,Method\n", buf.String())
}

// =============================================================================
// PRINT
// =============================================================================

func TestPaymentsPrintHTML(t *testing.T) {
	h := export.BuildingHeader{Name: "Herzl 12", Address: "Herzl 12, Haifa", LogoURL: "https://cdn.example.com/logo.png"}

	var buf bytes.Buffer
	require.NoError(t, export.PaymentsPrintHTML(&buf, h, march, fixtureRows()))
	out := buf.String()

	assert.Contains(t, out, `dir="rtl"`)
	assert.Contains(t, out, `<img src="https://cdn.example.com/logo.png"`)
	assert.Contains(t, out, `window.print()`)
	assert.Contains(t, out, "Payments 2025-03")
	assert.Contains(t, out, "1050.50", "billed total")
	assert.Contains(t, out, "450.50", "collected total")
	assert.Contains(t, out, "600.00", "outstanding total")
	assert.Contains(t, out, "<td>-</td>", "missing tenant name renders as a dash")
}

func TestPrintHTML_NoLogoWithoutURL(t *testing.T) {
	h := export.BuildingHeader{Name: "Herzl 12", Dir: "ltr"}

	var buf bytes.Buffer
	require.NoError(t, export.ExpensesPrintHTML(&buf, h, march, nil))
	out := buf.String()

	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, `dir="ltr"`)
	assert.Contains(t, out, "<div>-</div>", "missing address renders as a dash")
}

func TestPrintHTML_EscapesText(t *testing.T) {
	h := export.BuildingHeader{Name: `<script>alert("x")</script>`}

	var buf bytes.Buffer
	require.NoError(t, export.ExpensesPrintHTML(&buf, h, march, nil))
	assert.NotContains(t, buf.String(), "<script>alert")
}

func TestReceiptHTML(t *testing.T) {
	rows := fixtureRows()
	receipt := export.Receipt{Payment: rows[1], Issued: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)}

	var buf bytes.Buffer
	require.NoError(t, export.ReceiptHTML(&buf, export.BuildingHeader{Name: "Herzl 12"}, receipt))
	out := buf.String()

	assert.Contains(t, out, "Receipt p2")
	assert.Contains(t, out, "Avi Cohen")
	assert.Contains(t, out, "450.50")
	assert.Contains(t, out, "2025-03-04")
	assert.Contains(t, out, "Standing order")
}

func TestNotice(t *testing.T) {
	// GIVEN: a tenant with unpaid Feb and March fees, a paid January fee,
	//        an unpaid April fee and one unpaid extra charge in March
	// WHEN:  building the March notice
	// THEN:  Feb + March + charge are listed, April and January are not
	tenant := billing.Tenant{ID: "t1", FullName: "Dana Levi", Apartment: "3"}
	fee := decimal.NewFromInt(300)
	payments := []billing.Payment{
		{ID: "p-jan", TenantID: "t1", Month: march.Add(-2), Amount: fee, Paid: true},
		{ID: "p-feb", TenantID: "t1", Month: march.Add(-1), Amount: fee},
		{ID: "p-mar", TenantID: "t1", Month: march, Amount: fee},
		{ID: "p-apr", TenantID: "t1", Month: march.Add(1), Amount: fee},
		{ID: "p-other", TenantID: "t2", Month: march, Amount: fee},
	}
	charges := []billing.ExtraCharge{
		{ID: "c1", TenantID: "t1", Amount: decimal.NewFromInt(50), Reason: "key copy", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "c2", TenantID: "t1", Amount: decimal.NewFromInt(70), Reason: "penalty-april", Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)},
	}

	n := export.NewNotice(tenant, march, payments, charges, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.Len(t, n.Unpaid, 2)
	require.Len(t, n.Charges, 1)
	assert.Equal(t, "650", n.Total().String())

	var buf bytes.Buffer
	require.NoError(t, export.NoticeHTML(&buf, export.BuildingHeader{Name: "Herzl 12"}, n))
	out := buf.String()
	assert.Contains(t, out, "Dana Levi")
	assert.Contains(t, out, "key copy")
	assert.Contains(t, out, "650.00")
	assert.NotContains(t, out, "penalty-april")
}

func TestNotice_ChargeLateOnLastDay(t *testing.T) {
	tenant := billing.Tenant{ID: "t1", FullName: "Dana Levi"}
	charges := []billing.ExtraCharge{
		{ID: "c1", TenantID: "t1", Amount: decimal.NewFromInt(50), Reason: "key copy", Date: time.Date(2025, 3, 31, 14, 0, 0, 0, time.UTC)},
	}

	n := export.NewNotice(tenant, march, nil, charges, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, n.Charges, 1)
	assert.Equal(t, "50", n.Total().String())
}
