package export

import (
	"html/template"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
)

// =============================================================================
// DOCUMENT DATA
// =============================================================================

// Receipt is a payment confirmation for one tenant.
type Receipt struct {
	Payment PaymentRow
	Issued  time.Time
}

// ChargeRow is an unpaid extra charge on a notice.
type ChargeRow struct {
	Date   time.Time
	Reason string
	Amount decimal.Decimal
}

// Notice lists what a tenant still owes up to a month.
type Notice struct {
	TenantName string
	Apartment  string
	Month      billing.Month
	Unpaid     []PaymentRow
	Charges    []ChargeRow
	Issued     time.Time
}

// Total is the sum of unpaid payments and charges.
func (n Notice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range n.Unpaid {
		total = total.Add(p.Amount)
	}
	for _, c := range n.Charges {
		total = total.Add(c.Amount)
	}
	return total
}

// NewNotice collects the tenant's unpaid payments through month and unpaid
// extra charges dated in or before it.
func NewNotice(t billing.Tenant, month billing.Month, payments []billing.Payment, charges []billing.ExtraCharge, issued time.Time) Notice {
	n := Notice{TenantName: t.FullName, Apartment: t.Apartment, Month: month, Issued: issued}

	var unpaid []billing.Payment
	for _, p := range payments {
		if p.TenantID == t.ID && !p.Paid && p.Month.BeforeOrEqual(month) {
			unpaid = append(unpaid, p)
		}
	}
	n.Unpaid = PaymentRows(unpaid, []billing.Tenant{t})

	for _, c := range charges {
		if c.TenantID == t.ID && !c.Paid && !billing.MonthOf(c.Date).After(month) {
			n.Charges = append(n.Charges, ChargeRow{Date: c.Date, Reason: c.Reason, Amount: c.Amount})
		}
	}
	return n
}

// =============================================================================
// RENDERING
// =============================================================================

type listPage struct {
	Header BuildingHeader
	Title  string
	Month  billing.Month
}

type paymentsPage struct {
	listPage
	Rows   []PaymentRow
	Totals Totals
}

type expensesPage struct {
	listPage
	Rows  []ExpenseRow
	Total decimal.Decimal
}

type receiptPage struct {
	Header BuildingHeader
	Receipt
}

type noticePage struct {
	Header BuildingHeader
	Notice
}

// PaymentsPrintHTML renders the month's payment list for printing.
func PaymentsPrintHTML(w io.Writer, h BuildingHeader, month billing.Month, rows []PaymentRow) error {
	return pages.ExecuteTemplate(w, "payments", paymentsPage{
		listPage: listPage{Header: h, Title: "Payments " + month.String(), Month: month},
		Rows:     rows,
		Totals:   paymentTotals(rows),
	})
}

// ExpensesPrintHTML renders the month's expense list for printing.
func ExpensesPrintHTML(w io.Writer, h BuildingHeader, month billing.Month, rows []ExpenseRow) error {
	return pages.ExecuteTemplate(w, "expenses", expensesPage{
		listPage: listPage{Header: h, Title: "Expenses " + month.String(), Month: month},
		Rows:     rows,
		Total:    expenseTotal(rows),
	})
}

// ReceiptHTML renders a single payment receipt.
func ReceiptHTML(w io.Writer, h BuildingHeader, r Receipt) error {
	return pages.ExecuteTemplate(w, "receipt", receiptPage{Header: h, Receipt: r})
}

// NoticeHTML renders an unpaid-balance notice for a tenant.
func NoticeHTML(w io.Writer, h BuildingHeader, n Notice) error {
	return pages.ExecuteTemplate(w, "notice", noticePage{Header: h, Notice: n})
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var funcs = template.FuncMap{
	"money": formatMoney,
	"dash":  dash,
	"date": func(t time.Time) string {
		return dash(formatDate(t))
	},
	"datePtr": func(t *time.Time) string {
		return dash(formatDatePtr(t))
	},
	"status":     statusLabel,
	"method":     func(m billing.PaymentMethod) string { return dash(methodLabel(m)) },
	"recurrence": func(r billing.Recurrence) string { return dash(recurrenceLabel(r)) },
}

var pages = template.Must(template.New("pages").Funcs(funcs).Parse(layoutTemplates + documentTemplates))

const layoutTemplates = `
{{define "top"}}<!DOCTYPE html>
<html dir="{{.Header.Direction}}">
<head>
<meta charset="utf-8">
<title>{{.Header.Name}}</title>
<style>
  body { font-family: Arial, sans-serif; margin: 24px; color: #222; }
  header { display: flex; align-items: center; gap: 16px; border-bottom: 2px solid #444; padding-bottom: 8px; margin-bottom: 16px; }
  header img { max-height: 64px; }
  h1 { font-size: 20px; margin: 0; }
  h2 { font-size: 16px; }
  table { width: 100%; border-collapse: collapse; }
  th, td { border: 1px solid #999; padding: 4px 8px; text-align: start; }
  th { background: #eee; }
  tfoot td { font-weight: bold; }
  .unpaid { color: #a00; }
  @media print { body { margin: 0; } }
</style>
</head>
<body onload="window.print()">
<header>
  {{if .Header.LogoURL}}<img src="{{.Header.LogoURL}}" alt="logo">{{end}}
  <div>
    <h1>{{.Header.Name}}</h1>
    <div>{{dash .Header.Address}}</div>
  </div>
</header>
{{end}}

{{define "bottom"}}
</body>
</html>
{{end}}
`

const documentTemplates = `
{{define "payments"}}{{template "top" .}}
<h2>{{.Title}}</h2>
<table>
<thead><tr><th>Tenant</th><th>Apartment</th><th>Floor</th><th>Amount</th><th>Status</th><th>Paid At</th><th>Method</th></tr></thead>
<tbody>
{{range .Rows}}<tr class="{{if .Paid}}paid{{else}}unpaid{{end}}">
  <td>{{dash .TenantName}}</td><td>{{dash .Apartment}}</td><td>{{dash .Floor}}</td>
  <td>{{money .Amount}}</td><td>{{status .Paid}}</td><td>{{datePtr .PaidAt}}</td><td>{{method .Method}}</td>
</tr>
{{end}}</tbody>
<tfoot>
<tr><td colspan="3">Billed</td><td colspan="4">{{money .Totals.Billed}}</td></tr>
<tr><td colspan="3">Collected</td><td colspan="4">{{money .Totals.Collected}}</td></tr>
<tr><td colspan="3">Outstanding</td><td colspan="4">{{money .Totals.Outstanding}}</td></tr>
</tfoot>
</table>
{{template "bottom" .}}{{end}}

{{define "expenses"}}{{template "top" .}}
<h2>{{.Title}}</h2>
<table>
<thead><tr><th>Date</th><th>Category</th><th>Description</th><th>Recurrence</th><th>Amount</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
  <td>{{date .Date}}</td><td>{{dash .Category}}</td><td>{{dash .Description}}</td>
  <td>{{recurrence .Recurrence}}</td><td>{{money .Amount}}</td>
</tr>
{{end}}</tbody>
<tfoot><tr><td colspan="4">Total</td><td>{{money .Total}}</td></tr></tfoot>
</table>
{{template "bottom" .}}{{end}}

{{define "receipt"}}{{template "top" .}}
<h2>Receipt {{.Payment.PaymentID}}</h2>
<table>
<tr><th>Tenant</th><td>{{dash .Payment.TenantName}}</td></tr>
<tr><th>Apartment</th><td>{{dash .Payment.Apartment}}</td></tr>
<tr><th>Month</th><td>{{.Payment.Month}}</td></tr>
<tr><th>Amount</th><td>{{money .Payment.Amount}}</td></tr>
<tr><th>Paid At</th><td>{{datePtr .Payment.PaidAt}}</td></tr>
<tr><th>Method</th><td>{{method .Payment.Method}}</td></tr>
<tr><th>Issued</th><td>{{date .Issued}}</td></tr>
</table>
{{template "bottom" .}}{{end}}

{{define "notice"}}{{template "top" .}}
<h2>Payment notice: {{dash .TenantName}}, apartment {{dash .Apartment}}</h2>
<p>Outstanding balance through {{.Month}}.</p>
<table>
<thead><tr><th>Item</th><th>Date</th><th>Amount</th></tr></thead>
<tbody>
{{range .Unpaid}}<tr><td>Monthly fee {{.Month}}</td><td>{{.Month}}</td><td>{{money .Amount}}</td></tr>
{{end}}{{range .Charges}}<tr><td>{{dash .Reason}}</td><td>{{date .Date}}</td><td>{{money .Amount}}</td></tr>
{{end}}</tbody>
<tfoot><tr><td colspan="2">Total due</td><td>{{money .Total}}</td></tr></tfoot>
</table>
<p>Issued {{date .Issued}}</p>
{{template "bottom" .}}{{end}}
`
