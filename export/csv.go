package export

import (
	"encoding/csv"
	"io"
)

// bom is the UTF-8 byte-order mark.
const bom = "\ufeff"

var paymentColumns = []string{"Tenant", "Apartment", "Floor", "Month", "Amount", "Status", "Paid At", "Method"}

var expenseColumns = []string{"Date", "Category", "Description", "Recurrence", "Amount", "Receipt"}

// PaymentsCSV writes the payment rows as CSV.
func PaymentsCSV(w io.Writer, rows []PaymentRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.TenantName,
			r.Apartment,
			r.Floor,
			r.Month.String(),
			formatMoney(r.Amount),
			statusLabel(r.Paid),
			formatDatePtr(r.PaidAt),
			methodLabel(r.Method),
		})
	}
	return writeCSV(w, paymentColumns, records)
}

// ExpensesCSV writes the expense rows as CSV.
func ExpensesCSV(w io.Writer, rows []ExpenseRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			formatDate(r.Date),
			r.Category,
			r.Description,
			recurrenceLabel(r.Recurrence),
			formatMoney(r.Amount),
			r.ReceiptURL,
		})
	}
	return writeCSV(w, expenseColumns, records)
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}
