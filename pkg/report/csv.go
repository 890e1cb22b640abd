package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV renders the report as a flat CSV for download: one row per child,
// paid first, then owing, then reversed, followed by a totals row.
func (m *Monthly) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"Student", "Reference", "Monthly Fee", "Amount Paid", "Outstanding", "Status", "Payment Date"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, group := range [][]ChildStatus{m.PaidChildren, m.OwingChildren, m.ReversedChildren} {
		for _, c := range group {
			date := ""
			if c.PaymentDate != nil {
				date = c.PaymentDate.Format("2006-01-02")
			}
			row := []string{
				c.FullName,
				c.PaymentReference,
				fmt.Sprintf("%.2f", c.MonthlyFee),
				fmt.Sprintf("%.2f", c.AmountPaid),
				fmt.Sprintf("%.2f", c.Outstanding),
				c.Status,
				date,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	totals := []string{
		fmt.Sprintf("TOTAL (%d children)", m.TotalChildren),
		"",
		fmt.Sprintf("%.2f", m.TotalExpected),
		fmt.Sprintf("%.2f", m.TotalCollected),
		fmt.Sprintf("%.2f", m.TotalOutstanding),
		m.Period,
		"",
	}
	if err := cw.Write(totals); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
