package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/mofokengkatleho/katlehouniversity/pkg/money"
)

// HeaderMap lists accepted column names per normalized field so statements
// from different banks can be ingested without code changes. Matching is
// case-insensitive; the first present synonym wins per field.
type HeaderMap struct {
	Date        []string
	Description []string
	Credit      []string
	Debit       []string
	Balance     []string
	Sender      []string
}

func DefaultHeaderMap() HeaderMap {
	return HeaderMap{
		Date:        []string{"date", "transaction date", "value date"},
		Description: []string{"description", "narrative", "details", "reference"},
		Credit:      []string{"deposits", "deposit", "credit", "amount"},
		Debit:       []string{"debit", "withdrawal"},
		Balance:     []string{"balance", "running balance"},
		Sender:      []string{"sender", "payer", "from"},
	}
}

// ParseCSV handles standard header-row CSV exports. SBSA account exports are
// not real CSV (a "Customer Care:" banner precedes a fixed-width listing) and
// are routed to the text line parser instead.
func ParseCSV(data []byte, hm HeaderMap) (*Result, error) {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.Contains(firstLine, []byte("Customer Care:")) {
		res, err := ParseText(string(data))
		if res != nil {
			res.Format = FormatCSV
		}
		return res, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", ErrUnsupportedFormat, err)
	}
	cols := indexHeader(header)

	dateCol, ok := firstMapped(cols, hm.Date)
	if !ok {
		return nil, fmt.Errorf("%w: no date column", ErrUnsupportedFormat)
	}
	descCol, ok := firstMapped(cols, hm.Description)
	if !ok {
		return nil, fmt.Errorf("%w: no description column", ErrUnsupportedFormat)
	}
	creditCol, hasCredit := firstMapped(cols, hm.Credit)
	debitCol, hasDebit := firstMapped(cols, hm.Debit)
	if !hasCredit && !hasDebit {
		return nil, fmt.Errorf("%w: no amount column", ErrUnsupportedFormat)
	}
	balanceCol, hasBalance := firstMapped(cols, hm.Balance)
	senderCol, hasSender := firstMapped(cols, hm.Sender)

	res := &Result{Format: FormatCSV}
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res.Warnings = append(res.Warnings, RowError{Line: line, Reason: err.Error()})
			continue
		}

		raw := strings.Join(rec, ",")
		date, err := ParseDate(field(rec, dateCol))
		if err != nil {
			res.Warnings = append(res.Warnings, RowError{Line: line, Reason: err.Error(), Raw: raw})
			continue
		}

		var cents int64
		var parsed bool
		if hasCredit {
			if v := field(rec, creditCol); v != "" {
				if c, err := money.ParseCents(v); err == nil && c != 0 {
					cents, parsed = c, true
				}
			}
		}
		if !parsed && hasDebit {
			if v := field(rec, debitCol); v != "" {
				if c, err := money.ParseCents(v); err == nil && c != 0 {
					if c > 0 {
						c = -c
					}
					cents, parsed = c, true
				}
			}
		}
		if !parsed {
			res.Warnings = append(res.Warnings, RowError{Line: line, Reason: "unparsable amount", Raw: raw})
			continue
		}

		row := Row{
			Date:        date,
			AmountCents: cents,
			Description: strings.TrimSpace(field(rec, descCol)),
			Raw:         raw,
		}
		if hasBalance {
			if b, err := money.ParseCents(field(rec, balanceCol)); err == nil {
				row.BalanceCents = &b
			}
		}
		if hasSender {
			row.SenderName = strings.TrimSpace(field(rec, senderCol))
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func firstMapped(cols map[string]int, names []string) (int, bool) {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
