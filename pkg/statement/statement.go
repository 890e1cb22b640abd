// Package statement parses uploaded bank statements (CSV, markdown tables,
// PDF-extracted text) into normalized transaction rows. It knows nothing
// about children or payments; matching happens downstream on the normalized
// shape.
package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a row by the direction of money movement. Only credits are
// candidates for automatic matching; debits and reversals are kept for audit.
type Kind string

const (
	KindCredit   Kind = "CREDIT"
	KindDebit    Kind = "DEBIT"
	KindReversal Kind = "REVERSAL"
)

// Row is one normalized statement line. AmountCents is signed: deposits are
// positive, debits negative. Reversals carry the reversed magnitude as a
// positive value with Kind KindReversal.
type Row struct {
	Date         time.Time
	AmountCents  int64
	BalanceCents *int64
	Description  string
	SenderName   string
	Raw          string
}

// RowError records a malformed line that was skipped. Row errors are
// warnings, never fatal to the file.
type RowError struct {
	Line   int
	Reason string
	Raw    string
}

// Result is the parse output: recovered rows in file order plus per-row
// warnings for everything that had to be skipped.
type Result struct {
	Format   Format
	Rows     []Row
	Warnings []RowError
}

type Format string

const (
	FormatCSV      Format = "CSV"
	FormatMarkdown Format = "MARKDOWN"
	FormatPDFText  Format = "PDF"
)

var reversalMarkers = []string{"reversal", "reversed", "payment returned", "unpaid debit"}

// Kind derives the movement direction from the signed amount and the
// description wording used by the bank for returned payments.
func (r Row) Kind() Kind {
	desc := strings.ToLower(r.Description)
	for _, m := range reversalMarkers {
		if strings.Contains(desc, m) {
			return KindReversal
		}
	}
	if r.AmountCents < 0 {
		return KindDebit
	}
	return KindCredit
}

// Parse sniffs the format from the filename and content and dispatches to the
// matching adapter. It fails only when the format is unrecognized or no row
// at all could be recovered.
func Parse(fileName string, data []byte) (*Result, error) {
	format, err := DetectFormat(fileName, data)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch format {
	case FormatCSV:
		res, err = ParseCSV(data, DefaultHeaderMap())
	default:
		// Markdown and PDF-extracted text share the same monospace line
		// heuristics.
		res, err = ParseText(string(data))
		if res != nil {
			res.Format = format
		}
	}
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, fmt.Errorf("%w: %d rows skipped", ErrNoRows, len(res.Warnings))
	}
	return res, nil
}

// DetectFormat decides the adapter from the file extension, falling back to a
// content sniff for extensionless uploads.
func DetectFormat(fileName string, data []byte) (Format, error) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(lower, ".md"), strings.HasSuffix(lower, ".markdown"):
		return FormatMarkdown, nil
	case strings.HasSuffix(lower, ".txt"), strings.HasSuffix(lower, ".pdf"):
		return FormatPDFText, nil
	}
	head := string(data)
	if len(head) > 512 {
		head = head[:512]
	}
	if strings.Contains(head, "|") && strings.Contains(head, "---") {
		return FormatMarkdown, nil
	}
	if strings.Contains(head, ",") && strings.Contains(strings.ToLower(head), "date") {
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
}

var dateLayouts = []string{
	"2 Jan 06",
	"02 Jan 2006",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate tries the statement date layouts in order.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// BankReference builds a unique reference for a parsed row. The UUID suffix
// keeps two identical deposits on the same day distinguishable.
func BankReference(date time.Time, amountCents int64) string {
	return fmt.Sprintf("%s-%d-%s", date.Format("2006-01-02"), amountCents, uuid.NewString()[:8])
}
