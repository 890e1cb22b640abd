package statement

import (
	"regexp"
	"strings"

	"github.com/mofokengkatleho/katlehouniversity/pkg/money"
)

// Candidate transaction lines open with a "23 May 25" style date.
var lineDateRE = regexp.MustCompile(`^\d{1,2} [A-Za-z]{3} \d{2}\b`)

// Monetary tokens end in a two-digit cents part, optionally with a trailing
// minus as printed on some statements.
var centsTokenRE = regexp.MustCompile(`^-?\(?[0-9][0-9,.]*[.,]\d{2}\)?-?$`)

// Table separator rows are all dashes/colons once the pipes are stripped.
var mdSeparatorRE = regexp.MustCompile(`^[\s|:-]+$`)

// ParseText recovers transaction rows from monospace statement text: SBSA
// account listings, PDF-extracted pages, and markdown tables all reduce to
// the same shapes. Banner and header lines are skipped silently; lines that
// look like transactions but fail to parse become warnings.
func ParseText(text string) (*Result, error) {
	res := &Result{Format: FormatPDFText}

	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(line), `"`))
		if trimmed == "" || isBannerLine(trimmed) {
			continue
		}

		if strings.HasPrefix(trimmed, "|") {
			if mdSeparatorRE.MatchString(trimmed) {
				continue
			}
			row, reason := parseMarkdownRow(trimmed)
			if reason != "" {
				// Header rows like "| Date | Description |..." carry no
				// amount and are not worth a warning.
				if strings.Contains(strings.ToLower(trimmed), "date") {
					continue
				}
				res.Warnings = append(res.Warnings, RowError{Line: lineNo, Reason: reason, Raw: trimmed})
				continue
			}
			res.Rows = append(res.Rows, row)
			continue
		}

		if !lineDateRE.MatchString(trimmed) {
			continue
		}
		row, reason := parseStatementLine(trimmed)
		if reason != "" {
			res.Warnings = append(res.Warnings, RowError{Line: lineNo, Reason: reason, Raw: trimmed})
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func isBannerLine(line string) bool {
	for _, marker := range []string{"Date Description", "STATEMENT", "Transaction details", "Customer Care"} {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// parseStatementLine handles the fixed layout
// "23 May 25 CAPITEC KELEBOGILE XABA 700.00 4,918.02": date in the first
// three tokens, then description, then amount and running balance scanned
// from the right.
func parseStatementLine(line string) (Row, string) {
	parts := strings.Fields(line)
	if len(parts) < 5 {
		return Row{}, "too few fields"
	}

	date, err := ParseDate(strings.Join(parts[0:3], " "))
	if err != nil {
		return Row{}, err.Error()
	}

	amountIdx, balanceIdx := -1, -1
	for i := len(parts) - 1; i >= 3; i-- {
		if !centsTokenRE.MatchString(parts[i]) {
			continue
		}
		if balanceIdx == -1 {
			balanceIdx = i
			continue
		}
		amountIdx = i
		break
	}
	if balanceIdx == -1 {
		return Row{}, "no amount found"
	}
	if amountIdx == -1 {
		// Single monetary token: treat it as the amount, no balance column.
		amountIdx, balanceIdx = balanceIdx, -1
	}

	cents, err := money.ParseCents(trailingMinus(parts[amountIdx]))
	if err != nil {
		return Row{}, err.Error()
	}
	row := Row{
		Date:        date,
		AmountCents: cents,
		Description: strings.Join(parts[3:amountIdx], " "),
		Raw:         line,
	}
	if row.Description == "" {
		return Row{}, "empty description"
	}
	if balanceIdx != -1 {
		if b, err := money.ParseCents(trailingMinus(parts[balanceIdx])); err == nil {
			row.BalanceCents = &b
		}
	}
	return row, ""
}

// parseMarkdownRow handles pipe tables of the shape
// "| 23 May 25 | CAPITEC K XABA | 700.00 | 4,918.02 |".
func parseMarkdownRow(line string) (Row, string) {
	var cells []string
	for _, c := range strings.Split(strings.Trim(line, "|"), "|") {
		cells = append(cells, strings.TrimSpace(c))
	}
	if len(cells) < 3 {
		return Row{}, "too few columns"
	}

	date, err := ParseDate(cells[0])
	if err != nil {
		return Row{}, err.Error()
	}

	amountIdx, balanceIdx := -1, -1
	for i := len(cells) - 1; i >= 1; i-- {
		if !centsTokenRE.MatchString(strings.ReplaceAll(cells[i], " ", "")) {
			continue
		}
		if balanceIdx == -1 {
			balanceIdx = i
			continue
		}
		amountIdx = i
		break
	}
	if balanceIdx == -1 {
		return Row{}, "no amount found"
	}
	if amountIdx == -1 {
		amountIdx, balanceIdx = balanceIdx, -1
	}

	cents, err := money.ParseCents(trailingMinus(cells[amountIdx]))
	if err != nil {
		return Row{}, err.Error()
	}
	row := Row{
		Date:        date,
		AmountCents: cents,
		Description: strings.Join(cells[1:amountIdx], " "),
		Raw:         line,
	}
	if row.Description == "" {
		return Row{}, "empty description"
	}
	if balanceIdx != -1 {
		if b, err := money.ParseCents(trailingMinus(cells[balanceIdx])); err == nil {
			row.BalanceCents = &b
		}
	}
	return row, ""
}

// trailingMinus normalizes "700.00-" (debit notation on some statements) to
// a leading sign.
func trailingMinus(tok string) string {
	if strings.HasSuffix(tok, "-") && !strings.HasPrefix(tok, "-") {
		return "-" + strings.TrimSuffix(tok, "-")
	}
	return tok
}
