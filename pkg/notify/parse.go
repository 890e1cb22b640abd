// Package notify takes Standard Bank MyUpdates notification emails delivered
// through the webhook and turns them into ledger-applied transactions. The
// email parser is pure; the processor owns persistence and matching.
package notify

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mofokengkatleho/katlehouniversity/pkg/money"
)

// Payload is the webhook body posted by the email forwarder.
type Payload struct {
	EmailID    string `json:"emailId"`
	ReceivedAt string `json:"receivedAt"`
	Sender     string `json:"sender"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	APIKey     string `json:"apiKey"`
	Recipient  string `json:"recipient"`
	Source     string `json:"source"`
}

// Parsed is what the email parser recovered. Valid is true only when date,
// positive amount, and reference are all present.
type Parsed struct {
	TransactionDate time.Time
	HasDate         bool
	AmountCents     int64
	BalanceCents    *int64
	Reference       string
	Description     string
	SenderName      string
	Type            string // CREDIT or DEBIT
	Valid           bool
	ErrorMessage    string
}

// MyUpdates bodies are labelled key/value text: "Date: 15/01/2025",
// "Amount: R 1,500.00", "Reference: STU-2025-001 January Fee".
var (
	dateRE        = regexp.MustCompile(`(?i)Date:\s*(\d{2}[/-]\d{2}[/-]\d{4}|\d{4}-\d{2}-\d{2})`)
	amountRE      = regexp.MustCompile(`(?i)Amount:\s*R?\s*([\d,]+\.\d{2})`)
	referenceRE   = regexp.MustCompile(`(?i)Reference:\s*([^\r\n]+)`)
	balanceRE     = regexp.MustCompile(`(?i)(?:New )?Balance:\s*R?\s*([\d,]+\.\d{2})`)
	descriptionRE = regexp.MustCompile(`(?i)Description:\s*([^\r\n]+)`)
	senderRE      = regexp.MustCompile(`(?i)(?:From|Sender):\s*([^\r\n]+)`)
	creditRE      = regexp.MustCompile(`(?i)\b(credit|deposit|received|payment received)\b`)
	debitRE       = regexp.MustCompile(`(?i)\b(debit|withdrawal|payment sent)\b`)
)

var emailDateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006"}

// ParseEmail extracts transaction details from a MyUpdates email body.
// Extraction failures are reported through Valid and ErrorMessage; the
// function itself never errors.
func ParseEmail(body, subject string) Parsed {
	var p Parsed
	if strings.TrimSpace(body) == "" {
		p.ErrorMessage = "email body is empty"
		return p
	}

	if m := dateRE.FindStringSubmatch(body); m != nil {
		for _, layout := range emailDateLayouts {
			if t, err := time.Parse(layout, m[1]); err == nil {
				p.TransactionDate = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
				p.HasDate = true
				break
			}
		}
	}

	if m := amountRE.FindStringSubmatch(body); m != nil {
		if cents, err := money.ParseCents(m[1]); err == nil {
			p.AmountCents = cents
		}
	}

	if m := referenceRE.FindStringSubmatch(body); m != nil {
		p.Reference = strings.TrimSpace(m[1])
	}

	if m := balanceRE.FindStringSubmatch(body); m != nil {
		if cents, err := money.ParseCents(m[1]); err == nil {
			p.BalanceCents = &cents
		}
	}

	if m := descriptionRE.FindStringSubmatch(body); m != nil {
		p.Description = strings.TrimSpace(m[1])
	}
	if p.Description == "" {
		// Fall back to the subject, then the opening of the body.
		if subject != "" {
			p.Description = subject
		} else {
			p.Description = body[:min(100, len(body))]
		}
	}

	if m := senderRE.FindStringSubmatch(body); m != nil {
		p.SenderName = strings.TrimSpace(m[1])
	}

	p.Type = detectType(body, subject)

	var missing []string
	if !p.HasDate {
		missing = append(missing, "date")
	}
	if p.AmountCents <= 0 {
		missing = append(missing, "amount")
	}
	if p.Reference == "" {
		missing = append(missing, "reference")
	}
	if len(missing) > 0 {
		p.ErrorMessage = "missing required fields: " + strings.Join(missing, ", ")
		return p
	}
	p.Valid = true
	return p
}

// detectType defaults to CREDIT: the account under reconciliation only ever
// receives fee payments, and unlabelled notifications are assumed inbound.
func detectType(body, subject string) string {
	combined := strings.ToLower(body + " " + subject)
	if creditRE.MatchString(combined) {
		return "CREDIT"
	}
	if debitRE.MatchString(combined) {
		return "DEBIT"
	}
	return "CREDIT"
}

// DuplicateHash is the redelivery key: SHA-256 of date|amount|reference,
// base64 encoded. Two forwardings of the same email collapse to one row.
func DuplicateHash(date time.Time, amountCents int64, ref string) string {
	combined := fmt.Sprintf("%s|%d|%s", date.Format("2006-01-02"), amountCents, ref)
	sum := sha256.Sum256([]byte(combined))
	return base64.StdEncoding.EncodeToString(sum[:])
}
