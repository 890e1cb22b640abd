package notify

import (
	"strings"
	"testing"
	"time"
)

const sampleBody = `Standard Bank MyUpdates
Date: 15/01/2025
Amount: R 1,500.00
Reference: STU-2025-001 January Fee
New Balance: R 45,230.50
Description: Payment received
From: John Doe
`

func TestParseEmailFullBody(t *testing.T) {
	p := ParseEmail(sampleBody, "Credit notification")
	if !p.Valid {
		t.Fatalf("not valid: %s", p.ErrorMessage)
	}
	if !p.HasDate || p.TransactionDate.Format("2006-01-02") != "2025-01-15" {
		t.Errorf("date = %v", p.TransactionDate)
	}
	if p.AmountCents != 150000 {
		t.Errorf("amount = %d, want 150000", p.AmountCents)
	}
	if p.Reference != "STU-2025-001 January Fee" {
		t.Errorf("reference = %q", p.Reference)
	}
	if p.BalanceCents == nil || *p.BalanceCents != 4523050 {
		t.Errorf("balance = %v", p.BalanceCents)
	}
	if p.Description != "Payment received" {
		t.Errorf("description = %q", p.Description)
	}
	if p.SenderName != "John Doe" {
		t.Errorf("sender = %q", p.SenderName)
	}
	if p.Type != "CREDIT" {
		t.Errorf("type = %s", p.Type)
	}
}

func TestParseEmailDateLayouts(t *testing.T) {
	for _, date := range []string{"15/01/2025", "2025-01-15", "15-01-2025"} {
		body := "Date: " + date + "\nAmount: 500.00\nReference: STU-2025-001\n"
		p := ParseEmail(body, "")
		if !p.Valid {
			t.Errorf("date %q rejected: %s", date, p.ErrorMessage)
			continue
		}
		if p.TransactionDate.Day() != 15 || int(p.TransactionDate.Month()) != 1 {
			t.Errorf("date %q parsed as %v", date, p.TransactionDate)
		}
	}
}

func TestParseEmailMissingFields(t *testing.T) {
	p := ParseEmail("Amount: 500.00\n", "")
	if p.Valid {
		t.Fatal("expected invalid")
	}
	for _, field := range []string{"date", "reference"} {
		if !strings.Contains(p.ErrorMessage, field) {
			t.Errorf("error %q does not name %s", p.ErrorMessage, field)
		}
	}
	if strings.Contains(p.ErrorMessage, "amount") {
		t.Errorf("amount wrongly reported missing: %q", p.ErrorMessage)
	}
}

func TestParseEmailEmptyBody(t *testing.T) {
	p := ParseEmail("   ", "subject")
	if p.Valid || p.ErrorMessage == "" {
		t.Fatalf("got %+v", p)
	}
}

func TestParseEmailDebitDetection(t *testing.T) {
	body := "Date: 15/01/2025\nAmount: 100.00\nReference: withdrawal at ATM\n"
	p := ParseEmail(body, "Debit notification")
	if p.Type != "DEBIT" {
		t.Errorf("type = %s, want DEBIT", p.Type)
	}
}

func TestParseEmailDefaultsToCredit(t *testing.T) {
	body := "Date: 15/01/2025\nAmount: 100.00\nReference: STU-2025-001\n"
	p := ParseEmail(body, "")
	if p.Type != "CREDIT" {
		t.Errorf("type = %s, want CREDIT", p.Type)
	}
}

func TestParseEmailDescriptionFallsBackToSubject(t *testing.T) {
	body := "Date: 15/01/2025\nAmount: 100.00\nReference: STU-2025-001\n"
	p := ParseEmail(body, "MyUpdates alert")
	if p.Description != "MyUpdates alert" {
		t.Errorf("description = %q", p.Description)
	}
}

func TestDuplicateHashStable(t *testing.T) {
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	a := DuplicateHash(date, 150000, "STU-2025-001 January Fee")
	b := DuplicateHash(date, 150000, "STU-2025-001 January Fee")
	if a != b {
		t.Fatal("hash must be deterministic")
	}
	if c := DuplicateHash(date, 150001, "STU-2025-001 January Fee"); c == a {
		t.Fatal("different amounts must hash apart")
	}
}
