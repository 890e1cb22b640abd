package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mofokengkatleho/katlehouniversity/models"
)

func testRoster() []models.Child {
	return []models.Child{
		{ID: 1, FirstName: "Jane", LastName: "Doe", PaymentReference: "STU-2025-001", MonthlyFeeCents: 50000, Status: models.StudentActive},
		{ID: 2, FirstName: "Thabo", LastName: "Nkosi", PaymentReference: "STU-2025-002", MonthlyFeeCents: 50000, Status: models.StudentActive},
		{ID: 3, FirstName: "Lerato", LastName: "Mokoena", PaymentReference: "STU-2025-003", MonthlyFeeCents: 60000, Status: models.StudentActive},
		{ID: 4, FirstName: "Gone", LastName: "Graduate", PaymentReference: "STU-2023-004", MonthlyFeeCents: 50000, Status: models.StudentGraduated},
	}
}

func TestBuildPartitionsAndTotals(t *testing.T) {
	when := time.Date(2025, 5, 23, 0, 0, 0, 0, time.UTC)
	payments := []models.Payment{
		{ChildID: 1, PaymentMonth: 5, PaymentYear: 2025, AmountPaidCents: 50000, ExpectedCents: 50000, Status: models.PaymentPaid, PaymentDate: &when},
		{ChildID: 2, PaymentMonth: 5, PaymentYear: 2025, AmountPaidCents: 20000, ExpectedCents: 50000, Status: models.PaymentPartial},
		// Wrong period; must be ignored.
		{ChildID: 3, PaymentMonth: 4, PaymentYear: 2025, AmountPaidCents: 60000, ExpectedCents: 60000, Status: models.PaymentPaid},
	}

	rep := Build(5, 2025, testRoster(), payments)

	if rep.Period != "2025-05" || rep.TotalChildren != 3 {
		t.Fatalf("report header: %+v", rep)
	}
	if rep.PaidCount != 1 || rep.OwingCount != 2 {
		t.Fatalf("counts: paid=%d owing=%d", rep.PaidCount, rep.OwingCount)
	}
	if rep.TotalCollected != 700.00 {
		t.Errorf("totalCollected = %v, want 700", rep.TotalCollected)
	}
	if rep.TotalExpected != 1600.00 {
		t.Errorf("totalExpected = %v, want 1600", rep.TotalExpected)
	}
	if rep.TotalOutstanding != 900.00 {
		t.Errorf("totalOutstanding = %v, want 900", rep.TotalOutstanding)
	}

	if len(rep.OwingChildren) != 2 {
		t.Fatalf("owing: %+v", rep.OwingChildren)
	}
	// Lerato has no row for May and reports as pending in full.
	lerato := rep.OwingChildren[0]
	if lerato.FullName != "Lerato Mokoena" || lerato.Status != "PENDING" || lerato.Outstanding != 600.00 {
		t.Errorf("pending child: %+v", lerato)
	}
}

func TestBuildOverpaidClampsOutstanding(t *testing.T) {
	payments := []models.Payment{
		{ChildID: 1, PaymentMonth: 5, PaymentYear: 2025, AmountPaidCents: 60000, ExpectedCents: 50000, Status: models.PaymentOverpaid},
	}
	roster := testRoster()[:1]

	rep := Build(5, 2025, roster, payments)
	if len(rep.PaidChildren) != 1 {
		t.Fatalf("paid: %+v", rep.PaidChildren)
	}
	if rep.PaidChildren[0].Outstanding != 0 {
		t.Errorf("outstanding = %v, want 0", rep.PaidChildren[0].Outstanding)
	}
	if rep.TotalOutstanding != 0 {
		t.Errorf("totalOutstanding = %v, want 0 (clamped)", rep.TotalOutstanding)
	}
}

func TestBuildReversedCountsWithOwing(t *testing.T) {
	payments := []models.Payment{
		{ChildID: 1, PaymentMonth: 5, PaymentYear: 2025, AmountPaidCents: 0, ExpectedCents: 50000, Status: models.PaymentReversed, NeedsReview: true},
	}
	rep := Build(5, 2025, testRoster()[:1], payments)

	if len(rep.ReversedChildren) != 1 || len(rep.OwingChildren) != 0 {
		t.Fatalf("partition: %+v", rep)
	}
	if rep.OwingCount != 1 {
		t.Errorf("owingCount = %d, want 1", rep.OwingCount)
	}
	if rep.TotalOutstanding != 500.00 {
		t.Errorf("totalOutstanding = %v, want 500", rep.TotalOutstanding)
	}
}

func TestBuildNeverMutatesInputs(t *testing.T) {
	payments := []models.Payment{
		{ChildID: 1, PaymentMonth: 5, PaymentYear: 2025, AmountPaidCents: 20000, ExpectedCents: 50000, Status: models.PaymentPartial},
	}
	Build(5, 2025, testRoster(), payments)
	if payments[0].AmountPaidCents != 20000 || payments[0].Status != models.PaymentPartial {
		t.Fatalf("input mutated: %+v", payments[0])
	}
}

func TestWriteCSV(t *testing.T) {
	when := time.Date(2025, 5, 23, 0, 0, 0, 0, time.UTC)
	payments := []models.Payment{
		{ChildID: 1, PaymentMonth: 5, PaymentYear: 2025, AmountPaidCents: 50000, ExpectedCents: 50000, Status: models.PaymentPaid, PaymentDate: &when},
	}
	rep := Build(5, 2025, testRoster(), payments)

	var buf bytes.Buffer
	if err := rep.WriteCSV(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Jane Doe,STU-2025-001,500.00,500.00,0.00,PAID,2025-05-23") {
		t.Errorf("missing paid row:\n%s", out)
	}
	if !strings.Contains(out, "TOTAL (3 children)") {
		t.Errorf("missing totals row:\n%s", out)
	}
}
