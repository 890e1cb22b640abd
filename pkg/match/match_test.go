package match

import (
	"testing"

	"github.com/mofokengkatleho/katlehouniversity/models"
)

func roster() []models.Child {
	return []models.Child{
		{FirstName: "Jane", LastName: "Doe", StudentNumber: "STU-2025-001", PaymentReference: "JDOE", Status: models.StudentActive},
		{FirstName: "Thabo", LastName: "Nkosi", StudentNumber: "STU-2025-002", PaymentReference: "TNKOSI", Status: models.StudentActive},
		{FirstName: "Old", LastName: "Pupil", StudentNumber: "STU-2024-009", PaymentReference: "OPUPIL", Status: models.StudentGraduated},
	}
}

func TestDecideReferenceWins(t *testing.T) {
	txn := models.Transaction{Description: "Payment STU-2025-002 school fees"}
	d := Decide(txn, roster())
	if d.Outcome != Matched || d.Child == nil || d.Child.StudentNumber != "STU-2025-002" {
		t.Fatalf("got %+v", d)
	}
}

func TestDecideReferenceBeatsName(t *testing.T) {
	// Jane Doe's name appears but the reference names Thabo.
	txn := models.Transaction{Description: "JANE DOE STU-2025-002"}
	d := Decide(txn, roster())
	if d.Outcome != Matched || d.Child.StudentNumber != "STU-2025-002" {
		t.Fatalf("got %+v", d)
	}
}

func TestDecideNameMatch(t *testing.T) {
	txn := models.Transaction{Description: "EFT CAPITEC", SenderName: "DOE, JANE"}
	d := Decide(txn, roster())
	if d.Outcome != Matched {
		t.Fatalf("got %+v", d)
	}
	if d.Child.FirstName != "Jane" {
		t.Fatalf("matched wrong child %s", d.Child.FullName())
	}
}

func TestDecideNameMatchIgnoresWordOrder(t *testing.T) {
	// Surname-first with noise words between: token matching, not substring.
	txn := models.Transaction{Description: "ABSA EFT DOE FEES JANE JUNE"}
	d := Decide(txn, roster())
	if d.Outcome != Matched || d.Child.FirstName != "Jane" {
		t.Fatalf("got %+v", d)
	}
}

func TestDecidePaymentReferenceMatch(t *testing.T) {
	txn := models.Transaction{Description: "EFT TNKOSI MAY FEES"}
	d := Decide(txn, roster())
	if d.Outcome != Matched || d.Child.LastName != "Nkosi" {
		t.Fatalf("got %+v", d)
	}
}

func TestDecideAmbiguousNeverGuesses(t *testing.T) {
	txn := models.Transaction{Description: "Jane Doe and Thabo Nkosi fees split"}
	d := Decide(txn, roster())
	if d.Outcome != Ambiguous {
		t.Fatalf("got %+v", d)
	}
	if len(d.Candidates) != 2 {
		t.Fatalf("expected 2 candidates got %d", len(d.Candidates))
	}
	if d.Child != nil {
		t.Fatal("ambiguous decision must not carry a child")
	}
}

func TestDecideInactiveChildrenExcluded(t *testing.T) {
	txn := models.Transaction{Description: "Old Pupil STU-2024-009"}
	d := Decide(txn, roster())
	if d.Outcome != NoMatch {
		t.Fatalf("got %+v", d)
	}
}

func TestDecideUnknownReferenceFallsBackToName(t *testing.T) {
	txn := models.Transaction{Description: "STU-1999-777 Jane Doe"}
	d := Decide(txn, roster())
	if d.Outcome != Matched || d.Child.FirstName != "Jane" {
		t.Fatalf("got %+v", d)
	}
}

func TestDecideNoMatch(t *testing.T) {
	txn := models.Transaction{Description: "INTEREST CAPITALIZED"}
	d := Decide(txn, roster())
	if d.Outcome != NoMatch {
		t.Fatalf("got %+v", d)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"DOE, JANE":        "doe jane",
		"  jane   doe  ":   "jane doe",
		"J.A.N.E d-o-e":    "j a n e d o e",
		"STU-2025-001/ref": "stu 2025 001 ref",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSuggestionsIncludesStudentNumberHits(t *testing.T) {
	txn := models.Transaction{Description: "ref stu-2025-001 maybe jane"}
	got := Suggestions(txn, roster())
	if len(got) != 1 || got[0].FirstName != "Jane" {
		t.Fatalf("got %+v", got)
	}
}
