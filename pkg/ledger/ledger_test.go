package ledger

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/models"
)

func TestRecomputeStatus(t *testing.T) {
	cases := []struct {
		paid, expected, eps int64
		want                models.PaymentStatus
	}{
		{0, 50000, 0, models.PaymentPending},
		{-20000, 50000, 0, models.PaymentPending},
		{20000, 50000, 0, models.PaymentPartial},
		{50000, 50000, 0, models.PaymentPaid},
		{49999, 50000, 1, models.PaymentPaid},
		{50001, 50000, 1, models.PaymentPaid},
		{49998, 50000, 1, models.PaymentPartial},
		{60000, 50000, 0, models.PaymentOverpaid},
	}
	for _, c := range cases {
		if got := RecomputeStatus(c.paid, c.expected, c.eps); got != c.want {
			t.Errorf("RecomputeStatus(%d, %d, %d) = %s, want %s", c.paid, c.expected, c.eps, got, c.want)
		}
	}
}

func TestDelta(t *testing.T) {
	credit := models.Transaction{Type: models.TypeCredit, AmountCents: 50000}
	if d, err := delta(&credit); err != nil || d != 50000 {
		t.Errorf("credit delta = %d, %v", d, err)
	}

	// Reversals subtract their magnitude regardless of the stored sign.
	for _, amt := range []int64{30000, -30000} {
		rev := models.Transaction{Type: models.TypeReversal, AmountCents: amt}
		if d, err := delta(&rev); err != nil || d != -30000 {
			t.Errorf("reversal delta(%d) = %d, %v", amt, d, err)
		}
	}

	debit := models.Transaction{Type: models.TypeDebit, AmountCents: -12000}
	if _, err := delta(&debit); !errors.Is(err, ErrNotApplicable) {
		t.Errorf("debit delta err = %v, want ErrNotApplicable", err)
	}
}

// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
func setupLedger(t *testing.T) (*Ledger, *gorm.DB) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	db, err := gorm.Open(postgres.Open(os.Getenv("DB_DSN")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Child{}, &models.Transaction{}, &models.Payment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, tbl := range []string{"transactions", "payments", "children"} {
		db.Exec("DELETE FROM " + tbl)
	}
	return New(db, 0), db
}

func seedChild(t *testing.T, db *gorm.DB, first, last, studentNumber string, feeCents int64) models.Child {
	c := models.Child{
		FirstName:        first,
		LastName:         last,
		StudentNumber:    studentNumber,
		PaymentReference: studentNumber,
		MonthlyFeeCents:  feeCents,
		AcademicYear:     "2025",
		Status:           models.StudentActive,
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed child: %v", err)
	}
	return c
}

func seedCredit(t *testing.T, db *gorm.DB, ref string, cents int64, date time.Time) models.Transaction {
	txn := models.Transaction{
		BankReference:   ref,
		AmountCents:     cents,
		TransactionDate: date,
		Description:     "EFT " + ref,
		Type:            models.TypeCredit,
		Status:          models.TxnUnmatched,
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return txn
}

func TestApplyRefusesAlreadyLinkedTransaction(t *testing.T) {
	l, db := setupLedger(t)
	winner := seedChild(t, db, "Jane", "Doe", "STU-2025-001", 50000)
	loser := seedChild(t, db, "Thabo", "Nkosi", "STU-2025-002", 50000)

	may := time.Date(2025, 5, 23, 0, 0, 0, 0, time.UTC)
	txn := seedCredit(t, db, "REF-001", 50000, may)

	// A copy of the row as a backlog sweep would hold it, loaded before an
	// admin matches the same transaction by hand.
	stale := txn
	if _, err := l.ManualMatch(txn.ID, winner.ID, 5, 2025, false); err != nil {
		t.Fatalf("manual match: %v", err)
	}

	if _, err := l.Apply(&stale, &loser, true, "name match"); !errors.Is(err, ErrMatchConflict) {
		t.Fatalf("apply stale copy err = %v, want ErrMatchConflict", err)
	}

	var total int64
	db.Model(&models.Payment{}).Select("COALESCE(SUM(amount_paid_cents),0)").Scan(&total)
	if total != 50000 {
		t.Fatalf("applied twice: total paid %d", total)
	}
	var count int64
	db.Model(&models.Payment{}).Count(&count)
	if count != 1 {
		t.Fatalf("stale apply left %d payment rows", count)
	}

	var after models.Transaction
	db.First(&after, txn.ID)
	if after.PaymentID == nil || !after.ManuallyMatched {
		t.Fatalf("manual link overwritten: %+v", after)
	}
}

func TestForceRematchMovesLinkAndRederivesBothPayments(t *testing.T) {
	l, db := setupLedger(t)
	first := seedChild(t, db, "Jane", "Doe", "STU-2025-001", 50000)
	second := seedChild(t, db, "Thabo", "Nkosi", "STU-2025-002", 50000)

	may10 := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	may20 := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	auto := seedCredit(t, db, "REF-010", 20000, may10)
	moved := seedCredit(t, db, "REF-020", 30000, may20)

	if _, err := l.Apply(&auto, &first, true, "matched on reference"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := l.ManualMatch(moved.ID, first.ID, 5, 2025, false); err != nil {
		t.Fatalf("manual match: %v", err)
	}

	// Without force the second match must not move the link.
	if _, err := l.ManualMatch(moved.ID, second.ID, 6, 2025, false); !errors.Is(err, ErrMatchConflict) {
		t.Fatalf("re-match without force err = %v, want ErrMatchConflict", err)
	}

	if _, err := l.ManualMatch(moved.ID, second.ID, 6, 2025, true); err != nil {
		t.Fatalf("forced re-match: %v", err)
	}

	var fromP models.Payment
	if err := db.Where("child_id = ?", first.ID).First(&fromP).Error; err != nil {
		t.Fatalf("losing payment: %v", err)
	}
	if fromP.AmountPaidCents != 20000 || fromP.Status != models.PaymentPartial {
		t.Fatalf("losing payment not re-derived: %+v", fromP)
	}
	if !fromP.MatchedAutomatically || fromP.NeedsReview {
		t.Fatalf("losing payment flags stale: %+v", fromP)
	}
	if !strings.Contains(fromP.Notes, "re-matched away") {
		t.Fatalf("losing payment notes: %q", fromP.Notes)
	}

	var toP models.Payment
	if err := db.Where("child_id = ? AND payment_month = 6", second.ID).First(&toP).Error; err != nil {
		t.Fatalf("winning payment: %v", err)
	}
	if toP.AmountPaidCents != 30000 || toP.Status != models.PaymentPartial || toP.MatchedAutomatically {
		t.Fatalf("winning payment: %+v", toP)
	}

	var after models.Transaction
	db.First(&after, moved.ID)
	if after.PaymentID == nil || *after.PaymentID != toP.ID || after.Status != models.TxnMatched {
		t.Fatalf("link did not move: %+v", after)
	}
}
