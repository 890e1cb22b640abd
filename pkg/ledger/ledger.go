// Package ledger owns per-(child, month, year) payment state. It is the only
// code allowed to mutate Payment.AmountPaidCents: the matching engine decides,
// the ledger applies. Applications for the same period serialize on a per-key
// lock on top of the database transaction.
package ledger

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/models"
)

type Ledger struct {
	db  *gorm.DB
	eps int64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a ledger over db. epsilonCents absorbs rounding drift when
// deciding PAID versus PARTIAL/OVERPAID; zero means exact.
func New(db *gorm.DB, epsilonCents int64) *Ledger {
	return &Ledger{db: db, eps: epsilonCents, locks: map[string]*sync.Mutex{}}
}

// lockPeriod serializes writers per (child, month, year). The lock map only
// grows, bounded by children x billing periods.
func (l *Ledger) lockPeriod(childID uint, month, year int) func() {
	key := fmt.Sprintf("%d-%04d-%02d", childID, year, month)
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// RecomputeStatus is the payment state machine. Reversal handling (net sum
// driven to zero or below) is layered on top by the callers.
func RecomputeStatus(paidCents, expectedCents, epsCents int64) models.PaymentStatus {
	switch {
	case paidCents <= 0:
		return models.PaymentPending
	case abs(paidCents-expectedCents) <= epsCents:
		return models.PaymentPaid
	case paidCents < expectedCents:
		return models.PaymentPartial
	default:
		return models.PaymentOverpaid
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// delta is the signed ledger movement of a transaction: credits add their
// amount, reversals subtract their magnitude. Plain debits do not apply.
func delta(txn *models.Transaction) (int64, error) {
	switch txn.Type {
	case models.TypeCredit:
		return txn.AmountCents, nil
	case models.TypeReversal:
		return -abs(txn.AmountCents), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrNotApplicable, txn.Type)
	}
}

// Apply links txn to child's payment row for the transaction date's period
// and moves the running sum. auto records whether the link came from the
// matching engine or a human.
func (l *Ledger) Apply(txn *models.Transaction, child *models.Child, auto bool, note string) (*models.Payment, error) {
	month := int(txn.TransactionDate.Month())
	year := txn.TransactionDate.Year()
	return l.apply(txn, child, month, year, auto, note)
}

func (l *Ledger) apply(txn *models.Transaction, child *models.Child, month, year int, auto bool, note string) (*models.Payment, error) {
	d, err := delta(txn)
	if err != nil {
		return nil, err
	}

	unlock := l.lockPeriod(child.ID, month, year)
	defer unlock()

	var payment models.Payment
	err = l.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("child_id = ? AND payment_month = ? AND payment_year = ?", child.ID, month, year).
			First(&payment).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			payment = models.Payment{
				ChildID:              child.ID,
				PaymentMonth:         month,
				PaymentYear:          year,
				ExpectedCents:        child.MonthlyFeeCents,
				MatchedAutomatically: true,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return fmt.Errorf("create payment: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load payment: %w", err)
		}

		payment.AmountPaidCents += d
		payment.Status = RecomputeStatus(payment.AmountPaidCents, payment.ExpectedCents, l.eps)
		if txn.Type == models.TypeReversal && payment.AmountPaidCents <= 0 {
			payment.Status = models.PaymentReversed
			payment.NeedsReview = true
		}
		payment.MatchedAutomatically = payment.MatchedAutomatically && auto
		payment.TransactionReference = txn.BankReference
		date := txn.TransactionDate
		payment.PaymentDate = &date
		if err := tx.Save(&payment).Error; err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		txn.MarkMatched(note)
		txn.PaymentID = &payment.ID
		txn.ManuallyMatched = !auto
		// Claim the link only while the row is still unlinked. The caller's
		// copy may be stale: a manual match can land between loading the
		// backlog and applying it, and re-applying would double-count.
		claim := tx.Model(&models.Transaction{}).
			Where("id = ? AND payment_id IS NULL", txn.ID).
			Updates(map[string]any{
				"payment_id":       txn.PaymentID,
				"status":           txn.Status,
				"matched_at":       txn.MatchedAt,
				"matching_notes":   txn.MatchingNotes,
				"manually_matched": txn.ManuallyMatched,
			})
		if claim.Error != nil {
			return fmt.Errorf("save transaction: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return fmt.Errorf("%w: transaction %s is already linked", ErrMatchConflict, txn.BankReference)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ManualMatch links a transaction to a chosen child and period, bypassing
// the matching policy. A transaction already linked elsewhere is rejected
// with ErrMatchConflict unless force requests unlink-then-link. Retrying a
// manual match that already holds is a no-op.
func (l *Ledger) ManualMatch(txnID, childID uint, month, year int, force bool) (*models.Payment, error) {
	var txn models.Transaction
	if err := l.db.First(&txn, txnID).Error; err != nil {
		return nil, fmt.Errorf("load transaction %d: %w", txnID, err)
	}
	var child models.Child
	if err := l.db.First(&child, childID).Error; err != nil {
		return nil, fmt.Errorf("load child %d: %w", childID, err)
	}

	if txn.PaymentID != nil {
		var linked models.Payment
		if err := l.db.First(&linked, *txn.PaymentID).Error; err != nil {
			return nil, fmt.Errorf("load linked payment: %w", err)
		}
		if linked.ChildID == childID && linked.PaymentMonth == month && linked.PaymentYear == year {
			// Retry of the same match; nothing to move.
			return &linked, nil
		}
		if !force {
			return nil, fmt.Errorf("%w: payment %d (%s)", ErrMatchConflict, linked.ID, linked.Period())
		}
		if err := l.unlink(&txn, &linked); err != nil {
			return nil, err
		}
	}

	note := fmt.Sprintf("manually matched to %s for %04d-%02d", child.FullName(), year, month)
	return l.apply(&txn, &child, month, year, false, note)
}

// unlink backs the transaction's movement out of its current payment and
// re-derives the payment's sum and flags from whatever stays linked. Used
// only by forced re-matching.
func (l *Ledger) unlink(txn *models.Transaction, payment *models.Payment) error {
	d, err := delta(txn)
	if err != nil {
		return err
	}

	unlock := l.lockPeriod(payment.ChildID, payment.PaymentMonth, payment.PaymentYear)
	defer unlock()

	return l.db.Transaction(func(tx *gorm.DB) error {
		txn.PaymentID = nil
		txn.Status = models.TxnUnmatched
		txn.MatchedAt = nil
		if err := tx.Save(txn).Error; err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}

		var kept []models.Transaction
		if err := tx.Where("payment_id = ?", payment.ID).Find(&kept).Error; err != nil {
			return fmt.Errorf("load linked transactions: %w", err)
		}

		payment.AmountPaidCents -= d
		payment.Status = RecomputeStatus(payment.AmountPaidCents, payment.ExpectedCents, l.eps)
		payment.MatchedAutomatically = true
		payment.NeedsReview = false
		for i := range kept {
			if kept[i].ManuallyMatched {
				payment.MatchedAutomatically = false
			}
			if kept[i].Type == models.TypeReversal && payment.AmountPaidCents <= 0 {
				payment.Status = models.PaymentReversed
				payment.NeedsReview = true
			}
		}
		moved := fmt.Sprintf("transaction %s re-matched away", txn.BankReference)
		if payment.Notes != "" {
			moved = payment.Notes + "; " + moved
		}
		payment.Notes = moved
		if err := tx.Save(payment).Error; err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		return nil
	})
}

// Ignore marks a transaction as administratively excluded from matching.
func (l *Ledger) Ignore(txnID uint, reason string) error {
	return l.setAside(txnID, models.TxnIgnored, reason)
}

// Dispute flags a transaction for follow-up with the bank.
func (l *Ledger) Dispute(txnID uint, reason string) error {
	return l.setAside(txnID, models.TxnDisputed, reason)
}

func (l *Ledger) setAside(txnID uint, status models.TransactionStatus, reason string) error {
	var txn models.Transaction
	if err := l.db.First(&txn, txnID).Error; err != nil {
		return fmt.Errorf("load transaction %d: %w", txnID, err)
	}
	if txn.PaymentID != nil {
		return fmt.Errorf("%w: unlink before marking %s", ErrMatchConflict, status)
	}
	txn.Status = status
	txn.MatchingNotes = reason
	return l.db.Save(&txn).Error
}

// Verify recomputes a payment's running sum from its linked transactions and
// compares. A divergence is logged and returned, never corrected.
func (l *Ledger) Verify(paymentID uint) error {
	var payment models.Payment
	if err := l.db.First(&payment, paymentID).Error; err != nil {
		return fmt.Errorf("load payment %d: %w", paymentID, err)
	}
	var txns []models.Transaction
	if err := l.db.Where("payment_id = ?", paymentID).Find(&txns).Error; err != nil {
		return fmt.Errorf("load linked transactions: %w", err)
	}

	var sum int64
	for i := range txns {
		d, err := delta(&txns[i])
		if err != nil {
			return err
		}
		sum += d
	}
	if sum != payment.AmountPaidCents {
		log.Printf("ledger: payment %d (%s) holds %d cents but transactions sum to %d",
			payment.ID, payment.Period(), payment.AmountPaidCents, sum)
		return fmt.Errorf("%w: payment %d holds %d, log sums to %d",
			ErrLedgerInconsistency, payment.ID, payment.AmountPaidCents, sum)
	}
	return nil
}

// VerifyAll runs Verify over every payment and returns the inconsistencies.
func (l *Ledger) VerifyAll() ([]error, error) {
	var ids []uint
	if err := l.db.Model(&models.Payment{}).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	var faults []error
	for _, id := range ids {
		if err := l.Verify(id); errors.Is(err, ErrLedgerInconsistency) {
			faults = append(faults, err)
		} else if err != nil {
			return nil, err
		}
	}
	return faults, nil
}

// Epsilon reports the configured rounding tolerance in cents.
func (l *Ledger) Epsilon() int64 { return l.eps }
