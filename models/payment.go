package models

import (
	"fmt"
	"time"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPartial  PaymentStatus = "PARTIAL"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentOverpaid PaymentStatus = "OVERPAID"
	PaymentReversed PaymentStatus = "REVERSED"
)

// Payment is the ledger entry for one child and one billing period. There is
// at most one row per (child, month, year); AmountPaidCents is the running
// sum of applied credits minus reversals and is only ever mutated by the
// ledger package.
type Payment struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ChildID uint  `gorm:"not null;index;uniqueIndex:idx_child_period" json:"childId"`
	Child   Child `gorm:"foreignKey:ChildID" json:"-"`

	PaymentMonth int `gorm:"not null;uniqueIndex:idx_child_period" json:"paymentMonth"`
	PaymentYear  int `gorm:"not null;uniqueIndex:idx_child_period" json:"paymentYear"`

	AmountPaidCents int64 `gorm:"not null" json:"amountPaidCents"`
	// ExpectedCents snapshots the child's monthly fee when the payment row is
	// first created, so later fee changes do not rewrite reconciled periods.
	ExpectedCents int64 `gorm:"not null" json:"expectedCents"`

	Status      PaymentStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	PaymentDate *time.Time    `json:"paymentDate,omitempty"` // date of the latest contributing transaction

	// TransactionReference records the bank reference of the latest
	// contributing transaction; the full contribution list hangs off
	// Transaction.PaymentID.
	TransactionReference string `gorm:"size:100" json:"transactionReference,omitempty"`

	// MatchedAutomatically stays true only while every contributing
	// transaction was linked by the matching engine without human help.
	MatchedAutomatically bool `gorm:"default:false" json:"matchedAutomatically"`

	// NeedsReview is raised when a reversal drives the running sum to zero or
	// below; such rows are never silently reset to PENDING.
	NeedsReview bool   `gorm:"default:false;index" json:"needsReview"`
	Notes       string `gorm:"size:500" json:"notes,omitempty"`
}

// Period renders the billing cycle as YYYY-MM.
func (p *Payment) Period() string {
	return fmt.Sprintf("%04d-%02d", p.PaymentYear, p.PaymentMonth)
}

// OutstandingCents is the unpaid remainder, clamped at zero for overpayments.
func (p *Payment) OutstandingCents() int64 {
	out := p.ExpectedCents - p.AmountPaidCents
	if out < 0 {
		return 0
	}
	return out
}

func (p *Payment) IsFullyPaid() bool {
	return p.Status == PaymentPaid || p.Status == PaymentOverpaid
}
