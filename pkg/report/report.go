// Package report builds the monthly fee-collection projection. It is a pure
// read: callers fetch the roster and the period's payment rows, Build folds
// them into the report shape, and nothing is ever written back.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/mofokengkatleho/katlehouniversity/models"
	"github.com/mofokengkatleho/katlehouniversity/pkg/money"
)

// ChildStatus is one child's standing for the reported period. Amounts are
// rands at this boundary; cents stay internal.
type ChildStatus struct {
	ChildID          uint       `json:"childId"`
	FullName         string     `json:"fullName"`
	MonthlyFee       float64    `json:"monthlyFee"`
	AmountPaid       float64    `json:"amountPaid"`
	Outstanding      float64    `json:"outstanding"`
	PaymentReference string     `json:"paymentReference"`
	Status           string     `json:"status"`
	PaymentDate      *time.Time `json:"paymentDate,omitempty"`
}

type Monthly struct {
	Month  int    `json:"month"`
	Year   int    `json:"year"`
	Period string `json:"period"`

	PaidChildren  []ChildStatus `json:"paidChildren"`
	OwingChildren []ChildStatus `json:"owingChildren"`
	// ReversedChildren are listed apart from the owing set but their
	// outstanding amounts count toward the totals.
	ReversedChildren []ChildStatus `json:"reversedChildren,omitempty"`

	TotalCollected   float64 `json:"totalCollected"`
	TotalExpected    float64 `json:"totalExpected"`
	TotalOutstanding float64 `json:"totalOutstanding"`
	TotalChildren    int     `json:"totalChildren"`
	PaidCount        int     `json:"paidCount"`
	OwingCount       int     `json:"owingCount"`
}

// Build folds the active roster and the period's payment rows into the
// monthly report. A child with no payment row is treated as PENDING with
// nothing paid. Inactive children are skipped even if a payment row exists.
func Build(month, year int, roster []models.Child, payments []models.Payment) *Monthly {
	byChild := make(map[uint]*models.Payment, len(payments))
	for i := range payments {
		p := &payments[i]
		if p.PaymentMonth == month && p.PaymentYear == year {
			byChild[p.ChildID] = p
		}
	}

	rep := &Monthly{
		Month:  month,
		Year:   year,
		Period: fmt.Sprintf("%04d-%02d", year, month),
	}

	var collectedCents, expectedCents int64
	for i := range roster {
		c := &roster[i]
		if !c.IsActive() {
			continue
		}
		rep.TotalChildren++

		cs := ChildStatus{
			ChildID:          c.ID,
			FullName:         c.FullName(),
			MonthlyFee:       money.Rands(c.MonthlyFeeCents),
			PaymentReference: c.PaymentReference,
			Status:           string(models.PaymentPending),
		}
		expected := c.MonthlyFeeCents
		var paid int64

		if p, ok := byChild[c.ID]; ok {
			expected = p.ExpectedCents
			paid = p.AmountPaidCents
			cs.MonthlyFee = money.Rands(p.ExpectedCents)
			cs.Status = string(p.Status)
			cs.PaymentDate = p.PaymentDate
			cs.Outstanding = money.Rands(p.OutstandingCents())
		} else {
			cs.Outstanding = money.Rands(expected)
		}
		cs.AmountPaid = money.Rands(paid)

		collectedCents += paid
		expectedCents += expected

		switch models.PaymentStatus(cs.Status) {
		case models.PaymentPaid, models.PaymentOverpaid:
			rep.PaidChildren = append(rep.PaidChildren, cs)
		case models.PaymentReversed:
			rep.ReversedChildren = append(rep.ReversedChildren, cs)
		default:
			rep.OwingChildren = append(rep.OwingChildren, cs)
		}
	}

	sortByName(rep.PaidChildren)
	sortByName(rep.OwingChildren)
	sortByName(rep.ReversedChildren)

	rep.PaidCount = len(rep.PaidChildren)
	rep.OwingCount = len(rep.OwingChildren) + len(rep.ReversedChildren)

	rep.TotalCollected = money.Rands(collectedCents)
	rep.TotalExpected = money.Rands(expectedCents)
	outstanding := expectedCents - collectedCents
	if outstanding < 0 {
		outstanding = 0
	}
	rep.TotalOutstanding = money.Rands(outstanding)
	return rep
}

func sortByName(cs []ChildStatus) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].FullName < cs[j].FullName })
}
