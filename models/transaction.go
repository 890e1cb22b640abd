package models

import "time"

type TransactionStatus string

const (
	TxnUnmatched        TransactionStatus = "UNMATCHED"
	TxnMatched          TransactionStatus = "MATCHED"
	TxnPartiallyMatched TransactionStatus = "PARTIALLY_MATCHED"
	TxnIgnored          TransactionStatus = "IGNORED"
	TxnDisputed         TransactionStatus = "DISPUTED"
)

type TransactionType string

const (
	TypeCredit   TransactionType = "CREDIT"
	TypeDebit    TransactionType = "DEBIT"
	TypeReversal TransactionType = "REVERSAL"
)

// Transaction is an immutable fact lifted from a bank statement. Only the
// status and the payment back-reference ever change after ingestion.
type Transaction struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	BankReference   string    `gorm:"size:100;not null;uniqueIndex" json:"bankReference"`
	AmountCents     int64     `gorm:"not null" json:"amountCents"` // signed; REVERSAL rows carry the reversed magnitude
	TransactionDate time.Time `gorm:"not null;index" json:"transactionDate"`
	Description     string    `gorm:"size:200" json:"description"`

	// PaymentReference holds the extracted student-number token when one was
	// found, otherwise a truncated slice of the description for manual review.
	PaymentReference string `gorm:"size:200;index" json:"paymentReference,omitempty"`
	SenderName       string `gorm:"size:100" json:"senderName,omitempty"`
	SenderAccount    string `gorm:"size:50" json:"senderAccount,omitempty"`

	Status TransactionStatus `gorm:"size:20;not null;default:UNMATCHED;index" json:"status"`
	Type   TransactionType   `gorm:"size:20;not null;default:CREDIT" json:"type"`

	// PaymentID links the transaction to the single Payment it was applied
	// to. nil whenever Status is UNMATCHED.
	PaymentID *uint `gorm:"index" json:"paymentId,omitempty"`

	MatchingNotes   string     `gorm:"size:500" json:"matchingNotes,omitempty"`
	ManuallyMatched bool       `gorm:"default:false" json:"manuallyMatched"`
	MatchedAt       *time.Time `json:"matchedAt,omitempty"`

	UploadedStatementID *uint  `gorm:"index" json:"uploadedStatementId,omitempty"`
	RawData             string `gorm:"type:text" json:"-"`
}

func (t *Transaction) IsMatched() bool {
	return t.Status == TxnMatched || t.Status == TxnPartiallyMatched
}

// MarkMatched records a successful linkage. The payment id is set by the
// ledger inside the same database transaction.
func (t *Transaction) MarkMatched(notes string) {
	now := time.Now()
	t.Status = TxnMatched
	t.MatchedAt = &now
	t.MatchingNotes = notes
}
