package models

import "time"

type NotificationStatus string

const (
	NotifyPending   NotificationStatus = "PENDING"
	NotifyMatched   NotificationStatus = "MATCHED"
	NotifyUnmatched NotificationStatus = "UNMATCHED"
	NotifyManual    NotificationStatus = "MANUAL"
	NotifyFailed    NotificationStatus = "FAILED"
	NotifyDuplicate NotificationStatus = "DUPLICATE"
)

// TransactionNotification is the audit row for a bank notification email
// delivered through the webhook. Every delivery is recorded, including
// failures and duplicates, so the intake can be replayed and inspected.
type TransactionNotification struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	ReceivedAt time.Time `gorm:"not null;index" json:"receivedAt"`
	RawPayload string    `gorm:"type:text" json:"-"`

	TransactionDate *time.Time `json:"transactionDate,omitempty"`
	Description     string     `gorm:"size:500" json:"description,omitempty"`
	AmountCents     int64      `json:"amountCents"`
	BalanceCents    *int64     `json:"balanceCents,omitempty"`
	Reference       string     `gorm:"size:500" json:"reference,omitempty"`
	SenderName      string     `gorm:"size:100" json:"senderName,omitempty"`

	// DuplicateCheckHash is the SHA-256 of date|amount|reference; the unique
	// index makes redelivered emails idempotent.
	DuplicateCheckHash string `gorm:"size:100;uniqueIndex" json:"-"`

	MatchStatus NotificationStatus `gorm:"size:20;not null;default:PENDING;index" json:"matchStatus"`
	Processed   bool               `gorm:"not null;default:false;index" json:"processed"`
	ProcessedAt *time.Time         `json:"processedAt,omitempty"`

	MatchedChildID *uint `gorm:"index" json:"matchedChildId,omitempty"`
	TransactionID  *uint `gorm:"index" json:"transactionId,omitempty"`
	PaymentID      *uint `json:"paymentId,omitempty"`

	WebhookSource string `gorm:"size:50" json:"webhookSource,omitempty"`
	EmailSubject  string `gorm:"size:200" json:"emailSubject,omitempty"`
	EmailSender   string `gorm:"size:100" json:"emailSender,omitempty"`
	ErrorMessage  string `gorm:"size:500" json:"errorMessage,omitempty"`
}

func (n *TransactionNotification) MarkProcessed(status NotificationStatus) {
	now := time.Now()
	n.MatchStatus = status
	n.Processed = true
	n.ProcessedAt = &now
}
