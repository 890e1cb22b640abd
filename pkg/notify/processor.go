package notify

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/models"
	"github.com/mofokengkatleho/katlehouniversity/pkg/ledger"
	"github.com/mofokengkatleho/katlehouniversity/pkg/match"
	"github.com/mofokengkatleho/katlehouniversity/pkg/reference"
)

var ErrDuplicate = errors.New("notification already processed")

type Processor struct {
	db     *gorm.DB
	ledger *ledger.Ledger
}

func NewProcessor(db *gorm.DB, l *ledger.Ledger) *Processor {
	return &Processor{db: db, ledger: l}
}

// Process handles one webhook delivery end to end: parse, dedupe, record,
// and attempt a match. Every delivery leaves an audit row, including
// failures. Redeliveries return ErrDuplicate with the original row.
func (p *Processor) Process(payload Payload) (*models.TransactionNotification, error) {
	parsed := ParseEmail(payload.Body, payload.Subject)

	n := &models.TransactionNotification{
		ReceivedAt:    time.Now(),
		RawPayload:    payload.Body,
		Description:   parsed.Description,
		AmountCents:   parsed.AmountCents,
		BalanceCents:  parsed.BalanceCents,
		Reference:     parsed.Reference,
		SenderName:    parsed.SenderName,
		WebhookSource: source(payload),
		EmailSubject:  payload.Subject,
		EmailSender:   payload.Sender,
		MatchStatus:   models.NotifyPending,
	}
	if parsed.HasDate {
		d := parsed.TransactionDate
		n.TransactionDate = &d
	}

	if !parsed.Valid {
		n.MarkProcessed(models.NotifyFailed)
		n.ErrorMessage = parsed.ErrorMessage
		// Failed parses carry no dedupe fields; hash the raw body instead so
		// the unique index still holds.
		n.DuplicateCheckHash = DuplicateHash(n.ReceivedAt, 0, payload.Body)
		if err := p.db.Create(n).Error; err != nil {
			return nil, fmt.Errorf("record failed notification: %w", err)
		}
		return n, fmt.Errorf("unparseable notification: %s", parsed.ErrorMessage)
	}

	n.DuplicateCheckHash = DuplicateHash(parsed.TransactionDate, parsed.AmountCents, parsed.Reference)
	var existing models.TransactionNotification
	err := p.db.Where("duplicate_check_hash = ?", n.DuplicateCheckHash).First(&existing).Error
	if err == nil {
		log.Printf("notify: duplicate delivery of %s, skipping", n.DuplicateCheckHash)
		return &existing, ErrDuplicate
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}

	if err := p.db.Create(n).Error; err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}

	txn := &models.Transaction{
		BankReference:   fmt.Sprintf("NOTIFY-%d-%s", n.ID, parsed.TransactionDate.Format("20060102")),
		AmountCents:     parsed.AmountCents,
		TransactionDate: parsed.TransactionDate,
		Description:     parsed.Description,
		SenderName:      parsed.SenderName,
		Status:          models.TxnUnmatched,
		Type:            models.TransactionType(parsed.Type),
		RawData:         payload.Body,
	}
	if ref, ok := reference.Extract(parsed.Reference); ok {
		txn.PaymentReference = ref
	} else {
		txn.PaymentReference = parsed.Reference
	}
	if err := p.db.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}
	n.TransactionID = &txn.ID

	status := models.NotifyUnmatched
	if txn.Type == models.TypeCredit {
		if d := p.decide(txn); d.Outcome == match.Matched {
			if payment, err := p.ledger.Apply(txn, d.Child, true, d.Note); err == nil {
				status = models.NotifyMatched
				n.MatchedChildID = &d.Child.ID
				n.PaymentID = &payment.ID
			} else {
				log.Printf("notify: apply %s: %v", txn.BankReference, err)
			}
		}
	}

	n.MarkProcessed(status)
	if err := p.db.Save(n).Error; err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}
	return n, nil
}

func (p *Processor) decide(txn *models.Transaction) match.Decision {
	var roster []models.Child
	if err := p.db.Where("status = ?", models.StudentActive).Find(&roster).Error; err != nil {
		log.Printf("notify: load roster: %v", err)
		return match.Decision{Outcome: match.NoMatch}
	}
	// The reference line is the strongest signal in a notification email;
	// fold it into the text the policy sees.
	probe := *txn
	probe.Description = txn.Description + " " + txn.PaymentReference
	return match.Decide(probe, roster)
}

func source(payload Payload) string {
	if payload.Source != "" {
		return payload.Source
	}
	return "myupdates"
}
