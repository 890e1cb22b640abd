// Package banksync pulls transactions from the Standard Bank business API
// and feeds them into the matching pipeline.
//
// The API client is a stub: real integration needs OAuth2 credentials from
// the Standard Bank developer portal (https://developer.standardbank.co.za/).
// Until STANDARDBANK_API_ENABLED=true and credentials exist, Fetch returns
// deterministic-shape mock data so the rest of the pipeline can be exercised.
package banksync

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/models"
	"github.com/mofokengkatleho/katlehouniversity/pkg/ingest"
)

// Fetch returns transactions booked between start and end.
func Fetch(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	if os.Getenv("STANDARDBANK_API_ENABLED") != "true" {
		log.Print("banksync: API disabled, using mock data")
		return mockTransactions(start, end), nil
	}
	// The real client goes here: obtain an OAuth2 token with
	// STANDARDBANK_CLIENT_ID/SECRET, then GET /api/v1/transactions.
	return nil, fmt.Errorf("standard bank API integration not implemented")
}

// Sync fetches the last `days` days of transactions, stores the ones not yet
// seen, and re-runs matching over the unmatched backlog. Returns how many
// rows were new and how many ended up matched.
func Sync(ctx context.Context, db *gorm.DB, svc *ingest.Service, days int) (saved, matched int, err error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	txns, err := Fetch(ctx, start, end)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch transactions: %w", err)
	}
	log.Printf("banksync: fetched %d transactions", len(txns))

	for i := range txns {
		var cnt int64
		db.Model(&models.Transaction{}).Where("bank_reference = ?", txns[i].BankReference).Count(&cnt)
		if cnt > 0 {
			continue
		}
		if err := db.Create(&txns[i]).Error; err != nil {
			return saved, 0, fmt.Errorf("save transaction %s: %w", txns[i].BankReference, err)
		}
		saved++
	}
	log.Printf("banksync: saved %d new transactions", saved)

	if saved > 0 {
		matched, _, err = svc.MatchAllUnmatched(ctx)
		if err != nil {
			return saved, 0, fmt.Errorf("match synced transactions: %w", err)
		}
	}
	return saved, matched, nil
}

var mockReferences = []string{
	"JOHNDOE", "JANESMIT", "PETERBROW", "MARYJOHN",
	"TOMWILSO", "EMMADAVI", "UNKNOWN", "CASHPAY",
}

func mockTransactions(start, end time.Time) []models.Transaction {
	span := int(end.Sub(start).Hours()/24) + 1
	if span < 1 {
		span = 1
	}
	out := make([]models.Transaction, 0, 10)
	for i := 0; i < 10; i++ {
		date := start.AddDate(0, 0, rand.Intn(span))
		out = append(out, models.Transaction{
			BankReference:    fmt.Sprintf("SB-%d-%d", time.Now().UnixMilli(), i),
			AmountCents:      int64(500+rand.Intn(2000)) * 100,
			TransactionDate:  time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
			PaymentReference: mockReferences[rand.Intn(len(mockReferences))],
			Description:      "ECD Monthly Fee Payment",
			SenderName:       fmt.Sprintf("Parent %d", i+1),
			SenderAccount:    fmt.Sprintf("ACC%d", 1000+i),
			Status:           models.TxnUnmatched,
			Type:             models.TypeCredit,
		})
	}
	return out
}
