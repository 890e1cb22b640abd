package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/pkg/ingest"
	"github.com/mofokengkatleho/katlehouniversity/pkg/ledger"
	"github.com/mofokengkatleho/katlehouniversity/process/banksync"
)

func main() {
	days := flag.Int("days", 7, "how many days back to sync")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	svc := ingest.New(db, ledger.New(db, 0))
	saved, matched, err := banksync.Sync(context.Background(), db, svc, *days)
	if err != nil {
		log.Fatalf("sync failed: %v", err)
	}
	fmt.Printf("synced %d days: %d new transactions, %d matched\n", *days, saved, matched)
}
