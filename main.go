package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mofokengkatleho/katlehouniversity/pkg/ingest"
	"github.com/mofokengkatleho/katlehouniversity/pkg/ledger"
	"github.com/mofokengkatleho/katlehouniversity/pkg/notify"
)

var (
	led       *ledger.Ledger
	ingestSvc *ingest.Service
	notifySvc *notify.Processor
)

func main() {
	// Load ./.env if present before reading vars; existing env wins.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	// Support a lightweight migrate command: `./katlehouniversity migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()
	initServices()

	if os.Getenv("SYNC_ENABLED") == "true" {
		startBankSync()
	}

	r := gin.Default()

	setupRoutes(r)

	r.Run(":" + port())
}

func initServices() {
	led = ledger.New(db, paidEpsilonCents())
	ingestSvc = ingest.New(db, led)
	notifySvc = notify.NewProcessor(db, led)
}

func port() string {
	if v := os.Getenv("PORT"); v != "" {
		return v
	}
	return "8081"
}

// paidEpsilonCents reads the rounding tolerance for the PAID decision.
// Defaults to zero: fees are stored in cents, so exact equality is the norm.
func paidEpsilonCents() int64 {
	v := os.Getenv("PAID_EPSILON_CENTS")
	if v == "" {
		return 0
	}
	eps, err := strconv.ParseInt(v, 10, 64)
	if err != nil || eps < 0 {
		log.Printf("invalid PAID_EPSILON_CENTS %q, using 0", v)
		return 0
	}
	return eps
}
