package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/models"
	"github.com/mofokengkatleho/katlehouniversity/pkg/report"
)

func main() {
	month := flag.String("month", time.Now().Format("2006-01"), "period to report (YYYY-MM)")
	csvOut := flag.Bool("csv", false, "write CSV to stdout instead of the summary")
	list := flag.Bool("list", false, "list per-child rows")
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

	t, err := time.Parse("2006-01", *month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	m, y := int(t.Month()), t.Year()

	var roster []models.Child
	if err := db.Where("status = ?", models.StudentActive).Find(&roster).Error; err != nil {
		log.Fatalf("load roster: %v", err)
	}
	var payments []models.Payment
	if err := db.Where("payment_month = ? AND payment_year = ?", m, y).Find(&payments).Error; err != nil {
		log.Fatalf("load payments: %v", err)
	}

	rep := report.Build(m, y, roster, payments)

	if *csvOut {
		if err := rep.WriteCSV(os.Stdout); err != nil {
			log.Fatalf("write csv: %v", err)
		}
		return
	}

	fmt.Printf("Fee report %s: %d children, %d paid, %d owing\n",
		rep.Period, rep.TotalChildren, rep.PaidCount, rep.OwingCount)
	fmt.Printf("  collected=%.2f expected=%.2f outstanding=%.2f\n",
		rep.TotalCollected, rep.TotalExpected, rep.TotalOutstanding)

	if *list {
		for _, group := range [][]report.ChildStatus{rep.PaidChildren, rep.OwingChildren, rep.ReversedChildren} {
			for _, c := range group {
				fmt.Printf("%s|%s|%.2f/%.2f|%s\n", c.PaymentReference, c.FullName, c.AmountPaid, c.MonthlyFee, c.Status)
			}
		}
	}
}
