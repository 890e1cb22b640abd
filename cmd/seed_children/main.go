package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/models"
	"github.com/mofokengkatleho/katlehouniversity/pkg/money"
	"github.com/mofokengkatleho/katlehouniversity/pkg/reference"
)

// Imports a child roster from a CSV with the columns:
// firstName,lastName,monthlyFee,academicYear,parentName,parentPhone,gradeClass
// Student numbers are generated sequentially per academic year.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: go run ./cmd/seed_children <roster.csv>")
		os.Exit(2)
	}

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("open roster: %v", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	if _, err := r.Read(); err != nil { // header
		log.Fatalf("read header: %v", err)
	}

	created, skipped := 0, 0
	existingByYear := map[string][]string{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("read row: %v", err)
		}
		if len(rec) < 4 {
			log.Printf("skipping short row: %v", rec)
			skipped++
			continue
		}

		fee, err := money.ParseCents(rec[2])
		if err != nil || fee <= 0 {
			log.Printf("skipping %s %s: bad fee %q", rec[0], rec[1], rec[2])
			skipped++
			continue
		}
		year := strings.TrimSpace(rec[3])

		var cnt int64
		db.Model(&models.Child{}).
			Where("first_name = ? AND last_name = ? AND academic_year = ?", rec[0], rec[1], year).
			Count(&cnt)
		if cnt > 0 {
			skipped++
			continue
		}

		if _, ok := existingByYear[year]; !ok {
			var nums []string
			db.Model(&models.Child{}).Where("academic_year = ?", year).Pluck("student_number", &nums)
			existingByYear[year] = nums
		}

		child := models.Child{
			StudentNumber:   reference.Next(year, existingByYear[year]),
			FirstName:       strings.TrimSpace(rec[0]),
			LastName:        strings.TrimSpace(rec[1]),
			MonthlyFeeCents: fee,
			PaymentDay:      1,
			AcademicYear:    year,
			Status:          models.StudentActive,
		}
		child.PaymentReference = child.StudentNumber
		if len(rec) > 4 {
			child.ParentName = strings.TrimSpace(rec[4])
		}
		if len(rec) > 5 {
			child.ParentPhone = strings.TrimSpace(rec[5])
		}
		if len(rec) > 6 {
			child.GradeClass = strings.TrimSpace(rec[6])
		}

		if err := db.Create(&child).Error; err != nil {
			log.Fatalf("failed to create child %s %s: %v", child.FirstName, child.LastName, err)
		}
		existingByYear[year] = append(existingByYear[year], child.StudentNumber)
		created++
	}

	fmt.Printf("roster import done: %d created, %d skipped\n", created, skipped)
}
