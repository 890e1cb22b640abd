package main

import (
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/models"
	"github.com/mofokengkatleho/katlehouniversity/pkg/money"
	"github.com/mofokengkatleho/katlehouniversity/pkg/reference"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN must hold a Postgres DSN")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("connect postgres:", err)
	}

	// DB_AUTO_MIGRATE=false skips schema migration (default is to run it).
	migrateSchema := true
	switch strings.ToLower(os.Getenv("DB_AUTO_MIGRATE")) {
	case "false", "0", "no":
		migrateSchema = false
	}

	if migrateSchema {
		// Per-model migration so one failure doesn't block the rest.
		if err := db.AutoMigrate(&models.Child{}); err != nil {
			log.Printf("migration warning (children): %v", err)
		}
		if err := db.AutoMigrate(&models.Payment{}); err != nil {
			log.Printf("migration warning (payments): %v", err)
		}
		if err := db.AutoMigrate(&models.Transaction{}); err != nil {
			log.Printf("migration warning (transactions): %v", err)
		}
		if err := db.AutoMigrate(&models.UploadedStatement{}); err != nil {
			log.Printf("migration warning (uploaded_statements): %v", err)
		}
		if err := db.AutoMigrate(&models.TransactionNotification{}); err != nil {
			log.Printf("migration warning (transaction_notifications): %v", err)
		}
	}

	seedDB()
}

// seedDB seeds a small demo roster when SEED_DEMO_CHILDREN=true and the
// children table is empty. Production deployments load the roster through
// the API or the seed binary instead.
func seedDB() {
	if os.Getenv("SEED_DEMO_CHILDREN") != "true" {
		return
	}
	var count int64
	db.Model(&models.Child{}).Count(&count)
	if count > 0 {
		return
	}

	fee, _ := money.ParseCents("500.00")
	demo := []models.Child{
		{FirstName: "Jane", LastName: "Doe", ParentName: "Mary Doe", GradeClass: "RR", AcademicYear: "2025"},
		{FirstName: "Thabo", LastName: "Nkosi", ParentName: "Sipho Nkosi", GradeClass: "R", AcademicYear: "2025"},
		{FirstName: "Lerato", LastName: "Mokoena", ParentName: "Naledi Mokoena", GradeClass: "RR", AcademicYear: "2025"},
	}
	var existing []string
	for i := range demo {
		c := &demo[i]
		c.StudentNumber = reference.Next("2025", existing)
		existing = append(existing, c.StudentNumber)
		c.PaymentReference = c.StudentNumber
		c.MonthlyFeeCents = fee
		c.PaymentDay = 1
		c.Status = models.StudentActive
		if err := db.Create(c).Error; err != nil {
			log.Printf("failed to seed child %s: %v", c.FullName(), err)
		}
	}
	log.Printf("Seeded %d demo children", len(demo))
}
