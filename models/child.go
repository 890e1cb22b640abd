package models

import (
	"strings"
	"time"
)

// StudentStatus tracks a child's administrative standing. Only ACTIVE
// children participate in matching and monthly reports.
type StudentStatus string

const (
	StudentActive    StudentStatus = "ACTIVE"
	StudentGraduated StudentStatus = "GRADUATED"
	StudentWithdrawn StudentStatus = "WITHDRAWN"
	StudentSuspended StudentStatus = "SUSPENDED"
)

// Child represents a registered student. The student number (STU-YYYY-NNN)
// doubles as the payment reference parents are asked to use.
type Child struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	StudentNumber string `gorm:"size:20;not null;uniqueIndex" json:"studentNumber"`
	FirstName     string `gorm:"size:100;not null" json:"firstName"`
	LastName      string `gorm:"size:100;not null" json:"lastName"`
	Gender        string `gorm:"size:10" json:"gender,omitempty"`

	// PaymentReference defaults to the student number but keeps legacy
	// references usable for families registered before the numbering scheme.
	PaymentReference string `gorm:"size:50;not null;uniqueIndex" json:"paymentReference"`

	MonthlyFeeCents int64 `gorm:"not null" json:"monthlyFeeCents"`
	PaymentDay      int   `gorm:"not null;default:1" json:"paymentDay"` // day of month guardian commits to pay

	ParentName   string `gorm:"size:200" json:"parentName,omitempty"`
	ParentPhone  string `gorm:"size:20" json:"parentPhone,omitempty"`
	ParentEmail  string `gorm:"size:100" json:"parentEmail,omitempty"`
	GradeClass   string `gorm:"size:50" json:"gradeClass,omitempty"`
	AcademicYear string `gorm:"size:10;not null" json:"academicYear"`

	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	EnrollmentDate *time.Time `json:"enrollmentDate,omitempty"`

	Status StudentStatus `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
	Notes  string        `gorm:"size:500" json:"notes,omitempty"`

	Payments []Payment `gorm:"foreignKey:ChildID" json:"-"`
}

func (c *Child) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c *Child) IsActive() bool {
	return c.Status == StudentActive
}
