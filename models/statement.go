package models

import "time"

type FileType string

const (
	FileCSV      FileType = "CSV"
	FileMarkdown FileType = "MARKDOWN"
	FilePDF      FileType = "PDF"
	FileImage    FileType = "IMAGE" // scanned statement processed through OCR
)

type ProcessingStatus string

const (
	StatementPending    ProcessingStatus = "PENDING"
	StatementProcessing ProcessingStatus = "PROCESSING"
	StatementCompleted  ProcessingStatus = "COMPLETED"
	StatementFailed     ProcessingStatus = "FAILED"
)

// UploadedStatement records one ingestion run. Once COMPLETED or FAILED the
// row is terminal; re-uploading the same file starts a fresh run.
type UploadedStatement struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"uploadDate"`
	UpdatedAt time.Time `json:"-"`

	FileName string   `gorm:"size:255;not null" json:"fileName"`
	FileType FileType `gorm:"size:20;not null" json:"fileType"`

	TotalTransactions int `gorm:"not null;default:0" json:"totalTransactions"`
	MatchedCount      int `gorm:"not null;default:0" json:"matchedCount"`
	UnmatchedCount    int `gorm:"not null;default:0" json:"unmatchedCount"`
	SkippedRows       int `gorm:"not null;default:0" json:"skippedRows"`

	Status       ProcessingStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	ErrorMessage string           `gorm:"size:500" json:"errorMessage,omitempty"`

	ProcessedDate *time.Time `json:"processedDate,omitempty"`

	Transactions []Transaction `gorm:"foreignKey:UploadedStatementID" json:"-"`
}

func (s *UploadedStatement) MarkCompleted() {
	now := time.Now()
	s.Status = StatementCompleted
	s.ProcessedDate = &now
}

func (s *UploadedStatement) MarkFailed(msg string) {
	now := time.Now()
	s.Status = StatementFailed
	s.ErrorMessage = msg
	s.ProcessedDate = &now
}
