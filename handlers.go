package main

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mofokengkatleho/katlehouniversity/models"
	"github.com/mofokengkatleho/katlehouniversity/pkg/ingest"
	"github.com/mofokengkatleho/katlehouniversity/pkg/ledger"
	"github.com/mofokengkatleho/katlehouniversity/pkg/match"
	"github.com/mofokengkatleho/katlehouniversity/pkg/money"
	"github.com/mofokengkatleho/katlehouniversity/pkg/reference"
	"github.com/mofokengkatleho/katlehouniversity/pkg/scan"
	"github.com/mofokengkatleho/katlehouniversity/pkg/statement"
)

func setupRoutes(r *gin.Engine) {
	r.GET("/healthz", healthHandler)

	r.POST("/children", createChildHandler)
	r.GET("/children", listChildrenHandler)
	r.GET("/children/:id", getChildHandler)
	r.PUT("/children/:id", updateChildHandler)
	r.DELETE("/children/:id", deactivateChildHandler)

	r.POST("/statements/upload", uploadStatementHandler)
	r.GET("/statements", listStatementsHandler)
	r.GET("/statements/:id", getStatementHandler)

	r.GET("/transactions/unmatched", listUnmatchedHandler)
	r.POST("/transactions/match-all", matchAllHandler)
	r.GET("/transactions/:id/suggestions", suggestionsHandler)
	r.POST("/transactions/:id/match", manualMatchHandler)
	r.POST("/transactions/:id/ignore", ignoreTransactionHandler)
	r.POST("/transactions/:id/dispute", disputeTransactionHandler)

	r.GET("/reports/monthly", monthlyReportHandler)
	r.GET("/reports/monthly/csv", monthlyReportCSVHandler)
	r.GET("/reports/current", currentReportHandler)

	r.POST("/webhook/myupdates", myUpdatesWebhookHandler)
	r.POST("/sync/standardbank", bankSyncHandler)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// childRequest is the write shape for children. Fees arrive as rand strings
// ("500.00") and are stored in cents.
type childRequest struct {
	FirstName    string `json:"firstName" binding:"required"`
	LastName     string `json:"lastName" binding:"required"`
	Gender       string `json:"gender"`
	MonthlyFee   string `json:"monthlyFee" binding:"required"`
	PaymentDay   int    `json:"paymentDay"`
	ParentName   string `json:"parentName"`
	ParentPhone  string `json:"parentPhone"`
	ParentEmail  string `json:"parentEmail"`
	GradeClass   string `json:"gradeClass"`
	AcademicYear string `json:"academicYear" binding:"required"`
	Notes        string `json:"notes"`
}

func createChildHandler(c *gin.Context) {
	var req childRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fee, err := money.ParseCents(req.MonthlyFee)
	if err != nil || fee <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "monthlyFee must be a positive amount"})
		return
	}

	var existing []string
	db.Model(&models.Child{}).Where("academic_year = ?", req.AcademicYear).
		Pluck("student_number", &existing)

	child := models.Child{
		StudentNumber:    reference.Next(req.AcademicYear, existing),
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Gender:           req.Gender,
		MonthlyFeeCents:  fee,
		PaymentDay:       req.PaymentDay,
		ParentName:       req.ParentName,
		ParentPhone:      req.ParentPhone,
		ParentEmail:      req.ParentEmail,
		GradeClass:       req.GradeClass,
		AcademicYear:     req.AcademicYear,
		Notes:            req.Notes,
		Status:           models.StudentActive,
	}
	child.PaymentReference = child.StudentNumber
	if child.PaymentDay == 0 {
		child.PaymentDay = 1
	}

	if err := db.Create(&child).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create child"})
		return
	}
	c.JSON(http.StatusCreated, child)
}

func listChildrenHandler(c *gin.Context) {
	q := db.Model(&models.Child{}).Order("last_name asc, first_name asc")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", strings.ToUpper(status))
	}
	var children []models.Child
	if err := q.Find(&children).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list children"})
		return
	}
	c.JSON(http.StatusOK, children)
}

func getChildHandler(c *gin.Context) {
	child, ok := childByParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, child)
}

func updateChildHandler(c *gin.Context) {
	child, ok := childByParam(c)
	if !ok {
		return
	}
	var req struct {
		childRequest
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fee, err := money.ParseCents(req.MonthlyFee)
	if err != nil || fee <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "monthlyFee must be a positive amount"})
		return
	}

	child.FirstName = req.FirstName
	child.LastName = req.LastName
	child.Gender = req.Gender
	child.MonthlyFeeCents = fee
	child.ParentName = req.ParentName
	child.ParentPhone = req.ParentPhone
	child.ParentEmail = req.ParentEmail
	child.GradeClass = req.GradeClass
	child.AcademicYear = req.AcademicYear
	child.Notes = req.Notes
	if req.PaymentDay > 0 {
		child.PaymentDay = req.PaymentDay
	}
	if req.Status != "" {
		child.Status = models.StudentStatus(strings.ToUpper(req.Status))
	}

	if err := db.Save(child).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update child"})
		return
	}
	c.JSON(http.StatusOK, child)
}

// deactivateChildHandler withdraws a child rather than deleting the row;
// reconciled history must survive the roster change.
func deactivateChildHandler(c *gin.Context) {
	child, ok := childByParam(c)
	if !ok {
		return
	}
	child.Status = models.StudentWithdrawn
	if err := db.Save(child).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to withdraw child"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "child withdrawn", "id": child.ID})
}

func childByParam(c *gin.Context) (*models.Child, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var child models.Child
	if err := db.First(&child, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "child not found"})
		return nil, false
	}
	return &child, true
}

// uploadStatementHandler accepts a multipart statement file and runs the
// whole ingestion pipeline. Scanned images go through OCR first.
func uploadStatementHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	if fileHeader.Size > ingest.MaxFileBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 10 MB limit"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open upload"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, ingest.MaxFileBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	if len(data) > ingest.MaxFileBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 10 MB limit"})
		return
	}

	name := filepath.Base(fileHeader.Filename)
	var stmt *models.UploadedStatement
	var procErr error
	if isImage(name) {
		tmp := filepath.Join(os.TempDir(), name)
		defer os.Remove(tmp)
		if err := c.SaveUploadedFile(fileHeader, tmp); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage image"})
			return
		}
		text, err := scan.ExtractText(tmp)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not read statement image: " + err.Error()})
			return
		}
		stmt, procErr = ingestSvc.ProcessScanned(c.Request.Context(), name, text)
	} else {
		stmt, procErr = ingestSvc.Process(c.Request.Context(), name, data)
	}

	if procErr != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(procErr, statement.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": procErr.Error(), "statement": stmt})
		return
	}
	c.JSON(http.StatusCreated, stmt)
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
		return true
	}
	return false
}

func listStatementsHandler(c *gin.Context) {
	var stmts []models.UploadedStatement
	if err := db.Order("created_at desc").Find(&stmts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list statements"})
		return
	}
	c.JSON(http.StatusOK, stmts)
}

func getStatementHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var stmt models.UploadedStatement
	if err := db.First(&stmt, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "statement not found"})
		return
	}
	var txns []models.Transaction
	db.Where("uploaded_statement_id = ?", stmt.ID).Order("transaction_date asc").Find(&txns)
	c.JSON(http.StatusOK, gin.H{"statement": stmt, "transactions": txns})
}

func listUnmatchedHandler(c *gin.Context) {
	var txns []models.Transaction
	err := db.Where("status = ?", models.TxnUnmatched).
		Order("transaction_date asc, id asc").Find(&txns).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}
	c.JSON(http.StatusOK, txns)
}

func matchAllHandler(c *gin.Context) {
	matched, remaining, err := ingestSvc.MatchAllUnmatched(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matched": matched, "remaining": remaining})
}

// suggestionsHandler lists candidate children for a transaction under manual
// review. Containment of the name or student number is a loose heuristic;
// the reviewer makes the call.
func suggestionsHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var txn models.Transaction
	if err := db.First(&txn, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	var roster []models.Child
	if err := db.Where("status = ?", models.StudentActive).Find(&roster).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load roster"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": txn, "suggestions": match.Suggestions(txn, roster)})
}

func manualMatchHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		ChildID uint `json:"childId" binding:"required"`
		Month   int  `json:"month" binding:"required"`
		Year    int  `json:"year" binding:"required"`
		Force   bool `json:"force"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Month < 1 || req.Month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be 1-12"})
		return
	}

	payment, err := led.ManualMatch(uint(id), req.ChildID, req.Month, req.Year, req.Force)
	switch {
	case errors.Is(err, ledger.ErrMatchConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payment)
}

func ignoreTransactionHandler(c *gin.Context) {
	setAsideTransaction(c, led.Ignore)
}

func disputeTransactionHandler(c *gin.Context) {
	setAsideTransaction(c, led.Dispute)
}

func setAsideTransaction(c *gin.Context, fn func(uint, string) error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	err = fn(uint(id), req.Reason)
	switch {
	case errors.Is(err, ledger.ErrMatchConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction updated"})
}
