package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mofokengkatleho/katlehouniversity/models"
	"github.com/mofokengkatleho/katlehouniversity/pkg/report"
)

// buildMonthlyReport loads the roster and the period's payments and folds
// them through the pure aggregator. Reads only.
func buildMonthlyReport(month, year int) (*report.Monthly, error) {
	var roster []models.Child
	if err := db.Where("status = ?", models.StudentActive).Find(&roster).Error; err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	var payments []models.Payment
	err := db.Where("payment_month = ? AND payment_year = ?", month, year).Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return report.Build(month, year, roster, payments), nil
}

func reportPeriod(c *gin.Context) (int, int, bool) {
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be 1-12"})
		return 0, 0, false
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 || year > 2100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year is required"})
		return 0, 0, false
	}
	return month, year, true
}

func monthlyReportHandler(c *gin.Context) {
	month, year, ok := reportPeriod(c)
	if !ok {
		return
	}
	rep, err := buildMonthlyReport(month, year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func currentReportHandler(c *gin.Context) {
	now := time.Now()
	rep, err := buildMonthlyReport(int(now.Month()), now.Year())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func monthlyReportCSVHandler(c *gin.Context) {
	month, year, ok := reportPeriod(c)
	if !ok {
		return
	}
	rep, err := buildMonthlyReport(month, year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=fees-%s.csv", rep.Period))
	if err := rep.WriteCSV(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render csv"})
	}
}
