package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mofokengkatleho/katlehouniversity/process/banksync"
)

// startBankSync runs the bank API sync on a fixed interval. Enabled with
// SYNC_ENABLED=true; the interval comes from SYNC_INTERVAL_HOURS.
func startBankSync() {
	hours := 6
	if v := os.Getenv("SYNC_INTERVAL_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			hours = h
		}
	}
	log.Printf("bank sync enabled, every %dh", hours)

	go func() {
		ticker := time.NewTicker(time.Duration(hours) * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			saved, matched, err := banksync.Sync(context.Background(), db, ingestSvc, 7)
			if err != nil {
				log.Printf("bank sync: %v", err)
				continue
			}
			log.Printf("bank sync: %d new, %d matched", saved, matched)
		}
	}()
}

// bankSyncHandler triggers an on-demand sync of the last N days (default 7).
func bankSyncHandler(c *gin.Context) {
	days := 7
	if v := c.Query("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 || d > 90 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be 1-90"})
			return
		}
		days = d
	}

	saved, matched, err := banksync.Sync(c.Request.Context(), db, ingestSvc, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved, "matched": matched, "days": days})
}
