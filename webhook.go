package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mofokengkatleho/katlehouniversity/pkg/notify"
)

// Standard Bank notification emails come from these domains; anything else
// is rejected before parsing.
var allowedSenderDomains = []string{"standardbank.co.za", "sbsa.co.za"}

// myUpdatesWebhookHandler receives MyUpdates notification emails forwarded
// by Zapier, Make.com, or a Gmail script. The API key travels in the
// X-API-Key header or the payload body.
func myUpdatesWebhookHandler(c *gin.Context) {
	var payload notify.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	apiKey := c.GetHeader("X-API-Key")
	if apiKey == "" {
		apiKey = payload.APIKey
	}
	if !validWebhookKey(apiKey) {
		log.Printf("webhook: invalid api key from %s", payload.Sender)
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Invalid API key"})
		return
	}

	if !validBankSender(payload.Sender) {
		log.Printf("webhook: rejected sender %s", payload.Sender)
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Invalid sender email. Must be from standardbank.co.za or sbsa.co.za",
		})
		return
	}
	if strings.TrimSpace(payload.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Email body is required"})
		return
	}

	n, err := notifySvc.Process(payload)
	switch {
	case errors.Is(err, notify.ErrDuplicate):
		// Redelivery of an email already handled; report success so the
		// forwarder stops retrying.
		c.JSON(http.StatusOK, gin.H{
			"status":  "accepted",
			"message": "Duplicate notification ignored",
			"emailId": payload.EmailID,
		})
		return
	case err != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "accepted",
		"message":      "Notification processed",
		"emailId":      payload.EmailID,
		"matchStatus":  n.MatchStatus,
		"notification": n.ID,
	})
}

func validWebhookKey(key string) bool {
	expected := os.Getenv("WEBHOOK_API_KEY")
	if expected == "" {
		expected = "default-secret-key" // development fallback
	}
	return key == expected
}

func validBankSender(sender string) bool {
	s := strings.ToLower(strings.TrimSpace(sender))
	for _, d := range allowedSenderDomains {
		if strings.HasSuffix(s, "@"+d) || strings.HasSuffix(s, "."+d) {
			return true
		}
	}
	return false
}
