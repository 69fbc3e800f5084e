package handlers

import (
	"net/http"
	"strconv"

	"turnstile/internal/models"

	"github.com/gin-gonic/gin"
)

// Scanner handlers. Scan outcomes map to statuses the scanner UI keys
// off: 200 scanned, 409 already scanned, 410 cancelled, 422 unconfirmed.

func scanStatus(result string) int {
	switch result {
	case models.ScanResultAlreadyScanned:
		return http.StatusConflict
	case models.ScanResultCancelled:
		return http.StatusGone
	case models.ScanResultNotConfirmed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}

// ScanTicket - POST /api/scanner/scan
// Manual-entry check-in by reference code.
func (h *Handlers) ScanTicket(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req models.ScanTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Scanner.Scan(c.Request.Context(), a, req.ReferenceCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(scanStatus(result.Result), result)
}

// VerifyToken - POST /api/scanner/verify
// Check-in by scan token from the ticket artifact.
func (h *Handlers) VerifyToken(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req models.VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Scanner.VerifyToken(c.Request.Context(), a, req.ScanToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(scanStatus(result.Result), result)
}

// ScanHistory - GET /api/scanner/history/:event_id
// Bookings plus aggregate check-in statistics for one event.
func (h *Handlers) ScanHistory(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	eventID, err := strconv.ParseInt(c.Param("event_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	history, err := h.services.Scanner.History(c.Request.Context(), a, eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// ScannerEvents - GET /api/scanner/events
// Events the caller may currently scan for, optionally filtered by
// ?query= against the title.
func (h *Handlers) ScannerEvents(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	events, err := h.services.Scanner.ScannableEvents(c.Request.Context(), a, c.Query("query"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ScannerEventsResponse{Events: events})
}
