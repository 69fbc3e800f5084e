package handlers

import (
	"net/http"
	"strconv"

	"turnstile/internal/models"

	"github.com/gin-gonic/gin"
)

// Bookings handlers

// CreateBooking - POST /api/bookings
// Reserves seats and creates the booking in one step. The response is
// the only place the scan token is ever handed out.
func (h *Handlers) CreateBooking(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.services.Bookings.Create(c.Request.Context(), a, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewBookingResponse(booking, true))
}

// ListBookings - GET /api/bookings
// Lists the caller's bookings. Elevated roles may pass ?user_id to list
// another user's.
func (h *Handlers) ListBookings(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	userID := a.UserID
	if v := c.Query("user_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}
		userID = parsed
	}

	bookings, err := h.services.Bookings.ListByUser(c.Request.Context(), a, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.BookingResponse, len(bookings))
	for i := range bookings {
		response[i] = models.NewBookingResponse(&bookings[i], bookings[i].UserID == a.UserID)
	}
	c.JSON(http.StatusOK, response)
}

// GetBooking - GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking id"})
		return
	}

	booking, err := h.services.Bookings.GetByID(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}

	// Owners see their scan token; admins reading someone else's booking
	// do not.
	c.JSON(http.StatusOK, models.NewBookingResponse(booking, booking.UserID == a.UserID))
}

// ConfirmBooking - PATCH /api/bookings/confirm
// Completes deferred confirmation of a pending booking.
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req models.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.services.Bookings.Confirm(c.Request.Context(), a, req.BookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewBookingResponse(booking, booking.UserID == a.UserID))
}

// CancelBooking - PATCH /api/bookings/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.services.Bookings.Cancel(c.Request.Context(), a, req.BookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewBookingResponse(booking, booking.UserID == a.UserID))
}

// GetBookingLedger - GET /api/bookings/:id/ledger
// Returns the reservation audit trail for one booking. Admin only.
func (h *Handlers) GetBookingLedger(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking id"})
		return
	}

	entries, err := h.services.Inventory.Audit(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking_id": id, "entries": entries})
}
