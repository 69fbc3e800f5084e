package handlers

import (
	"net/http"

	"turnstile/internal/models"

	"github.com/gin-gonic/gin"
)

// AcceptInvitation - POST /api/invitations/accept
// Accepts an invitation by token and books one ticket for the caller.
// Acceptance succeeds even when the event has sold out; the response
// then carries no booking.
func (h *Handlers) AcceptInvitation(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req models.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Invitations.Accept(c.Request.Context(), a, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
