// Package handlers contains the HTTP layer. Handlers bind the request,
// extract the actor, call a service and map the result; no business rule
// lives here.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"turnstile/internal/apperrors"
	"turnstile/internal/auth"
	"turnstile/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services *service.Services
}

func New(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// actor extracts the authenticated actor placed by the auth middleware.
// A missing actor on a protected route is a wiring bug, reported as 401.
func actor(c *gin.Context) (auth.Actor, bool) {
	a, ok := auth.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return a, ok
}

// respondError maps domain errors to HTTP responses. Unknown errors are
// logged and returned as a generic retryable 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	var forbidden *apperrors.ForbiddenError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": forbidden.Detail})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Operation is not permitted"})
	case errors.Is(err, apperrors.ErrInsufficientInventory):
		c.JSON(http.StatusConflict, gin.H{"error": "Not enough tickets available"})
	case errors.Is(err, apperrors.ErrEventNotBookable):
		c.JSON(http.StatusConflict, gin.H{"error": "Event is not open for booking"})
	case errors.Is(err, apperrors.ErrAlreadyTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": "Booking is already in a terminal state"})
	case errors.Is(err, apperrors.ErrAlreadyResponded):
		c.JSON(http.StatusConflict, gin.H{"error": "Invitation has already been responded to"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("Unhandled error in request", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error, please retry later"})
	}
}
