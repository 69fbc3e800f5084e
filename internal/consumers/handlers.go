package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"turnstile/internal/models"
	"turnstile/internal/repository"
	"turnstile/internal/search"

	"github.com/nats-io/stan.go"
)

type Handlers struct {
	repos  *repository.Repositories
	search *search.ElasticsearchClient
}

func NewHandlers(repos *repository.Repositories, es *search.ElasticsearchClient) *Handlers {
	return &Handlers{repos: repos, search: es}
}

// HandleBookingConfirmed dispatches the confirmation notification and
// refreshes the search index with the event's new availability.
func (h *Handlers) HandleBookingConfirmed(m *stan.Msg) {
	var event models.BookingConfirmedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking confirmed event", "error", err)
		return
	}

	slog.Info("Dispatching booking confirmation notification",
		"booking_id", event.BookingID,
		"event_id", event.EventID,
		"user_id", event.UserID,
		"reference_code", event.ReferenceCode)

	h.reindexEvent(event.EventID)

	m.Ack()
}

// HandleBookingCancelled dispatches the cancellation notification.
func (h *Handlers) HandleBookingCancelled(m *stan.Msg) {
	var event models.BookingCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking cancelled event", "error", err)
		return
	}

	slog.Info("Dispatching booking cancellation notification",
		"booking_id", event.BookingID,
		"event_id", event.EventID,
		"user_id", event.UserID,
		"reason", event.Reason)

	h.reindexEvent(event.EventID)

	m.Ack()
}

// HandleTicketScanned feeds the check-in audit stream.
func (h *Handlers) HandleTicketScanned(m *stan.Msg) {
	var event models.TicketScannedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal ticket scanned event", "error", err)
		return
	}

	slog.Info("Recording ticket scan",
		"booking_id", event.BookingID,
		"event_id", event.EventID,
		"scanned_by", event.ScannedBy,
		"timestamp", event.Timestamp)

	m.Ack()
}

// reindexEvent pushes the event's current state into the search index.
// Failures are logged and dropped; the periodic bulk sync catches up.
func (h *Handlers) reindexEvent(eventID int64) {
	if h.search == nil {
		return
	}

	ctx := context.Background()
	event, err := h.repos.Events.GetByID(ctx, eventID)
	if err != nil || event == nil {
		slog.Warn("Failed to load event for reindexing", "event_id", eventID, "error", err)
		return
	}

	if err := h.search.IndexEvent(ctx, event); err != nil {
		slog.Warn("Failed to reindex event", "event_id", eventID, "error", err)
	}
}
