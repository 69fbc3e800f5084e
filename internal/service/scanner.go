package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"turnstile/internal/apperrors"
	"turnstile/internal/auth"
	"turnstile/internal/messaging"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
	"turnstile/internal/repository"
	"turnstile/internal/search"
)

// ScannerService validates tickets at the door. Duplicate scans,
// cancelled tickets and unconfirmed bookings are business outcomes
// reported in the ScanResult, not errors.
type ScannerService struct {
	events   repository.EventStore
	bookings repository.BookingStore
	nats     *messaging.NATSClient
	search   *search.ElasticsearchClient
	lookback time.Duration
}

func NewScannerService(events repository.EventStore, bookings repository.BookingStore, nats *messaging.NATSClient, es *search.ElasticsearchClient, lookback time.Duration) *ScannerService {
	return &ScannerService{
		events:   events,
		bookings: bookings,
		nats:     nats,
		search:   es,
		lookback: lookback,
	}
}

// Scan checks in a ticket by its human-readable reference code
// (manual-entry path at the door).
func (s *ScannerService) Scan(ctx context.Context, actor auth.Actor, referenceCode string) (*models.ScanResult, error) {
	code := strings.ToUpper(strings.TrimSpace(referenceCode))
	booking, err := s.bookings.GetByReference(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.checkIn(ctx, actor, booking)
}

// VerifyToken checks in a ticket by its scan token (the machine-readable
// artifact path).
func (s *ScannerService) VerifyToken(ctx context.Context, actor auth.Actor, scanToken string) (*models.ScanResult, error) {
	booking, err := s.bookings.GetByScanToken(ctx, strings.TrimSpace(scanToken))
	if err != nil {
		return nil, err
	}
	return s.checkIn(ctx, actor, booking)
}

// checkIn is the shared validation path behind both scan entry points.
// Authorization is checked before the status so a scanner for the wrong
// event learns nothing about the ticket.
func (s *ScannerService) checkIn(ctx context.Context, actor auth.Actor, booking *models.Booking) (*models.ScanResult, error) {
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}

	event, err := s.events.GetByID(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperrors.ErrNotFound
	}

	if !actor.CanScanEvent(event.OrganizerID) {
		if actor.Role == auth.RoleOrganizer {
			return nil, apperrors.Forbidden("event %d belongs to another organizer", event.ID)
		}
		return nil, apperrors.Forbidden("role %s may not scan tickets", actor.Role)
	}

	switch booking.Status {
	case models.BookingStatusAttended:
		return s.result(models.ScanResultAlreadyScanned, "ticket was already scanned", booking, booking.CheckedInAt, booking.CheckedInBy), nil
	case models.BookingStatusCancelled:
		return s.result(models.ScanResultCancelled, "booking was cancelled", booking, nil, nil), nil
	case models.BookingStatusPending:
		return s.result(models.ScanResultNotConfirmed, "booking has not been confirmed", booking, nil, nil), nil
	}

	scannedAt, ok, err := s.bookings.CheckIn(ctx, booking.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race. Re-read to see who won: a concurrent scan
		// gets reported with the winner's timestamp and scanner, a
		// concurrent cancel as a cancelled booking.
		booking, err = s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		if booking == nil {
			return nil, apperrors.ErrNotFound
		}
		if booking.Status == models.BookingStatusCancelled {
			return s.result(models.ScanResultCancelled, "booking was cancelled", booking, nil, nil), nil
		}
		return s.result(models.ScanResultAlreadyScanned, "ticket was already scanned", booking, booking.CheckedInAt, booking.CheckedInBy), nil
	}

	booking.Status = models.BookingStatusAttended
	booking.CheckedIn = true
	booking.CheckedInAt = scannedAt
	booking.CheckedInBy = &actor.UserID

	slog.Info("Ticket scanned",
		"booking_id", booking.ID,
		"event_id", booking.EventID,
		"scanned_by", actor.UserID)

	if s.nats != nil {
		err := s.nats.Publish(models.SubjectTicketScanned, models.TicketScannedEvent{
			BookingID: booking.ID,
			EventID:   booking.EventID,
			ScannedBy: actor.UserID,
			Timestamp: *scannedAt,
		})
		if err != nil {
			slog.Warn("Failed to publish ticket.scanned", "booking_id", booking.ID, "error", err)
		}
	}

	return s.result(models.ScanResultScanned, "ticket scanned successfully", booking, scannedAt, &actor.UserID), nil
}

func (s *ScannerService) result(kind, message string, booking *models.Booking, scannedAt *time.Time, scannedBy *int64) *models.ScanResult {
	metrics.TicketScans.WithLabelValues(kind).Inc()
	return &models.ScanResult{
		Result:    kind,
		Message:   message,
		Booking:   models.NewBookingResponse(booking, false),
		ScannedAt: scannedAt,
		ScannedBy: scannedBy,
	}
}

// History returns an event's bookings with aggregate check-in statistics
// for the staff dashboard. Cancelled bookings are listed but excluded
// from the counters.
func (s *ScannerService) History(ctx context.Context, actor auth.Actor, eventID int64) (*models.ScanHistoryResponse, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperrors.ErrNotFound
	}
	if !actor.CanScanEvent(event.OrganizerID) {
		if actor.Role == auth.RoleOrganizer {
			return nil, apperrors.Forbidden("event %d belongs to another organizer", eventID)
		}
		return nil, apperrors.Forbidden("role %s may not view scan history", actor.Role)
	}

	bookings, err := s.bookings.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	resp := &models.ScanHistoryResponse{
		Bookings: make([]models.BookingResponse, len(bookings)),
	}
	stats := &resp.Statistics

	for i := range bookings {
		b := &bookings[i]
		resp.Bookings[i] = models.NewBookingResponse(b, false)

		if b.Status == models.BookingStatusCancelled {
			continue
		}
		stats.TotalBookings++
		stats.TotalTickets += b.NumberOfTickets
		if b.CheckedIn {
			stats.CheckedInBookings++
			stats.CheckedInTickets += b.NumberOfTickets
		}
	}
	stats.NotCheckedInBookings = stats.TotalBookings - stats.CheckedInBookings
	stats.NotCheckedInTickets = stats.TotalTickets - stats.CheckedInTickets
	if stats.TotalTickets > 0 {
		stats.AttendanceRate = float64(stats.CheckedInTickets) / float64(stats.TotalTickets) * 100
	}

	return resp, nil
}

// ScannableEvents lists the events the actor may currently scan for.
// Elasticsearch serves the query when available; Postgres is the
// fallback so the scanner UI keeps working during a search outage.
func (s *ScannerService) ScannableEvents(ctx context.Context, actor auth.Actor, query string) ([]models.Event, error) {
	var organizerID *int64
	switch {
	case actor.Role.Elevated():
		organizerID = nil
	case actor.Role == auth.RoleOrganizer:
		organizerID = &actor.UserID
	default:
		return nil, apperrors.Forbidden("role %s may not scan tickets", actor.Role)
	}

	since := time.Now().Add(-s.lookback)

	if s.search != nil {
		events, err := s.search.SearchScannable(ctx, query, organizerID, since)
		if err == nil {
			return events, nil
		}
		slog.Warn("Event search unavailable, falling back to database", "error", err)
	}

	events, err := s.events.ListScannable(ctx, since, organizerID)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return events, nil
	}

	needle := strings.ToLower(query)
	filtered := events[:0]
	for _, event := range events {
		if strings.Contains(strings.ToLower(event.Title), needle) {
			filtered = append(filtered, event)
		}
	}
	return filtered, nil
}
