package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"turnstile/internal/apperrors"
	"turnstile/internal/auth"
	"turnstile/internal/cache"
	"turnstile/internal/messaging"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
	"turnstile/internal/refcode"
	"turnstile/internal/repository"
)

// referenceRetries bounds the collision retry loop when generating
// reference codes. With an 8-character code collisions are vanishingly
// rare; hitting the bound means something is wrong with the generator.
const referenceRetries = 5

// BookingService drives the booking lifecycle. Every booking enters the
// system through Create, whatever the trigger source.
type BookingService struct {
	events         repository.EventStore
	bookings       repository.BookingStore
	nats           *messaging.NATSClient
	availability   *cache.AvailabilityCache
	pendingTimeout time.Duration
}

func NewBookingService(events repository.EventStore, bookings repository.BookingStore, nats *messaging.NATSClient, availability *cache.AvailabilityCache, pendingTimeout time.Duration) *BookingService {
	return &BookingService{
		events:         events,
		bookings:       bookings,
		nats:           nats,
		availability:   availability,
		pendingTimeout: pendingTimeout,
	}
}

// Create reserves seats and creates the booking atomically. The booking
// starts confirmed unless the request asks for deferred confirmation.
func (s *BookingService) Create(ctx context.Context, actor auth.Actor, req *models.CreateBookingRequest) (*models.Booking, error) {
	if req.NumberOfTickets < 1 {
		return nil, fmt.Errorf("%w: number_of_tickets must be at least 1", apperrors.ErrInvalidInput)
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrNotFound
	}
	if !event.Bookable(time.Now()) {
		return nil, apperrors.ErrEventNotBookable
	}

	status := models.BookingStatusConfirmed
	if req.Deferred {
		status = models.BookingStatusPending
	}

	booking := &models.Booking{
		EventID:         req.EventID,
		UserID:          actor.UserID,
		NumberOfTickets: req.NumberOfTickets,
		TotalAmount:     event.Price * int64(req.NumberOfTickets),
		Status:          status,
	}

	for attempt := 0; ; attempt++ {
		booking.ReferenceCode, err = refcode.NewReference()
		if err != nil {
			return nil, fmt.Errorf("failed to generate reference code: %w", err)
		}
		booking.ScanToken, err = refcode.NewScanToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate scan token: %w", err)
		}

		err = s.bookings.CreateWithReservation(ctx, booking)
		if err == nil {
			break
		}
		if errors.Is(err, apperrors.ErrReferenceTaken) && attempt < referenceRetries {
			slog.Warn("Reference code collision, regenerating",
				"event_id", req.EventID, "attempt", attempt+1)
			continue
		}
		if errors.Is(err, apperrors.ErrInsufficientInventory) {
			metrics.ReservationConflicts.Inc()
		}
		return nil, err
	}

	metrics.BookingsCreated.WithLabelValues(string(booking.Status)).Inc()
	s.invalidateAvailability(ctx, booking.EventID)

	slog.Info("Booking created",
		"booking_id", booking.ID,
		"event_id", booking.EventID,
		"user_id", booking.UserID,
		"tickets", booking.NumberOfTickets,
		"status", booking.Status)

	if booking.Status == models.BookingStatusConfirmed {
		s.publishConfirmed(booking)
	}

	return booking, nil
}

// Confirm performs the deferred pending -> confirmed transition. It is
// idempotent: confirming an already-confirmed booking succeeds quietly.
func (s *BookingService) Confirm(ctx context.Context, actor auth.Actor, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if !actor.CanAccessBooking(booking.UserID) {
		return nil, apperrors.Forbidden("booking %d belongs to another user", bookingID)
	}

	if booking.Status == models.BookingStatusConfirmed {
		return booking, nil
	}

	if err := s.bookings.Confirm(ctx, bookingID); err != nil {
		return nil, err
	}
	booking.Status = models.BookingStatusConfirmed

	slog.Info("Booking confirmed", "booking_id", booking.ID, "event_id", booking.EventID)
	s.publishConfirmed(booking)

	return booking, nil
}

// Cancel moves the booking to its terminal cancelled state and returns
// the seats to inventory. Owners cancel their own bookings; admins may
// cancel anyone's.
func (s *BookingService) Cancel(ctx context.Context, actor auth.Actor, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if !actor.CanAccessBooking(booking.UserID) {
		return nil, apperrors.Forbidden("booking %d belongs to another user", bookingID)
	}

	cancelled, err := s.bookings.CancelWithRelease(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	metrics.BookingsCancelled.Inc()
	s.invalidateAvailability(ctx, cancelled.EventID)

	slog.Info("Booking cancelled",
		"booking_id", cancelled.ID,
		"event_id", cancelled.EventID,
		"tickets_released", cancelled.NumberOfTickets)

	s.publishCancelled(cancelled, "user_cancelled")

	return cancelled, nil
}

// GetByID returns one booking to an authorized actor.
func (s *BookingService) GetByID(ctx context.Context, actor auth.Actor, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if !actor.CanAccessBooking(booking.UserID) {
		return nil, apperrors.Forbidden("booking %d belongs to another user", bookingID)
	}
	return booking, nil
}

// ListByUser returns the bookings owned by userID. Non-elevated actors
// may only list their own.
func (s *BookingService) ListByUser(ctx context.Context, actor auth.Actor, userID int64) ([]models.Booking, error) {
	if userID != actor.UserID && !actor.Role.Elevated() {
		return nil, apperrors.Forbidden("cannot list bookings of user %d", userID)
	}
	return s.bookings.ListByUser(ctx, userID)
}

// ExpirePending cancels bookings that sat in 'pending' past the
// confirmation window, returning their seats to the pool. Called
// periodically by the expiration job.
func (s *BookingService) ExpirePending(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.pendingTimeout)
	expired, err := s.bookings.ListExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range expired {
		// The cancel is keyed on status = 'pending', so a booking the
		// user confirms between the list and this update stays
		// confirmed. The next run sees a clean picture.
		booking, ok, err := s.bookings.CancelPendingWithRelease(ctx, expired[i].ID)
		if err != nil {
			return cancelled, err
		}
		if !ok {
			continue
		}

		cancelled++
		metrics.BookingsCancelled.Inc()
		s.invalidateAvailability(ctx, booking.EventID)

		slog.Info("Expired pending booking",
			"booking_id", booking.ID,
			"event_id", booking.EventID,
			"created_at", booking.CreatedAt)

		s.publishCancelled(booking, "pending_timeout")
	}

	return cancelled, nil
}

func (s *BookingService) invalidateAvailability(ctx context.Context, eventID int64) {
	if s.availability == nil {
		return
	}
	if err := s.availability.Invalidate(ctx, eventID); err != nil {
		slog.Warn("Failed to invalidate availability cache", "event_id", eventID, "error", err)
	}
}

func (s *BookingService) publishConfirmed(booking *models.Booking) {
	if s.nats == nil {
		return
	}
	err := s.nats.Publish(models.SubjectBookingConfirmed, models.BookingConfirmedEvent{
		BookingID:       booking.ID,
		EventID:         booking.EventID,
		UserID:          booking.UserID,
		NumberOfTickets: booking.NumberOfTickets,
		TotalAmount:     booking.TotalAmount,
		ReferenceCode:   booking.ReferenceCode,
		Timestamp:       time.Now(),
	})
	if err != nil {
		slog.Warn("Failed to publish booking.confirmed", "booking_id", booking.ID, "error", err)
	}
}

func (s *BookingService) publishCancelled(booking *models.Booking, reason string) {
	if s.nats == nil {
		return
	}
	err := s.nats.Publish(models.SubjectBookingCancelled, models.BookingCancelledEvent{
		BookingID:       booking.ID,
		EventID:         booking.EventID,
		UserID:          booking.UserID,
		NumberOfTickets: booking.NumberOfTickets,
		Reason:          reason,
		Timestamp:       time.Now(),
	})
	if err != nil {
		slog.Warn("Failed to publish booking.cancelled", "booking_id", booking.ID, "error", err)
	}
}
