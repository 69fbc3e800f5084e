package service

import (
	"context"
	"log/slog"

	"turnstile/internal/apperrors"
	"turnstile/internal/auth"
	"turnstile/internal/cache"
	"turnstile/internal/models"
	"turnstile/internal/repository"
)

// InventoryService serves advisory availability reads and the booking
// audit trail. Reservation itself never goes through here; that stays a
// single conditional update inside the booking transaction.
type InventoryService struct {
	events       repository.EventStore
	bookings     repository.BookingStore
	inventory    *repository.InventoryRepository
	availability *cache.AvailabilityCache
}

func NewInventoryService(events repository.EventStore, bookings repository.BookingStore, inventory *repository.InventoryRepository, availability *cache.AvailabilityCache) *InventoryService {
	return &InventoryService{
		events:       events,
		bookings:     bookings,
		inventory:    inventory,
		availability: availability,
	}
}

// Peek returns the current availability for listing pages. Served from
// the cache when possible; the value is advisory either way.
func (s *InventoryService) Peek(ctx context.Context, eventID int64) (*models.AvailabilityResponse, error) {
	if s.availability != nil {
		if available, err := s.availability.Get(ctx, eventID); err == nil {
			return &models.AvailabilityResponse{EventID: eventID, Available: available}, nil
		}
	}

	available, err := s.events.Availability(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if s.availability != nil {
		if err := s.availability.Set(ctx, eventID, available); err != nil {
			slog.Warn("Failed to cache availability", "event_id", eventID, "error", err)
		}
	}

	return &models.AvailabilityResponse{EventID: eventID, Available: available}, nil
}

// Audit returns the reservation ledger for one booking. Restricted to
// elevated roles; the trail exposes operational detail attendees do not
// need.
func (s *InventoryService) Audit(ctx context.Context, actor auth.Actor, bookingID int64) ([]models.LedgerEntry, error) {
	if !actor.Role.Elevated() {
		return nil, apperrors.Forbidden("role %s may not read the reservation ledger", actor.Role)
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}

	return s.inventory.EntriesByBooking(ctx, bookingID)
}
