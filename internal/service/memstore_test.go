package service

import (
	"context"
	"sync"
	"time"

	"turnstile/internal/apperrors"
	"turnstile/internal/models"
)

// In-memory stores for exercising the services without a database. The
// booking store mirrors the conditional-update semantics of the SQL
// layer under a mutex so concurrency tests remain meaningful.

type memEventStore struct {
	mu     sync.Mutex
	events map[int64]*models.Event
}

func newMemEventStore(events ...*models.Event) *memEventStore {
	s := &memEventStore{events: make(map[int64]*models.Event)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *memEventStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (s *memEventStore) Availability(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	return e.AvailableTickets, nil
}

func (s *memEventStore) ListScannable(ctx context.Context, since time.Time, organizerID *int64) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		if e.Date.Before(since) {
			continue
		}
		if organizerID != nil && e.OrganizerID != *organizerID {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

type memBookingStore struct {
	mu       sync.Mutex
	events   *memEventStore
	bookings map[int64]*models.Booking
	nextID   int64

	// failTaken simulates reference code collisions on the next N creates.
	failTaken int
}

func newMemBookingStore(events *memEventStore) *memBookingStore {
	return &memBookingStore{events: events, bookings: make(map[int64]*models.Booking)}
}

func (s *memBookingStore) CreateWithReservation(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failTaken > 0 {
		s.failTaken--
		return apperrors.ErrReferenceTaken
	}
	for _, existing := range s.bookings {
		if existing.ReferenceCode == booking.ReferenceCode {
			return apperrors.ErrReferenceTaken
		}
	}

	s.events.mu.Lock()
	defer s.events.mu.Unlock()
	event, ok := s.events.events[booking.EventID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if event.Status != models.EventStatusActive {
		return apperrors.ErrEventNotBookable
	}
	if event.AvailableTickets < booking.NumberOfTickets {
		return apperrors.ErrInsufficientInventory
	}
	event.AvailableTickets -= booking.NumberOfTickets

	s.nextID++
	booking.ID = s.nextID
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	copied := *booking
	s.bookings[booking.ID] = &copied
	return nil
}

func (s *memBookingStore) get(id int64) *models.Booking {
	b, ok := s.bookings[id]
	if !ok {
		return nil
	}
	copied := *b
	return &copied
}

func (s *memBookingStore) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id), nil
}

func (s *memBookingStore) GetByReference(ctx context.Context, referenceCode string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.bookings {
		if b.ReferenceCode == referenceCode {
			return s.get(id), nil
		}
	}
	return nil, nil
}

func (s *memBookingStore) GetByScanToken(ctx context.Context, scanToken string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.bookings {
		if b.ScanToken == scanToken {
			return s.get(id), nil
		}
	}
	return nil, nil
}

func (s *memBookingStore) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *memBookingStore) ListByEvent(ctx context.Context, eventID int64) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.EventID == eventID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *memBookingStore) Confirm(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	switch b.Status {
	case models.BookingStatusPending:
		b.Status = models.BookingStatusConfirmed
		b.UpdatedAt = time.Now()
		return nil
	case models.BookingStatusConfirmed:
		return nil
	default:
		return apperrors.ErrAlreadyTerminal
	}
}

func (s *memBookingStore) CancelWithRelease(ctx context.Context, id int64) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if b.Status.IsTerminal() {
		return nil, apperrors.ErrAlreadyTerminal
	}
	b.Status = models.BookingStatusCancelled
	b.UpdatedAt = time.Now()

	s.events.mu.Lock()
	if event, ok := s.events.events[b.EventID]; ok {
		event.AvailableTickets += b.NumberOfTickets
		if event.AvailableTickets > event.TotalTickets {
			event.AvailableTickets = event.TotalTickets
		}
	}
	s.events.mu.Unlock()

	copied := *b
	return &copied, nil
}

func (s *memBookingStore) CancelPendingWithRelease(ctx context.Context, id int64) (*models.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != models.BookingStatusPending {
		return nil, false, nil
	}
	b.Status = models.BookingStatusCancelled
	b.UpdatedAt = time.Now()

	s.events.mu.Lock()
	if event, ok := s.events.events[b.EventID]; ok {
		event.AvailableTickets += b.NumberOfTickets
		if event.AvailableTickets > event.TotalTickets {
			event.AvailableTickets = event.TotalTickets
		}
	}
	s.events.mu.Unlock()

	copied := *b
	return &copied, true, nil
}

func (s *memBookingStore) CheckIn(ctx context.Context, id int64, actorID int64) (*time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, false, nil
	}
	if b.Status != models.BookingStatusConfirmed {
		return nil, false, nil
	}
	now := time.Now()
	b.Status = models.BookingStatusAttended
	b.CheckedIn = true
	b.CheckedInAt = &now
	b.CheckedInBy = &actorID
	b.UpdatedAt = now
	return &now, true, nil
}

func (s *memBookingStore) ListExpiredPending(ctx context.Context, before time.Time) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.bookings {
		if b.Status == models.BookingStatusPending && b.CreatedAt.Before(before) {
			out = append(out, *b)
		}
	}
	return out, nil
}

// setCreatedAt backdates a booking for expiration tests.
func (s *memBookingStore) setCreatedAt(id int64, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		b.CreatedAt = t
	}
}

type memInvitationStore struct {
	mu          sync.Mutex
	invitations map[string]*models.Invitation
}

func newMemInvitationStore(invitations ...*models.Invitation) *memInvitationStore {
	s := &memInvitationStore{invitations: make(map[string]*models.Invitation)}
	for _, inv := range invitations {
		s.invitations[inv.Token] = inv
	}
	return s
}

func (s *memInvitationStore) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[token]
	if !ok {
		return nil, nil
	}
	copied := *inv
	return &copied, nil
}

func (s *memInvitationStore) MarkAccepted(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations {
		if inv.ID == id && inv.Status == models.InvitationStatusPending {
			inv.Status = models.InvitationStatusAccepted
			now := time.Now()
			inv.RespondedAt = &now
			return true, nil
		}
	}
	return false, nil
}

// Shared fixtures

func activeEvent(id, organizerID int64, total int) *models.Event {
	return &models.Event{
		ID:               id,
		OrganizerID:      organizerID,
		Title:            "Test Event",
		Price:            2500,
		Date:             time.Now().Add(24 * time.Hour),
		Status:           models.EventStatusActive,
		TotalTickets:     total,
		AvailableTickets: total,
	}
}
