package repository

import (
	"turnstile/internal/database"
)

// Repositories bundles the storage layer. Events, Bookings and
// Invitations are interfaces so the service layer can be exercised
// against in-memory fakes.
type Repositories struct {
	Events      EventStore
	Bookings    BookingStore
	Invitations InvitationStore
	Inventory   *InventoryRepository
}

func NewRepositories(db *database.DB) *Repositories {
	inventory := NewInventoryRepository(db)
	return &Repositories{
		Events:      NewEventRepository(db),
		Bookings:    NewBookingRepository(db, inventory),
		Invitations: NewInvitationRepository(db),
		Inventory:   inventory,
	}
}
