// Package service implements the core business operations. Services take
// an explicit Actor on every operation and depend on store interfaces, so
// the rules are testable without a database.
package service

import (
	"time"

	"turnstile/internal/cache"
	"turnstile/internal/messaging"
	"turnstile/internal/repository"
	"turnstile/internal/search"
)

// Services aggregates the business services
type Services struct {
	Bookings    *BookingService
	Scanner     *ScannerService
	Inventory   *InventoryService
	Invitations *InvitationService
}

// Options carries the tunables the services need from configuration.
type Options struct {
	ScannerLookback time.Duration
	PendingTimeout  time.Duration
}

// NewServices wires the services together. The cache and search clients
// may be nil; every service treats them as optional accelerators and
// falls back to Postgres.
func NewServices(repos *repository.Repositories, nats *messaging.NATSClient, availability *cache.AvailabilityCache, es *search.ElasticsearchClient, opts Options) *Services {
	bookings := NewBookingService(repos.Events, repos.Bookings, nats, availability, opts.PendingTimeout)

	return &Services{
		Bookings:    bookings,
		Scanner:     NewScannerService(repos.Events, repos.Bookings, nats, es, opts.ScannerLookback),
		Inventory:   NewInventoryService(repos.Events, repos.Bookings, repos.Inventory, availability),
		Invitations: NewInvitationService(repos.Invitations, bookings),
	}
}
