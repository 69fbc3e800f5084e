package models

import "time"

// Event statuses. The catalog is maintained externally; the core only
// reads ownership/capacity fields and mutates available_tickets through
// the inventory primitives.
const (
	EventStatusActive    = "active"
	EventStatusCancelled = "cancelled"
	EventStatusCompleted = "completed"
)

// Event represents an event in the reference catalog
type Event struct {
	ID               int64     `json:"id" db:"id"`
	OrganizerID      int64     `json:"organizer_id" db:"organizer_id"`
	Title            string    `json:"title" db:"title"`
	Price            int64     `json:"price" db:"price"` // minor currency units per ticket
	Date             time.Time `json:"date" db:"date"`
	Status           string    `json:"status" db:"status"`
	TotalTickets     int       `json:"total_tickets" db:"total_tickets"`
	AvailableTickets int       `json:"available_tickets" db:"available_tickets"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Bookable reports whether new bookings may be created for the event at
// the given instant.
func (e *Event) Bookable(now time.Time) bool {
	return e.Status == EventStatusActive && e.Date.After(now)
}

// BookingStatus is the booking lifecycle state
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusAttended  BookingStatus = "attended"
)

// IsTerminal reports whether no further transition leaves the status.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusAttended
}

// CanTransitionTo checks whether the lifecycle permits moving to target.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	transitions := map[BookingStatus][]BookingStatus{
		BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
		BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusAttended},
		BookingStatusCancelled: {},
		BookingStatusAttended:  {},
	}

	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Booking represents a booking in the system. Holds seats against exactly
// one event; number_of_tickets and total_amount are frozen at creation.
type Booking struct {
	ID              int64         `json:"id" db:"id"`
	EventID         int64         `json:"event_id" db:"event_id"`
	UserID          int64         `json:"user_id" db:"user_id"`
	NumberOfTickets int           `json:"number_of_tickets" db:"number_of_tickets"`
	TotalAmount     int64         `json:"total_amount" db:"total_amount"`
	ReferenceCode   string        `json:"reference_code" db:"reference_code"`
	ScanToken       string        `json:"-" db:"scan_token"`
	Status          BookingStatus `json:"status" db:"status"`
	CheckedIn       bool          `json:"checked_in" db:"checked_in"`
	CheckedInAt     *time.Time    `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CheckedInBy     *int64        `json:"checked_in_by,omitempty" db:"checked_in_by"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// Ledger entry reasons
const (
	LedgerReasonReserve = "reserve"
	LedgerReasonRelease = "release"
	LedgerReasonAdjust  = "adjust"
)

// LedgerEntry records one reserve/release against an event's counter.
// The ledger is append-only and exists to make the counter auditable.
type LedgerEntry struct {
	ID        int64     `json:"id" db:"id"`
	EventID   int64     `json:"event_id" db:"event_id"`
	BookingID int64     `json:"booking_id" db:"booking_id"`
	Delta     int       `json:"delta" db:"delta"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Invitation statuses
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusDeclined = "declined"
)

// Invitation lets the invitation-acceptance flow originate a booking. The
// flow always goes through the booking engine's single entry point.
type Invitation struct {
	ID          int64      `json:"id" db:"id"`
	EventID     int64      `json:"event_id" db:"event_id"`
	Email       string     `json:"email" db:"email"`
	Token       string     `json:"-" db:"token"`
	Status      string     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty" db:"responded_at"`
}
