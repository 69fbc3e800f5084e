package models

import "time"

// NATS subjects published by the core. Publishing is fire-and-forget:
// a failed publish is logged and never rolls back the booking or the
// inventory change.
const (
	SubjectBookingConfirmed = "booking.confirmed"
	SubjectBookingCancelled = "booking.cancelled"
	SubjectTicketScanned    = "ticket.scanned"
)

// BookingConfirmedEvent notifies the messaging collaborator that a booking
// reached 'confirmed' (directly at creation or via deferred confirmation).
type BookingConfirmedEvent struct {
	BookingID       int64     `json:"booking_id"`
	EventID         int64     `json:"event_id"`
	UserID          int64     `json:"user_id"`
	NumberOfTickets int       `json:"number_of_tickets"`
	TotalAmount     int64     `json:"total_amount"`
	ReferenceCode   string    `json:"reference_code"`
	Timestamp       time.Time `json:"timestamp"`
}

// BookingCancelledEvent notifies that a booking was cancelled and its
// seats returned to inventory.
type BookingCancelledEvent struct {
	BookingID       int64     `json:"booking_id"`
	EventID         int64     `json:"event_id"`
	UserID          int64     `json:"user_id"`
	NumberOfTickets int       `json:"number_of_tickets"`
	Reason          string    `json:"reason"`
	Timestamp       time.Time `json:"timestamp"`
}

// TicketScannedEvent records a successful check-in for downstream
// dashboards and audit.
type TicketScannedEvent struct {
	BookingID int64     `json:"booking_id"`
	EventID   int64     `json:"event_id"`
	ScannedBy int64     `json:"scanned_by"`
	Timestamp time.Time `json:"timestamp"`
}
