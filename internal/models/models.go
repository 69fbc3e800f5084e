package models

import "time"

// CreateBookingRequest - request body for creating a booking
type CreateBookingRequest struct {
	EventID         int64 `json:"event_id" binding:"required"`
	NumberOfTickets int   `json:"number_of_tickets" binding:"required,min=1"`
	// Deferred confirmation: when true the booking starts in 'pending'
	// and must be confirmed separately.
	Deferred bool `json:"deferred,omitempty"`
}

// BookingResponse - booking as returned to its owner. The scan token is
// only included when IncludeScanToken is used by the handler; it must
// never appear alongside the reference code in staff-facing payloads.
type BookingResponse struct {
	ID              int64      `json:"id"`
	EventID         int64      `json:"event_id"`
	UserID          int64      `json:"user_id"`
	NumberOfTickets int        `json:"number_of_tickets"`
	TotalAmount     int64      `json:"total_amount"`
	ReferenceCode   string     `json:"reference_code"`
	ScanToken       string     `json:"scan_token,omitempty"`
	Status          string     `json:"status"`
	CheckedIn       bool       `json:"checked_in"`
	CheckedInAt     *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy     *int64     `json:"checked_in_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewBookingResponse maps a booking row to its owner-facing shape.
func NewBookingResponse(b *Booking, includeScanToken bool) BookingResponse {
	resp := BookingResponse{
		ID:              b.ID,
		EventID:         b.EventID,
		UserID:          b.UserID,
		NumberOfTickets: b.NumberOfTickets,
		TotalAmount:     b.TotalAmount,
		ReferenceCode:   b.ReferenceCode,
		Status:          string(b.Status),
		CheckedIn:       b.CheckedIn,
		CheckedInAt:     b.CheckedInAt,
		CheckedInBy:     b.CheckedInBy,
		CreatedAt:       b.CreatedAt,
	}
	if includeScanToken {
		resp.ScanToken = b.ScanToken
	}
	return resp
}

// CancelBookingRequest - request body for cancelling a booking
type CancelBookingRequest struct {
	BookingID int64 `json:"booking_id" binding:"required"`
}

// ConfirmBookingRequest - request body for confirming a pending booking
type ConfirmBookingRequest struct {
	BookingID int64 `json:"booking_id" binding:"required"`
}

// ScanTicketRequest - manual-entry scan by reference code
type ScanTicketRequest struct {
	ReferenceCode string `json:"reference_code" binding:"required"`
}

// VerifyTokenRequest - token-based scan from the scannable artifact
type VerifyTokenRequest struct {
	ScanToken string `json:"scan_token" binding:"required"`
}

// Scan results. Business outcomes, not system errors: a duplicate scan or
// a cancelled ticket is reported, never retried or logged as a fault.
const (
	ScanResultScanned        = "scanned"
	ScanResultAlreadyScanned = "already_scanned"
	ScanResultCancelled      = "cancelled"
	ScanResultNotConfirmed   = "not_confirmed"
)

// ScanResult describes the outcome of a check-in attempt.
type ScanResult struct {
	Result    string          `json:"result"`
	Message   string          `json:"message"`
	Booking   BookingResponse `json:"booking"`
	ScannedAt *time.Time      `json:"scanned_at,omitempty"`
	ScannedBy *int64          `json:"scanned_by,omitempty"`
}

// ScanStatistics - aggregate check-in counters for one event
type ScanStatistics struct {
	TotalBookings        int     `json:"total_bookings"`
	CheckedInBookings    int     `json:"checked_in_bookings"`
	NotCheckedInBookings int     `json:"not_checked_in_bookings"`
	TotalTickets         int     `json:"total_tickets"`
	CheckedInTickets     int     `json:"checked_in_tickets"`
	NotCheckedInTickets  int     `json:"not_checked_in_tickets"`
	AttendanceRate       float64 `json:"attendance_rate"`
}

// ScanHistoryResponse - bookings plus aggregate stats for the staff dashboard
type ScanHistoryResponse struct {
	Bookings   []BookingResponse `json:"bookings"`
	Statistics ScanStatistics    `json:"statistics"`
}

// AvailabilityResponse - advisory ticket availability for listing pages.
// A read here is never a reservation guarantee.
type AvailabilityResponse struct {
	EventID   int64 `json:"event_id"`
	Available int   `json:"available_tickets"`
}

// AcceptInvitationRequest - request body for accepting an invitation
type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// AcceptInvitationResponse - invitation acceptance outcome; Booking is nil
// when acceptance succeeded but no tickets were left.
type AcceptInvitationResponse struct {
	InvitationID int64            `json:"invitation_id"`
	Status       string           `json:"status"`
	Booking      *BookingResponse `json:"booking,omitempty"`
}

// ScannerEventsResponse - events the actor is allowed to scan for
type ScannerEventsResponse struct {
	Events []Event `json:"events"`
}
