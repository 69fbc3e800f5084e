package service

import (
	"context"
	"errors"
	"log/slog"

	"turnstile/internal/apperrors"
	"turnstile/internal/auth"
	"turnstile/internal/models"
	"turnstile/internal/repository"
)

// InvitationService handles invitation acceptance, one of the trigger
// sources that originate bookings. It owns no booking logic of its own:
// the actual reservation goes through BookingService.Create like every
// other booking.
type InvitationService struct {
	invitations repository.InvitationStore
	bookings    *BookingService
}

func NewInvitationService(invitations repository.InvitationStore, bookings *BookingService) *InvitationService {
	return &InvitationService{invitations: invitations, bookings: bookings}
}

// Accept marks the invitation accepted and books one ticket for the
// actor. Acceptance sticks even when the event has sold out in the
// meantime; the response then carries no booking.
func (s *InvitationService) Accept(ctx context.Context, actor auth.Actor, token string) (*models.AcceptInvitationResponse, error) {
	invitation, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		return nil, apperrors.ErrNotFound
	}
	if invitation.Status != models.InvitationStatusPending {
		return nil, apperrors.ErrAlreadyResponded
	}

	ok, err := s.invitations.MarkAccepted(ctx, invitation.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent accept won the conditional update.
		return nil, apperrors.ErrAlreadyResponded
	}

	resp := &models.AcceptInvitationResponse{
		InvitationID: invitation.ID,
		Status:       models.InvitationStatusAccepted,
	}

	booking, err := s.bookings.Create(ctx, actor, &models.CreateBookingRequest{
		EventID:         invitation.EventID,
		NumberOfTickets: 1,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientInventory) || errors.Is(err, apperrors.ErrEventNotBookable) {
			slog.Warn("Invitation accepted but booking impossible",
				"invitation_id", invitation.ID,
				"event_id", invitation.EventID,
				"reason", err)
			return resp, nil
		}
		return nil, err
	}

	bookingResp := models.NewBookingResponse(booking, true)
	resp.Booking = &bookingResp

	slog.Info("Invitation accepted",
		"invitation_id", invitation.ID,
		"event_id", invitation.EventID,
		"booking_id", booking.ID)

	return resp, nil
}
