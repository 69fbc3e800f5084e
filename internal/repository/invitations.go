package repository

import (
	"context"
	"database/sql"

	"turnstile/internal/database"
	"turnstile/internal/models"
)

// InvitationStore backs the invitation-acceptance trigger source.
type InvitationStore interface {
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	MarkAccepted(ctx context.Context, id int64) (bool, error)
}

type InvitationRepository struct {
	db *database.DB
}

func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	invitation := &models.Invitation{}
	query := `
		SELECT id, event_id, email, token, status, created_at, responded_at
		FROM invitations
		WHERE token = $1`

	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&invitation.ID,
		&invitation.EventID,
		&invitation.Email,
		&invitation.Token,
		&invitation.Status,
		&invitation.CreatedAt,
		&invitation.RespondedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return invitation, err
}

// MarkAccepted flips a pending invitation to accepted. The condition on
// the current status makes concurrent accepts of the same token resolve
// to exactly one winner.
func (r *InvitationRepository) MarkAccepted(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE invitations
		SET status = 'accepted', responded_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
