package repository

import (
	"context"
	"database/sql"
	"time"

	"turnstile/internal/apperrors"
	"turnstile/internal/database"
	"turnstile/internal/models"
)

// EventStore reads the reference catalog. The core never writes event
// rows except for available_tickets, which belongs to the inventory
// primitives.
type EventStore interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	Availability(ctx context.Context, id int64) (int, error)
	ListScannable(ctx context.Context, since time.Time, organizerID *int64) ([]models.Event, error)
}

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, organizer_id, title, price, date, status, total_tickets, available_tickets, created_at, updated_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&event.Price,
		&event.Date,
		&event.Status,
		&event.TotalTickets,
		&event.AvailableTickets,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

// Availability is the advisory counter read. Callers must not treat the
// value as a reservation guarantee.
func (r *EventRepository) Availability(ctx context.Context, id int64) (int, error) {
	var available int
	query := `SELECT available_tickets FROM events WHERE id = $1`

	rows, err := r.db.QueryWithRetry(ctx, query, id)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, apperrors.ErrNotFound
	}
	if err := rows.Scan(&available); err != nil {
		return 0, err
	}

	return available, rows.Err()
}

// ListScannable returns events starting after the cutoff, optionally
// narrowed to one organizer. Recent past events stay visible so staff can
// still scan latecomers.
func (r *EventRepository) ListScannable(ctx context.Context, since time.Time, organizerID *int64) ([]models.Event, error) {
	query := `
		SELECT id, organizer_id, title, price, date, status, total_tickets, available_tickets, created_at, updated_at
		FROM events
		WHERE date >= $1`
	args := []interface{}{since}

	if organizerID != nil {
		query += ` AND organizer_id = $2`
		args = append(args, *organizerID)
	}
	query += ` ORDER BY date DESC`

	rows, err := r.db.QueryWithRetry(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.OrganizerID,
			&event.Title,
			&event.Price,
			&event.Date,
			&event.Status,
			&event.TotalTickets,
			&event.AvailableTickets,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
