package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"turnstile/internal/apperrors"
	"turnstile/internal/database"
	"turnstile/internal/models"
)

// InventoryRepository owns every mutation of events.available_tickets.
// Reserve and Release are single conditional updates: the counter is
// never read-modified-written from application code, so two concurrent
// reservations for the last seats are serialized by the database and one
// of them fails cleanly.
type InventoryRepository struct {
	db *database.DB
}

func NewInventoryRepository(db *database.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// ReserveTx atomically decrements the counter inside the caller's
// transaction. Zero rows affected means the event is missing, not
// bookable, or short on seats; a follow-up read classifies which.
func (r *InventoryRepository) ReserveTx(ctx context.Context, tx *sql.Tx, eventID int64, count int) error {
	query := `
		UPDATE events
		SET available_tickets = available_tickets - $1, updated_at = NOW()
		WHERE id = $2 AND status = 'active' AND available_tickets >= $1`

	result, err := tx.ExecContext(ctx, query, count, eventID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var status string
	var available int
	err = tx.QueryRowContext(ctx, `SELECT status, available_tickets FROM events WHERE id = $1`, eventID).
		Scan(&status, &available)
	if err == sql.ErrNoRows {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != models.EventStatusActive {
		return apperrors.ErrEventNotBookable
	}
	return apperrors.ErrInsufficientInventory
}

// ReleaseTx atomically increments the counter, clamped at total_tickets
// so a double-release bug can never push it past capacity. Releasing is
// monotone and safe to retry.
func (r *InventoryRepository) ReleaseTx(ctx context.Context, tx *sql.Tx, eventID int64, count int) error {
	query := `
		UPDATE events
		SET available_tickets = LEAST(available_tickets + $1, total_tickets), updated_at = NOW()
		WHERE id = $2`

	result, err := tx.ExecContext(ctx, query, count, eventID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// LogTx appends a ledger entry in the same transaction as the counter
// update it records, keeping the audit trail exact.
func (r *InventoryRepository) LogTx(ctx context.Context, tx *sql.Tx, entry models.LedgerEntry) error {
	query := `
		INSERT INTO reservation_ledger (event_id, booking_id, delta, reason)
		VALUES ($1, $2, $3, $4)`

	_, err := tx.ExecContext(ctx, query, entry.EventID, entry.BookingID, entry.Delta, entry.Reason)
	return err
}

// ConservationRow reports one event whose counter disagrees with its
// bookings: available + reserved should always equal total.
type ConservationRow struct {
	EventID          int64
	TotalTickets     int
	AvailableTickets int
	ReservedTickets  int
}

// ConservationReport finds events violating the conservation invariant.
// With reserve-and-create running as one transaction this should always
// come back empty; a non-empty report means operator attention.
func (r *InventoryRepository) ConservationReport(ctx context.Context) ([]ConservationRow, error) {
	query := `
		SELECT e.id, e.total_tickets, e.available_tickets,
		       COALESCE(SUM(b.number_of_tickets) FILTER (WHERE b.status IN ('pending', 'confirmed', 'attended')), 0)
		FROM events e
		LEFT JOIN bookings b ON b.event_id = e.id
		GROUP BY e.id, e.total_tickets, e.available_tickets
		HAVING e.available_tickets + COALESCE(SUM(b.number_of_tickets) FILTER (WHERE b.status IN ('pending', 'confirmed', 'attended')), 0) <> e.total_tickets`

	rows, err := r.db.QueryWithRetry(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []ConservationRow
	for rows.Next() {
		var row ConservationRow
		if err := rows.Scan(&row.EventID, &row.TotalTickets, &row.AvailableTickets, &row.ReservedTickets); err != nil {
			return nil, err
		}
		report = append(report, row)
	}

	return report, rows.Err()
}

// Repair sets an event's counter to total - reserved, guarded on the
// counter still holding the value the report observed so a concurrent
// legitimate reservation is never clobbered.
func (r *InventoryRepository) Repair(ctx context.Context, row ConservationRow) (bool, error) {
	expected := row.TotalTickets - row.ReservedTickets
	if expected < 0 {
		return false, fmt.Errorf("event %d reserved %d tickets over capacity %d",
			row.EventID, row.ReservedTickets, row.TotalTickets)
	}

	query := `
		UPDATE events
		SET available_tickets = $1, updated_at = NOW()
		WHERE id = $2 AND available_tickets = $3`

	result, err := r.db.ExecContext(ctx, query, expected, row.EventID, row.AvailableTickets)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// EntriesByBooking returns the audit trail for one booking, oldest first.
func (r *InventoryRepository) EntriesByBooking(ctx context.Context, bookingID int64) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, event_id, booking_id, delta, reason, created_at
		FROM reservation_ledger
		WHERE booking_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryWithRetry(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var createdAt time.Time
		if err := rows.Scan(&entry.ID, &entry.EventID, &entry.BookingID, &entry.Delta, &entry.Reason, &createdAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = createdAt
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
