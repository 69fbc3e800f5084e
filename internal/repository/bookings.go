package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"turnstile/internal/apperrors"
	"turnstile/internal/database"
	"turnstile/internal/models"

	"github.com/lib/pq"
)

// BookingStore is the single writer of booking rows. Status transitions
// are conditional single-row updates keyed on the current status, which
// is what makes cancel and check-in race-free without application locks.
type BookingStore interface {
	CreateWithReservation(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetByReference(ctx context.Context, referenceCode string) (*models.Booking, error)
	GetByScanToken(ctx context.Context, scanToken string) (*models.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Booking, error)
	ListByEvent(ctx context.Context, eventID int64) ([]models.Booking, error)
	Confirm(ctx context.Context, id int64) error
	CancelWithRelease(ctx context.Context, id int64) (*models.Booking, error)
	CancelPendingWithRelease(ctx context.Context, id int64) (*models.Booking, bool, error)
	CheckIn(ctx context.Context, id int64, actorID int64) (*time.Time, bool, error)
	ListExpiredPending(ctx context.Context, before time.Time) ([]models.Booking, error)
}

type BookingRepository struct {
	db        *database.DB
	inventory *InventoryRepository
}

func NewBookingRepository(db *database.DB, inventory *InventoryRepository) *BookingRepository {
	return &BookingRepository{db: db, inventory: inventory}
}

const bookingColumns = `id, event_id, user_id, number_of_tickets, total_amount, reference_code, scan_token,
	       status, checked_in, checked_in_at, checked_in_by, created_at, updated_at`

func scanBooking(row interface{ Scan(...interface{}) error }, b *models.Booking) error {
	return row.Scan(
		&b.ID,
		&b.EventID,
		&b.UserID,
		&b.NumberOfTickets,
		&b.TotalAmount,
		&b.ReferenceCode,
		&b.ScanToken,
		&b.Status,
		&b.CheckedIn,
		&b.CheckedInAt,
		&b.CheckedInBy,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
}

// CreateWithReservation reserves the seats and inserts the booking row in
// ONE transaction. There is no window in which seats are held without a
// booking: either both land or neither does.
func (r *BookingRepository) CreateWithReservation(ctx context.Context, booking *models.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.inventory.ReserveTx(ctx, tx, booking.EventID, booking.NumberOfTickets); err != nil {
		return err
	}

	query := `
		INSERT INTO bookings (event_id, user_id, number_of_tickets, total_amount, reference_code, scan_token, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		booking.EventID,
		booking.UserID,
		booking.NumberOfTickets,
		booking.TotalAmount,
		booking.ReferenceCode,
		booking.ScanToken,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "reference_code") || isUniqueViolation(err, "scan_token") {
			return apperrors.ErrReferenceTaken
		}
		return err
	}

	err = r.inventory.LogTx(ctx, tx, models.LedgerEntry{
		EventID:   booking.EventID,
		BookingID: booking.ID,
		Delta:     -booking.NumberOfTickets,
		Reason:    models.LedgerReasonReserve,
	})
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	err := scanBooking(r.db.QueryRowContext(ctx, query, id), booking)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return booking, err
}

func (r *BookingRepository) GetByReference(ctx context.Context, referenceCode string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference_code = $1`

	err := scanBooking(r.db.QueryRowContext(ctx, query, referenceCode), booking)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return booking, err
}

func (r *BookingRepository) GetByScanToken(ctx context.Context, scanToken string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE scan_token = $1`

	err := scanBooking(r.db.QueryRowContext(ctx, query, scanToken), booking)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return booking, err
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListByEvent orders by check-in time, newest scans first, so the scan
// history dashboard reads naturally.
func (r *BookingRepository) ListByEvent(ctx context.Context, eventID int64) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE event_id = $1
		ORDER BY checked_in_at DESC NULLS LAST, created_at DESC`
	return r.list(ctx, query, eventID)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Booking, error) {
	rows, err := r.db.QueryWithRetry(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		if err := scanBooking(rows, &booking); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// Confirm performs the pending -> confirmed transition. Seats were
// already reserved at creation, so there is no inventory effect.
// Confirming an already-confirmed booking is a no-op.
func (r *BookingRepository) Confirm(ctx context.Context, id int64) error {
	query := `UPDATE bookings SET status = 'confirmed', updated_at = NOW() WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id)
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

	var status models.BookingStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return err
	}
	if status == models.BookingStatusConfirmed {
		return nil
	}
	return apperrors.ErrAlreadyTerminal
}

// CancelWithRelease flips the booking to cancelled and returns its seats
// to inventory in one transaction. The status condition rejects terminal
// bookings, so cancelling twice releases exactly once.
func (r *BookingRepository) CancelWithRelease(ctx context.Context, id int64) (*models.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking := &models.Booking{}
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'confirmed')
		RETURNING ` + bookingColumns

	err = scanBooking(tx.QueryRowContext(ctx, query, id), booking)
	if err == sql.ErrNoRows {
		var status models.BookingStatus
		err = tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&status)
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, apperrors.ErrAlreadyTerminal
	}
	if err != nil {
		return nil, err
	}

	if err := r.inventory.ReleaseTx(ctx, tx, booking.EventID, booking.NumberOfTickets); err != nil {
		return nil, err
	}

	err = r.inventory.LogTx(ctx, tx, models.LedgerEntry{
		EventID:   booking.EventID,
		BookingID: booking.ID,
		Delta:     booking.NumberOfTickets,
		Reason:    models.LedgerReasonRelease,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return booking, nil
}

// CancelPendingWithRelease is the expiration job's cancel. Unlike
// CancelWithRelease its condition matches 'pending' only, so a booking
// the user confirms between the job's list and this update is left
// alone. ok=false means the booking already moved on.
func (r *BookingRepository) CancelPendingWithRelease(ctx context.Context, id int64) (*models.Booking, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking := &models.Booking{}
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + bookingColumns

	err = scanBooking(tx.QueryRowContext(ctx, query, id), booking)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := r.inventory.ReleaseTx(ctx, tx, booking.EventID, booking.NumberOfTickets); err != nil {
		return nil, false, err
	}

	err = r.inventory.LogTx(ctx, tx, models.LedgerEntry{
		EventID:   booking.EventID,
		BookingID: booking.ID,
		Delta:     booking.NumberOfTickets,
		Reason:    models.LedgerReasonRelease,
	})
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return booking, true, nil
}

// CheckIn performs the one-way confirmed -> attended transition as a
// single conditional update. Of two concurrent scans exactly one sees a
// row affected; the loser gets ok=false and re-reads to report the
// winner's timestamp.
func (r *BookingRepository) CheckIn(ctx context.Context, id int64, actorID int64) (*time.Time, bool, error) {
	query := `
		UPDATE bookings
		SET status = 'attended', checked_in = TRUE, checked_in_at = NOW(), checked_in_by = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING checked_in_at`

	var checkedInAt time.Time
	err := r.db.QueryRowContext(ctx, query, id, actorID).Scan(&checkedInAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &checkedInAt, true, nil
}

// ListExpiredPending finds bookings stuck in 'pending' past the
// confirmation window. The expiration job cancels them through
// CancelPendingWithRelease so their seats return to the pool.
func (r *BookingRepository) ListExpiredPending(ctx context.Context, before time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC`
	return r.list(ctx, query, before)
}

func isUniqueViolation(err error, column string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	return pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, column)
}
