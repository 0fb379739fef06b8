package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/getSweetSpotcl/flexhub/internal/db"
	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
)

// BookingRepository is the storage behind the reservation coordinator.
// Every mutation that touches both a booking and its ledger entries runs
// in a single transaction so the pair either fully commits or fully
// rolls back.
type BookingRepository interface {
	CreateWithHold(ctx context.Context, b *db.Booking) error
	Confirm(ctx context.Context, bookingID int64, now time.Time) (*db.Booking, error)
	Cancel(ctx context.Context, bookingID int64, reason db.CancelReason, now time.Time) (*db.Booking, error)
	GetByID(ctx context.Context, bookingID int64) (*db.Booking, error)
	GetByCode(ctx context.Context, code string) (*db.Booking, error)
	GetByStripeSessionID(ctx context.Context, sessionID string) (*db.Booking, error)
	ListByGuest(ctx context.Context, guestID int64) ([]db.Booking, error)
	ExpiredBookingIDs(ctx context.Context, now time.Time) ([]int64, error)
	SetStripeSession(ctx context.Context, bookingID int64, sessionID string) error
}

type bookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(database *sql.DB) BookingRepository {
	return &bookingRepository{DB: database}
}

const bookingColumns = `id, code, space_id, guest_id, start_time, end_time, amount_clp,
	status, cancel_reason, payment_deadline, stripe_session_id, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*db.Booking, error) {
	var b db.Booking
	var reason sql.NullString
	err := row.Scan(
		&b.ID, &b.Code, &b.SpaceID, &b.GuestID, &b.StartTime, &b.EndTime, &b.AmountCLP,
		&b.Status, &reason, &b.PaymentDeadline, &b.StripeSessionID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		cr := db.CancelReason(reason.String)
		b.CancelReason = &cr
	}
	return &b, nil
}

// CreateWithHold creates the booking row and its BLOCKED ledger entry in
// one transaction. The space row is locked first so two reserves for the
// same space serialize; the overlap check then runs against a stable
// ledger. The exclusion constraint on availability_entries catches
// anything that slips past (writers not going through this path).
func (r *bookingRepository) CreateWithHold(ctx context.Context, b *db.Booking) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var spaceID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM spaces WHERE id = $1 AND active FOR UPDATE`, b.SpaceID).Scan(&spaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrSpaceNotFound
		}
		return fmt.Errorf("lock space %d: %w", b.SpaceID, err)
	}

	var conflicts int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM availability_entries
		WHERE space_id = $1 AND start_time < $3 AND end_time > $2`,
		b.SpaceID, b.StartTime, b.EndTime,
	).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("check conflicts: %w", err)
	}
	if conflicts > 0 {
		return apperrors.ErrSlotUnavailable
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO bookings
		(code, space_id, guest_id, start_time, end_time, amount_clp, status, payment_deadline, stripe_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id, created_at, updated_at`,
		b.Code, b.SpaceID, b.GuestID, b.StartTime, b.EndTime, b.AmountCLP,
		b.Status, b.PaymentDeadline, b.StripeSessionID, b.UpdatedAt,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO availability_entries (space_id, start_time, end_time, entry_type, booking_id)
		VALUES ($1, $2, $3, $4, $5)`,
		b.SpaceID, b.StartTime, b.EndTime, db.EntryBlocked, b.ID,
	)
	if err != nil {
		if isOverlapViolation(err) {
			return apperrors.ErrSlotUnavailable
		}
		return fmt.Errorf("insert availability entry: %w", err)
	}

	return tx.Commit()
}

// Confirm moves a PENDING_PAYMENT booking to CONFIRMED, clears the
// payment deadline and upgrades the BLOCKED entry to CONFIRMED, all in
// one transaction. Zero rows updated means the booking is missing or not
// pending any more.
func (r *bookingRepository) Confirm(ctx context.Context, bookingID int64, now time.Time) (*db.Booking, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE bookings
		SET status = $2, payment_deadline = NULL, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+bookingColumns,
		bookingID, db.StatusConfirmed, now, db.StatusPendingPayment,
	)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionFailure(ctx, tx, bookingID)
		}
		return nil, fmt.Errorf("confirm booking %d: %w", bookingID, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE availability_entries SET entry_type = $2
		WHERE booking_id = $1 AND entry_type = $3`,
		bookingID, db.EntryConfirmed, db.EntryBlocked,
	)
	if err != nil {
		return nil, fmt.Errorf("upgrade entry for booking %d: %w", bookingID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

// Cancel moves a PENDING_PAYMENT booking to CANCELLED and deletes its
// ledger entries in one transaction. On an already-terminal booking it
// returns ErrAlreadyTerminal so the sweep can treat the race as success.
func (r *bookingRepository) Cancel(ctx context.Context, bookingID int64, reason db.CancelReason, now time.Time) (*db.Booking, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE bookings
		SET status = $2, cancel_reason = $3, payment_deadline = NULL, updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING `+bookingColumns,
		bookingID, db.StatusCancelled, reason, now, db.StatusPendingPayment,
	)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.cancelFailure(ctx, tx, bookingID)
		}
		return nil, fmt.Errorf("cancel booking %d: %w", bookingID, err)
	}

	// Idempotent release: deleting zero entries is fine.
	_, err = tx.ExecContext(ctx, `DELETE FROM availability_entries WHERE booking_id = $1`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("release entries for booking %d: %w", bookingID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

// transitionFailure distinguishes "not found" from "terminal state" after
// a guarded UPDATE touched zero rows.
func (r *bookingRepository) transitionFailure(ctx context.Context, tx *sql.Tx, bookingID int64) error {
	var status db.BookingStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1`, bookingID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrBookingNotFound
		}
		return fmt.Errorf("check booking %d status: %w", bookingID, err)
	}
	return fmt.Errorf("booking %d is %s: %w", bookingID, status, apperrors.ErrInvalidTransition)
}

func (r *bookingRepository) cancelFailure(ctx context.Context, tx *sql.Tx, bookingID int64) error {
	var status db.BookingStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1`, bookingID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrBookingNotFound
		}
		return fmt.Errorf("check booking %d status: %w", bookingID, err)
	}
	if status.Terminal() {
		return fmt.Errorf("booking %d is %s: %w", bookingID, status, apperrors.ErrAlreadyTerminal)
	}
	return fmt.Errorf("booking %d is %s: %w", bookingID, status, apperrors.ErrInvalidTransition)
}

func (r *bookingRepository) GetByID(ctx context.Context, bookingID int64) (*db.Booking, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("error querying booking %d: %w", bookingID, err)
	}
	return b, nil
}

func (r *bookingRepository) GetByCode(ctx context.Context, code string) (*db.Booking, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE code = $1`, code)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("error querying booking '%s': %w", code, err)
	}
	return b, nil
}

func (r *bookingRepository) GetByStripeSessionID(ctx context.Context, sessionID string) (*db.Booking, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE stripe_session_id = $1`, sessionID)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("error querying booking by session '%s': %w", sessionID, err)
	}
	return b, nil
}

func (r *bookingRepository) ListByGuest(ctx context.Context, guestID int64) ([]db.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE guest_id = $1
		ORDER BY start_time DESC`, guestID)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for guest %d: %w", guestID, err)
	}
	defer rows.Close()

	var bookings []db.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// ExpiredBookingIDs returns bookings still pending payment whose deadline
// has lapsed. The sweep cancels each one independently.
func (r *bookingRepository) ExpiredBookingIDs(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id FROM bookings
		WHERE status = $1 AND payment_deadline < $2
		ORDER BY payment_deadline`,
		db.StatusPendingPayment, now)
	if err != nil {
		return nil, fmt.Errorf("error querying expired bookings: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning booking ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *bookingRepository) SetStripeSession(ctx context.Context, bookingID int64, sessionID string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET stripe_session_id = $2, updated_at = NOW() WHERE id = $1`,
		bookingID, sessionID)
	if err != nil {
		return fmt.Errorf("error storing session for booking %d: %w", bookingID, err)
	}
	return nil
}
