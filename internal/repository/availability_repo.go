package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/getSweetSpotcl/flexhub/internal/db"
	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
	"github.com/lib/pq"
)

// AvailabilityRepository is the availability ledger: the record of which
// space-time ranges are blocked, confirmed or blacked out.
type AvailabilityRepository interface {
	QueryConflicts(ctx context.Context, spaceID int64, start, end time.Time) ([]db.AvailabilityEntry, error)
	Release(ctx context.Context, bookingID int64) (int64, error)
	CreateBlackout(ctx context.Context, entry *db.AvailabilityEntry) error
	DeleteBlackout(ctx context.Context, spaceID, entryID int64) error
	ListForSpace(ctx context.Context, spaceID int64, from, to time.Time) ([]db.AvailabilityEntry, error)
}

type availabilityRepository struct {
	DB *sql.DB
}

func NewAvailabilityRepository(database *sql.DB) AvailabilityRepository {
	return &availabilityRepository{DB: database}
}

// QueryConflicts returns every entry for the space whose range intersects
// [start, end). Callers that intend to write must not rely on this check
// alone; the insert runs inside a transaction that re-checks under a lock.
func (r *availabilityRepository) QueryConflicts(ctx context.Context, spaceID int64, start, end time.Time) ([]db.AvailabilityEntry, error) {
	query := `
		SELECT id, space_id, start_time, end_time, entry_type, booking_id, created_at
		FROM availability_entries
		WHERE space_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time`

	rows, err := r.DB.QueryContext(ctx, query, spaceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("error querying availability conflicts: %w", err)
	}
	defer rows.Close()

	var entries []db.AvailabilityEntry
	for rows.Next() {
		var e db.AvailabilityEntry
		if err := rows.Scan(&e.ID, &e.SpaceID, &e.StartTime, &e.EndTime, &e.EntryType, &e.BookingID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning availability entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Release deletes all entries owned by the booking. Idempotent: releasing
// a booking with no entries is a no-op.
func (r *availabilityRepository) Release(ctx context.Context, bookingID int64) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM availability_entries WHERE booking_id = $1`, bookingID)
	if err != nil {
		return 0, fmt.Errorf("error releasing entries for booking %d: %w", bookingID, err)
	}
	return result.RowsAffected()
}

// CreateBlackout inserts a host-defined blackout entry with no owning
// booking. The exclusion constraint rejects it if the range is taken.
func (r *availabilityRepository) CreateBlackout(ctx context.Context, entry *db.AvailabilityEntry) error {
	query := `
		INSERT INTO availability_entries (space_id, start_time, end_time, entry_type, booking_id)
		VALUES ($1, $2, $3, $4, NULL)
		RETURNING id, created_at`
	err := r.DB.QueryRowContext(ctx, query, entry.SpaceID, entry.StartTime, entry.EndTime, entry.EntryType).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if isOverlapViolation(err) {
			return apperrors.ErrSlotUnavailable
		}
		return fmt.Errorf("error creating blackout: %w", err)
	}
	return nil
}

func (r *availabilityRepository) DeleteBlackout(ctx context.Context, spaceID, entryID int64) error {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM availability_entries WHERE id = $1 AND space_id = $2 AND booking_id IS NULL`,
		entryID, spaceID)
	if err != nil {
		return fmt.Errorf("error deleting blackout %d: %w", entryID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *availabilityRepository) ListForSpace(ctx context.Context, spaceID int64, from, to time.Time) ([]db.AvailabilityEntry, error) {
	return r.QueryConflicts(ctx, spaceID, from, to)
}

// isOverlapViolation reports whether err is the Postgres exclusion
// constraint (23P01) guarding overlapping entries per space. This is the
// storage-boundary backstop behind the in-transaction pre-check.
func isOverlapViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
