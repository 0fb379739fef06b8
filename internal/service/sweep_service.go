package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getSweetSpotcl/flexhub/internal/db"
	"github.com/getSweetSpotcl/flexhub/internal/entities"
	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
)

type expiredBookingSource interface {
	ExpiredBookingIDs(ctx context.Context, now time.Time) ([]int64, error)
}

type bookingCanceller interface {
	Cancel(ctx context.Context, bookingID int64, reason db.CancelReason) (*db.Booking, error)
}

// SweepService is the expiry reconciler. Each run finds bookings whose
// payment window lapsed and drives them to CANCELLED through the same
// coordinator path used for manual cancellation. Safe to run
// concurrently with itself: a booking cancelled by a racing run comes
// back as already-terminal and counts as done.
type SweepService struct {
	source      expiredBookingSource
	coordinator bookingCanceller
	clock       Clock
}

func NewSweepService(source expiredBookingSource, coordinator bookingCanceller, clock Clock) *SweepService {
	return &SweepService{source: source, coordinator: coordinator, clock: clock}
}

// Run performs one sweep. One booking failing never aborts the rest;
// failures are reported in the result and retried on the next run.
func (s *SweepService) Run(ctx context.Context) (*entities.SweepResult, error) {
	now := s.clock.Now()
	ids, err := s.source.ExpiredBookingIDs(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("sweep: failed to list expired bookings: %w", err)
	}

	result := &entities.SweepResult{}
	if len(ids) == 0 {
		log.Println("sweep: no expired bookings")
		return result, nil
	}

	log.Printf("sweep: found %d expired bookings", len(ids))

	for _, id := range ids {
		_, err := s.coordinator.Cancel(ctx, id, db.CancelExpired)
		switch {
		case err == nil:
			result.CancelledCount++
		case errors.Is(err, apperrors.ErrAlreadyTerminal):
			// Lost a race with a concurrent sweep or a user action.
			log.Printf("sweep: booking %d already terminal", id)
		default:
			log.Printf("sweep: failed to cancel booking %d: %v", id, err)
			result.FailedIDs = append(result.FailedIDs, id)
		}
	}

	log.Printf("sweep: cancelled %d expired bookings, %d failed", result.CancelledCount, len(result.FailedIDs))
	return result, nil
}
