package service

import (
	"context"
	"fmt"
	"time"

	"github.com/getSweetSpotcl/flexhub/internal/db"
	"github.com/getSweetSpotcl/flexhub/internal/repository"
)

// HostService covers the host-side surface: blackout management and
// space calendars. Blackouts are ledger entries with no owning booking,
// so they conflict with reserves but are never touched by release.
type HostService struct {
	spaceRepo repository.SpaceRepository
	availRepo repository.AvailabilityRepository
}

func NewHostService(spaceRepo repository.SpaceRepository, availRepo repository.AvailabilityRepository) *HostService {
	return &HostService{spaceRepo: spaceRepo, availRepo: availRepo}
}

func (s *HostService) CreateBlackout(ctx context.Context, spaceID int64, start, end time.Time) (*db.AvailabilityEntry, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("end_time must be after start_time")
	}
	if _, err := s.spaceRepo.GetByID(ctx, spaceID); err != nil {
		return nil, err
	}

	entry := &db.AvailabilityEntry{
		SpaceID:   spaceID,
		StartTime: start,
		EndTime:   end,
		EntryType: db.EntryMaintenance,
	}
	if err := s.availRepo.CreateBlackout(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *HostService) DeleteBlackout(ctx context.Context, spaceID, entryID int64) error {
	return s.availRepo.DeleteBlackout(ctx, spaceID, entryID)
}

func (s *HostService) SpaceCalendar(ctx context.Context, spaceID int64, from, to time.Time) ([]db.AvailabilityEntry, error) {
	if _, err := s.spaceRepo.GetByID(ctx, spaceID); err != nil {
		return nil, err
	}
	return s.availRepo.ListForSpace(ctx, spaceID, from, to)
}

func (s *HostService) ListSpaces(ctx context.Context) ([]db.Space, error) {
	return s.spaceRepo.ListActive(ctx)
}
