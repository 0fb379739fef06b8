package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/getSweetSpotcl/flexhub/internal/db"
	"github.com/getSweetSpotcl/flexhub/internal/entities"
	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock { return &fakeClock{now: at} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore is an in-memory stand-in for the Postgres repositories. The
// mutex gives it the same serialization the space row lock provides.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	booking map[int64]*db.Booking
	entries map[int64]*db.AvailabilityEntry
	guests  map[int64]*db.Guest
}

func newMemStore() *memStore {
	return &memStore{
		booking: make(map[int64]*db.Booking),
		entries: make(map[int64]*db.AvailabilityEntry),
		guests:  make(map[int64]*db.Guest),
	}
}

func (m *memStore) addGuest(id int64, email string) {
	m.guests[id] = &db.Guest{ID: id, Email: email, Name: "Test Guest"}
}

func (m *memStore) overlapsLocked(spaceID int64, start, end time.Time) bool {
	for _, e := range m.entries {
		if e.SpaceID == spaceID && e.StartTime.Before(end) && e.EndTime.After(start) {
			return true
		}
	}
	return false
}

func (m *memStore) entriesForBooking(bookingID int64) []*db.AvailabilityEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*db.AvailabilityEntry
	for _, e := range m.entries {
		if e.BookingID != nil && *e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) CreateWithHold(ctx context.Context, b *db.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overlapsLocked(b.SpaceID, b.StartTime, b.EndTime) {
		return apperrors.ErrSlotUnavailable
	}
	m.nextID++
	b.ID = m.nextID
	b.CreatedAt = b.UpdatedAt
	cp := *b
	m.booking[b.ID] = &cp

	m.nextID++
	id := b.ID
	m.entries[m.nextID] = &db.AvailabilityEntry{
		ID: m.nextID, SpaceID: b.SpaceID, StartTime: b.StartTime, EndTime: b.EndTime,
		EntryType: db.EntryBlocked, BookingID: &id,
	}
	return nil
}

func (m *memStore) Confirm(ctx context.Context, bookingID int64, now time.Time) (*db.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.booking[bookingID]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	if b.Status != db.StatusPendingPayment {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, b.Status, apperrors.ErrInvalidTransition)
	}
	b.Status = db.StatusConfirmed
	b.PaymentDeadline = nil
	b.UpdatedAt = now
	for _, e := range m.entries {
		if e.BookingID != nil && *e.BookingID == bookingID && e.EntryType == db.EntryBlocked {
			e.EntryType = db.EntryConfirmed
		}
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) Cancel(ctx context.Context, bookingID int64, reason db.CancelReason, now time.Time) (*db.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.booking[bookingID]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	if b.Status.Terminal() {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, b.Status, apperrors.ErrAlreadyTerminal)
	}
	b.Status = db.StatusCancelled
	b.CancelReason = &reason
	b.PaymentDeadline = nil
	b.UpdatedAt = now
	for id, e := range m.entries {
		if e.BookingID != nil && *e.BookingID == bookingID {
			delete(m.entries, id)
		}
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) GetByID(ctx context.Context, bookingID int64) (*db.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.booking[bookingID]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) GetByCode(ctx context.Context, code string) (*db.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.booking {
		if b.Code == code {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperrors.ErrBookingNotFound
}

func (m *memStore) GetByStripeSessionID(ctx context.Context, sessionID string) (*db.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.booking {
		if b.StripeSessionID == sessionID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperrors.ErrBookingNotFound
}

func (m *memStore) ListByGuest(ctx context.Context, guestID int64) ([]db.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Booking
	for _, b := range m.booking {
		if b.GuestID == guestID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) ExpiredBookingIDs(ctx context.Context, now time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, b := range m.booking {
		if b.Status == db.StatusPendingPayment && b.PaymentDeadline != nil && b.PaymentDeadline.Before(now) {
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

func (m *memStore) SetStripeSession(ctx context.Context, bookingID int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.booking[bookingID]
	if !ok {
		return apperrors.ErrBookingNotFound
	}
	b.StripeSessionID = sessionID
	return nil
}

// Availability ledger view over the same store.
func (m *memStore) QueryConflicts(ctx context.Context, spaceID int64, start, end time.Time) ([]db.AvailabilityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.AvailabilityEntry
	for _, e := range m.entries {
		if e.SpaceID == spaceID && e.StartTime.Before(end) && e.EndTime.After(start) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) Release(ctx context.Context, bookingID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.entries {
		if e.BookingID != nil && *e.BookingID == bookingID {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateBlackout(ctx context.Context, entry *db.AvailabilityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overlapsLocked(entry.SpaceID, entry.StartTime, entry.EndTime) {
		return apperrors.ErrSlotUnavailable
	}
	m.nextID++
	entry.ID = m.nextID
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *memStore) DeleteBlackout(ctx context.Context, spaceID, entryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, entryID)
	return nil
}

func (m *memStore) ListForSpace(ctx context.Context, spaceID int64, from, to time.Time) ([]db.AvailabilityEntry, error) {
	return m.QueryConflicts(ctx, spaceID, from, to)
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*db.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.guests {
		if g.Email == email {
			return g, nil
		}
	}
	return nil, apperrors.ErrGuestNotFound
}

func (m *memStore) GetGuestByID(ctx context.Context, id int64) (*db.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.guests[id]
	if !ok {
		return nil, apperrors.ErrGuestNotFound
	}
	return g, nil
}

func (m *memStore) Create(ctx context.Context, guest *db.Guest, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	guest.ID = m.nextID
	m.guests[guest.ID] = guest
	return nil
}

// guestView adapts memStore to the GuestRepository method set without
// colliding with BookingRepository.GetByID.
type guestView struct{ store *memStore }

func (v guestView) GetByEmail(ctx context.Context, email string) (*db.Guest, error) {
	return v.store.GetByEmail(ctx, email)
}
func (v guestView) GetByID(ctx context.Context, id int64) (*db.Guest, error) {
	return v.store.GetGuestByID(ctx, id)
}
func (v guestView) Create(ctx context.Context, guest *db.Guest, password string) error {
	return v.store.Create(ctx, guest, password)
}

type fakeCheckout struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeCheckout) CreateCheckoutSession(amountCLP int64, bookingCode, customerEmail string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return "", "", fmt.Errorf("gateway unavailable")
	}
	return "https://checkout.test/" + bookingCode, "cs_" + bookingCode, nil
}

func newTestService(t *testing.T) (*BookingService, *memStore, *fakeClock) {
	t.Helper()
	store := newMemStore()
	store.addGuest(1, "guest@example.com")
	store.addGuest(2, "other@example.com")
	clock := newFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := NewBookingService(store, store, guestView{store}, &fakeCheckout{}, nil, clock, 15*time.Minute)
	return svc, store, clock
}

func slot(h, m int) time.Time {
	return time.Date(2025, 6, 1, h, m, 0, 0, time.UTC)
}

func TestReserveCreatesPendingBookingWithDeadline(t *testing.T) {
	svc, store, clock := newTestService(t)

	resp, err := svc.Reserve(context.Background(), 1, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.PaymentDeadline)
	assert.Equal(t, clock.Now().Add(15*time.Minute), *resp.PaymentDeadline)
	assert.NotEmpty(t, resp.Code)
	assert.NotEmpty(t, resp.URL)

	booking, err := store.GetByCode(context.Background(), resp.Code)
	require.NoError(t, err)
	assert.Equal(t, db.StatusPendingPayment, booking.Status)
	require.NotNil(t, booking.PaymentDeadline)

	entries := store.entriesForBooking(booking.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, db.EntryBlocked, entries[0].EntryType)
}

func TestReserveConflictLeavesNoPartialState(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Reserve(ctx, 1, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, 2, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 30), EndTime: slot(10, 45), AmountCLP: 10000,
	})
	require.ErrorIs(t, err, apperrors.ErrSlotUnavailable)

	// First booking's hold is unaffected, and the loser left nothing.
	booking, err := store.GetByCode(ctx, first.Code)
	require.NoError(t, err)
	assert.Len(t, store.entriesForBooking(booking.ID), 1)
	assert.Len(t, store.booking, 1)
	assert.Len(t, store.entries, 1)
}

func TestReserveDifferentSpacesDoNotConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, 1, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, 2, entities.BookingRequest{
		SpaceID: 11, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)
}

func TestConcurrentReserveExactlyOneSucceeds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, 1, entities.BookingRequest{
				SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var success, conflict int
	for err := range errs {
		switch {
		case err == nil:
			success++
		default:
			require.ErrorIs(t, err, apperrors.ErrSlotUnavailable)
			conflict++
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, callers-1, conflict)
}

func TestConfirmPaymentClearsDeadlineAndUpgradesEntry(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Reserve(ctx, 1, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)
	booking, err := store.GetByCode(ctx, resp.Code)
	require.NoError(t, err)

	confirmed, err := svc.ConfirmPayment(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, confirmed.Status)
	assert.Nil(t, confirmed.PaymentDeadline)

	entries := store.entriesForBooking(booking.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, db.EntryConfirmed, entries[0].EntryType)
}

func TestConfirmPaymentBySession(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Reserve(ctx, 1, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)

	confirmed, err := svc.ConfirmPaymentBySession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, confirmed.Status)

	booking, err := store.GetByCode(ctx, resp.Code)
	require.NoError(t, err)
	assert.Equal(t, db.StatusConfirmed, booking.Status)
}

func TestConfirmCancelledBookingFails(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Reserve(ctx, 1, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)
	booking, err := store.GetByCode(ctx, resp.Code)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, booking.ID, db.CancelUserRequested)
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(ctx, booking.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// Ledger unchanged: the cancelled booking's entries stay released.
	assert.Empty(t, store.entriesForBooking(booking.ID))
}

func TestCancelReleasesEntriesAndSecondCancelIsAlreadyTerminal(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Reserve(ctx, 1, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)
	booking, err := store.GetByCode(ctx, resp.Code)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, booking.ID, db.CancelUserRequested)
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.PaymentDeadline)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, db.CancelUserRequested, *cancelled.CancelReason)
	assert.Empty(t, store.entriesForBooking(booking.ID))

	// Releasing again must not change ledger state or succeed twice.
	_, err = svc.Cancel(ctx, booking.ID, db.CancelUserRequested)
	require.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)
	assert.Empty(t, store.entriesForBooking(booking.ID))

	// Slot is reserv-able again after release.
	_, err = svc.Reserve(ctx, 2, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)
}

func TestCancelByGuestRequiresOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Reserve(ctx, 1, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)

	_, err = svc.CancelByGuest(ctx, 2, resp.Code)
	require.ErrorIs(t, err, apperrors.ErrBookingNotFound)

	_, err = svc.CancelByGuest(ctx, 1, resp.Code)
	require.NoError(t, err)
}

func TestCheckAvailabilityReportsConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, 1, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.NoError(t, err)

	resp, err := svc.CheckAvailability(ctx, entities.AvailabilityRequest{
		SpaceID: 10, StartTime: slot(10, 30), EndTime: slot(12, 0),
	})
	require.NoError(t, err)
	assert.False(t, resp.Available)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, string(db.EntryBlocked), resp.Conflicts[0].EntryType)

	free, err := svc.CheckAvailability(ctx, entities.AvailabilityRequest{
		SpaceID: 10, StartTime: slot(11, 0), EndTime: slot(12, 0),
	})
	require.NoError(t, err)
	assert.True(t, free.Available)
}

func TestReserveCheckoutFailureKeepsHoldForSweep(t *testing.T) {
	store := newMemStore()
	store.addGuest(1, "guest@example.com")
	clock := newFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svc := NewBookingService(store, store, guestView{store}, &fakeCheckout{fail: true}, nil, clock, 15*time.Minute)

	_, err := svc.Reserve(context.Background(), 1, entities.BookingRequest{
		SpaceID: 10, StartTime: slot(10, 0), EndTime: slot(11, 0), AmountCLP: 25000,
	})
	require.Error(t, err)

	// The hold stands and will be reclaimed by the sweep once the
	// payment window lapses.
	assert.Len(t, store.booking, 1)
	assert.Len(t, store.entries, 1)
}
