package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getSweetSpotcl/flexhub/internal/db"
	"github.com/getSweetSpotcl/flexhub/internal/entities"
	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
	"github.com/getSweetSpotcl/flexhub/internal/repository"
)

// CheckoutProvider creates a hosted payment page for a booking. The
// booking core never waits on the gateway inside a transaction.
type CheckoutProvider interface {
	CreateCheckoutSession(amountCLP int64, bookingCode, customerEmail string) (url, sessionID string, err error)
}

// BookingNotifier fans out status notifications. Implementations are
// invoked from goroutines so sending never blocks a request or sweep.
type BookingNotifier interface {
	NotifyBookingStatus(booking *db.Booking, guest *db.Guest)
}

// BookingService is the reservation coordinator plus the booking state
// machine: the only entry point for creating, confirming and cancelling
// holds. All ledger mutation goes through it.
type BookingService struct {
	bookingRepo repository.BookingRepository
	availRepo   repository.AvailabilityRepository
	guestRepo   repository.GuestRepository
	checkout    CheckoutProvider
	notifier    BookingNotifier
	clock       Clock
	// how long a guest has to pay before the hold is reclaimed
	paymentWindow time.Duration
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	availRepo repository.AvailabilityRepository,
	guestRepo repository.GuestRepository,
	checkout CheckoutProvider,
	notifier BookingNotifier,
	clock Clock,
	paymentWindow time.Duration,
) *BookingService {
	return &BookingService{
		bookingRepo:   bookingRepo,
		availRepo:     availRepo,
		guestRepo:     guestRepo,
		checkout:      checkout,
		notifier:      notifier,
		clock:         clock,
		paymentWindow: paymentWindow,
	}
}

// CheckAvailability reports whether the range is free. Purely advisory:
// Reserve re-checks inside its transaction.
func (s *BookingService) CheckAvailability(ctx context.Context, req entities.AvailabilityRequest) (*entities.AvailabilityResponse, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("end_time must be after start_time")
	}
	conflicts, err := s.availRepo.QueryConflicts(ctx, req.SpaceID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("internal error checking availability: %w", err)
	}

	resp := &entities.AvailabilityResponse{
		SpaceID:            req.SpaceID,
		RequestedStartTime: req.StartTime,
		RequestedEndTime:   req.EndTime,
		Available:          len(conflicts) == 0,
	}
	for _, c := range conflicts {
		resp.Conflicts = append(resp.Conflicts, entities.ConflictingEntry{
			StartTime: c.StartTime,
			EndTime:   c.EndTime,
			EntryType: string(c.EntryType),
		})
	}
	return resp, nil
}

// Reserve creates a PENDING_PAYMENT booking with its BLOCKED ledger
// entry, then opens a checkout session. The Stripe call happens after
// the transaction commits; if it fails the hold stands and the sweep
// reclaims it once the payment window lapses.
func (s *BookingService) Reserve(ctx context.Context, guestID int64, req entities.BookingRequest) (*entities.CheckoutSessionResponse, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("end_time must be after start_time")
	}
	if req.AmountCLP <= 0 {
		return nil, fmt.Errorf("amount_clp must be positive")
	}

	guest, err := s.guestRepo.GetByID(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("check guest: %w", err)
	}

	now := s.clock.Now()
	deadline := now.Add(s.paymentWindow)
	booking := &db.Booking{
		Code:            newBookingCode(),
		SpaceID:         req.SpaceID,
		GuestID:         guestID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		AmountCLP:       req.AmountCLP,
		Status:          db.StatusPendingPayment,
		PaymentDeadline: &deadline,
		UpdatedAt:       now,
	}

	if err := s.bookingRepo.CreateWithHold(ctx, booking); err != nil {
		return nil, err
	}

	log.Printf("booking %s created: space %d [%s, %s) deadline %s",
		booking.Code, booking.SpaceID,
		booking.StartTime.Format(time.RFC3339), booking.EndTime.Format(time.RFC3339),
		deadline.Format(time.RFC3339))

	url, sessionID, err := s.checkout.CreateCheckoutSession(booking.AmountCLP, booking.Code, guest.Email)
	if err != nil {
		// Hold stays in place; the expiry sweep reclaims it if the guest
		// never gets another checkout session.
		log.Printf("checkout session for booking %s failed: %v", booking.Code, err)
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if err := s.bookingRepo.SetStripeSession(ctx, booking.ID, sessionID); err != nil {
		return nil, err
	}

	return &entities.CheckoutSessionResponse{
		Code:            booking.Code,
		URL:             url,
		SessionID:       sessionID,
		PaymentDeadline: &deadline,
	}, nil
}

// ConfirmPayment transitions the booking to CONFIRMED. Valid only from
// PENDING_PAYMENT; a payment arriving after the sweep already cancelled
// the booking surfaces ErrInvalidTransition.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID int64) (*db.Booking, error) {
	booking, err := s.bookingRepo.Confirm(ctx, bookingID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	log.Printf("booking %s confirmed", booking.Code)
	s.notify(ctx, booking)
	return booking, nil
}

// ConfirmPaymentBySession resolves the checkout session reported by the
// payment webhook to its booking and confirms it.
func (s *BookingService) ConfirmPaymentBySession(ctx context.Context, sessionID string) (*db.Booking, error) {
	booking, err := s.bookingRepo.GetByStripeSessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.ConfirmPayment(ctx, booking.ID)
}

// Cancel drives the state machine to CANCELLED and releases the ledger
// entries in the same transaction. Shared by user cancellation and the
// expiry sweep so there is exactly one release path.
func (s *BookingService) Cancel(ctx context.Context, bookingID int64, reason db.CancelReason) (*db.Booking, error) {
	booking, err := s.bookingRepo.Cancel(ctx, bookingID, reason, s.clock.Now())
	if err != nil {
		return nil, err
	}
	log.Printf("booking %s cancelled (%s)", booking.Code, reason)
	s.notify(ctx, booking)
	return booking, nil
}

// CancelByGuest is the user-facing cancellation: the requester must own
// the booking.
func (s *BookingService) CancelByGuest(ctx context.Context, guestID int64, code string) (*db.Booking, error) {
	booking, err := s.bookingRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != guestID {
		return nil, apperrors.ErrBookingNotFound
	}
	return s.Cancel(ctx, booking.ID, db.CancelUserRequested)
}

func (s *BookingService) GetByCode(ctx context.Context, guestID int64, code string) (*db.Booking, error) {
	booking, err := s.bookingRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != guestID {
		return nil, apperrors.ErrBookingNotFound
	}
	return booking, nil
}

func (s *BookingService) ListByGuest(ctx context.Context, guestID int64) ([]db.Booking, error) {
	return s.bookingRepo.ListByGuest(ctx, guestID)
}

func (s *BookingService) notify(ctx context.Context, booking *db.Booking) {
	if s.notifier == nil {
		return
	}
	guest, err := s.guestRepo.GetByID(ctx, booking.GuestID)
	if err != nil {
		log.Printf("notification skipped for booking %s: %v", booking.Code, err)
		return
	}
	go s.notifier.NotifyBookingStatus(booking, guest)
}

func newBookingCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%08X", time.Now().UnixNano()%100000000)
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
