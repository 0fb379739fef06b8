package db

import "time"

type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	StatusConfirmed      BookingStatus = "CONFIRMED"
	StatusCancelled      BookingStatus = "CANCELLED"
)

// Terminal reports whether no further transition may leave the status.
func (s BookingStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

type CancelReason string

const (
	CancelUserRequested CancelReason = "USER_REQUESTED"
	CancelExpired       CancelReason = "EXPIRED"
)

type EntryType string

const (
	EntryBlocked     EntryType = "BLOCKED"
	EntryConfirmed   EntryType = "CONFIRMED"
	EntryMaintenance EntryType = "MAINTENANCE"
)

type Booking struct {
	ID              int64
	Code            string
	SpaceID         int64
	GuestID         int64
	StartTime       time.Time
	EndTime         time.Time
	AmountCLP       int64
	Status          BookingStatus
	CancelReason    *CancelReason
	PaymentDeadline *time.Time // non-nil iff Status == StatusPendingPayment
	StripeSessionID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type AvailabilityEntry struct {
	ID        int64
	SpaceID   int64
	StartTime time.Time
	EndTime   time.Time
	EntryType EntryType
	BookingID *int64 // nil for host blackouts
	CreatedAt time.Time
}

type Space struct {
	ID     int64
	HostID int64
	Name   string
	Active bool
}

type Guest struct {
	ID           int64
	Email        string
	Name         string
	Phone        string
	RUT          string
	PasswordHash string
	CreatedAt    time.Time
}
