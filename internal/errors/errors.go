package errors

import "errors"

// Domain errors for the booking core. Callers match with errors.Is.
var (
	// ErrSlotUnavailable: the requested range overlaps an active hold for
	// the same space. Recoverable by picking another range; never retried
	// automatically.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInvalidTransition: attempted state change from a terminal or
	// mismatched state (e.g. confirming a cancelled booking).
	ErrInvalidTransition = errors.New("invalid booking transition")

	// ErrAlreadyTerminal: cancel hit a booking already in a terminal
	// state. The sweep treats this as success; the API maps it like an
	// invalid transition.
	ErrAlreadyTerminal = errors.New("booking already terminal")

	ErrBookingNotFound = errors.New("booking not found")
	ErrSpaceNotFound   = errors.New("space not found")
	ErrGuestNotFound   = errors.New("guest not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidRUT      = errors.New("invalid RUT")
)
