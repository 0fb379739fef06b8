package entities

import "time"

type BookingResponse struct {
	Code            string     `json:"code"`
	SpaceID         int64      `json:"space_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	AmountCLP       int64      `json:"amount_clp"`
	Status          string     `json:"status"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	PaymentDeadline *time.Time `json:"payment_deadline,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type CheckoutSessionResponse struct {
	Code            string     `json:"code"`
	URL             string     `json:"checkout_url"`
	SessionID       string     `json:"session_id"`
	PaymentDeadline *time.Time `json:"payment_deadline"`
}

type BookingsList struct {
	Total    int               `json:"total"`
	Bookings []BookingResponse `json:"bookings"`
}
