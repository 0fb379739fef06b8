package entities

import "time"

type BookingRequest struct {
	SpaceID   int64     `json:"space_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	AmountCLP int64     `json:"amount_clp"`
}

type AvailabilityRequest struct {
	SpaceID   int64     `json:"space_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
