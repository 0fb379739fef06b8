package entities

import "time"

type ConflictingEntry struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	EntryType string    `json:"entry_type"`
}

type AvailabilityResponse struct {
	SpaceID            int64              `json:"space_id"`
	RequestedStartTime time.Time          `json:"requested_start_time"`
	RequestedEndTime   time.Time          `json:"requested_end_time"`
	Available          bool               `json:"available"`
	Conflicts          []ConflictingEntry `json:"conflicts,omitempty"`
}
