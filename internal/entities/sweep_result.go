package entities

// SweepResult is the outcome of one expiry reconciliation run. A booking
// that could not be cancelled this run lands in FailedIDs and is retried
// on the next scheduled run.
type SweepResult struct {
	CancelledCount int     `json:"cancelled_count"`
	FailedIDs      []int64 `json:"failed_ids,omitempty"`
}
