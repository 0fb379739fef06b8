package api

import "time"

// Auth
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	RUT      string `json:"rut"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// Host blackouts
type BlackoutRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Sweep trigger, mirrors the cron endpoint contract.
type SweepResponse struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	CancelledCount int       `json:"cancelled_count"`
	FailedIDs      []int64   `json:"failed_ids,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Health
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
