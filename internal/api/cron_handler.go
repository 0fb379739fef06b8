package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/getSweetSpotcl/flexhub/internal/entities"
)

// Sweeper runs one expiry reconciliation pass.
type Sweeper interface {
	Run(ctx context.Context) (*entities.SweepResult, error)
}

type CronHandler struct {
	sweeper Sweeper
}

func NewCronHandler(sweeper Sweeper) *CronHandler {
	return &CronHandler{sweeper: sweeper}
}

// CleanupExpiredBookings is the externally triggered sweep. Auth is
// enforced by CronAuthMiddleware in front of this handler.
func (h *CronHandler) CleanupExpiredBookings(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Run(r.Context())
	if err != nil {
		log.Printf("Cleanup cron job failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, SweepResponse{
			Success:   false,
			Message:   err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	writeJSON(w, http.StatusOK, SweepResponse{
		Success:        true,
		Message:        fmt.Sprintf("Cleaned up %d expired bookings", result.CancelledCount),
		CancelledCount: result.CancelledCount,
		FailedIDs:      result.FailedIDs,
		Timestamp:      time.Now().UTC(),
	})
}
