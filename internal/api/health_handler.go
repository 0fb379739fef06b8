package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type HealthHandler struct {
	DB *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{DB: db}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	if err := h.DB.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, HealthResponse{
			Status:    "unhealthy",
			Error:     err.Error(),
			Timestamp: now,
		})
		return
	}

	required := []string{"DATABASE_URL", "JWT_SECRET", "CRON_SECRET"}
	var missing []string
	for _, name := range required {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusInternalServerError, HealthResponse{
			Status:    "unhealthy",
			Error:     fmt.Sprintf("Missing environment variables: %s", strings.Join(missing, ", ")),
			Timestamp: now,
		})
		return
	}

	checks := map[string]string{
		"database": "healthy",
		"stripe":   configured(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		"sendgrid": configured(os.Getenv("SENDGRID_API_KEY")),
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Checks:    checks,
		Timestamp: now,
	})
}

func configured(v string) string {
	if v == "" {
		return "not_configured"
	}
	return "configured"
}
