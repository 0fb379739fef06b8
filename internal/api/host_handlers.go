package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
	"github.com/getSweetSpotcl/flexhub/internal/service"
	"github.com/gorilla/mux"
)

type HostHandler struct {
	Service *service.HostService
}

func NewHostHandler(svc *service.HostService) *HostHandler {
	return &HostHandler{Service: svc}
}

func (h *HostHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.Service.ListSpaces(r.Context())
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, spaces)
}

func (h *HostHandler) CreateBlackout(w http.ResponseWriter, r *http.Request) {
	spaceID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid space ID", http.StatusBadRequest)
		return
	}

	var req BlackoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	entry, err := h.Service.CreateBlackout(r.Context(), spaceID, req.StartTime, req.EndTime)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrSlotUnavailable):
			http.Error(w, "Range overlaps an existing entry", http.StatusConflict)
		case errors.Is(err, apperrors.ErrSpaceNotFound):
			http.Error(w, "Space not found", http.StatusNotFound)
		default:
			http.Error(w, "Could not create blackout", http.StatusBadRequest)
		}
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *HostHandler) DeleteBlackout(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	spaceID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid space ID", http.StatusBadRequest)
		return
	}
	entryID, err := strconv.ParseInt(vars["entry_id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid entry ID", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteBlackout(r.Context(), spaceID, entryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Blackout not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Could not delete blackout", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Blackout deleted"})
}

func (h *HostHandler) SpaceCalendar(w http.ResponseWriter, r *http.Request) {
	spaceID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid space ID", http.StatusBadRequest)
		return
	}

	from, to, err := calendarRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.Service.SpaceCalendar(r.Context(), spaceID, from, to)
	if err != nil {
		if errors.Is(err, apperrors.ErrSpaceNotFound) {
			http.Error(w, "Space not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func calendarRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = time.RFC3339
	now := time.Now().UTC()
	from, to := now, now.AddDate(0, 1, 0)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(layout, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'from' timestamp")
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(layout, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'to' timestamp")
		}
		to = t
	}
	return from, to, nil
}
