package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getSweetSpotcl/flexhub/internal/auth"
	"github.com/getSweetSpotcl/flexhub/internal/db"
	"github.com/getSweetSpotcl/flexhub/internal/entities"
	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
	"github.com/getSweetSpotcl/flexhub/internal/service"
	"github.com/gorilla/mux"
)

type BookingHandler struct {
	Service *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req entities.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.Service.CheckAvailability(r.Context(), req)
	if err != nil {
		http.Error(w, "Error checking availability", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	guestID, ok := auth.GuestID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req entities.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	resp, err := h.Service.Reserve(r.Context(), guestID, req)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	guestID, ok := auth.GuestID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	code := mux.Vars(r)["code"]

	booking, err := h.Service.GetByCode(r.Context(), guestID, code)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	guestID, ok := auth.GuestID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bookings, err := h.Service.ListByGuest(r.Context(), guestID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	list := entities.BookingsList{Total: len(bookings)}
	for i := range bookings {
		list.Bookings = append(list.Bookings, *toBookingResponse(&bookings[i]))
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	guestID, ok := auth.GuestID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	code := mux.Vars(r)["code"]

	booking, err := h.Service.CancelByGuest(r.Context(), guestID, code)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func toBookingResponse(b *db.Booking) *entities.BookingResponse {
	resp := &entities.BookingResponse{
		Code:            b.Code,
		SpaceID:         b.SpaceID,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		AmountCLP:       b.AmountCLP,
		Status:          string(b.Status),
		PaymentDeadline: b.PaymentDeadline,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.CancelReason != nil {
		resp.CancelReason = string(*b.CancelReason)
	}
	return resp
}

func writeBookingError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	http.Error(w, he.Message, he.Code)
}

// toHTTPError maps domain errors onto transport status codes.
func toHTTPError(err error) *apperrors.HTTPError {
	switch {
	case errors.Is(err, apperrors.ErrSlotUnavailable):
		return apperrors.NewHTTPError(http.StatusConflict, "Requested slot is unavailable")
	case errors.Is(err, apperrors.ErrInvalidTransition), errors.Is(err, apperrors.ErrAlreadyTerminal):
		return apperrors.NewHTTPError(http.StatusConflict, "Booking is not in a cancellable or confirmable state")
	case errors.Is(err, apperrors.ErrBookingNotFound):
		return apperrors.NewHTTPError(http.StatusNotFound, "Booking not found")
	case errors.Is(err, apperrors.ErrSpaceNotFound):
		return apperrors.NewHTTPError(http.StatusNotFound, "Space not found")
	case errors.Is(err, apperrors.ErrGuestNotFound):
		return apperrors.NewHTTPError(http.StatusNotFound, "Guest not found")
	default:
		return apperrors.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
