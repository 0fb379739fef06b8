package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
	"github.com/getSweetSpotcl/flexhub/internal/service"
)

type AuthHandler struct {
	service service.GuestAuthService
}

func NewAuthHandler(svc service.GuestAuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	guest, err := h.service.Register(r.Context(), req.Email, req.Name, req.Phone, req.RUT, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidRUT):
			http.Error(w, "Invalid RUT", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrEmailTaken):
			http.Error(w, "Email already registered", http.StatusConflict)
		default:
			http.Error(w, "Could not register", http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    guest.ID,
		"email": guest.Email,
		"rut":   guest.RUT,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}
