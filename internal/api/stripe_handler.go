package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	apperrors "github.com/getSweetSpotcl/flexhub/internal/errors"
	"github.com/getSweetSpotcl/flexhub/internal/service"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

type StripeWebhookHandler struct {
	StripeSecret   string
	bookingService *service.BookingService
}

func NewStripeWebhookHandler(stripeSecret string, bookingService *service.BookingService) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		StripeSecret:   stripeSecret,
		bookingService: bookingService,
	}
}

// HandleWebhook is the external payment callback: a completed checkout
// session confirms its booking. The core never initiates or polls
// payments.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.StripeSecret)
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Printf("Error parsing checkout.session: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if sess.ID == "" {
			log.Printf("No session ID in checkout.session.completed")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		_, err := h.bookingService.ConfirmPaymentBySession(r.Context(), sess.ID)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrInvalidTransition):
			// Payment landed after the sweep reclaimed the hold. The
			// charge is acknowledged; refund handling is manual.
			log.Printf("payment for session %s arrived after booking left PENDING_PAYMENT", sess.ID)
		case errors.Is(err, apperrors.ErrBookingNotFound):
			log.Printf("no booking for session %s", sess.ID)
			w.WriteHeader(http.StatusNotFound)
			return
		default:
			log.Printf("DB error: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	default:
		log.Printf("Unhandled event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}
