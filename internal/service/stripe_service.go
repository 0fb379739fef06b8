package service

import (
	"fmt"
	"os"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// StripeService implements CheckoutProvider against Stripe Checkout.
type StripeService struct{}

func NewStripeService() *StripeService {
	return &StripeService{}
}

// CreateCheckoutSession opens a hosted checkout page for the booking.
// CLP is a zero-decimal currency, so the amount goes through as-is.
func (s *StripeService) CreateCheckoutSession(amountCLP int64, bookingCode, customerEmail string) (string, string, error) {
	baseURL := os.Getenv("FRONTEND_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("clp"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("FlexHub booking %s", bookingCode)),
					},
					UnitAmount: stripe.Int64(amountCLP),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(baseURL + "/bookings/" + bookingCode + "/confirmation?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(baseURL + "/bookings/" + bookingCode + "/failed?session_id={CHECKOUT_SESSION_ID}"),
		CustomerEmail: stripe.String(customerEmail),
	}
	params.AddMetadata("booking_code", bookingCode)

	sess, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.URL, sess.ID, nil
}
