package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"parkpass/internal/repository"
)

// StripeService creates and inspects checkout sessions. With STRIPE_SECRET_KEY
// set (stripe.Key non-empty) it talks to Stripe; otherwise it simulates a
// checkout page served by this backend, so the confirm-payment polling flow
// works end to end without an account.
type StripeService struct {
	baseURL string
	store   *repository.Store
}

func NewStripeService(baseURL string, store *repository.Store) *StripeService {
	return &StripeService{baseURL: strings.TrimRight(baseURL, "/"), store: store}
}

func (s *StripeService) simulated() bool {
	return stripe.Key == ""
}

// CreateCheckoutSession returns a checkout URL and session ID for the given
// amount in cents.
func (s *StripeService) CreateCheckoutSession(amount int64, currency, description, customerEmail string) (string, string, error) {
	if s.simulated() {
		id := "cs_sim_" + uuid.NewString()
		return s.baseURL + "/checkout/" + id, id, nil
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
					UnitAmount: stripe.Int64(amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(s.baseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(s.baseURL + "/checkout/cancelled?session_id={CHECKOUT_SESSION_ID}"),
		CustomerEmail: stripe.String(customerEmail),
	}

	sess, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("creating stripe checkout session: %w", err)
	}
	return sess.URL, sess.ID, nil
}

// SessionPaid reports whether the payment behind the session has completed.
func (s *StripeService) SessionPaid(sessionID string) (bool, error) {
	if s.simulated() {
		cs, err := s.store.GetSession(sessionID)
		if err != nil {
			return false, err
		}
		return cs.Paid, nil
	}

	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return false, fmt.Errorf("fetching stripe session %s: %w", sessionID, err)
	}
	return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}
