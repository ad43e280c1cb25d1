package stripe

import (
	"fmt"

	"github.com/stripe/stripe-go/v72"
	checkout "github.com/stripe/stripe-go/v72/checkout/session"
)

func New(checkout *checkout.Client) *Stripe {
	return &Stripe{
		checkout: checkout,
	}
}

// Stripe wraps the stripe checkout session client.
type Stripe struct {
	checkout *checkout.Client
}

// CheckoutSession creates a hosted checkout session.
func (s Stripe) CheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	sess, err := s.checkout.New(params)
	if err != nil {
		return nil, fmt.Errorf("new checkout session; error: %w", err)
	}
	return sess, nil
}

// RetrieveCheckoutSession retrieves the checkout session identified by id.
func (s Stripe) RetrieveCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	sess, err := s.checkout.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("get checkout session; id: %s, error: %w", id, err)
	}
	return sess, nil
}
