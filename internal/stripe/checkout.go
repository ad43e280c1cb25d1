package stripe

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v72"
)

var errInvalidAmount = errors.New("invalid amount")

// CheckoutInput is the input for NewCheckout.
type CheckoutInput struct {
	// Amount is in the currency's minor unit.
	Amount      int64
	Currency    string
	Email       string
	Description string
	Metadata    map[string]string
	CancelURL   string
	SuccessURL  string
	ExpiresAt   time.Time
}

// NewCheckout builds the params of a single payment checkout session.
// SuccessURL receives the session ID through the {CHECKOUT_SESSION_ID}
// placeholder.
func NewCheckout(input CheckoutInput) (*stripe.CheckoutSessionParams, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("while building new checkout: %w", errInvalidAmount)
	}

	successURL := input.SuccessURL
	if !strings.Contains(successURL, "{CHECKOUT_SESSION_ID}") {
		sep := "?"
		if strings.Contains(successURL, "?") {
			sep = "&"
		}
		successURL += sep + "reference={CHECKOUT_SESSION_ID}"
	}

	params := &stripe.CheckoutSessionParams{
		CancelURL:          stripe.String(input.CancelURL),
		SuccessURL:         stripe.String(successURL),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(input.Currency)),
					UnitAmount: stripe.Int64(input.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(input.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if input.Email != "" {
		params.CustomerEmail = stripe.String(input.Email)
	}
	if !input.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(input.ExpiresAt.Unix())
	}
	for key, val := range input.Metadata {
		params.AddMetadata(key, val)
	}

	return params, nil
}
