package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v72"
)

// ErrInvalidReference indicates a payment reference that cannot identify a
// payment.
var ErrInvalidReference = errors.New("invalid payment reference")

// IStripeRetriever encompasses retrieving hosted checkout sessions.
type IStripeRetriever interface {
	RetrieveCheckoutSession(string) (*stripe.CheckoutSession, error)
}

func NewStripeVerifier(stripe IStripeRetriever) *StripeVerifier {
	return &StripeVerifier{stripe: stripe}
}

// StripeVerifier verifies payment references against Stripe.
type StripeVerifier struct {
	stripe IStripeRetriever
}

// Verify reports success only when the checkout session of reference has
// been paid.
func (v StripeVerifier) Verify(_ context.Context, reference string) (*Verification, error) {
	if reference == "" {
		return nil, ErrInvalidReference
	}

	sess, err := v.stripe.RetrieveCheckoutSession(reference)
	if err != nil {
		return nil, fmt.Errorf("verify payment; reference: %s, error: %w", reference, err)
	}

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return &Verification{
			Success: false,
			Message: "Payment has not been completed.",
		}, nil
	}

	return &Verification{
		Success: true,
		Data: &VerificationData{
			Reference: sess.ID,
			Status:    string(sess.PaymentStatus),
			Amount:    sess.AmountTotal,
			Currency:  string(sess.Currency),
			Email:     sess.CustomerEmail,
			Metadata:  sess.Metadata,
		},
	}, nil
}
