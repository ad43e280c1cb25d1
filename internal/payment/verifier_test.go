package payment

import (
	"errors"
	"testing"

	istripe "github.com/tjper/storefront/internal/stripe"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
)

func TestStripeVerifier(t *testing.T) {
	tests := map[string]struct {
		status  stripe.CheckoutSessionPaymentStatus
		success bool
	}{
		"paid":                {status: stripe.CheckoutSessionPaymentStatusPaid, success: true},
		"unpaid":              {status: stripe.CheckoutSessionPaymentStatusUnpaid, success: false},
		"no payment required": {status: stripe.CheckoutSessionPaymentStatusNoPaymentRequired, success: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			mock := istripe.NewMock()
			mock.AddCheckoutSession(&stripe.CheckoutSession{
				ID:            "cs_1",
				PaymentStatus: test.status,
				AmountTotal:   5400,
				Currency:      stripe.CurrencyUSD,
				CustomerEmail: "user1@example.com",
			})

			verification, err := NewStripeVerifier(mock).Verify(ctx, "cs_1")
			require.Nil(t, err)
			require.Equal(t, test.success, verification.Success)
			if !test.success {
				require.Nil(t, verification.Data)
				require.NotEmpty(t, verification.Message)
				return
			}
			require.Equal(t, &VerificationData{
				Reference: "cs_1",
				Status:    "paid",
				Amount:    5400,
				Currency:  "usd",
				Email:     "user1@example.com",
			}, verification.Data)
		})
	}
}

func TestStripeVerifierErrors(t *testing.T) {
	mock := istripe.NewMock()

	_, err := NewStripeVerifier(mock).Verify(ctx, "")
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = NewStripeVerifier(mock).Verify(ctx, "cs_unknown")
	require.NotNil(t, err)

	errStripe := errors.New("stripe unavailable")
	mock.SetError(errStripe)
	_, err = NewStripeVerifier(mock).Verify(ctx, "cs_1")
	require.ErrorIs(t, err, errStripe)
}
