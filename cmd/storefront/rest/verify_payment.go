package rest

import (
	errors "errors"
	http "net/http"

	ihttp "github.com/tjper/storefront/internal/http"
	"github.com/tjper/storefront/internal/payment"

	"go.uber.org/zap"
)

// VerifyPayment verifies a payment reference with the payment processor. An
// unpaid reference is reported with success false and status 200.
type VerifyPayment struct{ API }

func (ep VerifyPayment) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type body struct {
		Reference string `json:"reference" validate:"required"`
	}

	var b body
	if err := ep.read(w, r, &b); err != nil {
		return
	}
	if err := ep.valid.Struct(b); err != nil {
		ihttp.ErrBadRequest(ep.logger, w, err)
		return
	}

	verification, err := ep.verifier.Verify(r.Context(), b.Reference)
	if errors.Is(err, payment.ErrInvalidReference) {
		ep.write(w, http.StatusBadRequest, payment.Verification{
			Success: false,
			Message: "Payment reference is invalid.",
		})
		return
	}
	if err != nil {
		ep.logger.Error("verify payment", zap.String("reference", b.Reference), zap.Error(err))
		ep.write(w, http.StatusBadGateway, payment.Verification{
			Success: false,
			Message: "Payment could not be verified. Please try again.",
		})
		return
	}

	ep.write(w, http.StatusOK, verification)
}
