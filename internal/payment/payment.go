// Package payment adapts the hosted payment gateway. A Gateway opens
// interactive payment flows and resolves each of them exactly once, and the
// Client verifies completed payments with the backend before they are
// trusted.
package payment

// Request is a payment to be collected.
type Request struct {
	// Amount is in the currency's minor unit.
	Amount   int64
	Currency string
	Email    string
	Metadata map[string]string
}

// ToMinor converts a major unit amount to the gateway's minor unit.
func ToMinor(major int64) int64 {
	return major * 100
}

// Callbacks are invoked when a payment flow is resolved. Exactly one of
// OnSuccess and OnCancel is invoked, once.
type Callbacks struct {
	OnSuccess func(reference string)
	OnCancel  func()
}

// Verification is the backend's verdict on a payment reference.
type Verification struct {
	Success bool              `json:"success"`
	Data    *VerificationData `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
}

// VerificationData describes a verified payment.
type VerificationData struct {
	Reference string            `json:"reference"`
	Status    string            `json:"status"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Email     string            `json:"email"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
