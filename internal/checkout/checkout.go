// Package checkout orchestrates paying for the signed-in user's cart. A
// payment is only trusted once the backend verified its reference; until
// then the cart is kept.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tjper/storefront/internal/cart"
	"github.com/tjper/storefront/internal/email"
	"github.com/tjper/storefront/internal/notify"
	"github.com/tjper/storefront/internal/payment"
	"github.com/tjper/storefront/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated indicates checkout was attempted without a signed-in
	// user.
	ErrUnauthenticated = errors.New("checkout requires a signed-in user")
	// ErrEmptyCart indicates checkout was attempted with an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
)

const (
	msgEmptyCart     = "Your cart is empty."
	msgCancelled     = "Payment cancelled. Your cart has been kept."
	msgVerifyFailed  = "We couldn't verify your payment. Your cart has been kept so you can try again."
	msgRecordFailed  = "Your payment was received, but we couldn't record your order. Please contact support."
	msgPaymentPlaced = "Payment successful! Your order has been placed."
)

// IAuthority encompasses the session authority interactions of a Flow.
type IAuthority interface {
	Session() session.Session
	RequireAuth(string) bool
}

// ICart encompasses the cart interactions of a Flow.
type ICart interface {
	Cart() cart.Cart
	Clear(context.Context) error
}

// IGateway opens payment flows.
type IGateway interface {
	Open(context.Context, payment.Request, payment.Callbacks) error
}

// IVerifier verifies payment references.
type IVerifier interface {
	Verify(context.Context, string) (*payment.Verification, error)
}

// IOrders records paid orders.
type IOrders interface {
	CreateOrder(context.Context, Order) error
}

// IEmailer sends order receipts.
type IEmailer interface {
	SendOrderReceipt(context.Context, string, email.Receipt) error
}

// Order is a paid cart.
type Order struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Reference string    `json:"reference"`
	// Total is in major units.
	Total     int64     `json:"total"`
	Currency  string    `json:"currency"`
	Items     cart.Cart `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
}

// Receipt builds the receipt of the Order.
func (o Order) Receipt() email.Receipt {
	items := make([]email.ReceiptItem, 0, len(o.Items))
	for _, line := range o.Items {
		items = append(items, email.ReceiptItem{
			Name:     line.Name,
			Quantity: line.Quantity,
			Subtotal: line.Subtotal(),
		})
	}
	return email.Receipt{
		OrderID:  o.ID.String(),
		Items:    items,
		Total:    o.Total,
		Currency: o.Currency,
	}
}

// NewFlow creates a new Flow instance charging in currency.
func NewFlow(
	logger *zap.Logger,
	authority IAuthority,
	cart ICart,
	gateway IGateway,
	verifier IVerifier,
	orders IOrders,
	emailer IEmailer,
	signaler notify.Signaler,
	currency string,
) *Flow {
	return &Flow{
		logger:    logger,
		authority: authority,
		cart:      cart,
		gateway:   gateway,
		verifier:  verifier,
		orders:    orders,
		emailer:   emailer,
		signaler:  signaler,
		currency:  currency,
		timeout:   15 * time.Second,
	}
}

// Flow is the checkout flow of a page.
type Flow struct {
	logger    *zap.Logger
	authority IAuthority
	cart      ICart
	gateway   IGateway
	verifier  IVerifier
	orders    IOrders
	emailer   IEmailer
	signaler  notify.Signaler
	currency  string
	timeout   time.Duration
}

// Start opens a payment for the current cart. The outcome of the payment is
// handled once the gateway resolves it.
func (f *Flow) Start(ctx context.Context) error {
	if !f.authority.RequireAuth("check out") {
		return ErrUnauthenticated
	}
	sess := f.authority.Session()
	if !sess.SignedIn() {
		return ErrUnauthenticated
	}
	user := *sess.User

	items := f.cart.Cart()
	if len(items) == 0 {
		f.signaler.Signal(notify.Info(msgEmptyCart))
		return ErrEmptyCart
	}

	req := payment.Request{
		Amount:   payment.ToMinor(items.Total()),
		Currency: f.currency,
		Email:    user.Email,
		Metadata: map[string]string{
			"userId":    user.ID,
			"itemCount": strconv.Itoa(items.Count()),
		},
	}

	if err := f.gateway.Open(ctx, req, payment.Callbacks{
		OnSuccess: func(reference string) { f.complete(reference, user, items, req.Amount) },
		OnCancel:  func() { f.signaler.Signal(notify.Info(msgCancelled)) },
	}); err != nil {
		f.signaler.Signal(notify.Error("We couldn't start the payment. Please try again."))
		return fmt.Errorf("start checkout; error: %w", err)
	}
	return nil
}

// --- private ---

func (f *Flow) complete(reference string, user session.User, items cart.Cart, amount int64) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	logger := f.logger.With(zap.String("reference", reference), zap.String("user-id", user.ID))

	verification, err := f.verifier.Verify(ctx, reference)
	if err != nil {
		logger.Error("verify payment", zap.Error(err))
		f.signaler.Signal(notify.Error(msgVerifyFailed))
		return
	}
	if !verification.Success {
		logger.Warn("payment not verified", zap.String("message", verification.Message))
		f.signaler.Signal(notify.Error(msgVerifyFailed))
		return
	}
	if verification.Data != nil && verification.Data.Amount != 0 && verification.Data.Amount != amount {
		logger.Error(
			"verified amount mismatch",
			zap.Int64("expected", amount),
			zap.Int64("verified", verification.Data.Amount),
		)
		f.signaler.Signal(notify.Error(msgVerifyFailed))
		return
	}

	order := Order{
		ID:        uuid.New(),
		UserID:    user.ID,
		Email:     user.Email,
		Reference: reference,
		Total:     items.Total(),
		Currency:  f.currency,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.orders.CreateOrder(ctx, order); err != nil {
		logger.Error("record order", zap.Error(err))
		f.signaler.Signal(notify.Warning(msgRecordFailed))
	} else if err := f.emailer.SendOrderReceipt(ctx, user.Email, order.Receipt()); err != nil {
		logger.Warn("send order receipt", zap.Error(err))
	}

	// The paying user may have signed out while the payment was open.
	if f.authority.Session().UserID() == user.ID {
		if err := f.cart.Clear(ctx); err != nil {
			logger.Warn("clear paid cart", zap.Error(err))
		}
	}

	logger.Info("order placed", zap.String("order-id", order.ID.String()))
	f.signaler.Signal(notify.Success(msgPaymentPlaced))
}
