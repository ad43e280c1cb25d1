package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	istripe "github.com/tjper/storefront/internal/stripe"
	itime "github.com/tjper/storefront/internal/time"

	"github.com/stripe/stripe-go/v72"
	"go.uber.org/zap"
)

// ErrUnknownFlow indicates a payment flow was resolved that is not open.
var ErrUnknownFlow = errors.New("unknown payment flow")

// IStripe encompasses creating hosted checkout sessions.
type IStripe interface {
	CheckoutSession(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Presenter presents the hosted payment page to the user.
type Presenter interface {
	Present(ctx context.Context, reference, url string) error
}

// URLs are the pages the hosted payment page returns to.
type URLs struct {
	Success string
	Cancel  string
}

// GatewayOption is a function type that may configure a Gateway instance.
type GatewayOption func(*Gateway)

// WithClock configures the clock hosted payment page expirations are
// computed from.
func WithClock(clock itime.IClock) GatewayOption {
	return func(g *Gateway) { g.clock = clock }
}

// NewGateway creates a new Gateway instance.
func NewGateway(
	logger *zap.Logger,
	stripe IStripe,
	presenter Presenter,
	urls URLs,
	expiration time.Duration,
	options ...GatewayOption,
) *Gateway {
	gateway := &Gateway{
		logger:     logger,
		stripe:     stripe,
		presenter:  presenter,
		urls:       urls,
		expiration: expiration,
		clock:      itime.Clock{},
		mutex:      new(sync.Mutex),
		flows:      make(map[string]Callbacks),
	}
	for _, option := range options {
		option(gateway)
	}
	return gateway
}

// Gateway opens payment flows on the hosted Stripe checkout page.
type Gateway struct {
	logger     *zap.Logger
	stripe     IStripe
	presenter  Presenter
	urls       URLs
	expiration time.Duration
	clock      itime.IClock

	mutex *sync.Mutex
	flows map[string]Callbacks
}

// Open creates a checkout session for req and presents it. The callbacks are
// held until the flow is resolved with Resolve or abandoned with Close.
func (g *Gateway) Open(ctx context.Context, req Request, callbacks Callbacks) error {
	params, err := istripe.NewCheckout(istripe.CheckoutInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Email:       req.Email,
		Description: "Storefront order",
		Metadata:    req.Metadata,
		CancelURL:   g.urls.Cancel,
		SuccessURL:  g.urls.Success,
		ExpiresAt:   g.clock.Now().Add(g.expiration),
	})
	if err != nil {
		return err
	}

	sess, err := g.stripe.CheckoutSession(params)
	if err != nil {
		return fmt.Errorf("open payment; error: %w", err)
	}

	g.mutex.Lock()
	g.flows[sess.ID] = callbacks
	g.mutex.Unlock()

	if err := g.presenter.Present(ctx, sess.ID, sess.URL); err != nil {
		g.pop(sess.ID)
		return fmt.Errorf("present payment; error: %w", err)
	}

	g.logger.Info("payment opened", zap.String("reference", sess.ID))
	return nil
}

// Resolve completes the flow of reference. A cancelled flow invokes
// OnCancel, any other flow invokes OnSuccess with reference.
func (g *Gateway) Resolve(reference string, cancelled bool) error {
	callbacks, ok := g.pop(reference)
	if !ok {
		return fmt.Errorf("resolve payment; reference: %s, error: %w", reference, ErrUnknownFlow)
	}

	g.logger.Info(
		"payment resolved",
		zap.String("reference", reference),
		zap.Bool("cancelled", cancelled),
	)
	if cancelled {
		if callbacks.OnCancel != nil {
			callbacks.OnCancel()
		}
		return nil
	}
	if callbacks.OnSuccess != nil {
		callbacks.OnSuccess(reference)
	}
	return nil
}

// Close cancels every open flow.
func (g *Gateway) Close() {
	g.mutex.Lock()
	flows := g.flows
	g.flows = make(map[string]Callbacks)
	g.mutex.Unlock()

	for _, callbacks := range flows {
		if callbacks.OnCancel != nil {
			callbacks.OnCancel()
		}
	}
}

func (g *Gateway) pop(reference string) (Callbacks, bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	callbacks, ok := g.flows[reference]
	if ok {
		delete(g.flows, reference)
	}
	return callbacks, ok
}
