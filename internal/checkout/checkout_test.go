package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tjper/storefront/internal/cart"
	"github.com/tjper/storefront/internal/catalog"
	"github.com/tjper/storefront/internal/docstore"
	"github.com/tjper/storefront/internal/email"
	"github.com/tjper/storefront/internal/identity"
	"github.com/tjper/storefront/internal/localstore"
	"github.com/tjper/storefront/internal/notify"
	"github.com/tjper/storefront/internal/payment"
	"github.com/tjper/storefront/internal/session"
	istripe "github.com/tjper/storefront/internal/stripe"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStartRequiresAuth(t *testing.T) {
	f := setup(t, verifierFunc(nil))

	require.ErrorIs(t, f.flow.Start(ctx), ErrUnauthenticated)
	require.Equal(t, 1, f.signals.Count(notify.KindLoginRequired))
	require.Empty(t, f.presenter.references)
}

func TestStartEmptyCart(t *testing.T) {
	f := setup(t, verifierFunc(nil))
	f.signIn(t)

	require.ErrorIs(t, f.flow.Start(ctx), ErrEmptyCart)
	require.Equal(t, 1, f.signals.Count(notify.KindInfo))
	require.Empty(t, f.presenter.references)
}

func TestStartOpensPayment(t *testing.T) {
	f := setup(t, verifierFunc(nil))
	f.signIn(t)
	require.Nil(t, f.cart.AddItem(ctx, 1))
	require.Nil(t, f.cart.AddItem(ctx, 1))
	require.Nil(t, f.cart.AddItem(ctx, 2))

	require.Nil(t, f.flow.Start(ctx))

	params := f.stripe.PopCheckoutSession()
	require.Equal(t, int64(5400), *params.LineItems[0].PriceData.UnitAmount)
	require.Equal(t, "usd", *params.LineItems[0].PriceData.Currency)
	require.Equal(t, "user1@example.com", *params.CustomerEmail)
	require.Equal(t, "uid-1", params.Metadata["userId"])
	require.Equal(t, "3", params.Metadata["itemCount"])
}

func TestPaymentOutcome(t *testing.T) {
	errVerify := errors.New("verification endpoint unreachable")

	tests := map[string]struct {
		cancelled    bool
		verification *payment.Verification
		verifyErr    error
		orderErr     error
		orders       int
		receipts     int
		cartCleared  bool
		signal       notify.Kind
	}{
		"verified": {
			verification: &payment.Verification{Success: true, Data: &payment.VerificationData{Amount: 2400}},
			orders:       1,
			receipts:     1,
			cartCleared:  true,
			signal:       notify.KindSuccess,
		},
		"verified without data": {
			verification: &payment.Verification{Success: true},
			orders:       1,
			receipts:     1,
			cartCleared:  true,
			signal:       notify.KindSuccess,
		},
		"not verified": {
			verification: &payment.Verification{Success: false, Message: "Payment has not been completed."},
			signal:       notify.KindError,
		},
		"verification error": {
			verifyErr: errVerify,
			signal:    notify.KindError,
		},
		"amount mismatch": {
			verification: &payment.Verification{Success: true, Data: &payment.VerificationData{Amount: 100}},
			signal:       notify.KindError,
		},
		"cancelled": {
			cancelled: true,
			signal:    notify.KindInfo,
		},
		"order not recorded": {
			verification: &payment.Verification{Success: true},
			orderErr:     errors.New("database unavailable"),
			cartCleared:  true,
			signal:       notify.KindSuccess,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			f := setup(t, verifierFunc(func(_ context.Context, reference string) (*payment.Verification, error) {
				require.Equal(t, "cs_test_1", reference)
				return test.verification, test.verifyErr
			}))
			f.orders.err = test.orderErr
			f.signIn(t)
			require.Nil(t, f.cart.AddItem(ctx, 1))
			require.Nil(t, f.cart.AddItem(ctx, 1))

			require.Nil(t, f.flow.Start(ctx))
			require.Equal(t, []string{"cs_test_1"}, f.presenter.references)

			require.Nil(t, f.gateway.Resolve("cs_test_1", test.cancelled))

			require.Len(t, f.orders.all(), test.orders)
			require.Len(t, f.emailer.Receipts("user1@example.com"), test.receipts)
			if test.cartCleared {
				require.Empty(t, f.cart.Cart())
			} else {
				require.Equal(t, 2, f.cart.Cart().Quantity(1))
			}

			last, ok := f.signals.Last()
			require.True(t, ok)
			require.Equal(t, test.signal, last.Kind)
		})
	}
}

func TestOrderRecorded(t *testing.T) {
	f := setup(t, verifierFunc(func(context.Context, string) (*payment.Verification, error) {
		return &payment.Verification{Success: true}, nil
	}))
	f.signIn(t)
	require.Nil(t, f.cart.AddItem(ctx, 1))
	require.Nil(t, f.cart.AddItem(ctx, 2))

	require.Nil(t, f.flow.Start(ctx))
	require.Nil(t, f.gateway.Resolve("cs_test_1", false))

	orders := f.orders.all()
	require.Len(t, orders, 1)
	order := orders[0]
	require.Equal(t, "uid-1", order.UserID)
	require.Equal(t, "user1@example.com", order.Email)
	require.Equal(t, "cs_test_1", order.Reference)
	require.Equal(t, int64(42), order.Total)
	require.Equal(t, "usd", order.Currency)
	require.Len(t, order.Items, 2)

	receipts := f.emailer.Receipts("user1@example.com")
	require.Len(t, receipts, 1)
	require.Equal(t, order.ID.String(), receipts[0].OrderID)
	require.Equal(t, int64(42), receipts[0].Total)
}

func TestPaidAfterSignOutKeepsNewSession(t *testing.T) {
	f := setup(t, verifierFunc(func(context.Context, string) (*payment.Verification, error) {
		return &payment.Verification{Success: true}, nil
	}))
	f.signIn(t)
	require.Nil(t, f.cart.AddItem(ctx, 1))
	require.Nil(t, f.flow.Start(ctx))

	f.authority.OnIdentityChanged(nil)
	f.cart.Wait()

	require.Nil(t, f.gateway.Resolve("cs_test_1", false))
	require.Len(t, f.orders.all(), 1)
	require.Equal(t, 0, f.signals.Count(notify.KindLoginRequired))
}

// --- helpers ---

var ctx = context.Background()

type fixture struct {
	authority *session.Authority
	cart      *cart.Store
	stripe    *istripe.Mock
	presenter *presenterMock
	gateway   *payment.Gateway
	orders    *ordersMock
	emailer   *email.Mock
	signals   *notify.Recorder
	flow      *Flow
}

func setup(t *testing.T, verifier IVerifier) fixture {
	t.Helper()

	f := fixture{
		stripe:    istripe.NewMock(),
		presenter: &presenterMock{mutex: new(sync.Mutex)},
		orders:    &ordersMock{mutex: new(sync.Mutex)},
		emailer:   email.NewMock(),
		signals:   notify.NewRecorder(),
	}
	f.authority = session.NewAuthority(zap.NewNop(), identity.NewMock(), f.signals, "")
	f.cart = cart.NewStore(
		zap.NewNop(),
		docstore.NewMock(),
		localstore.NewMemory(),
		catalog.NewMock(
			catalog.Product{ID: 1, Name: "Mug", Price: 12, Category: "kitchen"},
			catalog.Product{ID: 2, Name: "Poster", Price: 30, Category: "decor"},
		),
		f.authority,
		f.signals,
	)
	unsubscribe := f.authority.Subscribe(f.cart.OnSessionChanged)
	f.gateway = payment.NewGateway(
		zap.NewNop(),
		f.stripe,
		f.presenter,
		payment.URLs{Success: "https://shop.test/checkout", Cancel: "https://shop.test/cart"},
		30*time.Minute,
	)
	f.flow = NewFlow(
		zap.NewNop(),
		f.authority,
		f.cart,
		f.gateway,
		verifier,
		f.orders,
		f.emailer,
		f.signals,
		"usd",
	)

	t.Cleanup(func() {
		unsubscribe()
		f.gateway.Close()
		f.cart.Close()
	})
	return f
}

func (f fixture) signIn(t *testing.T) {
	t.Helper()
	f.authority.OnIdentityChanged(&identity.Identity{UID: "uid-1", Email: "user1@example.com"})
	f.cart.Wait()
}

// --- mocks ---

type verifierFunc func(context.Context, string) (*payment.Verification, error)

func (fn verifierFunc) Verify(ctx context.Context, reference string) (*payment.Verification, error) {
	if fn == nil {
		return nil, errors.New("verifier unconfigured")
	}
	return fn(ctx, reference)
}

type presenterMock struct {
	mutex      *sync.Mutex
	references []string
}

func (p *presenterMock) Present(_ context.Context, reference, _ string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.references = append(p.references, reference)
	return nil
}

type ordersMock struct {
	mutex  *sync.Mutex
	orders []Order
	err    error
}

func (m *ordersMock) CreateOrder(_ context.Context, order Order) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.err != nil {
		return m.err
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *ordersMock) all() []Order {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]Order(nil), m.orders...)
}
