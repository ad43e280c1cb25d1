package page

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tjper/storefront/cmd/storefront/db"
	"github.com/tjper/storefront/internal/cart"
	"github.com/tjper/storefront/internal/catalog"
	"github.com/tjper/storefront/internal/docstore"
	"github.com/tjper/storefront/internal/email"
	"github.com/tjper/storefront/internal/identity"
	"github.com/tjper/storefront/internal/localstore"
	"github.com/tjper/storefront/internal/notify"
	"github.com/tjper/storefront/internal/payment"
	"github.com/tjper/storefront/internal/remoteconfig"
	"github.com/tjper/storefront/internal/session"
	istripe "github.com/tjper/storefront/internal/stripe"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	adminEmail = "admin@x.com"
	password   = "Password1"
)

func TestServeStart(t *testing.T) {
	e := newEnv(t)
	conn := e.open(t, "browser-1")

	cfg, ok := conn.last(TypeConfig)
	require.True(t, ok)
	require.Equal(t, "Test Store", cfg.Data.(remoteconfig.Config).StoreName)

	eventually(t, func() bool {
		products, ok := conn.last(TypeProducts)
		return ok && len(products.Data.([]catalog.Product)) == 4
	})
	eventually(t, func() bool {
		sess, ok := conn.last(TypeSession)
		return ok && !sess.Data.(session.Session).SignedIn()
	})
	snap, ok := conn.last(TypeCart)
	require.True(t, ok)
	require.Empty(t, snap.Data.(cart.Snapshot).Cart)
}

func TestCartRequiresSignIn(t *testing.T) {
	e := newEnv(t)
	conn := e.open(t, "browser-1")

	conn.send(Inbound{Type: typeCartAdd, ProductID: 1})

	eventually(t, func() bool {
		toast, ok := conn.lastToast()
		return ok && toast.Kind == notify.KindLoginRequired
	})
	require.Equal(t, 0, len(lastCart(t, conn).Cart))
}

func TestSignUpAndCart(t *testing.T) {
	e := newEnv(t)
	conn := e.open(t, "browser-1")

	userID := e.signUp(t, conn, "a@b.com")

	conn.send(Inbound{Type: typeCartAdd, ProductID: 1})
	conn.send(Inbound{Type: typeCartAdd, ProductID: 3})
	conn.send(Inbound{Type: typeCartUpdate, ProductID: 3, Delta: 1})
	conn.send(Inbound{Type: typeCartRemove, ProductID: 1})

	eventually(t, func() bool {
		snap := lastCart(t, conn)
		return len(snap.Cart) == 1 && snap.Cart.Quantity(3) == 2
	})

	var doc struct {
		Items cart.Cart `msgpack:"items"`
	}
	require.Nil(t, e.docs.Get(context.Background(), docstore.CartPath(userID), &doc))
	require.Equal(t, 2, doc.Items.Quantity(3))
}

func TestSignInFailure(t *testing.T) {
	tests := map[string]struct {
		msg Inbound
		exp string
	}{
		"unknown user": {
			msg: Inbound{Type: typeSignIn, Email: "nobody@b.com", Password: password},
			exp: "No account found with this email.",
		},
		"invalid email": {
			msg: Inbound{Type: typeSignIn, Email: "nobody", Password: password},
			exp: "Invalid email address.",
		},
		"weak password": {
			msg: Inbound{Type: typeSignUp, Email: "a@b.com", Password: "weak"},
			exp: "Password is too weak. Use 8 or more characters with upper-case, lower-case and a number.",
		},
		"popup not enabled": {
			msg: Inbound{Type: typePopup, Provider: identity.ProviderGoogle, Credential: "code"},
			exp: identity.GenericMessage,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			conn := e.open(t, "browser-1")

			conn.send(test.msg)

			eventually(t, func() bool {
				toast, ok := conn.lastToast()
				return ok && toast.Kind == notify.KindError
			})
			toast, _ := conn.lastToast()
			require.Equal(t, test.exp, toast.Message)

			sess, ok := conn.last(TypeSession)
			require.True(t, ok)
			require.False(t, sess.Data.(session.Session).SignedIn())
		})
	}
}

func TestSharedBrowser(t *testing.T) {
	e := newEnv(t)
	first := e.open(t, "browser-1")
	second := e.open(t, "browser-1")
	other := e.open(t, "browser-2")

	e.signUp(t, first, "a@b.com")

	eventually(t, func() bool {
		sess, ok := second.last(TypeSession)
		return ok && sess.Data.(session.Session).UserID() != ""
	})

	second.send(Inbound{Type: typeSignOut})

	eventually(t, func() bool {
		sess, ok := first.last(TypeSession)
		return ok && !sess.Data.(session.Session).SignedIn()
	})
	eventually(t, func() bool {
		return len(lastCart(t, first).Cart) == 0 && lastCart(t, first).UserID == ""
	})

	sess, ok := other.last(TypeSession)
	require.True(t, ok)
	require.False(t, sess.Data.(session.Session).SignedIn())
}

func TestCheckout(t *testing.T) {
	tests := map[string]struct {
		status    stripe.CheckoutSessionPaymentStatus
		cancelled bool
		expKind   notify.Kind
		expOrders int
		expCart   int
	}{
		"paid": {
			status:    stripe.CheckoutSessionPaymentStatusPaid,
			expKind:   notify.KindSuccess,
			expOrders: 1,
			expCart:   0,
		},
		"unpaid": {
			status:    stripe.CheckoutSessionPaymentStatusUnpaid,
			expKind:   notify.KindError,
			expOrders: 0,
			expCart:   2,
		},
		"cancelled": {
			status:    stripe.CheckoutSessionPaymentStatusUnpaid,
			cancelled: true,
			expKind:   notify.KindInfo,
			expOrders: 0,
			expCart:   2,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			conn := e.open(t, "browser-1")
			e.signUp(t, conn, "a@b.com")

			conn.send(Inbound{Type: typeCartAdd, ProductID: 1})
			conn.send(Inbound{Type: typeCartAdd, ProductID: 3})
			eventually(t, func() bool { return len(lastCart(t, conn).Cart) == 2 })

			conn.send(Inbound{Type: typeCheckoutStart})

			var redirect Redirect
			eventually(t, func() bool {
				msg, ok := conn.last(TypePaymentRedirect)
				if ok {
					redirect = msg.Data.(Redirect)
				}
				return ok
			})
			require.Equal(t, "cs_test_1", redirect.Reference)

			params := e.stripe.PopCheckoutSession()
			require.Equal(t, int64(2000), *params.LineItems[0].PriceData.UnitAmount)

			e.stripe.SetPaymentStatus(redirect.Reference, test.status)
			conn.send(Inbound{
				Type:      typeCheckoutResult,
				Reference: redirect.Reference,
				Cancelled: test.cancelled,
			})

			eventually(t, func() bool {
				toast, ok := conn.lastToast()
				return ok && toast.Kind == test.expKind
			})
			eventually(t, func() bool { return len(lastCart(t, conn).Cart) == test.expCart })

			orders, err := e.store.Orders(context.Background())
			require.Nil(t, err)
			require.Len(t, orders, test.expOrders)
			require.Len(t, e.emailer.Receipts("a@b.com"), test.expOrders)
			if test.expOrders > 0 {
				require.Equal(t, int64(20), orders[0].Total)
				require.Equal(t, redirect.Reference, orders[0].Reference)
			}
		})
	}
}

func TestCheckoutUnknownReference(t *testing.T) {
	e := newEnv(t)
	conn := e.open(t, "browser-1")

	conn.send(Inbound{Type: typeCheckoutResult, Reference: "cs_test_404"})

	eventually(t, func() bool {
		toast, ok := conn.lastToast()
		return ok && toast.Kind == notify.KindError
	})
}

func TestAdmin(t *testing.T) {
	e := newEnv(t)

	user := e.open(t, "browser-1")
	e.signUp(t, user, "a@b.com")
	user.send(Inbound{Type: typeOrders})
	eventually(t, func() bool {
		toast, ok := user.lastToast()
		return ok && toast.Kind == notify.KindAdminDenied
	})

	admin := e.open(t, "browser-2")
	e.signUp(t, admin, adminEmail)
	sess, _ := admin.last(TypeSession)
	require.True(t, sess.Data.(session.Session).IsAdmin)

	admin.send(Inbound{
		Type:    typeProductsSave,
		Product: &ProductInput{Name: "Hat", Price: 15, Category: "apparel"},
	})
	eventually(t, func() bool {
		products, ok := admin.last(TypeProducts)
		return ok && len(products.Data.([]catalog.Product)) == 5
	})
	product, err := e.store.Product(context.Background(), 5)
	require.Nil(t, err)
	require.Equal(t, "Hat", product.Name)

	admin.send(Inbound{
		Type:    typeProductsSave,
		Product: &ProductInput{Name: "Hat", Price: 0, Category: "apparel"},
	})
	eventually(t, func() bool {
		toast, ok := admin.lastToast()
		return ok && toast.Kind == notify.KindError
	})

	admin.send(Inbound{Type: typeProductsDelete, ProductID: 5})
	eventually(t, func() bool {
		products, ok := admin.last(TypeProducts)
		return ok && len(products.Data.([]catalog.Product)) == 4
	})

	admin.send(Inbound{Type: typeOrders})
	eventually(t, func() bool {
		_, ok := admin.last(TypeOrders)
		return ok
	})
}

func TestUnrecognizedType(t *testing.T) {
	e := newEnv(t)
	conn := e.open(t, "browser-1")

	conn.send(Inbound{Type: "cart.teleport"})

	eventually(t, func() bool {
		msg, ok := conn.last(TypeError)
		return ok && msg.Data.(Failure).Request == "cart.teleport"
	})
}

func TestServeContextCancelled(t *testing.T) {
	e := newEnv(t)
	c := newConn()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.server.Serve(ctx, "browser-1", c) }()
	eventually(t, func() bool {
		_, ok := c.last(TypeProducts)
		return ok
	})

	cancel()
	require.Nil(t, <-done)
	e.server.Wait()

	c.mutex.Lock()
	defer c.mutex.Unlock()
	require.True(t, c.closed)
}

func TestPasswordReset(t *testing.T) {
	e := newEnv(t)
	conn := e.open(t, "browser-1")
	e.signUp(t, conn, "a@b.com")

	conn.send(Inbound{Type: typeReset, Email: "a@b.com"})

	eventually(t, func() bool { return e.emailer.PasswordResetHash("a@b.com") != "" })
}

// --- helpers ---

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		store: db.NewMock(db.WithProducts(
			catalog.Product{ID: 1, Name: "Mug", Price: 12, Category: "kitchen"},
			catalog.Product{ID: 2, Name: "Poster", Price: 30, Category: "decor"},
			catalog.Product{ID: 3, Name: "Socks", Price: 8, Category: "apparel"},
			catalog.Product{ID: 4, Name: "Tote", Price: 20, Category: "apparel"},
		)),
		docs:     docstore.NewMock(),
		registry: identity.NewRegistryMock(),
		broker:   identity.NewBrokerMock(),
		emailer:  email.NewMock(),
		stripe:   istripe.NewMock(),
	}
	e.server = NewServer(
		zap.NewNop(),
		configFunc(func(context.Context) remoteconfig.Config {
			return remoteconfig.Config{
				AdminEmail: adminEmail,
				Currency:   "usd",
				StoreName:  "Test Store",
			}
		}),
		e.store,
		e.docs,
		localstore.NewMemory(),
		e.registry,
		e.broker,
		e.emailer,
		e.stripe,
		payment.NewStripeVerifier(e.stripe),
		identity.NewLimiter(rate.Every(time.Millisecond), 100),
		payment.URLs{
			Success: "https://shop.test/checkout/success",
			Cancel:  "https://shop.test/checkout/cancel",
		},
		WithLoadTimeout(time.Second),
	)
	return e
}

type env struct {
	store    *db.Mock
	docs     *docstore.Mock
	registry *identity.RegistryMock
	broker   *identity.BrokerMock
	emailer  *email.Mock
	stripe   *istripe.Mock
	server   *Server
}

// open serves a new page of browserID. The page is closed when the test ends.
func (e *env) open(t *testing.T, browserID string) *conn {
	t.Helper()

	c := newConn()
	done := make(chan error, 1)
	go func() { done <- e.server.Serve(context.Background(), browserID, c) }()
	t.Cleanup(func() {
		close(c.in)
		require.Nil(t, <-done)
	})

	eventually(t, func() bool {
		_, ok := c.last(TypeProducts)
		return ok
	})
	return c
}

// signUp creates and signs in an account for email on the page of c and waits
// for its cart to load.
func (e *env) signUp(t *testing.T, c *conn, email string) string {
	t.Helper()

	c.send(Inbound{Type: typeSignUp, Email: email, Password: password})

	var userID string
	eventually(t, func() bool {
		sess, ok := c.last(TypeSession)
		if !ok || !sess.Data.(session.Session).SignedIn() {
			return false
		}
		userID = sess.Data.(session.Session).UserID()
		return true
	})
	eventually(t, func() bool {
		snap := lastCart(t, c)
		return snap.UserID == userID && !snap.Loading
	})
	return userID
}

func eventually(t *testing.T, condition func() bool) {
	t.Helper()
	require.Eventually(t, condition, 2*time.Second, 5*time.Millisecond)
}

func lastCart(t *testing.T, c *conn) cart.Snapshot {
	t.Helper()
	msg, ok := c.last(TypeCart)
	require.True(t, ok)
	return msg.Data.(cart.Snapshot)
}

type configFunc func(context.Context) remoteconfig.Config

func (fn configFunc) Load(ctx context.Context) remoteconfig.Config { return fn(ctx) }

// --- mocks ---

var errClosed = errors.New("connection closed")

func newConn() *conn {
	return &conn{
		in:    make(chan Inbound, 16),
		done:  make(chan struct{}),
		mutex: new(sync.Mutex),
	}
}

type conn struct {
	in     chan Inbound
	done   chan struct{}
	mutex  *sync.Mutex
	out    []Outbound
	closed bool
}

func (c *conn) ReadJSON(v interface{}) error {
	select {
	case <-c.done:
		return errClosed
	case msg, ok := <-c.in:
		if !ok {
			return io.EOF
		}
		*v.(*Inbound) = msg
		return nil
	}
}

func (c *conn) WriteJSON(v interface{}) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return errClosed
	}
	c.out = append(c.out, v.(Outbound))
	return nil
}

func (c *conn) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *conn) send(msg Inbound) {
	c.in <- msg
}

func (c *conn) last(typ string) (Outbound, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for i := len(c.out) - 1; i >= 0; i-- {
		if c.out[i].Type == typ {
			return c.out[i], true
		}
	}
	return Outbound{}, false
}

func (c *conn) lastToast() (notify.Signal, bool) {
	msg, ok := c.last(TypeToast)
	if !ok {
		return notify.Signal{}, false
	}
	return msg.Data.(notify.Signal), true
}
