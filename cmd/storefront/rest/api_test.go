package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tjper/storefront/cmd/storefront/db"
	"github.com/tjper/storefront/cmd/storefront/page"
	"github.com/tjper/storefront/internal/catalog"
	"github.com/tjper/storefront/internal/healthz"
	ihttp "github.com/tjper/storefront/internal/http"
	"github.com/tjper/storefront/internal/payment"
	"github.com/tjper/storefront/internal/remoteconfig"
	istripe "github.com/tjper/storefront/internal/stripe"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
	"go.uber.org/zap"
)

var secret = []byte("config-secret")

const origin = "http://shop.test"

func TestHealthz(t *testing.T) {
	tests := map[string]struct {
		healthy bool
		exp     int
	}{
		"healthy": {healthy: true, exp: http.StatusOK},
		"sick":    {healthy: false, exp: http.StatusServiceUnavailable},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			health := healthz.NewHTTP()
			if test.healthy {
				health.Healthy()
			}
			api := newAPI(t, withHealth(health))

			rr := serve(api, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			require.Equal(t, test.exp, rr.Code)
		})
	}
}

func TestConfig(t *testing.T) {
	token, err := ihttp.IssueToken(secret, "storefront", time.Minute)
	require.Nil(t, err)

	tests := map[string]struct {
		authorization string
		exp           int
	}{
		"authorized":   {authorization: "Bearer " + token, exp: http.StatusOK},
		"no token":     {authorization: "", exp: http.StatusUnauthorized},
		"forged token": {authorization: "Bearer " + forge(t), exp: http.StatusUnauthorized},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			api := newAPI(t)

			req := httptest.NewRequest(http.MethodGet, "/config", nil)
			if test.authorization != "" {
				req.Header.Set("Authorization", test.authorization)
			}
			rr := serve(api, req)
			require.Equal(t, test.exp, rr.Code)
			if test.exp != http.StatusOK {
				return
			}

			var body struct {
				Success bool                `json:"success"`
				Config  remoteconfig.Config `json:"config"`
			}
			require.Nil(t, json.NewDecoder(rr.Body).Decode(&body))
			require.True(t, body.Success)
			require.Equal(t, "admin@x.com", body.Config.AdminEmail)
			require.Equal(t, "usd", body.Config.Currency)
		})
	}
}

// TestConfigClient checks that the remote config client understands the
// config endpoint.
func TestConfigClient(t *testing.T) {
	api := newAPI(t)
	srv := httptest.NewServer(api.Mux)
	defer srv.Close()

	client := remoteconfig.NewClient(
		zap.NewNop(),
		srv.URL,
		func() (string, error) { return ihttp.IssueToken(secret, "storefront", time.Minute) },
	)

	cfg, err := client.Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, "Test Store", cfg.StoreName)
}

func TestVerifyPayment(t *testing.T) {
	tests := map[string]struct {
		body       string
		status     stripe.CheckoutSessionPaymentStatus
		stripeErr  error
		expCode    int
		expSuccess bool
	}{
		"paid": {
			body:       `{"reference":"cs_test_1"}`,
			status:     stripe.CheckoutSessionPaymentStatusPaid,
			expCode:    http.StatusOK,
			expSuccess: true,
		},
		"unpaid": {
			body:    `{"reference":"cs_test_1"}`,
			status:  stripe.CheckoutSessionPaymentStatusUnpaid,
			expCode: http.StatusOK,
		},
		"missing reference": {
			body:    `{}`,
			expCode: http.StatusBadRequest,
		},
		"malformed body": {
			body:    `{"reference":`,
			expCode: http.StatusBadRequest,
		},
		"processor unavailable": {
			body:      `{"reference":"cs_test_1"}`,
			stripeErr: errors.New("stripe unavailable"),
			expCode:   http.StatusBadGateway,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			stripeMock := istripe.NewMock()
			stripeMock.AddCheckoutSession(&stripe.CheckoutSession{
				ID:            "cs_test_1",
				PaymentStatus: test.status,
				AmountTotal:   2000,
				Currency:      stripe.CurrencyUSD,
			})
			if test.stripeErr != nil {
				stripeMock.SetError(test.stripeErr)
			}
			api := newAPI(t, withVerifier(payment.NewStripeVerifier(stripeMock)))

			req := httptest.NewRequest(http.MethodPost, "/verify-payment", strings.NewReader(test.body))
			rr := serve(api, req)
			require.Equal(t, test.expCode, rr.Code)

			var verification payment.Verification
			require.Nil(t, json.NewDecoder(rr.Body).Decode(&verification))
			require.Equal(t, test.expSuccess, verification.Success)
			if test.expSuccess {
				require.Equal(t, int64(2000), verification.Data.Amount)
			} else {
				require.NotEmpty(t, verification.Message)
			}
		})
	}
}

// TestVerifyPaymentClient checks that the payment client understands the
// verification endpoint.
func TestVerifyPaymentClient(t *testing.T) {
	stripeMock := istripe.NewMock()
	stripeMock.AddCheckoutSession(&stripe.CheckoutSession{
		ID:            "cs_test_1",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   2000,
	})
	api := newAPI(t, withVerifier(payment.NewStripeVerifier(stripeMock)))
	srv := httptest.NewServer(api.Mux)
	defer srv.Close()

	client := payment.NewClient(srv.URL, time.Second)

	verification, err := client.Verify(context.Background(), "cs_test_1")
	require.Nil(t, err)
	require.True(t, verification.Success)

	verification, err = client.Verify(context.Background(), "")
	require.Nil(t, err)
	require.False(t, verification.Success)
}

func TestProducts(t *testing.T) {
	api := newAPI(t)

	rr := serve(api, httptest.NewRequest(http.MethodGet, "/v1/products", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var products []catalog.Product
	require.Nil(t, json.NewDecoder(rr.Body).Decode(&products))
	require.Len(t, products, 2)
	require.Equal(t, "Mug", products[0].Name)
}

func TestProduct(t *testing.T) {
	tests := map[string]struct {
		path    string
		expCode int
		expName string
	}{
		"found":     {path: "/v1/products/2", expCode: http.StatusOK, expName: "Poster"},
		"not found": {path: "/v1/products/9", expCode: http.StatusNotFound},
		"not an id": {path: "/v1/products/mug", expCode: http.StatusNotFound},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			api := newAPI(t)

			rr := serve(api, httptest.NewRequest(http.MethodGet, test.path, nil))
			require.Equal(t, test.expCode, rr.Code)
			if test.expCode != http.StatusOK {
				return
			}

			var product catalog.Product
			require.Nil(t, json.NewDecoder(rr.Body).Decode(&product))
			require.Equal(t, test.expName, product.Name)
		})
	}
}

func TestPage(t *testing.T) {
	served := make(chan string, 1)
	pages := pagesFunc(func(_ context.Context, browserID string, conn page.IConn) error {
		served <- browserID
		if err := conn.WriteJSON(page.Outbound{Type: page.TypeSession, Data: browserID}); err != nil {
			return err
		}
		var msg page.Inbound
		for conn.ReadJSON(&msg) == nil {
		}
		return conn.Close()
	})

	api := newAPI(t, withPages(pages))
	srv := httptest.NewServer(api.Mux)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/page"

	t.Run("new browser", func(t *testing.T) {
		conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {origin}})
		require.Nil(t, err)
		defer conn.Close()

		var cookie *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == "_sf-browser" {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		require.Equal(t, "browser-new", cookie.Value)
		require.Equal(t, "browser-new", <-served)

		var msg struct {
			Type string `json:"type"`
			Data string `json:"data"`
		}
		require.Nil(t, conn.ReadJSON(&msg))
		require.Equal(t, page.TypeSession, msg.Type)
		require.Equal(t, "browser-new", msg.Data)
	})

	t.Run("known browser", func(t *testing.T) {
		header := http.Header{"Origin": {origin}, "Cookie": {"_sf-browser=browser-known"}}
		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		require.Nil(t, err)
		defer conn.Close()

		require.Equal(t, "browser-known", <-served)
	})

	t.Run("foreign origin", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.test"}})
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

// --- helpers ---

type apiOption func(*apiDeps)

type apiDeps struct {
	verifier IVerifier
	pages    IPages
	health   http.Handler
}

func withVerifier(verifier IVerifier) apiOption {
	return func(d *apiDeps) { d.verifier = verifier }
}

func withPages(pages IPages) apiOption {
	return func(d *apiDeps) { d.pages = pages }
}

func withHealth(health http.Handler) apiOption {
	return func(d *apiDeps) { d.health = health }
}

func newAPI(t *testing.T, options ...apiOption) *API {
	t.Helper()

	deps := &apiDeps{
		verifier: payment.NewStripeVerifier(istripe.NewMock()),
		pages: pagesFunc(func(context.Context, string, page.IConn) error {
			return errors.New("unexpected page")
		}),
		health: healthz.NewHTTP(),
	}
	for _, option := range options {
		option(deps)
	}

	return NewAPI(
		zap.NewNop(),
		db.NewMock(db.WithProducts(
			catalog.Product{ID: 1, Name: "Mug", Price: 12, Category: "kitchen"},
			catalog.Product{ID: 2, Name: "Poster", Price: 30, Category: "decor"},
		)),
		deps.verifier,
		deps.pages,
		remoteconfig.Config{AdminEmail: "admin@x.com", Currency: "usd", StoreName: "Test Store"},
		deps.health,
		func() string { return "browser-new" },
		Options{
			ConfigSecret:   secret,
			Cookie:         ihttp.CookieOptions{},
			AllowedOrigins: []string{origin},
		},
	)
}

func serve(api *API, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	api.Mux.ServeHTTP(rr, req)
	return rr
}

func forge(t *testing.T) string {
	t.Helper()
	token, err := ihttp.IssueToken([]byte("other-secret"), "storefront", time.Minute)
	require.Nil(t, err)
	return token
}

type pagesFunc func(context.Context, string, page.IConn) error

func (fn pagesFunc) Serve(ctx context.Context, browserID string, conn page.IConn) error {
	return fn(ctx, browserID, conn)
}
