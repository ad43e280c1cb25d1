// Package rest serves the storefront HTTP API and the page websocket.
package rest

import (
	"context"
	http "net/http"

	"github.com/tjper/storefront/cmd/storefront/page"
	"github.com/tjper/storefront/internal/catalog"
	ihttp "github.com/tjper/storefront/internal/http"
	"github.com/tjper/storefront/internal/payment"
	"github.com/tjper/storefront/internal/remoteconfig"
	ivalidator "github.com/tjper/storefront/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ICatalog interface {
	Product(context.Context, int) (*catalog.Product, error)
	Products(context.Context) ([]catalog.Product, error)
}

type IVerifier interface {
	Verify(context.Context, string) (*payment.Verification, error)
}

type IPages interface {
	Serve(context.Context, string, page.IConn) error
}

// Options are the HTTP settings of the API.
type Options struct {
	// ConfigSecret verifies the bearer tokens of the config endpoint.
	ConfigSecret   []byte
	Cookie         ihttp.CookieOptions
	AllowedOrigins []string
}

func NewAPI(
	logger *zap.Logger,
	catalog ICatalog,
	verifier IVerifier,
	pages IPages,
	config remoteconfig.Config,
	health http.Handler,
	newBrowserID func() string,
	options Options,
) *API {
	api := API{
		Mux:      chi.NewRouter(),
		logger:   logger,
		catalog:  catalog,
		verifier: verifier,
		pages:    pages,
		config:   config,
		valid:    ivalidator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowOrigin(options.AllowedOrigins),
		},
	}

	api.Mux.Use(
		middleware.RequestID,
		middleware.RequestLogger(ihttp.NewZapLogFormatter(logger)),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   options.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	api.Mux.Method(http.MethodGet, "/healthz", health)
	api.Mux.Method(http.MethodPost, "/verify-payment", VerifyPayment{API: api})
	api.Mux.Group(func(router chi.Router) {
		router.Use(ihttp.Bearer(options.ConfigSecret))
		router.Method(http.MethodGet, "/config", Config{API: api})
	})

	api.Mux.Route("/v1", func(router chi.Router) {
		router.Method(http.MethodGet, "/products", Products{API: api})
		router.Method(http.MethodGet, "/products/{id}", Product{API: api})

		router.Group(func(router chi.Router) {
			router.Use(ihttp.Browser(options.Cookie, newBrowserID))
			router.Method(http.MethodGet, "/page", Page{API: api})
		})
	})

	return &api
}

type API struct {
	Mux *chi.Mux

	logger   *zap.Logger
	catalog  ICatalog
	verifier IVerifier
	pages    IPages
	config   remoteconfig.Config
	valid    *validator.Validate
	upgrader websocket.Upgrader
}

func allowOrigin(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed["*"]; ok {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
