// Package page serves the websocket of a storefront browser tab. Every socket
// is one page: it owns a session authority, a cart store, a payment gateway
// and a checkout flow, and shares the signed-in identity of its browser with
// the browser's other pages.
package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tjper/storefront/internal/cart"
	"github.com/tjper/storefront/internal/catalog"
	"github.com/tjper/storefront/internal/checkout"
	"github.com/tjper/storefront/internal/email"
	"github.com/tjper/storefront/internal/identity"
	"github.com/tjper/storefront/internal/localstore"
	"github.com/tjper/storefront/internal/notify"
	"github.com/tjper/storefront/internal/payment"
	"github.com/tjper/storefront/internal/remoteconfig"
	"github.com/tjper/storefront/internal/session"
	ivalidator "github.com/tjper/storefront/internal/validator"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// IConn is the websocket connection of a page.
type IConn interface {
	ReadJSON(interface{}) error
	WriteJSON(interface{}) error
	Close() error
}

// IConfig provides the configuration of new pages.
type IConfig interface {
	Load(context.Context) remoteconfig.Config
}

// IStore encompasses all persistent storefront data used by a page.
type IStore interface {
	identity.IAccountStore
	checkout.IOrders

	Product(context.Context, int) (*catalog.Product, error)
	Products(context.Context) ([]catalog.Product, error)
	SaveProduct(context.Context, catalog.Product) (*catalog.Product, error)
	DeleteProduct(context.Context, int) error
	Orders(context.Context) ([]checkout.Order, error)
}

// IDocs is the remote document store of carts and profiles.
type IDocs interface {
	Get(context.Context, string, interface{}) error
	Set(context.Context, string, interface{}) error
}

// IEmailer sends the emails of a page.
type IEmailer interface {
	SendPasswordReset(context.Context, string, string) error
	SendOrderReceipt(context.Context, string, email.Receipt) error
}

// Option is a function type that may configure a Server instance.
type Option func(*Server)

// WithPopupAuthenticator enables popup sign-in with kind on every page.
func WithPopupAuthenticator(kind identity.ProviderKind, authenticator identity.PopupAuthenticator) Option {
	return func(s *Server) { s.popups[kind] = authenticator }
}

// WithLoadTimeout configures the time allowed for a cart load.
func WithLoadTimeout(timeout time.Duration) Option {
	return func(s *Server) { s.loadTimeout = timeout }
}

// WithCheckoutExpiration configures the lifetime of hosted payment pages.
func WithCheckoutExpiration(exp time.Duration) Option {
	return func(s *Server) { s.checkoutExpiration = exp }
}

// NewServer creates a new Server instance.
func NewServer(
	logger *zap.Logger,
	config IConfig,
	store IStore,
	docs IDocs,
	local localstore.IStore,
	registry identity.IRegistry,
	broker identity.IBroker,
	emailer IEmailer,
	stripe payment.IStripe,
	verifier checkout.IVerifier,
	limiter *identity.Limiter,
	urls payment.URLs,
	options ...Option,
) *Server {
	server := &Server{
		logger:             logger,
		config:             config,
		store:              store,
		docs:               docs,
		local:              local,
		registry:           registry,
		broker:             broker,
		emailer:            emailer,
		stripe:             stripe,
		verifier:           verifier,
		limiter:            limiter,
		urls:               urls,
		popups:             make(map[identity.ProviderKind]identity.PopupAuthenticator),
		valid:              ivalidator.New(),
		loadTimeout:        10 * time.Second,
		checkoutExpiration: time.Hour,
		wg:                 new(sync.WaitGroup),
	}
	for _, option := range options {
		option(server)
	}
	return server
}

// Server creates a page for every connection it serves.
type Server struct {
	logger   *zap.Logger
	config   IConfig
	store    IStore
	docs     IDocs
	local    localstore.IStore
	registry identity.IRegistry
	broker   identity.IBroker
	emailer  IEmailer
	stripe   payment.IStripe
	verifier checkout.IVerifier
	limiter  *identity.Limiter
	urls     payment.URLs
	popups   map[identity.ProviderKind]identity.PopupAuthenticator
	valid    *validator.Validate

	loadTimeout        time.Duration
	checkoutExpiration time.Duration

	wg *sync.WaitGroup
}

// Serve runs the page of browserID over conn until conn or ctx is closed.
// conn is closed when Serve returns.
func (s *Server) Serve(ctx context.Context, browserID string, conn IConn) error {
	s.wg.Add(1)
	defer s.wg.Done()

	p := s.newPage(ctx, browserID, conn)
	defer p.close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := p.start(ctx); err != nil {
		return err
	}

	for {
		var msg Inbound
		err := conn.ReadJSON(&msg)
		if errors.Is(err, io.EOF) ||
			websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil
		}
		if err != nil && ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read page message; error: %w", err)
		}

		p.handle(ctx, msg)
	}
}

// Wait blocks until every page being served has closed.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) newPage(ctx context.Context, browserID string, conn IConn) *page {
	logger := s.logger.With(zap.String("browser-id", browserID))

	p := &page{
		logger: logger,
		conn:   conn,
		write:  new(sync.Mutex),
		store:  s.store,
		valid:  s.valid,
		wg:     new(sync.WaitGroup),
	}
	p.config = s.config.Load(ctx)
	p.signaler = notify.NewLogged(logger, notify.SignalerFunc(p.toast))

	popups := make([]identity.LocalOption, 0, len(s.popups))
	for kind, authenticator := range s.popups {
		popups = append(popups, identity.WithPopupAuthenticator(kind, authenticator))
	}
	p.provider = identity.NewLocal(
		logger,
		browserID,
		s.store,
		s.registry,
		s.broker,
		s.emailer,
		s.docs,
		s.limiter,
		popups...,
	)
	p.authority = session.NewAuthority(logger, p.provider, p.signaler, p.config.AdminEmail)
	p.cart = cart.NewStore(
		logger,
		s.docs,
		localstore.NewPrefixed(s.local, browserID+"/"),
		s.store,
		p.authority,
		p.signaler,
		cart.WithLoadTimeout(s.loadTimeout),
	)
	p.gateway = payment.NewGateway(logger, s.stripe, p, s.urls, s.checkoutExpiration)
	p.flow = checkout.NewFlow(
		logger,
		p.authority,
		p.cart,
		p.gateway,
		s.verifier,
		s.store,
		s.emailer,
		p.signaler,
		p.config.Currency,
	)
	return p
}

type page struct {
	logger   *zap.Logger
	conn     IConn
	write    *sync.Mutex
	store    IStore
	valid    *validator.Validate
	config   remoteconfig.Config
	signaler notify.Signaler

	provider  *identity.Local
	authority *session.Authority
	cart      *cart.Store
	gateway   *payment.Gateway
	flow      *checkout.Flow

	// wg tracks payment resolutions in progress.
	wg           *sync.WaitGroup
	unsubscribes []func()
}

func (p *page) start(ctx context.Context) error {
	p.send(TypeConfig, p.config)

	// The cart follows the session before the page renders it.
	p.unsubscribes = append(
		p.unsubscribes,
		p.authority.Subscribe(p.cart.OnSessionChanged),
		p.authority.Subscribe(p.onSession),
		p.cart.Subscribe(p.onCart),
		p.provider.OnAuthStateChanged(p.authority.OnIdentityChanged),
	)

	p.send(TypeSession, p.authority.Session())
	p.send(TypeCart, p.cart.Snapshot())
	p.sendProducts(ctx)

	if err := p.provider.Start(ctx); err != nil {
		return fmt.Errorf("start page; error: %w", err)
	}
	p.logger.Debug("page started")
	return nil
}

func (p *page) close() {
	if err := p.provider.Close(); err != nil {
		p.logger.Warn("close identity provider", zap.Error(err))
	}
	for i := len(p.unsubscribes) - 1; i >= 0; i-- {
		p.unsubscribes[i]()
	}

	p.wg.Wait()
	p.gateway.Close()
	p.cart.Close()

	if err := p.conn.Close(); err != nil {
		p.logger.Debug("close page connection", zap.Error(err))
	}
	p.logger.Debug("page closed")
}

// Present implements the payment.Presenter interface.
func (p *page) Present(_ context.Context, reference, url string) error {
	return p.sendErr(TypePaymentRedirect, Redirect{Reference: reference, URL: url})
}

func (p *page) onSession(sess session.Session) {
	p.send(TypeSession, sess)
}

func (p *page) onCart(snap cart.Snapshot) {
	p.send(TypeCart, snap)
}

func (p *page) toast(sig notify.Signal) {
	p.send(TypeToast, sig)
}

func (p *page) send(typ string, data interface{}) {
	if err := p.sendErr(typ, data); err != nil {
		p.logger.Debug("write page message", zap.String("type", typ), zap.Error(err))
	}
}

func (p *page) sendErr(typ string, data interface{}) error {
	p.write.Lock()
	defer p.write.Unlock()
	return p.conn.WriteJSON(Outbound{Type: typ, Data: data})
}
