package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tjper/storefront/internal/docstore"
	"github.com/tjper/storefront/internal/rand"
	ivalidator "github.com/tjper/storefront/internal/validator"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IAccountStore encompasses all interactions with persisted accounts.
type IAccountStore interface {
	CreateAccount(context.Context, *Account) error
	AccountByEmail(context.Context, string) (*Account, error)
	CreatePasswordReset(ctx context.Context, uid, hash string) error
}

// IRegistry encompasses all interactions with the signed-in identities of
// browsers.
type IRegistry interface {
	Retrieve(context.Context, string) (*Identity, error)
	Store(context.Context, string, Identity) error
	Delete(context.Context, string) error
}

// IBroker announces identity changes to every page of a browser.
type IBroker interface {
	Publish(context.Context, string) error
	Subscribe(context.Context, string) (<-chan struct{}, func() error, error)
}

// IEmailer sends identity related emails.
type IEmailer interface {
	SendPasswordReset(context.Context, string, string) error
}

// IProfiles stores user profile documents.
type IProfiles interface {
	Set(context.Context, string, interface{}) error
}

// Profile is the user profile document written on every sign-in.
type Profile struct {
	Email        string       `msgpack:"email"`
	Provider     ProviderKind `msgpack:"provider"`
	LastSignInAt time.Time    `msgpack:"lastSignInAt"`
}

// LocalOption is a function type that may configure a Local instance.
type LocalOption func(*Local)

// WithPopupAuthenticator enables popup sign-in for kind.
func WithPopupAuthenticator(kind ProviderKind, authenticator PopupAuthenticator) LocalOption {
	return func(l *Local) { l.popups[kind] = authenticator }
}

// NewLocal creates a Local Provider for one page of the browser identified by
// browserID. Start must be called before state changes are delivered.
func NewLocal(
	logger *zap.Logger,
	browserID string,
	accounts IAccountStore,
	registry IRegistry,
	broker IBroker,
	emailer IEmailer,
	profiles IProfiles,
	limiter *Limiter,
	options ...LocalOption,
) *Local {
	ctx, cancel := context.WithCancel(context.Background())
	local := &Local{
		logger:    logger.With(zap.String("browser-id", browserID)),
		browserID: browserID,
		accounts:  accounts,
		registry:  registry,
		broker:    broker,
		emailer:   emailer,
		profiles:  profiles,
		limiter:   limiter,
		valid:     ivalidator.New(),
		popups:    make(map[ProviderKind]PopupAuthenticator),
		ctx:       ctx,
		cancel:    cancel,
		wg:        new(sync.WaitGroup),
		dispatch:  new(sync.Mutex),
		mutex:     new(sync.Mutex),
	}

	for _, option := range options {
		option(local)
	}

	return local
}

// Local is the storefront's own identity Provider. Accounts are persisted
// through an IAccountStore and the signed-in Identity of a browser is held in
// the IRegistry so that every page of the browser shares it.
type Local struct {
	logger    *zap.Logger
	browserID string
	accounts  IAccountStore
	registry  IRegistry
	broker    IBroker
	emailer   IEmailer
	profiles  IProfiles
	limiter   *Limiter
	valid     *validator.Validate
	popups    map[ProviderKind]PopupAuthenticator

	ctx      context.Context
	cancel   context.CancelFunc
	wg       *sync.WaitGroup
	closeSub func() error

	// dispatch serializes registry changes with deliveries to handlers.
	dispatch *sync.Mutex
	known    bool
	state    *Identity

	mutex    *sync.Mutex
	handlers []stateSubscription
	next     int
}

type stateSubscription struct {
	id      int
	handler StateHandler
}

// Start subscribes to identity changes of the browser and delivers the
// current state. If the current state cannot be retrieved, nothing is
// delivered until the next change.
func (l *Local) Start(ctx context.Context) error {
	notifyc, closeSub, err := l.broker.Subscribe(l.ctx, Subject(l.browserID))
	if err != nil {
		return fmt.Errorf("subscribe to identity changes; error: %w", err)
	}
	l.closeSub = closeSub

	l.refresh(ctx)

	l.wg.Add(1)
	go l.watch(notifyc)
	return nil
}

// Close stops the delivery of state changes.
func (l *Local) Close() error {
	l.cancel()

	var err error
	if l.closeSub != nil {
		err = l.closeSub()
	}
	l.wg.Wait()
	return err
}

// OnAuthStateChanged registers handler to receive sign-in state changes. If
// the state is already known it is replayed to handler once before
// OnAuthStateChanged returns.
func (l *Local) OnAuthStateChanged(handler StateHandler) (unsubscribe func()) {
	l.dispatch.Lock()
	defer l.dispatch.Unlock()

	l.mutex.Lock()
	id := l.next
	l.next++
	l.handlers = append(l.handlers, stateSubscription{id: id, handler: handler})
	l.mutex.Unlock()

	if l.known {
		handler(l.state.copy())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mutex.Lock()
			defer l.mutex.Unlock()
			for i := range l.handlers {
				if l.handlers[i].id == id {
					l.handlers = append(l.handlers[:i], l.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// SignInWithPassword signs in the account of email.
func (l *Local) SignInWithPassword(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if err := l.valid.Var(email, "required,email"); err != nil {
		return newError(CodeInvalidEmail, err)
	}
	if !l.limiter.Allow(email) {
		return newError(CodeTooManyRequests, nil)
	}

	account, err := l.accounts.AccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountDNE) {
		return newError(CodeUserNotFound, err)
	}
	if err != nil {
		return newError(CodeNetworkRequestFailed, err)
	}
	if account.Provider != ProviderPassword {
		return newError(CodeInvalidCredential, nil)
	}
	if !account.IsPassword(password) {
		return newError(CodeWrongPassword, nil)
	}

	l.limiter.Reset(email)
	return l.signIn(ctx, *account)
}

// SignUpWithPassword creates an account for email and signs it in.
func (l *Local) SignUpWithPassword(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if err := l.valid.Var(email, "required,email"); err != nil {
		return newError(CodeInvalidEmail, err)
	}
	if err := l.valid.Var(password, "password"); err != nil {
		return newError(CodeWeakPassword, err)
	}

	_, err := l.accounts.AccountByEmail(ctx, email)
	if err == nil {
		return newError(CodeEmailAlreadyInUse, nil)
	}
	if !errors.Is(err, ErrAccountDNE) {
		return newError(CodeNetworkRequestFailed, err)
	}

	salt, err := rand.Salt()
	if err != nil {
		return fmt.Errorf("generate salt; error: %w", err)
	}
	account := &Account{
		UID:      uuid.New().String(),
		Email:    email,
		Password: hash([]byte(password), []byte(salt)),
		Salt:     salt,
		Provider: ProviderPassword,
	}
	if err := l.accounts.CreateAccount(ctx, account); err != nil {
		return newError(CodeNetworkRequestFailed, err)
	}

	return l.signIn(ctx, *account)
}

// SignInWithPopup signs in with the credential produced by the sign-in popup
// of kind. An account is created on first sign-in.
func (l *Local) SignInWithPopup(ctx context.Context, kind ProviderKind, credential string) error {
	authenticator, ok := l.popups[kind]
	if !ok {
		return newError(CodeOperationNotAllowed, fmt.Errorf("popup provider %q", kind))
	}

	claims, err := authenticator.Authenticate(ctx, credential)
	if err != nil {
		if AsError(err) != nil {
			return err
		}
		return newError(CodeInvalidCredential, err)
	}
	email := normalizeEmail(claims.Email)

	account, err := l.accounts.AccountByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrAccountDNE):
		account = &Account{
			UID:      uuid.New().String(),
			Email:    email,
			Provider: kind,
		}
		if err := l.accounts.CreateAccount(ctx, account); err != nil {
			return newError(CodeNetworkRequestFailed, err)
		}
	case err != nil:
		return newError(CodeNetworkRequestFailed, err)
	case account.Provider != kind:
		return newError(CodeAccountExistsWithDifferentCredential, nil)
	}

	return l.signIn(ctx, *account)
}

// SendPasswordResetEmail sends a password reset email to the account of
// email.
func (l *Local) SendPasswordResetEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := l.valid.Var(email, "required,email"); err != nil {
		return newError(CodeInvalidEmail, err)
	}
	if !l.limiter.Allow(email) {
		return newError(CodeTooManyRequests, nil)
	}

	account, err := l.accounts.AccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountDNE) {
		return newError(CodeUserNotFound, err)
	}
	if err != nil {
		return newError(CodeNetworkRequestFailed, err)
	}

	resetHash, err := rand.ResetHash()
	if err != nil {
		return fmt.Errorf("generate reset hash; error: %w", err)
	}
	if err := l.accounts.CreatePasswordReset(ctx, account.UID, resetHash); err != nil {
		return newError(CodeNetworkRequestFailed, err)
	}
	if err := l.emailer.SendPasswordReset(ctx, email, resetHash); err != nil {
		return newError(CodeNetworkRequestFailed, err)
	}
	return nil
}

// SignOut signs the browser out. Every page of the browser is notified.
func (l *Local) SignOut(ctx context.Context) error {
	l.dispatch.Lock()
	err := l.registry.Delete(ctx, l.browserID)
	if err == nil {
		l.deliver(nil)
	}
	l.dispatch.Unlock()
	if err != nil {
		return newError(CodeNetworkRequestFailed, err)
	}

	l.publish(ctx)
	return nil
}

// --- private ---

func (l *Local) signIn(ctx context.Context, account Account) error {
	ident := Identity{UID: account.UID, Email: account.Email}

	l.dispatch.Lock()
	err := l.registry.Store(ctx, l.browserID, ident)
	if err == nil {
		l.deliver(&ident)
	}
	l.dispatch.Unlock()
	if err != nil {
		return newError(CodeNetworkRequestFailed, err)
	}

	profile := Profile{
		Email:        account.Email,
		Provider:     account.Provider,
		LastSignInAt: time.Now().UTC(),
	}
	if err := l.profiles.Set(ctx, docstore.UserPath(account.UID), profile); err != nil {
		l.logger.Warn("write user profile", zap.String("uid", account.UID), zap.Error(err))
	}

	l.publish(ctx)
	return nil
}

func (l *Local) publish(ctx context.Context) {
	if err := l.broker.Publish(ctx, Subject(l.browserID)); err != nil {
		l.logger.Error("publish identity change", zap.Error(err))
	}
}

func (l *Local) watch(notifyc <-chan struct{}) {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case _, ok := <-notifyc:
			if !ok {
				return
			}
			l.refresh(l.ctx)
		}
	}
}

func (l *Local) refresh(ctx context.Context) {
	l.dispatch.Lock()
	defer l.dispatch.Unlock()

	ident, err := l.registry.Retrieve(ctx, l.browserID)
	if err != nil {
		l.logger.Error("retrieve identity", zap.Error(err))
		return
	}
	l.deliver(ident)
}

// deliver notifies every handler of ident unless ident is the state last
// delivered. The dispatch mutex must be held.
func (l *Local) deliver(ident *Identity) {
	if l.known && equal(l.state, ident) {
		return
	}
	l.known = true
	l.state = ident.copy()

	l.mutex.Lock()
	handlers := make([]StateHandler, 0, len(l.handlers))
	for _, sub := range l.handlers {
		handlers = append(handlers, sub.handler)
	}
	l.mutex.Unlock()

	for _, handler := range handlers {
		handler(ident.copy())
	}
}

func (i *Identity) copy() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func equal(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
