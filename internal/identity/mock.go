package identity

import (
	"context"
	"errors"
	"sync"
)

// NewMock creates a new Mock instance.
func NewMock(options ...MockOption) *Mock {
	mock := &Mock{mutex: new(sync.Mutex)}
	for _, option := range options {
		option(mock)
	}
	return mock
}

// MockOption is a function type that may configure a Mock instance.
type MockOption func(*Mock)

// WithSignInWithPassword configures the Mock.SignInWithPassword behaviour.
func WithSignInWithPassword(fn func(context.Context, string, string) error) MockOption {
	return func(mock *Mock) { mock.signInWithPassword = fn }
}

// WithSignUpWithPassword configures the Mock.SignUpWithPassword behaviour.
func WithSignUpWithPassword(fn func(context.Context, string, string) error) MockOption {
	return func(mock *Mock) { mock.signUpWithPassword = fn }
}

// WithSignInWithPopup configures the Mock.SignInWithPopup behaviour.
func WithSignInWithPopup(fn func(context.Context, ProviderKind, string) error) MockOption {
	return func(mock *Mock) { mock.signInWithPopup = fn }
}

// WithSendPasswordResetEmail configures the Mock.SendPasswordResetEmail
// behaviour.
func WithSendPasswordResetEmail(fn func(context.Context, string) error) MockOption {
	return func(mock *Mock) { mock.sendPasswordResetEmail = fn }
}

// WithSignOut configures the Mock.SignOut behaviour.
func WithSignOut(fn func(context.Context) error) MockOption {
	return func(mock *Mock) { mock.signOut = fn }
}

// Mock is a Provider whose state changes are emitted manually, typically used
// for testing.
type Mock struct {
	signInWithPassword     func(context.Context, string, string) error
	signUpWithPassword     func(context.Context, string, string) error
	signInWithPopup        func(context.Context, ProviderKind, string) error
	sendPasswordResetEmail func(context.Context, string) error
	signOut                func(context.Context) error

	mutex    *sync.Mutex
	handlers []StateHandler
}

var errUnconfigured = errors.New("mock unconfigured")

// Emit delivers ident to every handler.
func (m *Mock) Emit(ident *Identity) {
	m.mutex.Lock()
	handlers := make([]StateHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mutex.Unlock()

	for _, handler := range handlers {
		handler(ident.copy())
	}
}

func (m *Mock) OnAuthStateChanged(handler StateHandler) func() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.handlers = append(m.handlers, handler)
	return func() {}
}

func (m *Mock) SignInWithPassword(ctx context.Context, email, password string) error {
	if m.signInWithPassword == nil {
		return errUnconfigured
	}
	return m.signInWithPassword(ctx, email, password)
}

func (m *Mock) SignUpWithPassword(ctx context.Context, email, password string) error {
	if m.signUpWithPassword == nil {
		return errUnconfigured
	}
	return m.signUpWithPassword(ctx, email, password)
}

func (m *Mock) SignInWithPopup(ctx context.Context, kind ProviderKind, credential string) error {
	if m.signInWithPopup == nil {
		return errUnconfigured
	}
	return m.signInWithPopup(ctx, kind, credential)
}

func (m *Mock) SendPasswordResetEmail(ctx context.Context, email string) error {
	if m.sendPasswordResetEmail == nil {
		return errUnconfigured
	}
	return m.sendPasswordResetEmail(ctx, email)
}

func (m *Mock) SignOut(ctx context.Context) error {
	if m.signOut == nil {
		return errUnconfigured
	}
	return m.signOut(ctx)
}

// NewBrokerMock creates a new BrokerMock instance.
func NewBrokerMock() *BrokerMock {
	return &BrokerMock{
		mutex: new(sync.Mutex),
		subs:  make(map[string]map[int]chan struct{}),
	}
}

// BrokerMock is an in-memory IBroker, typically used for testing.
type BrokerMock struct {
	mutex *sync.Mutex
	subs  map[string]map[int]chan struct{}
	next  int
}

func (b *BrokerMock) Publish(_ context.Context, subject string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, c := range b.subs[subject] {
		select {
		case c <- struct{}{}:
		default:
		}
	}
	return nil
}

func (b *BrokerMock) Subscribe(_ context.Context, subject string) (<-chan struct{}, func() error, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.subs[subject] == nil {
		b.subs[subject] = make(map[int]chan struct{})
	}
	id := b.next
	b.next++
	c := make(chan struct{}, 1)
	b.subs[subject][id] = c

	return c, func() error {
		b.mutex.Lock()
		defer b.mutex.Unlock()
		delete(b.subs[subject], id)
		return nil
	}, nil
}

// NewRegistryMock creates a new RegistryMock instance.
func NewRegistryMock() *RegistryMock {
	return &RegistryMock{
		mutex:      new(sync.Mutex),
		identities: make(map[string]Identity),
	}
}

// RegistryMock is an in-memory IRegistry, typically used for testing.
type RegistryMock struct {
	mutex      *sync.Mutex
	identities map[string]Identity
}

func (r *RegistryMock) Retrieve(_ context.Context, browserID string) (*Identity, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	ident, ok := r.identities[browserID]
	if !ok {
		return nil, nil
	}
	return &ident, nil
}

func (r *RegistryMock) Store(_ context.Context, browserID string, ident Identity) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.identities[browserID] = ident
	return nil
}

func (r *RegistryMock) Delete(_ context.Context, browserID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.identities, browserID)
	return nil
}
