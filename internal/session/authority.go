package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/tjper/storefront/internal/identity"
	"github.com/tjper/storefront/internal/notify"

	"go.uber.org/zap"
)

// ISignOuter encompasses ending a session with the identity provider.
type ISignOuter interface {
	SignOut(context.Context) error
}

// Handler is notified of Session changes.
type Handler func(Session)

// NewAuthority creates a new Authority instance. The Session is initially
// signed-out and remains so until OnIdentityChanged is called.
func NewAuthority(
	logger *zap.Logger,
	provider ISignOuter,
	signaler notify.Signaler,
	adminEmail string,
) *Authority {
	return &Authority{
		logger:     logger,
		provider:   provider,
		signaler:   signaler,
		adminEmail: adminEmail,
		mutex:      new(sync.RWMutex),
		dispatch:   new(sync.Mutex),
	}
}

// Authority is the single source of truth of who is signed-in to a page.
type Authority struct {
	logger     *zap.Logger
	provider   ISignOuter
	signaler   notify.Signaler
	adminEmail string

	// dispatch serializes OnIdentityChanged so that notifications of
	// consecutive changes never interleave.
	dispatch *sync.Mutex

	mutex         *sync.RWMutex
	current       Session
	subscriptions []subscription
	next          int
}

type subscription struct {
	id      int
	handler Handler
}

// Subscribe registers handler to be notified of every Session change.
// Handlers are notified synchronously in the order they subscribed. The
// returned function removes the subscription; it is safe to call more than
// once.
func (a *Authority) Subscribe(handler Handler) (unsubscribe func()) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	id := a.next
	a.next++
	a.subscriptions = append(a.subscriptions, subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { a.unsubscribe(id) })
	}
}

// OnIdentityChanged replaces the Session with one derived from ident and
// notifies every subscriber before returning. A nil ident signs the Session
// out.
func (a *Authority) OnIdentityChanged(ident *identity.Identity) {
	a.dispatch.Lock()
	defer a.dispatch.Unlock()

	var user *User
	if ident != nil {
		user = userFromIdentity(*ident)
	}
	sess := newSession(user, a.adminEmail)

	a.mutex.Lock()
	a.current = sess
	handlers := make([]Handler, 0, len(a.subscriptions))
	for _, sub := range a.subscriptions {
		handlers = append(handlers, sub.handler)
	}
	a.mutex.Unlock()

	a.logger.Debug(
		"session changed",
		zap.String("user-id", sess.UserID()),
		zap.Bool("admin", sess.IsAdmin),
	)

	for _, handler := range handlers {
		handler(sess.copy())
	}
}

// Session retrieves the current Session.
func (a *Authority) Session() Session {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.current.copy()
}

// RequireAuth checks that a user is signed-in. If not, the user is prompted
// to sign-in to carry out action and false is returned. Every call without a
// signed-in user prompts again.
func (a *Authority) RequireAuth(action string) bool {
	if a.Session().SignedIn() {
		return true
	}
	a.signaler.Signal(notify.Signal{
		Kind:    notify.KindLoginRequired,
		Action:  action,
		Message: fmt.Sprintf("Please sign in to %s.", action),
	})
	return false
}

// RequireAdmin checks that an admin is signed-in. A signed-out user is
// prompted to sign-in, a signed-in user without admin privileges is denied.
func (a *Authority) RequireAdmin(action string) bool {
	sess := a.Session()
	if !sess.SignedIn() {
		a.signaler.Signal(notify.Signal{
			Kind:    notify.KindLoginRequired,
			Action:  action,
			Message: fmt.Sprintf("Please sign in to %s.", action),
		})
		return false
	}
	if !sess.IsAdmin {
		a.signaler.Signal(notify.Signal{
			Kind:    notify.KindAdminDenied,
			Action:  action,
			Message: fmt.Sprintf("Admin access is required to %s.", action),
		})
		return false
	}
	return true
}

// SignOut requests that the identity provider end the session. The Session
// itself is only cleared once the provider reports the change through
// OnIdentityChanged.
func (a *Authority) SignOut(ctx context.Context) error {
	if err := a.provider.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out; error: %w", err)
	}
	return nil
}

// --- private ---

func (a *Authority) unsubscribe(id int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for i := range a.subscriptions {
		if a.subscriptions[i].id == id {
			a.subscriptions = append(a.subscriptions[:i], a.subscriptions[i+1:]...)
			return
		}
	}
}

func (s Session) copy() Session {
	if s.User == nil {
		return s
	}
	user := *s.User
	s.User = &user
	return s
}
