// Package identity provides the identity-provider adapter used by page
// sessions. The Provider pushes sign-in state changes to subscribers and
// exposes the sign-in, sign-up and sign-out operations of the storefront.
package identity

import "context"

// Identity is a signed-in user as reported by a Provider.
type Identity struct {
	UID   string `json:"uid" msgpack:"uid"`
	Email string `json:"email" msgpack:"email"`
}

// Equal checks if the passed Identity is equal to the receiver Identity.
func (i Identity) Equal(i2 Identity) bool {
	return i.UID == i2.UID && i.Email == i2.Email
}

// ProviderKind identifies a third-party popup sign-in provider.
type ProviderKind string

const (
	ProviderPassword ProviderKind = "password"
	ProviderGoogle   ProviderKind = "google"
)

// StateHandler receives sign-in state changes. A nil Identity indicates that
// no user is signed-in.
type StateHandler func(*Identity)

// Provider encompasses all manners by which a page interacts with the identity
// provider. Sign-in state is never returned directly by the sign-in
// operations; it is delivered through the OnAuthStateChanged feed.
type Provider interface {
	OnAuthStateChanged(StateHandler) (unsubscribe func())

	SignInWithPassword(ctx context.Context, email, password string) error
	SignUpWithPassword(ctx context.Context, email, password string) error
	SignInWithPopup(ctx context.Context, kind ProviderKind, credential string) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
}
