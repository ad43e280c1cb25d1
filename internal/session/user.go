package session

import "github.com/tjper/storefront/internal/identity"

// User is the signed-in user of a Session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Equal checks if the passed User is equal to the receiver User.
func (u User) Equal(u2 User) bool {
	return u.ID == u2.ID && u.Email == u2.Email
}

func userFromIdentity(ident identity.Identity) *User {
	return &User{ID: ident.UID, Email: ident.Email}
}
