// Package session owns the authentic sign-in state of a page. The Authority
// maps identity provider state changes to a Session, derives admin privileges
// and notifies subscribers of every change.
package session

import "strings"

// Session represents the sign-in state of a page.
type Session struct {
	// User is the signed-in user. User is nil when signed-out.
	User *User `json:"user"`

	// IsAdmin indicates the User has admin privileges. IsAdmin is derived from
	// User on every change and is never set independently.
	IsAdmin bool `json:"isAdmin"`
}

// SignedIn indicates if the Session has a signed-in User.
func (s Session) SignedIn() bool {
	return s.User != nil
}

// UserID retrieves the ID of the signed-in User. An empty string is returned
// when signed-out.
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// Equal checks if the passed Session is equal to the receiver Session.
func (s Session) Equal(s2 Session) bool {
	if s.SignedIn() != s2.SignedIn() {
		return false
	}
	if s.SignedIn() && !s.User.Equal(*s2.User) {
		return false
	}
	return s.IsAdmin == s2.IsAdmin
}

// IsAdmin checks if email belongs to the admin. Emails are compared
// case-insensitively. An empty adminEmail matches no one.
func IsAdmin(email, adminEmail string) bool {
	adminEmail = strings.TrimSpace(adminEmail)
	if adminEmail == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(email), adminEmail)
}

func newSession(user *User, adminEmail string) Session {
	if user == nil {
		return Session{}
	}
	return Session{
		User:    user,
		IsAdmin: IsAdmin(user.Email, adminEmail),
	}
}
