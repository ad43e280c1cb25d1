package identity

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrAccountDNE indicates that an interaction was attempted against an
// account that does not exist.
var ErrAccountDNE = errors.New("account does not exist")

// Account is a storefront account as persisted by an IAccountStore.
type Account struct {
	UID      string
	Email    string
	Password []byte
	Salt     string
	Provider ProviderKind
}

// IsPassword checks if password is the Account's password.
func (a Account) IsPassword(password string) bool {
	if len(a.Password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(
		a.Password,
		hash([]byte(password), []byte(a.Salt)),
	) == 1
}

// --- helpers ---

func hash(password, salt []byte) []byte {
	const (
		minIterations = 2
		minMemory     = 64 * 1024
		threads       = 1
		keyLength     = 32
	)
	return argon2.IDKey(password, salt, minIterations, minMemory, threads, keyLength)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
