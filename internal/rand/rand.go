package rand

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateString generates a cryptographically-secure value. If the value is
// unable to be generated an error is returned.
func GenerateString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// BrowserID generates a browser identifier for the browser cookie.
func BrowserID() (string, error) {
	return GenerateString(32)
}

// Salt generates a password salt.
func Salt() (string, error) {
	return GenerateString(32)
}

// ResetHash generates a password reset hash.
func ResetHash() (string, error) {
	return GenerateString(32)
}
