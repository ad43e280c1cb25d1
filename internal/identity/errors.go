package identity

import (
	"errors"
	"fmt"
)

// Code is a provider-specific error code.
type Code string

const (
	CodeInvalidEmail                         Code = "auth/invalid-email"
	CodeWrongPassword                        Code = "auth/wrong-password"
	CodeUserNotFound                         Code = "auth/user-not-found"
	CodeEmailAlreadyInUse                    Code = "auth/email-already-in-use"
	CodeWeakPassword                         Code = "auth/weak-password"
	CodeNetworkRequestFailed                 Code = "auth/network-request-failed"
	CodeTooManyRequests                      Code = "auth/too-many-requests"
	CodeInvalidCredential                    Code = "auth/invalid-credential"
	CodeAccountExistsWithDifferentCredential Code = "auth/account-exists-with-different-credential"
	CodeOperationNotAllowed                  Code = "auth/operation-not-allowed"
)

// GenericMessage is the user-facing message of any error without a known
// Code.
const GenericMessage = "Authentication failed. Please try again."

var messages = map[Code]string{
	CodeInvalidEmail:                         "Invalid email address.",
	CodeWrongPassword:                        "Incorrect password. Please try again.",
	CodeUserNotFound:                         "No account found with this email.",
	CodeEmailAlreadyInUse:                    "An account with this email already exists.",
	CodeWeakPassword:                         "Password is too weak. Use 8 or more characters with upper-case, lower-case and a number.",
	CodeNetworkRequestFailed:                 "Network error. Please check your connection and try again.",
	CodeTooManyRequests:                      "Too many attempts. Please try again later.",
	CodeInvalidCredential:                    "Invalid email or password.",
	CodeAccountExistsWithDifferentCredential: "An account already exists with this email using a different sign-in method.",
}

// Error is an identity provider error.
type Error struct {
	Code Code
	Err  error
}

func (e Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("identity; code: %s", e.Code)
	}
	return fmt.Sprintf("identity; code: %s, error: %s", e.Code, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// AsError checks to see if the passed error is of type *Error.
func AsError(err error) *Error {
	identityErr := new(Error)
	if errors.As(err, identityErr) {
		return identityErr
	}
	return nil
}

// Message translates err into a user-facing message. Errors without a known
// Code are translated to GenericMessage.
func Message(err error) string {
	identityErr := AsError(err)
	if identityErr == nil {
		return GenericMessage
	}
	msg, ok := messages[identityErr.Code]
	if !ok {
		return GenericMessage
	}
	return msg
}

func newError(code Code, err error) error {
	return Error{Code: code, Err: err}
}
