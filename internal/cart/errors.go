package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated indicates a cart operation was attempted without a
	// signed-in user.
	ErrUnauthenticated = errors.New("cart requires a signed-in user")
	// ErrLoading indicates a cart mutation was attempted while the signed-in
	// user's cart is still loading.
	ErrLoading = errors.New("cart is loading")
	// ErrSavedLocally indicates the remote cart write failed, but the cart was
	// written to the local store.
	ErrSavedLocally = errors.New("cart saved locally")
)

// SaveError reports a failed remote cart write.
type SaveError struct {
	UserID string
	// Remote is the remote write failure.
	Remote error
	// Local is the local fallback write failure. Local is nil if the cart was
	// saved locally.
	Local error
}

func (e SaveError) Error() string {
	if e.Local != nil {
		return fmt.Sprintf(
			"save cart; user: %s, remote error: %v, local error: %v",
			e.UserID,
			e.Remote,
			e.Local,
		)
	}
	return fmt.Sprintf("save cart remotely; user: %s, error: %v", e.UserID, e.Remote)
}

func (e SaveError) Unwrap() error { return e.Remote }

// Is reports ErrSavedLocally when the local fallback write succeeded.
func (e SaveError) Is(target error) bool {
	return target == ErrSavedLocally && e.Local == nil
}

// AsSaveError converts err to a *SaveError. If err is not a SaveError, nil is
// returned.
func AsSaveError(err error) *SaveError {
	var saveErr *SaveError
	if errors.As(err, &saveErr) {
		return saveErr
	}
	return nil
}
