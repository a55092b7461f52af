package errs

import (
	"errors"
	"fmt"
)

// Classified failures surfaced to handlers. Repos and services wrap
// driver errors into these at their boundary so raw storage errors
// never reach the HTTP layer.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrNonceNotFound        = errors.New("nonce not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrNoTasksAvailable     = errors.New("no tasks available")
	ErrEmailTaken           = errors.New("email already registered")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrTaskAlreadySubmitted = errors.New("task already submitted")
	ErrStorage              = errors.New("storage failure")
)

// Storage wraps a backing-store error so callers can match it with
// errors.Is(err, ErrStorage) while the cause stays in the chain for logs.
func Storage(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
