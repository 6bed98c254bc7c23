package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPermissionDeny  = errors.New("permission denied")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrLoginFailed     = errors.New("login failed")
	ErrInvalidDate     = fmt.Errorf("%w: malformed date", ErrInvalidInput)
)

// BackendError is a non-2xx answer from the compliance API.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}
