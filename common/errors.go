package common

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned when the session could not be refreshed.
	// The session has already been cleared when a caller sees it.
	ErrSessionExpired = errors.New("session expired, please login again")
	// ErrInvalidCredentials is returned by a rejected login.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrNotAuthenticated is returned when an operation needs a session and none is stored.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMalformedResponse is returned when a 2xx body is missing required fields.
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
