package errors

import (
	"errors"
	"net/http"
)

// Sentinel errors for the chat core. Services wrap these with fmt.Errorf
// and %w to attach detail; transports map them to status codes here.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// HTTPStatusFromError maps a service error to an HTTP status code.
// Anything outside the taxonomy is a transport failure and surfaces as 500.
func HTTPStatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show a caller. Transport
// failures are replaced with a generic message so internals never leak.
func PublicMessage(err error) string {
	if HTTPStatusFromError(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
