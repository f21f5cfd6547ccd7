// Package errs holds the error taxonomy shared by the guestlist stores and services.
//
// Callers branch on kinds with errors.Is; the HTTP layer maps each kind to one status code.
package errs

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
)
