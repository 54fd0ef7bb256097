// Package apperror defines the typed error carried by every domain
// failure. Each error holds the HTTP status it should surface as plus a
// human-readable message, so handlers can translate failures into the
// response envelope without inspecting error strings.
package apperror

import "net/http"

// Error is a domain failure with an HTTP status code.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds an Error with an arbitrary status.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// NotFound marks a missing reservation, service, employee, order or user.
func NotFound(message string) *Error { return New(http.StatusNotFound, message) }

// BadRequest marks an invalid state transition, an already-paid
// installment, a missing prerequisite or an unsuccessful upstream payment.
func BadRequest(message string) *Error { return New(http.StatusBadRequest, message) }

// Forbidden marks a role or ownership violation. Authorization checks
// fail closed: unknown roles land here, never in a silent empty result.
func Forbidden(message string) *Error { return New(http.StatusForbidden, message) }

// Unauthorized marks a missing or invalid credential.
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
