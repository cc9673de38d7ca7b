// Package apperror holds the error taxonomy shared by every service. Handlers map
// these types to HTTP status codes in one place; nothing here is retried.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidIdentifier marks a malformed entity or scoping identifier.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ValidationError is malformed input or a broken business rule. RequestShape
// marks failures of the request body shape itself, reported as 422 with
// per-field details.
type ValidationError struct {
	Field        string
	Msg          string
	Details      map[string]string
	RequestShape bool
	Err          error
}

func (e ValidationError) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Field != "":
		return fmt.Sprintf("invalid %s", e.Field)
	default:
		return "validation error"
	}
}

func (e ValidationError) Unwrap() error { return e.Err }

// AuthenticationError is a missing or unusable bearer credential.
type AuthenticationError struct {
	Msg string
	Err error
}

func (e AuthenticationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "Unauthorized"
}

func (e AuthenticationError) Unwrap() error { return e.Err }

// AuthorizationError is an authenticated principal lacking the required role.
type AuthorizationError struct {
	Msg string
}

func (e AuthorizationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "Forbidden: You do not have permission"
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "Not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ConflictError is a uniqueness violation or a lost optimistic-concurrency race.
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s already exists", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "Something went wrong"
}

func (e InternalError) Unwrap() error { return e.Err }

// InvalidID builds the validation error raised for a malformed identifier of
// the named resource, e.g. InvalidID("parent") -> "Invalid parent id".
func InvalidID(resource string) error {
	return ValidationError{
		Field: resource,
		Msg:   fmt.Sprintf("Invalid %s id", resource),
		Err:   ErrInvalidIdentifier,
	}
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsAuthentication(err error) bool {
	var target AuthenticationError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target AuthorizationError
	return errors.As(err, &target)
}

// Status maps an error to its HTTP status code. Unknown errors are 500.
func Status(err error) int {
	var verr ValidationError
	switch {
	case errors.As(err, &verr):
		if verr.RequestShape {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case IsAuthentication(err):
		return http.StatusUnauthorized
	case IsAuthorization(err):
		return http.StatusForbidden
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err. Internal failures never
// leak their cause.
func Message(err error) string {
	var internal InternalError
	if errors.As(err, &internal) {
		return internal.Error()
	}
	if Status(err) == http.StatusInternalServerError {
		return "Something went wrong"
	}
	return err.Error()
}

// Details returns per-field validation details, if any.
func Details(err error) map[string]string {
	var verr ValidationError
	if errors.As(err, &verr) {
		return verr.Details
	}
	return nil
}
