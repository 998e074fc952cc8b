// Package common defines shared constants and sentinel errors used across
// the blog backend. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal  = errors.New("internal error")
	ErrorForbidden = errors.New("forbidden")

	// Auth errors (invalid, malformed or expired token; bad credentials).
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")

	// Validation errors.
	ErrorInvalidInput = errors.New("invalid input")

	// Uniqueness conflicts on registration.
	ErrorEmailExists    = errors.New("email already exists")
	ErrorUsernameExists = errors.New("username already exists")

	// Lifecycle-specific errors.
	ErrorAuthorNotFound = errors.New("author not found")

	// Media reconciliation failures (add/remove phase).
	ErrorUploadFailure = errors.New("upload failure")
)

// InvalidParameterError reports a filter parameter that is not part of the
// entity's whitelisted field set.
type InvalidParameterError struct {
	Param string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter name: %s", e.Param)
}

func (e *InvalidParameterError) Unwrap() error { return ErrorInvalidInput }

// InvalidValueError reports a filter value that does not parse for the field
// it targets (e.g. an unknown status).
type InvalidValueError struct {
	Field string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for field %s", e.Value, e.Field)
}

func (e *InvalidValueError) Unwrap() error { return ErrorInvalidInput }
