// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes and CLI exit messages by callers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing state (e.g., a proof already attached).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the presented credential is missing, invalid or expired.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the credential is valid but does not grant the requested action.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable indicates a collaborator could not be reached. Callers may retry.
	ErrUnavailable = errors.New("unavailable")
)

// FieldError carries the offending field and a human readable detail alongside
// the error kind. errors.Is on a FieldError matches its kind.
type FieldError struct {
	Err    error
	Field  string
	Detail string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Field, e.Detail, e.Err)
}

// Unwrap returns the wrapped error kind.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Field annotates err with the name of the offending field and a detail message.
func Field(err error, field, detail string) error {
	if err == nil {
		return nil
	}
	return &FieldError{Err: err, Field: field, Detail: detail}
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
