package domain

import (
	"github.com/allisson/sessionsig/internal/errors"
)

// Capability statement errors.
var (
	// ErrEmptyAbilitySet indicates a statement was requested without any ability.
	ErrEmptyAbilitySet = errors.Wrap(errors.ErrInvalidInput, "ability set is empty")

	// ErrInvalidWindow indicates notAfter is not after notBefore or the lifetime exceeds the maximum.
	ErrInvalidWindow = errors.Wrap(errors.ErrInvalidInput, "invalid validity window")

	// ErrInvalidStatement indicates a statement field is blank or cannot be rendered on a single line.
	ErrInvalidStatement = errors.Wrap(errors.ErrInvalidInput, "invalid statement")

	// ErrInvalidRecap indicates an encoded capability resource cannot be decoded.
	ErrInvalidRecap = errors.Wrap(errors.ErrInvalidInput, "invalid capability resource")
)
