package domain

import (
	"github.com/allisson/sessionsig/internal/errors"
)

// Resource model errors.
var (
	// ErrInvalidResource indicates an unknown kind or a malformed identifier.
	ErrInvalidResource = errors.Wrap(errors.ErrInvalidInput, "invalid resource")

	// ErrInvalidAbility indicates an unknown ability or one that does not apply to the resource kind.
	ErrInvalidAbility = errors.Wrap(errors.ErrInvalidInput, "invalid ability")
)
