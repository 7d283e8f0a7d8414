package domain

import (
	"github.com/allisson/sessionsig/internal/errors"
)

// Condition errors.
var (
	// ErrInvalidCondition indicates a condition set is malformed.
	ErrInvalidCondition = errors.Wrap(errors.ErrInvalidInput, "invalid access condition")

	// ErrConditionMismatch indicates a decrypt request names a different
	// condition set than the one bound to the ciphertext.
	ErrConditionMismatch = errors.Wrap(errors.ErrForbidden, "access conditions do not match")

	// ErrConditionNotSatisfied indicates the requester does not satisfy the condition set.
	ErrConditionNotSatisfied = errors.Wrap(errors.ErrForbidden, "access conditions not satisfied")
)
