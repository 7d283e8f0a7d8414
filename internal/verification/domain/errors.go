// Package domain defines the outcomes of verifying a signed statement.
package domain

import (
	"time"

	"github.com/allisson/sessionsig/internal/errors"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
)

// Verification errors.
var (
	// ErrStatementMismatch indicates the signed bytes are not the canonical
	// encoding of the presented statement.
	ErrStatementMismatch = errors.Wrap(errors.ErrUnauthorized, "statement does not match signed message")

	// ErrAbilityNotCovered indicates a required ability is not granted by the statement.
	ErrAbilityNotCovered = errors.Wrap(errors.ErrForbidden, "ability not covered")
)

// Result describes a statement that passed verification.
type Result struct {
	Subject    string                          `json:"subject"`
	SessionKey string                          `json:"session_key"`
	Abilities  []resourceDomain.AbilityRequest `json:"abilities"`
	NotBefore  time.Time                       `json:"not_before"`
	NotAfter   time.Time                       `json:"not_after"`
	GrantID    string                          `json:"grant_id,omitempty"`
	Issuer     string                          `json:"issuer,omitempty"`
}
