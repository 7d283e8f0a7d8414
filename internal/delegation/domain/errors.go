package domain

import (
	"github.com/allisson/sessionsig/internal/errors"
)

// Delegation errors.
var (
	// ErrInvalidGrant indicates a grant is missing or structurally invalid.
	ErrInvalidGrant = errors.Wrap(errors.ErrInvalidInput, "invalid delegation grant")

	// ErrExpiredDelegation indicates the grant expiry has passed.
	ErrExpiredDelegation = errors.Wrap(errors.ErrUnauthorized, "delegation expired")

	// ErrDelegationSignatureInvalid indicates the issuer signature does not verify.
	ErrDelegationSignatureInvalid = errors.Wrap(errors.ErrUnauthorized, "delegation signature invalid")

	// ErrDelegationMissing indicates a statement references a proof that was not presented.
	ErrDelegationMissing = errors.Wrap(errors.ErrUnauthorized, "delegation proof missing")

	// ErrDelegationAudienceMismatch indicates the subject is not among the grant delegatees.
	ErrDelegationAudienceMismatch = errors.Wrap(errors.ErrForbidden, "subject is not a delegatee")

	// ErrDelegationScopeExceeded indicates a statement claims abilities outside the grant restriction.
	ErrDelegationScopeExceeded = errors.Wrap(errors.ErrForbidden, "statement exceeds delegation scope")

	// ErrDelegationQuotaExceeded indicates the grant has no uses or rate budget left.
	ErrDelegationQuotaExceeded = errors.Wrap(errors.ErrForbidden, "delegation quota exceeded")

	// ErrUntrustedIssuer indicates the grant issuer is not accepted by the verifier.
	ErrUntrustedIssuer = errors.Wrap(errors.ErrForbidden, "delegation issuer not trusted")

	// ErrDelegationAlreadyAttached indicates the statement already carries a proof.
	ErrDelegationAlreadyAttached = errors.Wrap(errors.ErrConflict, "delegation already attached")
)
