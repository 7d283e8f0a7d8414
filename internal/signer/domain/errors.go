package domain

import (
	"github.com/allisson/sessionsig/internal/errors"
)

// Signing errors.
var (
	// ErrSigningRejected indicates the signer refused to sign. It is terminal for
	// the authorization attempt and must not be retried.
	ErrSigningRejected = errors.Wrap(errors.ErrForbidden, "signing rejected")

	// ErrSigningUnavailable indicates the signer could not be reached. Callers may retry.
	ErrSigningUnavailable = errors.Wrap(errors.ErrUnavailable, "signer unavailable")

	// ErrSignatureInvalid indicates a signature does not verify for the claimed subject.
	ErrSignatureInvalid = errors.Wrap(errors.ErrUnauthorized, "signature invalid")

	// ErrInvalidSubject indicates a subject string is neither an address nor an Ed25519 subject.
	ErrInvalidSubject = errors.Wrap(errors.ErrInvalidInput, "invalid signer subject")
)
