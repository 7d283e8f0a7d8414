package domain

import (
	"github.com/allisson/sessionsig/internal/errors"
)

// Session errors.
var (
	// ErrExpiredSession indicates the session window has ended.
	ErrExpiredSession = errors.Wrap(errors.ErrUnauthorized, "session expired")

	// ErrSessionNotYetValid indicates the session window has not started.
	ErrSessionNotYetValid = errors.Wrap(errors.ErrUnauthorized, "session not yet valid")

	// ErrSessionDestroyed indicates the session key was zeroed and can no longer sign.
	ErrSessionDestroyed = errors.Wrap(errors.ErrUnauthorized, "session key destroyed")

	// ErrAuthorizationDenied indicates the root signer refused to sign the statement.
	ErrAuthorizationDenied = errors.Wrap(errors.ErrForbidden, "authorization denied")

	// ErrAuthorizationFailed indicates the signer stayed unavailable after every retry.
	ErrAuthorizationFailed = errors.Wrap(errors.ErrUnavailable, "authorization failed")
)
