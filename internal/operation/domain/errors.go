package domain

import (
	"github.com/allisson/sessionsig/internal/errors"
)

// Operation errors.
var (
	// ErrInvalidEnvelope indicates an envelope is missing fields or cannot be encoded.
	ErrInvalidEnvelope = errors.Wrap(errors.ErrInvalidInput, "invalid request envelope")

	// ErrEnvelopeExpired indicates the envelope validity window does not contain now.
	ErrEnvelopeExpired = errors.Wrap(errors.ErrUnauthorized, "request envelope expired")

	// ErrSessionKeyMismatch indicates the envelope was not signed by the statement's delegate key.
	ErrSessionKeyMismatch = errors.Wrap(errors.ErrUnauthorized, "session key does not match statement")

	// ErrPayloadMismatch indicates the payload does not hash to the signed payload hash.
	ErrPayloadMismatch = errors.Wrap(errors.ErrUnauthorized, "payload does not match envelope")

	// ErrActionNotFound indicates the network has no code registered under the identifier.
	ErrActionNotFound = errors.Wrap(errors.ErrNotFound, "action not found")

	// ErrKeyNotFound indicates the network holds no signing key under the identifier.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "signing key not found")

	// ErrCiphertextInvalid indicates a ciphertext could not be opened.
	ErrCiphertextInvalid = errors.Wrap(errors.ErrInvalidInput, "ciphertext invalid")
)
