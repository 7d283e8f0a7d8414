// Package service provides the signer variants that produce the root signature
// over a capability statement, and the verification routine remote parties use
// to check it.
package service

import (
	"context"
	"crypto/ed25519"

	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
)

// Signer signs canonical byte strings on behalf of a subject. Sign may block
// on user interaction and must honor ctx cancellation. Implementations report
// a refusal with ErrSigningRejected and a transient failure with
// ErrSigningUnavailable.
type Signer interface {
	// Kind returns the signer variant.
	Kind() signerDomain.Kind

	// Subject returns the identity the signature will be attributed to.
	Subject(ctx context.Context) (string, error)

	// Sign signs message and returns a detached signature.
	Sign(ctx context.Context, message []byte) (signerDomain.Signature, error)
}

// Wallet is a custody collaborator reached over a blocking round trip, such as
// a browser extension or a remote wallet connection. Implementations should
// return errors wrapping ErrSigningRejected when the user declines and
// ErrSigningUnavailable when the wallet cannot be reached.
type Wallet interface {
	// Address returns the account address the wallet signs with.
	Address(ctx context.Context) (string, error)

	// PersonalSign returns an EIP-191 personal_sign signature over message.
	PersonalSign(ctx context.Context, address string, message []byte) ([]byte, error)
}

// Device is a hardware custody collaborator holding an Ed25519 key.
type Device interface {
	// PublicKey returns the device public key.
	PublicKey(ctx context.Context) (ed25519.PublicKey, error)

	// Sign signs message with the device key.
	Sign(ctx context.Context, message []byte) ([]byte, error)
}
