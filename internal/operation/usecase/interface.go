// Package usecase runs remote operations with a session: it signs a request
// envelope with the session key and hands it to a network of verifying nodes.
package usecase

import (
	"context"

	operationDomain "github.com/allisson/sessionsig/internal/operation/domain"
)

// Network is the remote party that verifies envelopes and performs operations.
type Network interface {
	// ExecuteCode runs the action named by req.
	ExecuteCode(
		ctx context.Context,
		envelope *operationDomain.Envelope,
		req *operationDomain.ExecuteCodeRequest,
	) (*operationDomain.ExecuteCodeResponse, error)

	// SignWithPKP signs req.Digest with the network held key req.KeyID.
	SignWithPKP(
		ctx context.Context,
		envelope *operationDomain.Envelope,
		req *operationDomain.PKPSignRequest,
	) (*operationDomain.PKPSignResponse, error)

	// DecryptionKey releases the data key of a condition bound ciphertext.
	DecryptionKey(
		ctx context.Context,
		envelope *operationDomain.Envelope,
		req *operationDomain.DecryptionKeyRequest,
	) (*operationDomain.DecryptionKeyResponse, error)
}

// KeyWrapper wraps and unwraps data keys. *secrets.Keeper satisfies it.
type KeyWrapper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
