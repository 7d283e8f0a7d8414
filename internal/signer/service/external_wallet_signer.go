package service

import (
	"context"
	"fmt"
	"time"

	"github.com/allisson/sessionsig/internal/errors"
	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
)

// ExternalWalletSigner delegates personal_sign to a Wallet. Each call is bounded
// by the configured timeout; a timeout is reported as ErrSigningUnavailable
// while cancellation of the caller's context is returned unchanged.
type ExternalWalletSigner struct {
	wallet  Wallet
	timeout time.Duration
}

// NewExternalWalletSigner creates a signer backed by wallet. A zero timeout
// leaves the call bounded only by the caller's context.
func NewExternalWalletSigner(wallet Wallet, timeout time.Duration) *ExternalWalletSigner {
	return &ExternalWalletSigner{wallet: wallet, timeout: timeout}
}

// Kind returns ExternalWalletKind.
func (s *ExternalWalletSigner) Kind() signerDomain.Kind {
	return signerDomain.ExternalWalletKind
}

// Subject asks the wallet for its checksummed account address.
func (s *ExternalWalletSigner) Subject(ctx context.Context) (string, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	address, err := s.wallet.Address(callCtx)
	if err != nil {
		return "", s.mapError(ctx, err)
	}

	checksummed, err := ChecksumAddress(address)
	if err != nil {
		return "", errors.Wrap(signerDomain.ErrSigningRejected, "wallet returned an invalid address")
	}
	return checksummed, nil
}

// Sign requests a personal_sign from the wallet and checks the returned
// signature recovers to the wallet address before accepting it.
func (s *ExternalWalletSigner) Sign(ctx context.Context, message []byte) (signerDomain.Signature, error) {
	subject, err := s.Subject(ctx)
	if err != nil {
		return signerDomain.Signature{}, err
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	value, err := s.wallet.PersonalSign(callCtx, subject, message)
	if err != nil {
		return signerDomain.Signature{}, s.mapError(ctx, err)
	}

	signature := signerDomain.Signature{
		Algorithm: signerDomain.EthPersonalSign,
		Value:     value,
		Signer:    subject,
	}
	if err := Verify(subject, message, signature); err != nil {
		return signerDomain.Signature{}, errors.Wrap(
			signerDomain.ErrSigningRejected,
			"wallet returned a signature that does not match its address",
		)
	}

	return signature, nil
}

func (s *ExternalWalletSigner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// mapError classifies wallet failures. Errors already classified by the
// wallet pass through; anything else is treated as a transient failure.
func (s *ExternalWalletSigner) mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, signerDomain.ErrSigningRejected), errors.Is(err, signerDomain.ErrSigningUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(signerDomain.ErrSigningUnavailable, "wallet did not answer in time")
	default:
		return errors.Wrap(signerDomain.ErrSigningUnavailable, fmt.Sprintf("wallet error: %v", err))
	}
}
