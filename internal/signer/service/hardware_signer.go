package service

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/allisson/sessionsig/internal/errors"
	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
)

// HardwareSigner delegates Ed25519 signing to a Device.
type HardwareSigner struct {
	device Device
}

// NewHardwareSigner creates a signer backed by device.
func NewHardwareSigner(device Device) *HardwareSigner {
	return &HardwareSigner{device: device}
}

// Kind returns HardwareKind.
func (s *HardwareSigner) Kind() signerDomain.Kind {
	return signerDomain.HardwareKind
}

// Subject returns "ed25519:<hex public key>" for the device key.
func (s *HardwareSigner) Subject(ctx context.Context) (string, error) {
	publicKey, err := s.device.PublicKey(ctx)
	if err != nil {
		return "", classifyDeviceError(ctx, err)
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return "", errors.Wrap(signerDomain.ErrSigningRejected, "device returned an invalid public key")
	}
	return Ed25519Subject(publicKey), nil
}

// Sign signs message on the device and checks the signature against the
// device key before returning it.
func (s *HardwareSigner) Sign(ctx context.Context, message []byte) (signerDomain.Signature, error) {
	subject, err := s.Subject(ctx)
	if err != nil {
		return signerDomain.Signature{}, err
	}

	value, err := s.device.Sign(ctx, message)
	if err != nil {
		return signerDomain.Signature{}, classifyDeviceError(ctx, err)
	}

	signature := signerDomain.Signature{
		Algorithm: signerDomain.Ed25519,
		Value:     value,
		Signer:    subject,
	}
	if err := Verify(subject, message, signature); err != nil {
		return signerDomain.Signature{}, errors.Wrap(
			signerDomain.ErrSigningRejected,
			"device returned a signature that does not match its key",
		)
	}
	return signature, nil
}

func classifyDeviceError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, signerDomain.ErrSigningRejected) || errors.Is(err, signerDomain.ErrSigningUnavailable) {
		return err
	}
	return errors.Wrap(signerDomain.ErrSigningUnavailable, fmt.Sprintf("device error: %v", err))
}
