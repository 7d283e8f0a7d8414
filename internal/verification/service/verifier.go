// Package service verifies signed capability statements and session-signed
// request envelopes the way a remote node does: it trusts nothing it cannot
// recompute from the presented bytes.
package service

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"log/slog"
	"time"

	capabilityDomain "github.com/allisson/sessionsig/internal/capability/domain"
	capabilityService "github.com/allisson/sessionsig/internal/capability/service"
	delegationDomain "github.com/allisson/sessionsig/internal/delegation/domain"
	delegationService "github.com/allisson/sessionsig/internal/delegation/service"
	"github.com/allisson/sessionsig/internal/errors"
	operationDomain "github.com/allisson/sessionsig/internal/operation/domain"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
	signerService "github.com/allisson/sessionsig/internal/signer/service"
	verificationDomain "github.com/allisson/sessionsig/internal/verification/domain"
)

// Verifier checks credentials presented by a session holder.
type Verifier interface {
	// VerifyStatement checks that signed is a valid, current credential that
	// covers every required ability. It does not consume delegation quota.
	VerifyStatement(
		ctx context.Context,
		signed *sessionDomain.SignedStatement,
		required []resourceDomain.AbilityRequest,
		now time.Time,
	) (*verificationDomain.Result, error)

	// VerifyEnvelope checks the session key signature and validity window of
	// envelope, verifies the statement it carries against envelope.Requests
	// and consumes one use of the delegation, if any.
	VerifyEnvelope(
		ctx context.Context,
		envelope *operationDomain.Envelope,
		now time.Time,
	) (*verificationDomain.Result, error)
}

// Option configures a verifier.
type Option func(*verifier)

// WithTrustedIssuers restricts accepted delegation issuers. Every issuer is
// accepted when none are configured.
func WithTrustedIssuers(issuers ...string) Option {
	return func(v *verifier) {
		v.trustedIssuers = append(v.trustedIssuers, issuers...)
	}
}

// WithQuotaLedger enables delegation quota enforcement in VerifyEnvelope.
func WithQuotaLedger(ledger *QuotaLedger) Option {
	return func(v *verifier) {
		v.ledger = ledger
	}
}

// WithDomain rejects statements issued for any other domain.
func WithDomain(domain string) Option {
	return func(v *verifier) {
		v.domain = domain
	}
}

type verifier struct {
	logger         *slog.Logger
	trustedIssuers []string
	ledger         *QuotaLedger
	domain         string
}

// NewVerifier creates a Verifier.
func NewVerifier(logger *slog.Logger, opts ...Option) Verifier {
	v := &verifier{logger: logger}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyStatement checks, in order: the signed bytes are the canonical
// encoding of the statement, the root signature, the delegation chain, the
// validity window and finally ability coverage.
func (v *verifier) VerifyStatement(
	ctx context.Context,
	signed *sessionDomain.SignedStatement,
	required []resourceDomain.AbilityRequest,
	now time.Time,
) (*verificationDomain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if signed == nil || signed.Statement == nil {
		return nil, errors.Field(capabilityDomain.ErrInvalidStatement, "statement", "missing")
	}
	statement := signed.Statement

	if v.domain != "" && statement.Domain != v.domain {
		return nil, errors.Field(verificationDomain.ErrStatementMismatch, "domain", statement.Domain)
	}

	expected, err := capabilityService.Encode(statement)
	if err != nil {
		return nil, errors.Wrap(verificationDomain.ErrStatementMismatch, err.Error())
	}
	if !bytes.Equal(expected, signed.SignedMessage) {
		return nil, verificationDomain.ErrStatementMismatch
	}

	if signed.Signature.Signer != "" && !signerService.SameSubject(signed.Signature.Signer, statement.Subject) {
		return nil, errors.Wrap(signerDomain.ErrSignatureInvalid, "signature names a different signer")
	}
	if err := signerService.Verify(statement.Subject, signed.SignedMessage, signed.Signature); err != nil {
		return nil, err
	}

	result := &verificationDomain.Result{
		Subject:    statement.Subject,
		SessionKey: statement.DelegateKey,
		Abilities:  statement.Abilities,
		NotBefore:  statement.NotBefore,
		NotAfter:   statement.NotAfter,
	}

	if err := v.verifyDelegation(signed, now, result); err != nil {
		return nil, err
	}

	if now.Before(statement.NotBefore) {
		return nil, sessionDomain.ErrSessionNotYetValid
	}
	if !now.Before(statement.NotAfter) {
		return nil, sessionDomain.ErrExpiredSession
	}

	if missing, ok := resourceDomain.Uncovered(statement.Abilities, required); ok {
		return nil, errors.Field(verificationDomain.ErrAbilityNotCovered, "ability", missing.String())
	}

	return result, nil
}

func (v *verifier) verifyDelegation(
	signed *sessionDomain.SignedStatement,
	now time.Time,
	result *verificationDomain.Result,
) error {
	statement := signed.Statement
	grant := signed.Delegation

	switch {
	case len(statement.Proofs) == 0 && grant == nil:
		return nil
	case len(statement.Proofs) == 0:
		return errors.Wrap(verificationDomain.ErrStatementMismatch, "delegation is not referenced by the statement")
	case grant == nil:
		return delegationDomain.ErrDelegationMissing
	case len(statement.Proofs) > 1:
		return errors.Wrap(delegationDomain.ErrDelegationMissing, "only one delegation proof is supported")
	}

	id, err := delegationService.GrantID(grant)
	if err != nil {
		return err
	}
	if id != statement.Proofs[0] {
		return errors.Wrap(delegationDomain.ErrDelegationMissing, "presented grant does not match the proof")
	}

	if !v.trusted(grant.Issuer) {
		return errors.Field(delegationDomain.ErrUntrustedIssuer, "issuer", grant.Issuer)
	}
	if err := delegationService.VerifyGrant(grant, grant.Issuer, now); err != nil {
		return err
	}
	if !delegationService.AllowsDelegatee(grant, statement.Subject) {
		return delegationDomain.ErrDelegationAudienceMismatch
	}
	if !delegationService.WithinScope(statement, grant) {
		return delegationDomain.ErrDelegationScopeExceeded
	}

	result.GrantID = id
	result.Issuer = grant.Issuer
	return nil
}

func (v *verifier) trusted(issuer string) bool {
	if len(v.trustedIssuers) == 0 {
		return true
	}
	for _, trusted := range v.trustedIssuers {
		if signerService.SameSubject(trusted, issuer) {
			return true
		}
	}
	return false
}

// VerifyEnvelope checks the envelope before the statement it carries so that
// a forged envelope never reaches the quota ledger.
func (v *verifier) VerifyEnvelope(
	ctx context.Context,
	envelope *operationDomain.Envelope,
	now time.Time,
) (*verificationDomain.Result, error) {
	if envelope == nil || envelope.Signed.Statement == nil {
		return nil, operationDomain.ErrInvalidEnvelope
	}
	if len(envelope.Requests) == 0 {
		return nil, errors.Field(operationDomain.ErrInvalidEnvelope, "requests", "must not be empty")
	}
	if envelope.SessionKey != envelope.Signed.Statement.DelegateKey {
		return nil, operationDomain.ErrSessionKeyMismatch
	}

	publicKey, err := envelope.SessionPublicKey()
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return nil, errors.Field(operationDomain.ErrSessionKeyMismatch, "session_key", "not an ed25519 public key")
	}
	message, err := envelope.SigningBytes()
	if err != nil {
		return nil, errors.Wrap(operationDomain.ErrInvalidEnvelope, err.Error())
	}
	if !ed25519.Verify(publicKey, message, envelope.Signature) {
		return nil, errors.Wrap(signerDomain.ErrSignatureInvalid, "envelope signature")
	}

	if now.Before(envelope.IssuedAt) || !now.Before(envelope.ExpiresAt) {
		return nil, operationDomain.ErrEnvelopeExpired
	}

	result, err := v.VerifyStatement(ctx, &envelope.Signed, envelope.Requests, now)
	if err != nil {
		return nil, err
	}

	if v.ledger != nil && envelope.Signed.Delegation != nil {
		if err := v.ledger.Consume(result.GrantID, envelope.Signed.Delegation.Scope, now); err != nil {
			v.logger.WarnContext(ctx, "delegation quota exceeded",
				slog.String("grant_id", result.GrantID),
				slog.String("subject", result.Subject),
			)
			return nil, errors.Wrapf(err, "grant %s", result.GrantID)
		}
	}

	v.logger.DebugContext(ctx, "envelope verified",
		slog.String("envelope_id", envelope.ID.String()),
		slog.String("operation", string(envelope.Operation)),
		slog.String("subject", result.Subject),
	)
	return result, nil
}
