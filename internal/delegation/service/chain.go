package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	capabilityDomain "github.com/allisson/sessionsig/internal/capability/domain"
	delegationDomain "github.com/allisson/sessionsig/internal/delegation/domain"
	"github.com/allisson/sessionsig/internal/errors"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	signerService "github.com/allisson/sessionsig/internal/signer/service"
)

// IssueInput holds the fields an issuer chooses when delegating.
type IssueInput struct {
	// Delegatees restricts who may nest the grant. Empty means anyone.
	Delegatees            []string
	MaxUses               uint64
	CapacityTokenID       string
	RequestsPerKilosecond uint64
	// Abilities optionally restricts the abilities a session may claim under the grant.
	Abilities []resourceDomain.AbilityRequest
	Expiry    time.Time
	// Nonce is generated when empty.
	Nonce string
}

// Issue builds and signs a grant with signer as the issuer. Address
// delegatees are normalized to their checksummed form.
func Issue(ctx context.Context, signer signerService.Signer, input IssueInput) (*delegationDomain.Grant, error) {
	if input.Expiry.IsZero() {
		return nil, errors.Field(delegationDomain.ErrInvalidGrant, "expiry", "must be set")
	}

	issuer, err := signer.Subject(ctx)
	if err != nil {
		return nil, err
	}

	delegatees := make([]string, 0, len(input.Delegatees))
	for _, delegatee := range input.Delegatees {
		normalized, err := normalizeSubject(delegatee)
		if err != nil {
			return nil, errors.Field(delegationDomain.ErrInvalidGrant, "delegatees", err.Error())
		}
		delegatees = append(delegatees, normalized)
	}

	for _, ability := range input.Abilities {
		if _, err := resourceDomain.NewAbilityRequest(ability.Resource, ability.Ability); err != nil {
			return nil, err
		}
	}

	nonce := input.Nonce
	if nonce == "" {
		nonce, err = randomNonce()
		if err != nil {
			return nil, err
		}
	}

	grant := &delegationDomain.Grant{
		Issuer:     issuer,
		Delegatees: delegatees,
		Scope: delegationDomain.Scope{
			MaxUses:               input.MaxUses,
			CapacityTokenID:       input.CapacityTokenID,
			RequestsPerKilosecond: input.RequestsPerKilosecond,
			Abilities:             input.Abilities,
		},
		Expiry: capabilityDomain.NormalizeTime(input.Expiry),
		Nonce:  nonce,
	}

	canonical, err := CanonicalBytes(grant)
	if err != nil {
		return nil, err
	}
	signature, err := signer.Sign(ctx, canonical)
	if err != nil {
		return nil, err
	}
	grant.Signature = signature

	return grant, nil
}

// VerifyGrant checks that grant was signed by issuer and has not expired at now.
func VerifyGrant(grant *delegationDomain.Grant, issuer string, now time.Time) error {
	if grant == nil {
		return errors.Field(delegationDomain.ErrInvalidGrant, "grant", "missing")
	}
	if !signerService.SameSubject(grant.Issuer, issuer) {
		return errors.Wrap(delegationDomain.ErrDelegationSignatureInvalid, "grant names a different issuer")
	}

	canonical, err := CanonicalBytes(grant)
	if err != nil {
		return err
	}
	if err := signerService.Verify(issuer, canonical, grant.Signature); err != nil {
		return errors.Wrap(delegationDomain.ErrDelegationSignatureInvalid, err.Error())
	}

	if grant.Expired(now) {
		return errors.Wrap(
			delegationDomain.ErrExpiredDelegation,
			fmt.Sprintf("expired at %s", capabilityDomain.FormatTime(grant.Expiry)),
		)
	}
	return nil
}

// AllowsDelegatee reports whether subject may nest grant.
func AllowsDelegatee(grant *delegationDomain.Grant, subject string) bool {
	if len(grant.Delegatees) == 0 {
		return true
	}
	for _, delegatee := range grant.Delegatees {
		if signerService.SameSubject(delegatee, subject) {
			return true
		}
	}
	return false
}

// Attach returns a copy of statement that references grant as its proof, with
// the abilities narrowed to those the grant allows. The grant itself is never
// modified or re-signed.
func Attach(
	statement *capabilityDomain.Statement,
	grant *delegationDomain.Grant,
) (*capabilityDomain.Statement, error) {
	if statement == nil {
		return nil, errors.Field(capabilityDomain.ErrInvalidStatement, "statement", "missing")
	}
	if grant == nil {
		return nil, errors.Field(delegationDomain.ErrInvalidGrant, "grant", "missing")
	}
	if len(statement.Proofs) > 0 {
		return nil, delegationDomain.ErrDelegationAlreadyAttached
	}
	if !AllowsDelegatee(grant, statement.Subject) {
		return nil, delegationDomain.ErrDelegationAudienceMismatch
	}

	abilities := Restrict(statement.Abilities, grant.Scope.Abilities)
	if len(abilities) == 0 {
		return nil, errors.Wrap(capabilityDomain.ErrEmptyAbilitySet, "no requested ability is allowed by the delegation")
	}

	id, err := GrantID(grant)
	if err != nil {
		return nil, err
	}

	attached := statement.Clone()
	attached.Abilities = abilities
	attached.Proofs = []string{id}
	return attached, nil
}

// Restrict intersects requested with allowed. A requested ability covered by
// an allowed one is kept as is; a requested ability that covers narrower
// allowed ones is replaced by them; anything else is dropped. An empty allowed
// list leaves requested unchanged.
func Restrict(requested, allowed []resourceDomain.AbilityRequest) []resourceDomain.AbilityRequest {
	if len(allowed) == 0 {
		return append([]resourceDomain.AbilityRequest(nil), requested...)
	}

	seen := make(map[string]struct{}, len(requested))
	result := make([]resourceDomain.AbilityRequest, 0, len(requested))
	add := func(ability resourceDomain.AbilityRequest) {
		key := ability.String()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		result = append(result, ability)
	}

	for _, ability := range requested {
		if resourceDomain.CoveredBy(ability, allowed) {
			add(ability)
			continue
		}
		for _, limit := range allowed {
			if resourceDomain.Covers(ability, limit) {
				add(limit)
			}
		}
	}
	return result
}

// WithinScope reports whether every ability of statement is allowed by grant.
func WithinScope(statement *capabilityDomain.Statement, grant *delegationDomain.Grant) bool {
	if len(grant.Scope.Abilities) == 0 {
		return true
	}
	_, missing := resourceDomain.Uncovered(grant.Scope.Abilities, statement.Abilities)
	return !missing
}

func normalizeSubject(subject string) (string, error) {
	if _, err := signerService.ParseEd25519Subject(subject); err == nil {
		return subject, nil
	}
	return signerService.ChecksumAddress(subject)
}

func randomNonce() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
