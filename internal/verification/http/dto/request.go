// Package dto provides data transfer objects for the verification HTTP API.
package dto

import (
	"strings"

	validation "github.com/jellydator/validation"

	operationDomain "github.com/allisson/sessionsig/internal/operation/domain"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
	customValidation "github.com/allisson/sessionsig/internal/validation"
)

// VerifySessionRequest asks the server to verify a signed statement for a set
// of required abilities.
type VerifySessionRequest struct {
	Signed   *sessionDomain.SignedStatement  `json:"signed"`
	Required []resourceDomain.AbilityRequest `json:"required"`
}

// Validate checks if the verify session request is valid.
func (r *VerifySessionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Signed, validation.Required, validation.By(validateSigned)),
		validation.Field(&r.Required, validation.Required),
	)
}

// VerifyEnvelopeRequest asks the server to verify a signed request envelope.
type VerifyEnvelopeRequest struct {
	Envelope *operationDomain.Envelope `json:"envelope"`
}

// Validate checks if the verify envelope request is valid.
func (r *VerifyEnvelopeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Envelope, validation.Required, validation.By(validateEnvelope)),
	)
}

func validateEnvelope(value any) error {
	envelope, ok := value.(*operationDomain.Envelope)
	if !ok || envelope == nil {
		return validation.NewError("validation_envelope_type", "must be an envelope")
	}
	return validation.ValidateStruct(envelope,
		validation.Field(&envelope.Requests, validation.Required),
		validation.Field(&envelope.PayloadHash, validation.Required, customValidation.HexDigest),
		validation.Field(&envelope.SessionKey, validation.Required, is64Hex),
		validation.Field(&envelope.Signature, validation.Required),
		validation.Field(&envelope.Signed, validation.By(validateSigned)),
	)
}

func validateSigned(value any) error {
	var signed *sessionDomain.SignedStatement
	switch v := value.(type) {
	case *sessionDomain.SignedStatement:
		signed = v
	case sessionDomain.SignedStatement:
		signed = &v
	}
	if signed == nil {
		return validation.NewError("validation_signed_type", "must be a signed statement")
	}
	if signed.Statement == nil {
		return validation.NewError("validation_statement_required", "statement is required")
	}
	statement := signed.Statement

	if err := validation.ValidateStruct(statement,
		validation.Field(&statement.Domain, validation.Required, customValidation.NotBlank),
		validation.Field(&statement.Subject, validation.Required, validation.By(validateSubject)),
		validation.Field(&statement.DelegateKey, validation.Required, is64Hex),
		validation.Field(&statement.Abilities, validation.Required),
		validation.Field(&statement.Nonce, validation.Required, customValidation.NoWhitespace),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(signed,
		validation.Field(&signed.SignedMessage, validation.Required),
		validation.Field(&signed.Signature, validation.By(validateSignature)),
	)
}

func validateSignature(value any) error {
	signature, ok := value.(signerDomain.Signature)
	if !ok {
		return validation.NewError("validation_signature_type", "must be a signature")
	}
	return validation.ValidateStruct(&signature,
		validation.Field(&signature.Algorithm, validation.Required,
			validation.In(signerDomain.EthPersonalSign, signerDomain.Ed25519)),
		validation.Field(&signature.Value, validation.Required),
		validation.Field(&signature.Signer, validation.Required),
	)
}

// validateSubject accepts an Ethereum address or an ed25519 subject.
func validateSubject(value any) error {
	subject, _ := value.(string)
	if key, ok := strings.CutPrefix(subject, signerDomain.Ed25519SubjectPrefix); ok {
		return validation.Validate(key, is64Hex)
	}
	return validation.Validate(subject, customValidation.EthereumAddress)
}

// is64Hex matches a hex encoded 32-byte key.
var is64Hex = customValidation.HexDigest.Error("must be a 32-byte hex key")
