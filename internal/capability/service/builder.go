// Package service builds capability statements and renders them to the
// canonical byte string that is signed and later recomputed by verifiers.
package service

import (
	"fmt"
	"slices"
	"strings"
	"time"

	capabilityDomain "github.com/allisson/sessionsig/internal/capability/domain"
	"github.com/allisson/sessionsig/internal/errors"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
)

// BuilderConfig holds the context shared by every statement a builder produces.
type BuilderConfig struct {
	// Domain is the origin shown to the signer on the first line of the statement.
	Domain string
	// ChainID is the chain the subject's account lives on.
	ChainID uint64
	// MaxLifetime bounds NotAfter - NotBefore.
	MaxLifetime time.Duration
}

// BuildInput holds the caller supplied fields of a statement.
type BuildInput struct {
	Subject        string
	DelegateKey    string
	Abilities      []resourceDomain.AbilityRequest
	Window         capabilityDomain.Window
	Nonce          string
	ExtraStatement string
}

// Builder produces validated capability statements.
type Builder struct {
	config BuilderConfig
}

// NewBuilder validates cfg and returns a Builder.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if err := checkLine("domain", cfg.Domain, true); err != nil {
		return nil, err
	}
	if cfg.MaxLifetime <= 0 {
		return nil, errors.Field(errors.ErrInvalidInput, "max_lifetime", "must be positive")
	}
	return &Builder{config: cfg}, nil
}

// Config returns the builder configuration.
func (b *Builder) Config() BuilderConfig {
	return b.config
}

// Build validates input and returns a new statement. Timestamps are normalized
// to UTC with millisecond precision and the ability list is copied, so later
// changes to input do not affect the statement.
func (b *Builder) Build(input BuildInput) (*capabilityDomain.Statement, error) {
	if len(input.Abilities) == 0 {
		return nil, capabilityDomain.ErrEmptyAbilitySet
	}

	notBefore := capabilityDomain.NormalizeTime(input.Window.NotBefore)
	notAfter := capabilityDomain.NormalizeTime(input.Window.NotAfter)
	if !notAfter.After(notBefore) {
		return nil, errors.Field(capabilityDomain.ErrInvalidWindow, "not_after", "must be after not_before")
	}
	if lifetime := notAfter.Sub(notBefore); lifetime > b.config.MaxLifetime {
		return nil, errors.Field(
			capabilityDomain.ErrInvalidWindow,
			"not_after",
			fmt.Sprintf("lifetime %s exceeds maximum %s", lifetime, b.config.MaxLifetime),
		)
	}

	statement := &capabilityDomain.Statement{
		Domain:         b.config.Domain,
		ChainID:        b.config.ChainID,
		Subject:        input.Subject,
		DelegateKey:    input.DelegateKey,
		Abilities:      slices.Clone(input.Abilities),
		NotBefore:      notBefore,
		NotAfter:       notAfter,
		Nonce:          input.Nonce,
		ExtraStatement: input.ExtraStatement,
	}
	if err := Validate(statement); err != nil {
		return nil, err
	}
	return statement, nil
}

// Validate checks the structural invariants the canonical encoding relies on:
// a non-empty ability set, an ordered window and single-line text fields.
// Lifetime limits are a builder policy and are not checked here.
func Validate(statement *capabilityDomain.Statement) error {
	if statement == nil {
		return errors.Field(capabilityDomain.ErrInvalidStatement, "statement", "missing")
	}
	if len(statement.Abilities) == 0 {
		return capabilityDomain.ErrEmptyAbilitySet
	}
	if !statement.NotAfter.After(statement.NotBefore) {
		return errors.Field(capabilityDomain.ErrInvalidWindow, "not_after", "must be after not_before")
	}
	for _, ability := range statement.Abilities {
		if _, err := resourceDomain.NewAbilityRequest(ability.Resource, ability.Ability); err != nil {
			return err
		}
	}

	fields := []struct {
		name     string
		value    string
		required bool
	}{
		{"domain", statement.Domain, true},
		{"subject", statement.Subject, true},
		{"delegate_key", statement.DelegateKey, true},
		{"nonce", statement.Nonce, true},
		{"extra_statement", statement.ExtraStatement, false},
	}
	for _, field := range fields {
		if err := checkLine(field.name, field.value, field.required); err != nil {
			return err
		}
	}
	for _, proof := range statement.Proofs {
		if err := checkLine("proofs", proof, true); err != nil {
			return err
		}
	}
	return nil
}

func checkLine(field, value string, required bool) error {
	if required && strings.TrimSpace(value) == "" {
		return errors.Field(capabilityDomain.ErrInvalidStatement, field, "must not be blank")
	}
	if strings.ContainsAny(value, "\r\n\u0085\u2028\u2029") {
		return errors.Field(capabilityDomain.ErrInvalidStatement, field, "must not contain line breaks")
	}
	if value != strings.TrimSpace(value) {
		return errors.Field(capabilityDomain.ErrInvalidStatement, field, "must not have leading or trailing whitespace")
	}
	return nil
}
