// Package service issues, verifies and attaches delegation grants.
package service

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/allisson/sessionsig/internal/codec"
	delegationDomain "github.com/allisson/sessionsig/internal/delegation/domain"
)

// grantDomainTag separates grant signatures from every other message the
// issuer key may sign.
const grantDomainTag = "lit-delegation-grant:v1:"

const grantVersion = 1

type canonicalGrant struct {
	_          struct{} `cbor:",toarray"`
	Version    uint
	Issuer     string
	Delegatees []string
	Scope      canonicalScope
	Expiry     int64
	Nonce      string
}

type canonicalScope struct {
	_                     struct{} `cbor:",toarray"`
	MaxUses               uint64
	CapacityTokenID       string
	RequestsPerKilosecond uint64
	Abilities             []canonicalAbility
}

type canonicalAbility struct {
	_       struct{} `cbor:",toarray"`
	URI     string
	Ability string
}

// CanonicalBytes returns the byte string the issuer signs: a domain tag
// followed by the CBOR array encoding of every grant field except the
// signature. The expiry is encoded in Unix milliseconds.
func CanonicalBytes(grant *delegationDomain.Grant) ([]byte, error) {
	if grant == nil {
		return nil, delegationDomain.ErrInvalidGrant
	}

	payload := canonicalGrant{
		Version:    grantVersion,
		Issuer:     grant.Issuer,
		Delegatees: make([]string, 0, len(grant.Delegatees)),
		Scope: canonicalScope{
			MaxUses:               grant.Scope.MaxUses,
			CapacityTokenID:       grant.Scope.CapacityTokenID,
			RequestsPerKilosecond: grant.Scope.RequestsPerKilosecond,
			Abilities:             make([]canonicalAbility, 0, len(grant.Scope.Abilities)),
		},
		Expiry: grant.Expiry.UnixMilli(),
		Nonce:  grant.Nonce,
	}
	payload.Delegatees = append(payload.Delegatees, grant.Delegatees...)
	for _, ability := range grant.Scope.Abilities {
		payload.Scope.Abilities = append(payload.Scope.Abilities, canonicalAbility{
			URI:     ability.Resource.URI(),
			Ability: string(ability.Ability),
		})
	}

	data, err := codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grant: %w", err)
	}

	buf := make([]byte, 0, len(grantDomainTag)+len(data))
	buf = append(buf, grantDomainTag...)
	buf = append(buf, data...)
	return buf, nil
}

// GrantID returns the hex BLAKE3-256 digest of the grant canonical bytes. It
// is the proof reference embedded in capability statements.
func GrantID(grant *delegationDomain.Grant) (string, error) {
	canonical, err := CanonicalBytes(grant)
	if err != nil {
		return "", err
	}
	digest := blake3.Sum256(canonical)
	return hex.EncodeToString(digest[:]), nil
}
