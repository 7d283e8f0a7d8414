// Package domain defines delegation grants: credentials pre-issued by a third
// party (typically a capacity credit owner) that a session can nest as a proof
// to borrow the issuer's quota.
package domain

import (
	"time"

	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
)

// Scope limits what a grant authorizes. Zero values mean "no limit" except
// for Abilities, where an empty list means the grant does not restrict the
// abilities of the statement it is attached to.
type Scope struct {
	MaxUses               uint64                          `json:"max_uses,omitempty"`
	CapacityTokenID       string                          `json:"capacity_token_id,omitempty"`
	RequestsPerKilosecond uint64                          `json:"requests_per_kilosecond,omitempty"`
	Abilities             []resourceDomain.AbilityRequest `json:"abilities,omitempty"`
}

// Grant is a signed delegation. It is read-only once issued: any change
// invalidates IssuerSignature.
type Grant struct {
	Issuer     string                 `json:"issuer"`
	Delegatees []string               `json:"delegatees,omitempty"`
	Scope      Scope                  `json:"scope"`
	Expiry     time.Time              `json:"expiry"`
	Nonce      string                 `json:"nonce"`
	Signature  signerDomain.Signature `json:"signature"`
}

// Expired reports whether now is at or past the grant expiry.
func (g *Grant) Expired(now time.Time) bool {
	return !now.Before(g.Expiry)
}
