// Package domain defines sessions: a signed capability statement together
// with the ephemeral key it delegates to.
package domain

import (
	"time"

	"github.com/google/uuid"

	capabilityDomain "github.com/allisson/sessionsig/internal/capability/domain"
	delegationDomain "github.com/allisson/sessionsig/internal/delegation/domain"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
)

// SignedStatement is the public, self-contained credential a remote party
// verifies: the statement, the exact bytes that were signed, the root
// signature and the nested delegation grant, if any.
type SignedStatement struct {
	Statement     *capabilityDomain.Statement `json:"statement"`
	SignedMessage []byte                      `json:"signed_message"`
	Signature     signerDomain.Signature      `json:"signature"`
	Delegation    *delegationDomain.Grant     `json:"delegation,omitempty"`
}

// Session is an authorized session. Sessions are never extended in place; a
// new session is derived when the window ends.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Signed    SignedStatement
	key       *Keypair
}

// NewSession assembles a session from its key and signed statement.
func NewSession(id uuid.UUID, key *Keypair, signed SignedStatement, createdAt time.Time) *Session {
	return &Session{ID: id, CreatedAt: createdAt, Signed: signed, key: key}
}

// Statement returns the signed capability statement.
func (s *Session) Statement() *capabilityDomain.Statement {
	return s.Signed.Statement
}

// SessionKey returns the hex encoded public session key.
func (s *Session) SessionKey() string {
	return s.key.PublicKeyHex()
}

// State returns StateExpired once the window has ended or the key was
// destroyed, and StateActive otherwise.
func (s *Session) State(now time.Time) State {
	if s.key.Destroyed() || !now.Before(s.Signed.Statement.NotAfter) {
		return StateExpired
	}
	return StateActive
}

// Validate reports whether the session can be used at now.
func (s *Session) Validate(now time.Time) error {
	if s.key.Destroyed() {
		return ErrSessionDestroyed
	}
	statement := s.Signed.Statement
	if now.Before(statement.NotBefore) {
		return ErrSessionNotYetValid
	}
	if !now.Before(statement.NotAfter) {
		return ErrExpiredSession
	}
	return nil
}

// Covers reports whether the session authorizes every required ability.
func (s *Session) Covers(required []resourceDomain.AbilityRequest) bool {
	return s.Signed.Statement.Covers(required)
}

// UsableFor reports whether the session is valid at now, stays valid for at
// least margin, and covers required.
func (s *Session) UsableFor(now time.Time, margin time.Duration, required []resourceDomain.AbilityRequest) bool {
	if s.Validate(now) != nil {
		return false
	}
	if !now.Add(margin).Before(s.Signed.Statement.NotAfter) {
		return false
	}
	return s.Covers(required)
}

// Sign signs message with the session key.
func (s *Session) Sign(message []byte) ([]byte, error) {
	return s.key.Sign(message)
}

// Destroy zeroes the session key.
func (s *Session) Destroy() {
	s.key.Destroy()
}
