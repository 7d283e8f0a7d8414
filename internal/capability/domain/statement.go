// Package domain defines the capability statement: the time-boxed, signed
// description of which abilities a session key may exercise on behalf of a
// subject.
package domain

import (
	"slices"
	"time"

	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
)

// TimeLayout is the timestamp layout used in canonical statements.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Window is a half-open validity interval [NotBefore, NotAfter).
type Window struct {
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
}

// Contains reports whether NotBefore <= now < NotAfter.
func (w Window) Contains(now time.Time) bool {
	return !now.Before(w.NotBefore) && now.Before(w.NotAfter)
}

// Lifetime returns NotAfter - NotBefore.
func (w Window) Lifetime() time.Duration {
	return w.NotAfter.Sub(w.NotBefore)
}

// Statement is a capability statement. Domain and ChainID are carried so a
// verifier can recompute the canonical bytes without out of band context.
// Statements are produced by the builder and treated as immutable; use Clone
// before deriving a modified copy.
type Statement struct {
	Domain         string                          `json:"domain"`
	ChainID        uint64                          `json:"chain_id"`
	Subject        string                          `json:"subject"`
	DelegateKey    string                          `json:"delegate_key"`
	Abilities      []resourceDomain.AbilityRequest `json:"abilities"`
	NotBefore      time.Time                       `json:"not_before"`
	NotAfter       time.Time                       `json:"not_after"`
	Nonce          string                          `json:"nonce"`
	ExtraStatement string                          `json:"extra_statement,omitempty"`
	Proofs         []string                        `json:"proofs,omitempty"`
}

// Window returns the statement validity window.
func (s *Statement) Window() Window {
	return Window{NotBefore: s.NotBefore, NotAfter: s.NotAfter}
}

// Clone returns a deep copy of the statement.
func (s *Statement) Clone() *Statement {
	clone := *s
	clone.Abilities = slices.Clone(s.Abilities)
	clone.Proofs = slices.Clone(s.Proofs)
	return &clone
}

// Covers reports whether every required ability is covered by the statement.
func (s *Statement) Covers(required []resourceDomain.AbilityRequest) bool {
	_, missing := resourceDomain.Uncovered(s.Abilities, required)
	return !missing
}

// FormatTime renders t in the canonical statement layout (UTC, millisecond precision).
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(TimeLayout)
}

// NormalizeTime truncates t to millisecond precision in UTC, the precision
// preserved by the canonical encoding.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
