// Package usecase implements the session authority: the state machine that
// turns a set of requested abilities into a signed session.
package usecase

import (
	"context"
	"time"

	delegationDomain "github.com/allisson/sessionsig/internal/delegation/domain"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
)

// Request describes the session a caller wants.
type Request struct {
	// Abilities lists the resource and ability pairs the session must cover.
	Abilities []resourceDomain.AbilityRequest
	// Lifetime overrides the configured default lifetime when positive.
	Lifetime time.Duration
	// NotBefore sets the window start. The current time is used when zero.
	NotBefore time.Time
	// ExtraStatement is prepended to the human readable part of the statement.
	ExtraStatement string
	// Delegation is an optional grant to nest as a proof.
	Delegation *delegationDomain.Grant
	// DelegationIssuer is the issuer the grant must verify against. The
	// grant's own issuer field is used when empty.
	DelegationIssuer string
}

// Authority derives sessions.
type Authority interface {
	// Authorize runs the state machine to completion and returns an active session.
	Authorize(ctx context.Context, req *Request) (*sessionDomain.Session, error)

	// Reuse returns existing when it remains usable beyond the refresh margin
	// and covers req.Abilities. Otherwise it authorizes a new session and, on
	// success, destroys existing.
	Reuse(ctx context.Context, existing *sessionDomain.Session, req *Request) (*sessionDomain.Session, error)
}

// TransitionObserver is notified of every state machine transition.
type TransitionObserver func(sessionID string, from, to sessionDomain.State)
