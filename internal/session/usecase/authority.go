package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	capabilityDomain "github.com/allisson/sessionsig/internal/capability/domain"
	capabilityService "github.com/allisson/sessionsig/internal/capability/service"
	delegationService "github.com/allisson/sessionsig/internal/delegation/service"
	"github.com/allisson/sessionsig/internal/errors"
	"github.com/allisson/sessionsig/internal/freshness"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
	signerService "github.com/allisson/sessionsig/internal/signer/service"
)

// Config holds the authority policy.
type Config struct {
	// DefaultLifetime is used when a request does not set one.
	DefaultLifetime time.Duration
	// RefreshMargin is the minimum remaining lifetime for Reuse to keep a session.
	RefreshMargin time.Duration
	// MaxRetries bounds how many times an unavailable signer is retried.
	MaxRetries int
	// RetryBackoff is the wait before the first retry. The n-th retry waits n times as long.
	RetryBackoff time.Duration
}

// Option configures an authority.
type Option func(*authority)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *authority) {
		a.now = now
	}
}

// WithTransitionObserver registers a callback invoked on each state transition.
func WithTransitionObserver(observer TransitionObserver) Option {
	return func(a *authority) {
		a.observer = observer
	}
}

type authority struct {
	builder  *capabilityService.Builder
	signer   signerService.Signer
	nonces   freshness.NonceSource
	config   Config
	logger   *slog.Logger
	now      func() time.Time
	observer TransitionObserver
}

// NewAuthority creates an Authority that signs with signer.
func NewAuthority(
	builder *capabilityService.Builder,
	signer signerService.Signer,
	nonces freshness.NonceSource,
	config Config,
	logger *slog.Logger,
	opts ...Option,
) Authority {
	a := &authority{
		builder: builder,
		signer:  signer,
		nonces:  nonces,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// machine tracks the state of one authorization attempt.
type machine struct {
	authority *authority
	id        uuid.UUID
	state     sessionDomain.State
}

func (m *machine) transition(to sessionDomain.State) {
	from := m.state
	m.state = to
	m.authority.logger.Debug("session state transition",
		slog.String("session_id", m.id.String()),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
	if m.authority.observer != nil {
		m.authority.observer(m.id.String(), from, to)
	}
}

// Authorize runs Uninitialized -> AwaitingStatement -> Signing -> Active. An
// unavailable signer sends the machine back to AwaitingStatement with a fresh
// nonce until MaxRetries is exhausted. A rejection, a cancellation or any
// other failure aborts to Uninitialized and zeroes the session key.
func (a *authority) Authorize(ctx context.Context, req *Request) (*sessionDomain.Session, error) {
	if req == nil {
		return nil, errors.Field(errors.ErrInvalidInput, "request", "missing")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	m := &machine{authority: a, id: id, state: sessionDomain.StateUninitialized}

	key, err := sessionDomain.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	m.transition(sessionDomain.StateAwaitingStatement)

	abort := func(err error) (*sessionDomain.Session, error) {
		key.Destroy()
		m.transition(sessionDomain.StateUninitialized)
		a.logger.Warn("session authorization aborted",
			slog.String("session_id", id.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		signed, err := a.prepare(ctx, key, req)
		if err == nil {
			m.transition(sessionDomain.StateSigning)
			var signature signerDomain.Signature
			signature, err = a.signer.Sign(ctx, signed.SignedMessage)
			if err == nil {
				if verifyErr := signerService.Verify(signed.Statement.Subject, signed.SignedMessage, signature); verifyErr != nil {
					return abort(errors.Wrap(sessionDomain.ErrAuthorizationDenied, verifyErr.Error()))
				}
				signed.Signature = signature

				session := sessionDomain.NewSession(id, key, *signed, a.now().UTC())
				m.transition(sessionDomain.StateActive)
				a.logger.Info("session authorized",
					slog.String("session_id", id.String()),
					slog.String("subject", signed.Statement.Subject),
					slog.String("signer_kind", string(a.signer.Kind())),
					slog.Int("abilities", len(signed.Statement.Abilities)),
					slog.Time("expires_at", signed.Statement.NotAfter),
				)
				return session, nil
			}
		}

		if retry, classified := a.classify(ctx, err, attempt); !retry {
			return abort(classified)
		}

		if m.state != sessionDomain.StateAwaitingStatement {
			m.transition(sessionDomain.StateAwaitingStatement)
		}
		a.logger.Info("signer unavailable, retrying",
			slog.String("session_id", id.String()),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)
		if err := a.wait(ctx, time.Duration(attempt+1)*a.config.RetryBackoff); err != nil {
			return abort(err)
		}
	}
}

// classify maps a failed attempt to its outcome. Signer errors are handled
// the same whether they come from resolving the subject or from signing: an
// unavailable signer is retried until MaxRetries is exhausted and a rejection
// becomes ErrAuthorizationDenied. Other errors are returned unchanged.
func (a *authority) classify(ctx context.Context, err error, attempt int) (bool, error) {
	switch {
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, signerDomain.ErrSigningRejected):
		return false, errors.Wrap(sessionDomain.ErrAuthorizationDenied, err.Error())
	case errors.Is(err, signerDomain.ErrSigningUnavailable):
		if attempt >= a.config.MaxRetries {
			return false, errors.Wrap(
				sessionDomain.ErrAuthorizationFailed,
				fmt.Sprintf("signer unavailable after %d attempts: %v", attempt+1, err),
			)
		}
		return true, nil
	default:
		return false, err
	}
}

// prepare builds the statement for the current attempt: a fresh nonce, the
// window, the delegation attachment and the canonical bytes to sign.
func (a *authority) prepare(
	ctx context.Context,
	key *sessionDomain.Keypair,
	req *Request,
) (*sessionDomain.SignedStatement, error) {
	subject, err := a.signer.Subject(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := a.nonces.Nonce(ctx)
	if err != nil {
		return nil, err
	}

	now := a.now()
	notBefore := req.NotBefore
	if notBefore.IsZero() {
		notBefore = now
	}
	lifetime := req.Lifetime
	if lifetime <= 0 {
		lifetime = a.config.DefaultLifetime
	}

	statement, err := a.builder.Build(capabilityService.BuildInput{
		Subject:        subject,
		DelegateKey:    key.PublicKeyHex(),
		Abilities:      req.Abilities,
		Window:         capabilityDomain.Window{NotBefore: notBefore, NotAfter: notBefore.Add(lifetime)},
		Nonce:          nonce,
		ExtraStatement: req.ExtraStatement,
	})
	if err != nil {
		return nil, err
	}

	if req.Delegation != nil {
		issuer := req.DelegationIssuer
		if issuer == "" {
			issuer = req.Delegation.Issuer
		}
		if err := delegationService.VerifyGrant(req.Delegation, issuer, now); err != nil {
			return nil, err
		}
		statement, err = delegationService.Attach(statement, req.Delegation)
		if err != nil {
			return nil, err
		}
	}

	message, err := capabilityService.Encode(statement)
	if err != nil {
		return nil, err
	}

	return &sessionDomain.SignedStatement{
		Statement:     statement,
		SignedMessage: message,
		Delegation:    req.Delegation,
	}, nil
}

func (a *authority) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reuse keeps existing when it is still usable, otherwise derives a new session.
func (a *authority) Reuse(
	ctx context.Context,
	existing *sessionDomain.Session,
	req *Request,
) (*sessionDomain.Session, error) {
	if req == nil {
		return nil, errors.Field(errors.ErrInvalidInput, "request", "missing")
	}
	if existing != nil && existing.UsableFor(a.now(), a.config.RefreshMargin, req.Abilities) {
		return existing, nil
	}

	session, err := a.Authorize(ctx, req)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Destroy()
		a.logger.Debug("replaced session",
			slog.String("previous_session_id", existing.ID.String()),
			slog.String("session_id", session.ID.String()),
		)
	}
	return session, nil
}
