package usecase

import (
	"context"
	"time"

	"github.com/allisson/sessionsig/internal/metrics"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
)

// authorityWithMetrics decorates Authority with metrics instrumentation.
type authorityWithMetrics struct {
	next    Authority
	metrics metrics.BusinessMetrics
}

// NewAuthorityWithMetrics wraps an Authority with metrics recording.
func NewAuthorityWithMetrics(authority Authority, m metrics.BusinessMetrics) Authority {
	return &authorityWithMetrics{
		next:    authority,
		metrics: m,
	}
}

// Authorize records metrics for session authorization.
func (a *authorityWithMetrics) Authorize(ctx context.Context, req *Request) (*sessionDomain.Session, error) {
	start := time.Now()
	session, err := a.next.Authorize(ctx, req)

	metrics.Observe(ctx, a.metrics, "session", "session_authorize", start, metrics.StatusOf(err))

	return session, err
}

// Reuse records metrics for session reuse, tagging whether the existing session was kept.
func (a *authorityWithMetrics) Reuse(
	ctx context.Context,
	existing *sessionDomain.Session,
	req *Request,
) (*sessionDomain.Session, error) {
	start := time.Now()
	session, err := a.next.Reuse(ctx, existing, req)

	status := metrics.StatusOf(err)
	if err == nil && existing != nil && session == existing {
		status = "reused"
	}
	metrics.Observe(ctx, a.metrics, "session", "session_reuse", start, status)

	return session, err
}
