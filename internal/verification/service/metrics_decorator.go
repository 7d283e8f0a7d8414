package service

import (
	"context"
	"time"

	"github.com/allisson/sessionsig/internal/metrics"
	operationDomain "github.com/allisson/sessionsig/internal/operation/domain"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
	verificationDomain "github.com/allisson/sessionsig/internal/verification/domain"
)

// verifierWithMetrics decorates Verifier with metrics instrumentation.
type verifierWithMetrics struct {
	next    Verifier
	metrics metrics.BusinessMetrics
}

// NewVerifierWithMetrics wraps a Verifier with metrics recording.
func NewVerifierWithMetrics(verifier Verifier, m metrics.BusinessMetrics) Verifier {
	return &verifierWithMetrics{
		next:    verifier,
		metrics: m,
	}
}

// VerifyStatement records metrics for statement verification.
func (v *verifierWithMetrics) VerifyStatement(
	ctx context.Context,
	signed *sessionDomain.SignedStatement,
	required []resourceDomain.AbilityRequest,
	now time.Time,
) (*verificationDomain.Result, error) {
	start := time.Now()
	result, err := v.next.VerifyStatement(ctx, signed, required, now)
	v.record(ctx, "statement_verify", start, err)
	return result, err
}

// VerifyEnvelope records metrics for envelope verification.
func (v *verifierWithMetrics) VerifyEnvelope(
	ctx context.Context,
	envelope *operationDomain.Envelope,
	now time.Time,
) (*verificationDomain.Result, error) {
	start := time.Now()
	result, err := v.next.VerifyEnvelope(ctx, envelope, now)
	v.record(ctx, "envelope_verify", start, err)
	return result, err
}

func (v *verifierWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "verification", operation, status)
	v.metrics.RecordDuration(ctx, "verification", operation, time.Since(start), status)
}
