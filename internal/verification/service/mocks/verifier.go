// Package mocks provides mock implementations of the verification interfaces for testing.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	operationDomain "github.com/allisson/sessionsig/internal/operation/domain"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
	verificationDomain "github.com/allisson/sessionsig/internal/verification/domain"
)

// MockVerifier is a mock implementation of Verifier for testing.
type MockVerifier struct {
	mock.Mock
}

// VerifyStatement mocks the VerifyStatement method of Verifier.
func (m *MockVerifier) VerifyStatement(
	ctx context.Context,
	signed *sessionDomain.SignedStatement,
	required []resourceDomain.AbilityRequest,
	now time.Time,
) (*verificationDomain.Result, error) {
	args := m.Called(ctx, signed, required, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verificationDomain.Result), args.Error(1)
}

// VerifyEnvelope mocks the VerifyEnvelope method of Verifier.
func (m *MockVerifier) VerifyEnvelope(
	ctx context.Context,
	envelope *operationDomain.Envelope,
	now time.Time,
) (*verificationDomain.Result, error) {
	args := m.Called(ctx, envelope, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verificationDomain.Result), args.Error(1)
}
