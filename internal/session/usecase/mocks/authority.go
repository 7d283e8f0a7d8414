// Package mocks provides mock implementations of the session use case interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
	sessionUseCase "github.com/allisson/sessionsig/internal/session/usecase"
)

// MockAuthority is a mock implementation of Authority for testing.
type MockAuthority struct {
	mock.Mock
}

// Authorize mocks the Authorize method of Authority.
func (m *MockAuthority) Authorize(
	ctx context.Context,
	req *sessionUseCase.Request,
) (*sessionDomain.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionDomain.Session), args.Error(1)
}

// Reuse mocks the Reuse method of Authority.
func (m *MockAuthority) Reuse(
	ctx context.Context,
	existing *sessionDomain.Session,
	req *sessionUseCase.Request,
) (*sessionDomain.Session, error) {
	args := m.Called(ctx, existing, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionDomain.Session), args.Error(1)
}
