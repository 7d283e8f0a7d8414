// Package mocks provides mock implementations of the freshness interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockNonceSource is a mock implementation of NonceSource for testing.
type MockNonceSource struct {
	mock.Mock
}

// Nonce mocks the Nonce method of NonceSource.
func (m *MockNonceSource) Nonce(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
