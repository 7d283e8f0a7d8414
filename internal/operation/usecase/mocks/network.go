// Package mocks provides mock implementations of the operation interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	operationDomain "github.com/allisson/sessionsig/internal/operation/domain"
)

// MockNetwork is a mock implementation of Network for testing.
type MockNetwork struct {
	mock.Mock
}

// ExecuteCode mocks the ExecuteCode method of Network.
func (m *MockNetwork) ExecuteCode(
	ctx context.Context,
	envelope *operationDomain.Envelope,
	req *operationDomain.ExecuteCodeRequest,
) (*operationDomain.ExecuteCodeResponse, error) {
	args := m.Called(ctx, envelope, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operationDomain.ExecuteCodeResponse), args.Error(1)
}

// SignWithPKP mocks the SignWithPKP method of Network.
func (m *MockNetwork) SignWithPKP(
	ctx context.Context,
	envelope *operationDomain.Envelope,
	req *operationDomain.PKPSignRequest,
) (*operationDomain.PKPSignResponse, error) {
	args := m.Called(ctx, envelope, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operationDomain.PKPSignResponse), args.Error(1)
}

// DecryptionKey mocks the DecryptionKey method of Network.
func (m *MockNetwork) DecryptionKey(
	ctx context.Context,
	envelope *operationDomain.Envelope,
	req *operationDomain.DecryptionKeyRequest,
) (*operationDomain.DecryptionKeyResponse, error) {
	args := m.Called(ctx, envelope, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operationDomain.DecryptionKeyResponse), args.Error(1)
}
