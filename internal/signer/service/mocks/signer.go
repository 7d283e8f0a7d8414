// Package mocks provides mock implementations of the signer collaborators for testing.
package mocks

import (
	"context"
	"crypto/ed25519"

	"github.com/stretchr/testify/mock"

	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
)

// MockSigner is a mock implementation of Signer for testing.
type MockSigner struct {
	mock.Mock
}

// Kind mocks the Kind method of Signer.
func (m *MockSigner) Kind() signerDomain.Kind {
	args := m.Called()
	return args.Get(0).(signerDomain.Kind)
}

// Subject mocks the Subject method of Signer.
func (m *MockSigner) Subject(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Sign mocks the Sign method of Signer.
func (m *MockSigner) Sign(ctx context.Context, message []byte) (signerDomain.Signature, error) {
	args := m.Called(ctx, message)
	return args.Get(0).(signerDomain.Signature), args.Error(1)
}

// MockWallet is a mock implementation of Wallet for testing.
type MockWallet struct {
	mock.Mock
}

// Address mocks the Address method of Wallet.
func (m *MockWallet) Address(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// PersonalSign mocks the PersonalSign method of Wallet.
func (m *MockWallet) PersonalSign(ctx context.Context, address string, message []byte) ([]byte, error) {
	args := m.Called(ctx, address, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockDevice is a mock implementation of Device for testing.
type MockDevice struct {
	mock.Mock
}

// PublicKey mocks the PublicKey method of Device.
func (m *MockDevice) PublicKey(ctx context.Context) (ed25519.PublicKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ed25519.PublicKey), args.Error(1)
}

// Sign mocks the Sign method of Device.
func (m *MockDevice) Sign(ctx context.Context, message []byte) ([]byte, error) {
	args := m.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
