package service

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/allisson/sessionsig/internal/errors"
	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
)

// LocalKeySigner signs with an in-process secp256k1 key using EIP-191 personal_sign.
type LocalKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalKeySigner wraps an existing secp256k1 private key.
func NewLocalKeySigner(key *ecdsa.PrivateKey) *LocalKeySigner {
	return &LocalKeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// NewLocalKeySignerFromHex parses a hex encoded private key, with or without a 0x prefix.
func NewLocalKeySignerFromHex(hexKey string) (*LocalKeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("invalid private key: %v", err))
	}
	return NewLocalKeySigner(key), nil
}

// GenerateLocalKeySigner creates a signer with a freshly generated key.
func GenerateLocalKeySigner() (*LocalKeySigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewLocalKeySigner(key), nil
}

// Kind returns LocalKeyKind.
func (s *LocalKeySigner) Kind() signerDomain.Kind {
	return signerDomain.LocalKeyKind
}

// Address returns the EIP-55 checksummed address of the key.
func (s *LocalKeySigner) Address() string {
	return s.address.Hex()
}

// PrivateKeyHex returns the 0x prefixed hex encoding of the private key.
func (s *LocalKeySigner) PrivateKeyHex() string {
	return "0x" + hex.EncodeToString(crypto.FromECDSA(s.key))
}

// Subject returns the checksummed address.
func (s *LocalKeySigner) Subject(ctx context.Context) (string, error) {
	return s.address.Hex(), nil
}

// Sign returns a 65-byte [R || S || V] personal_sign signature with V in {27, 28}.
func (s *LocalKeySigner) Sign(ctx context.Context, message []byte) (signerDomain.Signature, error) {
	if err := ctx.Err(); err != nil {
		return signerDomain.Signature{}, err
	}

	value, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return signerDomain.Signature{}, fmt.Errorf("failed to sign message: %w", err)
	}
	value[crypto.RecoveryIDOffset] += 27

	return signerDomain.Signature{
		Algorithm: signerDomain.EthPersonalSign,
		Value:     value,
		Signer:    s.address.Hex(),
	}, nil
}
