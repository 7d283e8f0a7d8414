package service

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/allisson/sessionsig/internal/errors"
	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
)

// Verify checks that signature was produced over message by subject. It needs
// nothing but its arguments, so any remote party can run it.
func Verify(subject string, message []byte, signature signerDomain.Signature) error {
	switch signature.Algorithm {
	case signerDomain.EthPersonalSign:
		if !common.IsHexAddress(subject) {
			return errors.Wrap(signerDomain.ErrSignatureInvalid, "subject is not an address")
		}
		recovered, err := RecoverAddress(message, signature.Value)
		if err != nil {
			return err
		}
		if recovered != common.HexToAddress(subject) {
			return errors.Wrap(signerDomain.ErrSignatureInvalid, "recovered address does not match subject")
		}
		return nil

	case signerDomain.Ed25519:
		publicKey, err := ParseEd25519Subject(subject)
		if err != nil {
			return errors.Wrap(signerDomain.ErrSignatureInvalid, "subject is not an ed25519 key")
		}
		if !ed25519.Verify(publicKey, message, signature.Value) {
			return signerDomain.ErrSignatureInvalid
		}
		return nil

	default:
		return errors.Wrap(signerDomain.ErrSignatureInvalid, fmt.Sprintf("unsupported algorithm %q", signature.Algorithm))
	}
}

// RecoverAddress recovers the signer address of an EIP-191 personal_sign
// signature. Both V encodings (0/1 and 27/28) are accepted.
func RecoverAddress(message, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, errors.Wrap(signerDomain.ErrSignatureInvalid, "malformed signature")
	}

	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, signature)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	publicKey, err := crypto.SigToPub(accounts.TextHash(message), normalized)
	if err != nil {
		return common.Address{}, errors.Wrap(signerDomain.ErrSignatureInvalid, "cannot recover public key")
	}
	return crypto.PubkeyToAddress(*publicKey), nil
}

// Ed25519Subject renders an Ed25519 public key as a subject string.
func Ed25519Subject(publicKey ed25519.PublicKey) string {
	return signerDomain.Ed25519SubjectPrefix + hex.EncodeToString(publicKey)
}

// ParseEd25519Subject extracts the public key from an Ed25519 subject string.
func ParseEd25519Subject(subject string) (ed25519.PublicKey, error) {
	encoded, ok := strings.CutPrefix(subject, signerDomain.Ed25519SubjectPrefix)
	if !ok {
		return nil, signerDomain.ErrInvalidSubject
	}
	raw, err := hex.DecodeString(encoded)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, signerDomain.ErrInvalidSubject
	}
	return ed25519.PublicKey(raw), nil
}

// ChecksumAddress validates an Ethereum address and returns its EIP-55 form.
func ChecksumAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", errors.Field(signerDomain.ErrInvalidSubject, "address", fmt.Sprintf("%q is not an address", address))
	}
	return common.HexToAddress(address).Hex(), nil
}

// SameSubject reports whether a and b name the same signer. Addresses compare
// case-insensitively; any other subject compares exactly.
func SameSubject(a, b string) bool {
	if common.IsHexAddress(a) && common.IsHexAddress(b) {
		return common.HexToAddress(a) == common.HexToAddress(b)
	}
	return a == b
}
