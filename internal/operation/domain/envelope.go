// Package domain defines the envelopes a session signs for each remote
// operation and the operation payloads themselves.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/sessionsig/internal/codec"
	"github.com/allisson/sessionsig/internal/errors"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
)

// Operation names the remote call an envelope authorizes.
type Operation string

const (
	// ExecuteCodeOperation runs registered code.
	ExecuteCodeOperation Operation = "execute-code"
	// PKPSignOperation signs a digest with a network held key.
	PKPSignOperation Operation = "pkp-sign"
	// DecryptOperation releases the data key of a condition bound ciphertext.
	DecryptOperation Operation = "decrypt"
)

// envelopeDomainTag separates envelope signatures from statements and grants.
const envelopeDomainTag = "lit-session-envelope:v1:"

const envelopeVersion = 1

// Envelope is a single request signed by a session key. It carries the
// signed statement so the receiver can check the full chain without any
// other state.
type Envelope struct {
	ID          uuid.UUID                       `json:"id"`
	Operation   Operation                       `json:"operation"`
	Requests    []resourceDomain.AbilityRequest `json:"requests"`
	PayloadHash string                          `json:"payload_hash"`
	IssuedAt    time.Time                       `json:"issued_at"`
	ExpiresAt   time.Time                       `json:"expires_at"`
	Signed      sessionDomain.SignedStatement   `json:"signed"`
	SessionKey  string                          `json:"session_key"`
	Signature   []byte                          `json:"signature"`
}

type canonicalEnvelope struct {
	_           struct{} `cbor:",toarray"`
	Version     uint
	ID          []byte
	Operation   string
	Requests    [][2]string
	PayloadHash string
	IssuedAt    int64
	ExpiresAt   int64
	SessionKey  string
	Statement   []byte
}

// SigningBytes returns the bytes the session key signs. They bind the
// envelope to the exact signed statement it presents.
func (e *Envelope) SigningBytes() ([]byte, error) {
	if e == nil {
		return nil, ErrInvalidEnvelope
	}
	requests := make([][2]string, 0, len(e.Requests))
	for _, request := range e.Requests {
		requests = append(requests, [2]string{request.Resource.URI(), string(request.Ability)})
	}

	body, err := codec.Marshal(canonicalEnvelope{
		Version:     envelopeVersion,
		ID:          e.ID[:],
		Operation:   string(e.Operation),
		Requests:    requests,
		PayloadHash: e.PayloadHash,
		IssuedAt:    e.IssuedAt.UnixMilli(),
		ExpiresAt:   e.ExpiresAt.UnixMilli(),
		SessionKey:  e.SessionKey,
		Statement:   e.Signed.SignedMessage,
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(envelopeDomainTag), body...), nil
}

// SessionPublicKey decodes the hex session key.
func (e *Envelope) SessionPublicKey() ([]byte, error) {
	return hex.DecodeString(e.SessionKey)
}

// PayloadHash returns the hex SHA-256 of the JSON encoding of payload.
func PayloadHash(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(ErrInvalidEnvelope, err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
