package domain

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
)

func testEnvelope() *Envelope {
	issuedAt := time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)
	return &Envelope{
		ID:        uuid.MustParse("018cc251-f400-7000-8000-000000000001"),
		Operation: PKPSignOperation,
		Requests: []resourceDomain.AbilityRequest{
			resourceDomain.MustAbilityRequest(
				resourceDomain.MustMakeResource(resourceDomain.PKPSigningKind, resourceDomain.Wildcard),
				resourceDomain.PKPSigningAbility,
			),
		},
		PayloadHash: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(30 * time.Second),
		Signed:      sessionDomain.SignedStatement{SignedMessage: []byte("statement")},
		SessionKey:  "aa",
	}
}

func TestEnvelope_SigningBytes(t *testing.T) {
	t.Run("Success_DomainTagged", func(t *testing.T) {
		message, err := testEnvelope().SigningBytes()
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(message, []byte("lit-session-envelope:v1:")))
	})

	t.Run("Success_Deterministic", func(t *testing.T) {
		first, err := testEnvelope().SigningBytes()
		require.NoError(t, err)
		second, err := testEnvelope().SigningBytes()
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Success_SignatureNotCovered", func(t *testing.T) {
		unsigned, err := testEnvelope().SigningBytes()
		require.NoError(t, err)

		envelope := testEnvelope()
		envelope.Signature = []byte{1, 2, 3}
		signed, err := envelope.SigningBytes()
		require.NoError(t, err)
		assert.Equal(t, unsigned, signed)
	})

	fields := map[string]func(*Envelope){
		"operation":    func(e *Envelope) { e.Operation = DecryptOperation },
		"payload_hash": func(e *Envelope) { e.PayloadHash = "00" },
		"expires_at":   func(e *Envelope) { e.ExpiresAt = e.ExpiresAt.Add(time.Millisecond) },
		"session_key":  func(e *Envelope) { e.SessionKey = "bb" },
		"statement":    func(e *Envelope) { e.Signed.SignedMessage = []byte("other") },
		"id":           func(e *Envelope) { e.ID = uuid.MustParse("018cc251-f400-7000-8000-000000000002") },
		"requests": func(e *Envelope) {
			e.Requests = append(e.Requests, resourceDomain.MustAbilityRequest(
				resourceDomain.MustMakeResource(resourceDomain.CodeExecutionKind, "Qm1"),
				resourceDomain.CodeExecutionAbility,
			))
		},
	}
	base, err := testEnvelope().SigningBytes()
	require.NoError(t, err)
	for name, mutate := range fields {
		t.Run("Success_Binds_"+name, func(t *testing.T) {
			envelope := testEnvelope()
			mutate(envelope)
			message, err := envelope.SigningBytes()
			require.NoError(t, err)
			assert.NotEqual(t, base, message)
		})
	}

	t.Run("Error_NilEnvelope", func(t *testing.T) {
		var envelope *Envelope
		_, err := envelope.SigningBytes()
		assert.ErrorIs(t, err, ErrInvalidEnvelope)
	})
}

func TestPayloadHash(t *testing.T) {
	t.Run("Success_StableForEqualPayloads", func(t *testing.T) {
		first, err := PayloadHash(&PKPSignRequest{KeyID: "0x04ab", Digest: []byte{1}})
		require.NoError(t, err)
		second, err := PayloadHash(&PKPSignRequest{KeyID: "0x04ab", Digest: []byte{1}})
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Len(t, first, 64)
	})

	t.Run("Success_DiffersForDifferentPayloads", func(t *testing.T) {
		first, err := PayloadHash(&PKPSignRequest{KeyID: "0x04ab", Digest: []byte{1}})
		require.NoError(t, err)
		second, err := PayloadHash(&PKPSignRequest{KeyID: "0x04ab", Digest: []byte{2}})
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("Error_Unencodable", func(t *testing.T) {
		_, err := PayloadHash(make(chan int))
		assert.ErrorIs(t, err, ErrInvalidEnvelope)
	})
}
