package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/sessionsig/internal/errors"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
	verificationDomain "github.com/allisson/sessionsig/internal/verification/domain"
	verificationMocks "github.com/allisson/sessionsig/internal/verification/service/mocks"
)

// createSessionJSON runs create-session with the test root key and returns its json output.
func createSessionJSON(t *testing.T, request string, delegation []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	err := RunCreateSession(
		context.Background(),
		newAuthority(t, rootSigner(t)),
		discardLogger(),
		IOTuple{Writer: &out},
		[]byte(request),
		delegation,
		"json",
	)
	require.NoError(t, err)
	return out.Bytes()
}

func TestRunVerifySession(t *testing.T) {
	ctx := context.Background()
	created := createSessionJSON(t, sessionRequest, nil)

	t.Run("Success_DefaultsToStatementAbilities", func(t *testing.T) {
		var out bytes.Buffer
		err := RunVerifySession(ctx, newVerifier(), discardLogger(), IOTuple{Writer: &out},
			created, nil, time.Time{}, "text")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Session is valid")
		assert.Contains(t, out.String(), "Ability:     lit-pkp://*#pkp-signing")
	})

	t.Run("Success_BareSignedStatement", func(t *testing.T) {
		var wrapped createdSession
		require.NoError(t, json.Unmarshal(created, &wrapped))
		bare, err := json.Marshal(wrapped.Signed)
		require.NoError(t, err)

		var out bytes.Buffer
		err = RunVerifySession(ctx, newVerifier(), discardLogger(), IOTuple{Writer: &out},
			bare, nil, time.Time{}, "json")
		require.NoError(t, err)

		var result verificationDomain.Result
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, rootAddress, result.Subject)
	})

	t.Run("Success_SpecificKeyUnderWildcard", func(t *testing.T) {
		required, err := ParseAbilityFlags([]string{"lit-pkp://0xKEY#pkp-signing"})
		require.NoError(t, err)

		err = RunVerifySession(ctx, newVerifier(), discardLogger(), IOTuple{Writer: &bytes.Buffer{}},
			created, required, time.Time{}, "text")
		assert.NoError(t, err)
	})

	t.Run("Error_AbilityNotCovered", func(t *testing.T) {
		required, err := ParseAbilityFlags([]string{"lit-litaction://QmHash#lit-action-execution"})
		require.NoError(t, err)

		err = RunVerifySession(ctx, newVerifier(), discardLogger(), IOTuple{Writer: &bytes.Buffer{}},
			created, required, time.Time{}, "text")
		require.Error(t, err)
		assert.True(t, errors.Is(err, verificationDomain.ErrAbilityNotCovered))
	})

	t.Run("Error_Expired", func(t *testing.T) {
		err := RunVerifySession(ctx, newVerifier(), discardLogger(), IOTuple{Writer: &bytes.Buffer{}},
			created, nil, time.Now().Add(2*time.Hour), "text")
		require.Error(t, err)
		assert.True(t, errors.Is(err, sessionDomain.ErrExpiredSession))
	})

	t.Run("Error_TamperedStatement", func(t *testing.T) {
		var wrapped createdSession
		require.NoError(t, json.Unmarshal(created, &wrapped))
		wrapped.Signed.Statement.Nonce = "forged"
		tampered, err := json.Marshal(wrapped)
		require.NoError(t, err)

		err = RunVerifySession(ctx, newVerifier(), discardLogger(), IOTuple{Writer: &bytes.Buffer{}},
			tampered, nil, time.Time{}, "text")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	})

	t.Run("Error_NotAStatement", func(t *testing.T) {
		verifier := &verificationMocks.MockVerifier{}
		err := RunVerifySession(ctx, verifier, discardLogger(), IOTuple{Writer: &bytes.Buffer{}},
			[]byte(`{"hello":"world"}`), nil, time.Time{}, "text")
		require.Error(t, err)
		verifier.AssertNotCalled(t, "VerifyStatement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_MalformedJSON", func(t *testing.T) {
		err := RunVerifySession(ctx, &verificationMocks.MockVerifier{}, discardLogger(),
			IOTuple{Writer: &bytes.Buffer{}}, []byte("{"), nil, time.Time{}, "text")
		assert.Error(t, err)
	})

	t.Run("Success_AtIsPassedInUTC", func(t *testing.T) {
		at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
		verifier := &verificationMocks.MockVerifier{}
		verifier.On("VerifyStatement", ctx, mock.Anything, mock.Anything, at.UTC()).
			Return(&verificationDomain.Result{
				Subject:   rootAddress,
				Abilities: []resourceDomain.AbilityRequest{},
			}, nil)

		err := RunVerifySession(ctx, verifier, discardLogger(), IOTuple{Writer: &bytes.Buffer{}},
			created, nil, at, "text")
		require.NoError(t, err)
		verifier.AssertExpectations(t)
	})
}
