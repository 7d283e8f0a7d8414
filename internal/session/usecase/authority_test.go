package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	capabilityDomain "github.com/allisson/sessionsig/internal/capability/domain"
	capabilityService "github.com/allisson/sessionsig/internal/capability/service"
	delegationDomain "github.com/allisson/sessionsig/internal/delegation/domain"
	delegationService "github.com/allisson/sessionsig/internal/delegation/service"
	"github.com/allisson/sessionsig/internal/errors"
	freshnessMocks "github.com/allisson/sessionsig/internal/freshness/mocks"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
	signerDomain "github.com/allisson/sessionsig/internal/signer/domain"
	signerService "github.com/allisson/sessionsig/internal/signer/service"
	signerMocks "github.com/allisson/sessionsig/internal/signer/service/mocks"
)

const (
	rootKeyHex   = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	rootAddress  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	otherKeyHex  = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	otherAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func anyPKP() resourceDomain.AbilityRequest {
	return resourceDomain.MustAbilityRequest(
		resourceDomain.MustMakeResource(resourceDomain.PKPSigningKind, resourceDomain.Wildcard),
		resourceDomain.PKPSigningAbility,
	)
}

func actionAbility(id string) resourceDomain.AbilityRequest {
	return resourceDomain.MustAbilityRequest(
		resourceDomain.MustMakeResource(resourceDomain.CodeExecutionKind, id),
		resourceDomain.CodeExecutionAbility,
	)
}

func newBuilder(t *testing.T) *capabilityService.Builder {
	t.Helper()
	builder, err := capabilityService.NewBuilder(capabilityService.BuilderConfig{
		Domain:      "localhost",
		ChainID:     1,
		MaxLifetime: 24 * time.Hour,
	})
	require.NoError(t, err)
	return builder
}

func newLocalSigner(t *testing.T, hexKey string) *signerService.LocalKeySigner {
	t.Helper()
	signer, err := signerService.NewLocalKeySignerFromHex(hexKey)
	require.NoError(t, err)
	return signer
}

func testConfig() Config {
	return Config{
		DefaultLifetime: 120 * time.Second,
		RefreshMargin:   30 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    time.Millisecond,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// transitionRecorder collects state transitions for assertions.
type transitionRecorder struct {
	mu          sync.Mutex
	transitions []string
}

func (r *transitionRecorder) observe(_ string, from, to sessionDomain.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from.String()+"->"+to.String())
}

func (r *transitionRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transitions...)
}

// flakySigner fails Sign with an unavailable error a fixed number of times
// before delegating to a real signer.
type flakySigner struct {
	*signerService.LocalKeySigner
	failures int
	messages [][]byte
}

func (s *flakySigner) Sign(ctx context.Context, message []byte) (signerDomain.Signature, error) {
	s.messages = append(s.messages, message)
	if s.failures > 0 {
		s.failures--
		return signerDomain.Signature{}, errors.Wrap(signerDomain.ErrSigningUnavailable, "wallet not connected")
	}
	return s.LocalKeySigner.Sign(ctx, message)
}

// stubWallet is a Wallet whose Address call fails with addressErr.
type stubWallet struct {
	mu         sync.Mutex
	addressErr error
	calls      int
}

func (w *stubWallet) Address(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return "", w.addressErr
}

func (w *stubWallet) PersonalSign(ctx context.Context, address string, message []byte) ([]byte, error) {
	return nil, errors.Wrap(signerDomain.ErrSigningUnavailable, "not connected")
}

func (w *stubWallet) addressCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func newNonces(values ...string) *freshnessMocks.MockNonceSource {
	nonces := &freshnessMocks.MockNonceSource{}
	for _, value := range values {
		nonces.On("Nonce", mock.Anything).Return(value, nil).Once()
	}
	return nonces
}

func TestAuthority_Authorize(t *testing.T) {
	t.Run("Success_LocalKeySigner", func(t *testing.T) {
		recorder := &transitionRecorder{}
		nonces := newNonces("0xnonce1")
		authority := NewAuthority(
			newBuilder(t),
			newLocalSigner(t, rootKeyHex),
			nonces,
			testConfig(),
			discardLogger(),
			WithClock(func() time.Time { return testStart }),
			WithTransitionObserver(recorder.observe),
		)

		session, err := authority.Authorize(context.Background(), &Request{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
		})
		require.NoError(t, err)

		statement := session.Statement()
		assert.Equal(t, rootAddress, statement.Subject)
		assert.Equal(t, session.SessionKey(), statement.DelegateKey)
		assert.Equal(t, "0xnonce1", statement.Nonce)
		assert.Equal(t, testStart, statement.NotBefore)
		assert.Equal(t, testStart.Add(120*time.Second), statement.NotAfter)
		assert.Equal(t, sessionDomain.StateActive, session.State(testStart))

		expected, err := capabilityService.Encode(statement)
		require.NoError(t, err)
		assert.Equal(t, expected, session.Signed.SignedMessage)
		assert.NoError(t, signerService.Verify(rootAddress, session.Signed.SignedMessage, session.Signed.Signature))

		assert.Equal(t, []string{
			"uninitialized->awaiting_statement",
			"awaiting_statement->signing",
			"signing->active",
		}, recorder.list())
		nonces.AssertExpectations(t)
	})

	t.Run("Success_RequestLifetimeAndNotBefore", func(t *testing.T) {
		authority := NewAuthority(
			newBuilder(t),
			newLocalSigner(t, rootKeyHex),
			newNonces("n"),
			testConfig(),
			discardLogger(),
			WithClock(func() time.Time { return testStart }),
		)

		start := testStart.Add(time.Hour)
		session, err := authority.Authorize(context.Background(), &Request{
			Abilities:      []resourceDomain.AbilityRequest{anyPKP()},
			Lifetime:       10 * time.Minute,
			NotBefore:      start,
			ExtraStatement: "Sign in to the demo",
		})
		require.NoError(t, err)
		assert.Equal(t, start, session.Statement().NotBefore)
		assert.Equal(t, start.Add(10*time.Minute), session.Statement().NotAfter)
		assert.Contains(t, string(session.Signed.SignedMessage), "Sign in to the demo")
	})

	t.Run("Success_RetriesUnavailableSignerWithFreshNonce", func(t *testing.T) {
		recorder := &transitionRecorder{}
		signer := &flakySigner{LocalKeySigner: newLocalSigner(t, rootKeyHex), failures: 1}
		nonces := newNonces("n1", "n2")
		authority := NewAuthority(
			newBuilder(t),
			signer,
			nonces,
			testConfig(),
			discardLogger(),
			WithClock(func() time.Time { return testStart }),
			WithTransitionObserver(recorder.observe),
		)

		session, err := authority.Authorize(context.Background(), &Request{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
		})
		require.NoError(t, err)

		require.Len(t, signer.messages, 2)
		assert.Contains(t, string(signer.messages[0]), "Nonce: n1")
		assert.Contains(t, string(signer.messages[1]), "Nonce: n2")
		assert.Equal(t, "n2", session.Statement().Nonce)
		assert.Equal(t, []string{
			"uninitialized->awaiting_statement",
			"awaiting_statement->signing",
			"signing->awaiting_statement",
			"awaiting_statement->signing",
			"signing->active",
		}, recorder.list())
		nonces.AssertExpectations(t)
	})

	t.Run("Success_WithDelegation", func(t *testing.T) {
		issuer := newLocalSigner(t, otherKeyHex)
		grant, err := delegationService.Issue(context.Background(), issuer, delegationService.IssueInput{
			Delegatees: []string{rootAddress},
			MaxUses:    5,
			Abilities:  []resourceDomain.AbilityRequest{actionAbility("QmAction")},
			Expiry:     testStart.Add(time.Hour),
		})
		require.NoError(t, err)

		authority := NewAuthority(
			newBuilder(t),
			newLocalSigner(t, rootKeyHex),
			newNonces("n"),
			testConfig(),
			discardLogger(),
			WithClock(func() time.Time { return testStart }),
		)

		session, err := authority.Authorize(context.Background(), &Request{
			Abilities: []resourceDomain.AbilityRequest{
				resourceDomain.MustAbilityRequest(
					resourceDomain.MustMakeResource(resourceDomain.CodeExecutionKind, resourceDomain.Wildcard),
					resourceDomain.CodeExecutionAbility,
				),
			},
			Delegation:       grant,
			DelegationIssuer: otherAddress,
		})
		require.NoError(t, err)

		id, err := delegationService.GrantID(grant)
		require.NoError(t, err)
		assert.Equal(t, []string{id}, session.Statement().Proofs)
		assert.Equal(t, []resourceDomain.AbilityRequest{actionAbility("QmAction")}, session.Statement().Abilities)
		assert.Same(t, grant, session.Signed.Delegation)
	})

	t.Run("Error_NilRequest", func(t *testing.T) {
		authority := NewAuthority(newBuilder(t), &signerMocks.MockSigner{}, newNonces(), testConfig(), discardLogger())

		session, err := authority.Authorize(context.Background(), nil)
		assert.Nil(t, session)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("Error_EmptyAbilitySet", func(t *testing.T) {
		recorder := &transitionRecorder{}
		signer := &signerMocks.MockSigner{}
		signer.On("Subject", mock.Anything).Return(rootAddress, nil)
		authority := NewAuthority(
			newBuilder(t),
			signer,
			newNonces("n"),
			testConfig(),
			discardLogger(),
			WithTransitionObserver(recorder.observe),
		)

		session, err := authority.Authorize(context.Background(), &Request{})
		assert.Nil(t, session)
		assert.ErrorIs(t, err, capabilityDomain.ErrEmptyAbilitySet)
		signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
		assert.Equal(t, []string{
			"uninitialized->awaiting_statement",
			"awaiting_statement->uninitialized",
		}, recorder.list())
	})

	t.Run("Error_LifetimeExceedsMaximum", func(t *testing.T) {
		authority := NewAuthority(
			newBuilder(t),
			newLocalSigner(t, rootKeyHex),
			newNonces("n"),
			testConfig(),
			discardLogger(),
		)

		_, err := authority.Authorize(context.Background(), &Request{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
			Lifetime:  48 * time.Hour,
		})
		assert.ErrorIs(t, err, capabilityDomain.ErrInvalidWindow)
	})

	t.Run("Error_SigningRejected", func(t *testing.T) {
		recorder := &transitionRecorder{}
		signer := &signerMocks.MockSigner{}
		signer.On("Subject", mock.Anything).Return(rootAddress, nil)
		signer.On("Sign", mock.Anything, mock.Anything).
			Return(signerDomain.Signature{}, errors.Wrap(signerDomain.ErrSigningRejected, "user declined")).
			Once()
		authority := NewAuthority(
			newBuilder(t),
			signer,
			newNonces("n"),
			testConfig(),
			discardLogger(),
			WithTransitionObserver(recorder.observe),
		)

		session, err := authority.Authorize(context.Background(), &Request{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
		})
		assert.Nil(t, session)
		assert.ErrorIs(t, err, sessionDomain.ErrAuthorizationDenied)
		assert.ErrorIs(t, err, errors.ErrForbidden)
		assert.Equal(t, []string{
			"uninitialized->awaiting_statement",
			"awaiting_statement->signing",
			"signing->uninitialized",
		}, recorder.list())
		signer.AssertExpectations(t)
	})

	t.Run("Error_SignatureDoesNotVerify", func(t *testing.T) {
		signer := &signerMocks.MockSigner{}
		signer.On("Subject", mock.Anything).Return(rootAddress, nil)
		signer.On("Sign", mock.Anything, mock.Anything).Return(signerDomain.Signature{
			Algorithm: signerDomain.EthPersonalSign,
			Value:     make([]byte, 65),
			Signer:    rootAddress,
		}, nil)
		signer.On("Kind").Return(signerDomain.ExternalWalletKind).Maybe()
		authority := NewAuthority(newBuilder(t), signer, newNonces("n"), testConfig(), discardLogger())

		_, err := authority.Authorize(context.Background(), &Request{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
		})
		assert.ErrorIs(t, err, sessionDomain.ErrAuthorizationDenied)
	})

	t.Run("Error_RetriesExhausted", func(t *testing.T) {
		signer := &signerMocks.MockSigner{}
		signer.On("Subject", mock.Anything).Return(rootAddress, nil)
		signer.On("Sign", mock.Anything, mock.Anything).
			Return(signerDomain.Signature{}, errors.Wrap(signerDomain.ErrSigningUnavailable, "timeout"))
		authority := NewAuthority(newBuilder(t), signer, newNonces("n1", "n2", "n3"), testConfig(), discardLogger())

		session, err := authority.Authorize(context.Background(), &Request{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
		})
		assert.Nil(t, session)
		assert.ErrorIs(t, err, sessionDomain.ErrAuthorizationFailed)
		assert.ErrorIs(t, err, errors.ErrUnavailable)
		signer.AssertNumberOfCalls(t, "Sign", 3)
	})

	t.Run("Error_WalletOfflineRetriesThenFails", func(t *testing.T) {
		recorder := &transitionRecorder{}
		wallet := &stubWallet{addressErr: errors.Wrap(signerDomain.ErrSigningUnavailable, "wallet offline")}
		nonces := &freshnessMocks.MockNonceSource{}
		authority := NewAuthority(
			newBuilder(t),
			signerService.NewExternalWalletSigner(wallet, time.Second),
			nonces,
			testConfig(),
			discardLogger(),
			WithTransitionObserver(recorder.observe),
		)

		session, err := authority.Authorize(context.Background(), &Request{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
		})
		assert.Nil(t, session)
		assert.ErrorIs(t, err, sessionDomain.ErrAuthorizationFailed)
		assert.ErrorIs(t, err, errors.ErrUnavailable)
		assert.Equal(t, 3, wallet.addressCalls())
		nonces.AssertNotCalled(t, "Nonce", mock.Anything)
		assert.Equal(t, []string{
			"uninitialized->awaiting_statement",
			"awaiting_statement->uninitialized",
		}, recorder.list())
	})

	t.Run("Error_WalletRejectsConnect", func(t *testing.T) {
		wallet := &stubWallet{addressErr: errors.Wrap(signerDomain.ErrSigningRejected, "user declined connect")}
		nonces := &freshnessMocks.MockNonceSource{}
		authority := NewAuthority(
			newBuilder(t),
			signerService.NewExternalWalletSigner(wallet, time.Second),
			nonces,
			testConfig(),
			discardLogger(),
		)

		session, err := authority.Authorize(context.Background(), &Request{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
		})
		assert.Nil(t, session)
		assert.ErrorIs(t, err, sessionDomain.ErrAuthorizationDenied)
		assert.ErrorIs(t, err, errors.ErrForbidden)
		assert.Equal(t, 1, wallet.addressCalls())
		nonces.AssertNotCalled(t, "Nonce", mock.Anything)
	})

	t.Run("Error_CancelledDuringBackoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		signer := &signerMocks.MockSigner{}
		signer.On("Subject", mock.Anything).Return(rootAddress, nil)
		signer.On("Sign", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(signerDomain.Signature{}, errors.Wrap(signerDomain.ErrSigningUnavailable, "timeout"))
		authority := NewAuthority(newBuilder(t), signer, newNonces("n"), testConfig(), discardLogger())

		_, err := authority.Authorize(ctx, &Request{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
		})
		assert.ErrorIs(t, err, context.Canceled)
		signer.AssertNumberOfCalls(t, "Sign", 1)
	})

	t.Run("Error_NonceUnavailable", func(t *testing.T) {
		signer := &signerMocks.MockSigner{}
		signer.On("Subject", mock.Anything).Return(rootAddress, nil)
		nonces := &freshnessMocks.MockNonceSource{}
		nonces.On("Nonce", mock.Anything).Return("", errors.Wrap(errors.ErrUnavailable, "no checkpoint"))
		authority := NewAuthority(newBuilder(t), signer, nonces, testConfig(), discardLogger())

		_, err := authority.Authorize(context.Background(), &Request{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
		})
		assert.ErrorIs(t, err, errors.ErrUnavailable)
		signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
	})

	t.Run("Error_ExpiredDelegation", func(t *testing.T) {
		issuer := newLocalSigner(t, otherKeyHex)
		grant, err := delegationService.Issue(context.Background(), issuer, delegationService.IssueInput{
			Abilities: []resourceDomain.AbilityRequest{anyPKP()},
			Expiry:    testStart.Add(-time.Second),
		})
		require.NoError(t, err)

		authority := NewAuthority(
			newBuilder(t),
			newLocalSigner(t, rootKeyHex),
			newNonces("n"),
			testConfig(),
			discardLogger(),
			WithClock(func() time.Time { return testStart }),
		)

		_, err = authority.Authorize(context.Background(), &Request{
			Abilities:  []resourceDomain.AbilityRequest{anyPKP()},
			Delegation: grant,
		})
		assert.ErrorIs(t, err, delegationDomain.ErrExpiredDelegation)
	})

	t.Run("Error_DelegationAudienceMismatch", func(t *testing.T) {
		issuer := newLocalSigner(t, otherKeyHex)
		grant, err := delegationService.Issue(context.Background(), issuer, delegationService.IssueInput{
			Delegatees: []string{otherAddress},
			Expiry:     testStart.Add(time.Hour),
		})
		require.NoError(t, err)

		authority := NewAuthority(
			newBuilder(t),
			newLocalSigner(t, rootKeyHex),
			newNonces("n"),
			testConfig(),
			discardLogger(),
			WithClock(func() time.Time { return testStart }),
		)

		_, err = authority.Authorize(context.Background(), &Request{
			Abilities:  []resourceDomain.AbilityRequest{anyPKP()},
			Delegation: grant,
		})
		assert.ErrorIs(t, err, delegationDomain.ErrDelegationAudienceMismatch)
	})
}

func TestAuthority_Reuse(t *testing.T) {
	newAuthority := func(t *testing.T, now *time.Time, nonces ...string) Authority {
		return NewAuthority(
			newBuilder(t),
			newLocalSigner(t, rootKeyHex),
			newNonces(nonces...),
			testConfig(),
			discardLogger(),
			WithClock(func() time.Time { return *now }),
		)
	}
	req := &Request{Abilities: []resourceDomain.AbilityRequest{anyPKP()}}

	t.Run("Success_KeepsUsableSession", func(t *testing.T) {
		now := testStart
		authority := newAuthority(t, &now, "n1")

		existing, err := authority.Authorize(context.Background(), req)
		require.NoError(t, err)

		now = testStart.Add(60 * time.Second)
		reused, err := authority.Reuse(context.Background(), existing, req)
		require.NoError(t, err)
		assert.Same(t, existing, reused)
	})

	t.Run("Success_ReplacesSessionInsideRefreshMargin", func(t *testing.T) {
		now := testStart
		authority := newAuthority(t, &now, "n1", "n2")

		existing, err := authority.Authorize(context.Background(), req)
		require.NoError(t, err)

		now = testStart.Add(100 * time.Second)
		replaced, err := authority.Reuse(context.Background(), existing, req)
		require.NoError(t, err)
		assert.NotSame(t, existing, replaced)
		assert.NotEqual(t, existing.SessionKey(), replaced.SessionKey())
		assert.Equal(t, sessionDomain.StateExpired, existing.State(now))
		assert.ErrorIs(t, existing.Validate(now), sessionDomain.ErrSessionDestroyed)
	})

	t.Run("Success_ReplacesSessionMissingAbility", func(t *testing.T) {
		now := testStart
		authority := newAuthority(t, &now, "n1", "n2")

		existing, err := authority.Authorize(context.Background(), req)
		require.NoError(t, err)

		wider := &Request{Abilities: []resourceDomain.AbilityRequest{anyPKP(), actionAbility("QmAction")}}
		replaced, err := authority.Reuse(context.Background(), existing, wider)
		require.NoError(t, err)
		assert.NotSame(t, existing, replaced)
		assert.True(t, replaced.Covers(wider.Abilities))
	})

	t.Run("Success_NilExisting", func(t *testing.T) {
		now := testStart
		authority := newAuthority(t, &now, "n1")

		session, err := authority.Reuse(context.Background(), nil, req)
		require.NoError(t, err)
		assert.NotNil(t, session)
	})

	t.Run("Error_KeepsExistingWhenReplacementFails", func(t *testing.T) {
		now := testStart
		authority := newAuthority(t, &now, "n1", "n2")

		existing, err := authority.Authorize(context.Background(), req)
		require.NoError(t, err)

		now = testStart.Add(100 * time.Second)
		_, err = authority.Reuse(context.Background(), existing, &Request{})
		assert.ErrorIs(t, err, capabilityDomain.ErrEmptyAbilitySet)
		assert.NoError(t, existing.Validate(now))
	})
}

func TestAuthority_ConcurrentAuthorize(t *testing.T) {
	nonces := &freshnessMocks.MockNonceSource{}
	nonces.On("Nonce", mock.Anything).Return("n", nil)
	authority := NewAuthority(
		newBuilder(t),
		newLocalSigner(t, rootKeyHex),
		nonces,
		testConfig(),
		discardLogger(),
	)

	const workers = 8
	keys := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := authority.Authorize(context.Background(), &Request{
				Abilities:      []resourceDomain.AbilityRequest{anyPKP()},
				ExtraStatement: fmt.Sprintf("worker %d", i),
			})
			if assert.NoError(t, err) {
				keys[i] = session.SessionKey()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, workers)
	for _, key := range keys {
		assert.False(t, seen[key], "session key reused")
		assert.NotEmpty(t, key)
		seen[key] = true
	}
}
