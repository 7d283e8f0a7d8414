package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	capabilityDomain "github.com/allisson/sessionsig/internal/capability/domain"
	"github.com/allisson/sessionsig/internal/errors"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
)

const (
	testSubject     = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testDelegateKey = "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	builder, err := NewBuilder(BuilderConfig{Domain: "localhost", ChainID: 1, MaxLifetime: 24 * time.Hour})
	require.NoError(t, err)
	return builder
}

func anyPKPSigning() resourceDomain.AbilityRequest {
	return resourceDomain.MustAbilityRequest(
		resourceDomain.MustMakeResource(resourceDomain.PKPSigningKind, resourceDomain.Wildcard),
		resourceDomain.PKPSigningAbility,
	)
}

func anyCodeExecution() resourceDomain.AbilityRequest {
	return resourceDomain.MustAbilityRequest(
		resourceDomain.MustMakeResource(resourceDomain.CodeExecutionKind, resourceDomain.Wildcard),
		resourceDomain.CodeExecutionAbility,
	)
}

func validInput() BuildInput {
	return BuildInput{
		Subject:     testSubject,
		DelegateKey: testDelegateKey,
		Abilities:   []resourceDomain.AbilityRequest{anyPKPSigning()},
		Window:      capabilityDomain.Window{NotBefore: testStart, NotAfter: testStart.Add(120 * time.Second)},
		Nonce:       "abc123",
	}
}

func TestNewBuilder(t *testing.T) {
	t.Run("Error_BlankDomain", func(t *testing.T) {
		_, err := NewBuilder(BuilderConfig{Domain: " ", MaxLifetime: time.Hour})
		assert.ErrorIs(t, err, capabilityDomain.ErrInvalidStatement)
	})

	t.Run("Error_NonPositiveLifetime", func(t *testing.T) {
		_, err := NewBuilder(BuilderConfig{Domain: "localhost"})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestBuilder_Build(t *testing.T) {
	builder := newTestBuilder(t)

	t.Run("Success", func(t *testing.T) {
		statement, err := builder.Build(validInput())
		require.NoError(t, err)
		assert.Equal(t, "localhost", statement.Domain)
		assert.Equal(t, uint64(1), statement.ChainID)
		assert.Equal(t, testSubject, statement.Subject)
		assert.Equal(t, testStart, statement.NotBefore)
		assert.Equal(t, testStart.Add(120*time.Second), statement.NotAfter)
		assert.Empty(t, statement.Proofs)
	})

	t.Run("Success_TruncatesToMilliseconds", func(t *testing.T) {
		input := validInput()
		input.Window.NotBefore = testStart.Add(1500 * time.Microsecond)

		statement, err := builder.Build(input)
		require.NoError(t, err)
		assert.Equal(t, testStart.Add(time.Millisecond), statement.NotBefore)
	})

	t.Run("Success_CopiesAbilities", func(t *testing.T) {
		input := validInput()
		statement, err := builder.Build(input)
		require.NoError(t, err)

		input.Abilities[0] = anyCodeExecution()
		assert.Equal(t, anyPKPSigning(), statement.Abilities[0])
	})

	t.Run("Error_EmptyAbilitySet", func(t *testing.T) {
		input := validInput()
		input.Abilities = nil

		_, err := builder.Build(input)
		assert.ErrorIs(t, err, capabilityDomain.ErrEmptyAbilitySet)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("Error_WindowEqualBounds", func(t *testing.T) {
		input := validInput()
		input.Window.NotAfter = input.Window.NotBefore

		_, err := builder.Build(input)
		assert.ErrorIs(t, err, capabilityDomain.ErrInvalidWindow)
	})

	t.Run("Error_WindowReversed", func(t *testing.T) {
		input := validInput()
		input.Window.NotAfter = input.Window.NotBefore.Add(-time.Second)

		_, err := builder.Build(input)
		assert.ErrorIs(t, err, capabilityDomain.ErrInvalidWindow)
	})

	t.Run("Error_LifetimeExceedsMaximum", func(t *testing.T) {
		input := validInput()
		input.Window.NotAfter = input.Window.NotBefore.Add(24*time.Hour + time.Millisecond)

		_, err := builder.Build(input)
		assert.ErrorIs(t, err, capabilityDomain.ErrInvalidWindow)
	})

	t.Run("Success_LifetimeAtMaximum", func(t *testing.T) {
		input := validInput()
		input.Window.NotAfter = input.Window.NotBefore.Add(24 * time.Hour)

		_, err := builder.Build(input)
		assert.NoError(t, err)
	})

	invalid := []struct {
		name   string
		field  string
		mutate func(*BuildInput)
	}{
		{"SubjectLineBreak", "subject", func(in *BuildInput) { in.Subject = testSubject + "\nURI: evil" }},
		{"BlankSubject", "subject", func(in *BuildInput) { in.Subject = "" }},
		{"DelegateKeyCarriageReturn", "delegate_key", func(in *BuildInput) { in.DelegateKey = "ab\rcd" }},
		{"BlankNonce", "nonce", func(in *BuildInput) { in.Nonce = "  " }},
		{"ExtraStatementLineBreak", "extra_statement", func(in *BuildInput) { in.ExtraStatement = "hi\nthere" }},
		{"ExtraStatementUnicodeSeparator", "extra_statement", func(in *BuildInput) { in.ExtraStatement = "hi\u2028there" }},
		{"NonceTrailingSpace", "nonce", func(in *BuildInput) { in.Nonce = "abc123 " }},
	}
	for _, tt := range invalid {
		t.Run("Error_"+tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			_, err := builder.Build(input)
			assert.ErrorIs(t, err, capabilityDomain.ErrInvalidStatement)

			var fieldErr *errors.FieldError
			require.True(t, errors.As(err, &fieldErr))
			assert.Equal(t, tt.field, fieldErr.Field)
		})
	}
}

func TestEncode(t *testing.T) {
	builder := newTestBuilder(t)

	t.Run("Success_Golden", func(t *testing.T) {
		statement, err := builder.Build(validInput())
		require.NoError(t, err)

		encoded, err := Encode(statement)
		require.NoError(t, err)

		expected := "localhost wants you to sign in with your Ethereum account:\n" +
			"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266\n" +
			"\n" +
			"I further authorize the stated URI to perform the following actions on my behalf: " +
			"(1) 'Threshold': 'Signing' for 'lit-pkp://*'.\n" +
			"\n" +
			"URI: lit:session:d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a\n" +
			"Version: 1\n" +
			"Chain ID: 1\n" +
			"Nonce: abc123\n" +
			"Issued At: 2024-01-01T00:00:00.000Z\n" +
			"Expiration Time: 2024-01-01T00:02:00.000Z\n" +
			"Resources:\n" +
			"- urn:recap:gwGBgmtsaXQtcGtwOi8vKmtwa3Atc2lnbmluZ4A"
		assert.Equal(t, expected, string(encoded))
	})

	t.Run("Success_Deterministic", func(t *testing.T) {
		first, err := builder.Build(validInput())
		require.NoError(t, err)
		second, err := builder.Build(validInput())
		require.NoError(t, err)

		firstBytes, err := Encode(first)
		require.NoError(t, err)
		secondBytes, err := Encode(second)
		require.NoError(t, err)
		assert.Equal(t, firstBytes, secondBytes)
	})

	t.Run("Success_ExtraStatementAndProofs", func(t *testing.T) {
		input := validInput()
		input.Abilities = []resourceDomain.AbilityRequest{anyCodeExecution(), anyPKPSigning()}
		input.ExtraStatement = "Sign in to the demo."
		statement, err := builder.Build(input)
		require.NoError(t, err)
		statement.Proofs = []string{"p1"}

		encoded, err := Encode(statement)
		require.NoError(t, err)
		assert.Contains(t, string(encoded), "\nSign in to the demo. I further authorize the stated URI to perform "+
			"the following actions on my behalf: (1) 'Threshold': 'Execution' for 'lit-litaction://*'. "+
			"(2) 'Threshold': 'Signing' for 'lit-pkp://*'.\n")
		assert.Contains(t, string(encoded),
			"\n- urn:recap:gwGCgnFsaXQtbGl0YWN0aW9uOi8vKnRsaXQtYWN0aW9uLWV4ZWN1dGlvboJrbGl0LXBrcDovLyprcGtwLXNpZ25pbmeBYnAx")
	})

	t.Run("Success_ReorderChangesBytesNotCoverage", func(t *testing.T) {
		input := validInput()
		input.Abilities = []resourceDomain.AbilityRequest{anyCodeExecution(), anyPKPSigning()}
		first, err := builder.Build(input)
		require.NoError(t, err)

		input.Abilities = []resourceDomain.AbilityRequest{anyPKPSigning(), anyCodeExecution()}
		second, err := builder.Build(input)
		require.NoError(t, err)

		firstBytes, err := Encode(first)
		require.NoError(t, err)
		secondBytes, err := Encode(second)
		require.NoError(t, err)
		assert.NotEqual(t, firstBytes, secondBytes)

		required := []resourceDomain.AbilityRequest{
			resourceDomain.MustAbilityRequest(
				resourceDomain.MustMakeResource(resourceDomain.PKPSigningKind, "0x04ab"),
				resourceDomain.PKPSigningAbility,
			),
		}
		assert.Equal(t, first.Covers(required), second.Covers(required))
		assert.True(t, first.Covers(required))
	})

	t.Run("Success_EveryFieldChangesBytes", func(t *testing.T) {
		base, err := builder.Build(validInput())
		require.NoError(t, err)
		baseBytes, err := Encode(base)
		require.NoError(t, err)

		mutations := map[string]func(*capabilityDomain.Statement){
			"domain":     func(s *capabilityDomain.Statement) { s.Domain = "example.com" },
			"chain":      func(s *capabilityDomain.Statement) { s.ChainID = 2 },
			"subject":    func(s *capabilityDomain.Statement) { s.Subject = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8" },
			"delegate":   func(s *capabilityDomain.Statement) { s.DelegateKey = "00" },
			"nonce":      func(s *capabilityDomain.Statement) { s.Nonce = "abc124" },
			"not_before": func(s *capabilityDomain.Statement) { s.NotBefore = s.NotBefore.Add(time.Millisecond) },
			"not_after":  func(s *capabilityDomain.Statement) { s.NotAfter = s.NotAfter.Add(time.Millisecond) },
			"extra":      func(s *capabilityDomain.Statement) { s.ExtraStatement = "x" },
			"proofs":     func(s *capabilityDomain.Statement) { s.Proofs = []string{"p"} },
			"abilities":  func(s *capabilityDomain.Statement) { s.Abilities = append(s.Abilities, anyCodeExecution()) },
		}
		for name, mutate := range mutations {
			clone := base.Clone()
			mutate(clone)
			mutated, err := Encode(clone)
			require.NoError(t, err, name)
			assert.NotEqual(t, baseBytes, mutated, name)
		}
	})

	t.Run("Error_InvalidStatement", func(t *testing.T) {
		statement, err := builder.Build(validInput())
		require.NoError(t, err)
		statement.Subject = "0xabc\nNonce: 1"

		_, err = Encode(statement)
		assert.ErrorIs(t, err, capabilityDomain.ErrInvalidStatement)
	})

	t.Run("Error_Nil", func(t *testing.T) {
		_, err := Encode(nil)
		assert.ErrorIs(t, err, capabilityDomain.ErrInvalidStatement)
	})
}

func TestRecap(t *testing.T) {
	t.Run("Success_RoundTrip", func(t *testing.T) {
		abilities := []resourceDomain.AbilityRequest{anyCodeExecution(), anyPKPSigning()}

		uri, err := EncodeRecap(abilities, []string{"p1"})
		require.NoError(t, err)

		decoded, proofs, err := DecodeRecap(uri)
		require.NoError(t, err)
		assert.Equal(t, abilities, decoded)
		assert.Equal(t, []string{"p1"}, proofs)
	})

	t.Run("Error_MissingPrefix", func(t *testing.T) {
		_, _, err := DecodeRecap("urn:other:abc")
		assert.ErrorIs(t, err, capabilityDomain.ErrInvalidRecap)
	})

	t.Run("Error_BadBase64", func(t *testing.T) {
		_, _, err := DecodeRecap("urn:recap:***")
		assert.ErrorIs(t, err, capabilityDomain.ErrInvalidRecap)
	})

	t.Run("Error_UnsupportedVersion", func(t *testing.T) {
		// [2, [], []]
		_, _, err := DecodeRecap("urn:recap:gwKAgA")
		assert.ErrorIs(t, err, capabilityDomain.ErrInvalidRecap)
	})
}

func TestWindow(t *testing.T) {
	window := capabilityDomain.Window{NotBefore: testStart, NotAfter: testStart.Add(time.Minute)}

	assert.True(t, window.Contains(testStart))
	assert.True(t, window.Contains(testStart.Add(59*time.Second)))
	assert.False(t, window.Contains(testStart.Add(time.Minute)), "upper bound is exclusive")
	assert.False(t, window.Contains(testStart.Add(-time.Nanosecond)))
	assert.Equal(t, time.Minute, window.Lifetime())
}
