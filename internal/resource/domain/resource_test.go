package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/sessionsig/internal/errors"
)

func TestMakeResource(t *testing.T) {
	t.Run("Success_Concrete", func(t *testing.T) {
		r, err := MakeResource(PKPSigningKind, "0x04abcd")
		require.NoError(t, err)
		assert.Equal(t, PKPSigningKind, r.Kind())
		assert.Equal(t, "0x04abcd", r.Identifier())
		assert.False(t, r.IsWildcard())
		assert.Equal(t, "lit-pkp://0x04abcd", r.URI())
	})

	t.Run("Success_Wildcard", func(t *testing.T) {
		r, err := WildcardResource(CodeExecutionKind)
		require.NoError(t, err)
		assert.True(t, r.IsWildcard())
		assert.Equal(t, "lit-litaction://*", r.URI())
	})

	t.Run("Error_EmptyIdentifier", func(t *testing.T) {
		_, err := MakeResource(PKPSigningKind, "")
		assert.ErrorIs(t, err, ErrInvalidResource)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)

		var fieldErr *errors.FieldError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, "identifier", fieldErr.Field)
	})

	t.Run("Error_UnknownKind", func(t *testing.T) {
		_, err := MakeResource(Kind("storage"), "bucket")
		assert.ErrorIs(t, err, ErrInvalidResource)
	})

	t.Run("Error_ControlCharacter", func(t *testing.T) {
		_, err := MakeResource(CustomKind, "abc\ndef")
		assert.ErrorIs(t, err, ErrInvalidResource)
	})
}

func TestParseResourceURI(t *testing.T) {
	tests := []struct {
		uri        string
		kind       Kind
		identifier string
	}{
		{"lit-pkp://*", PKPSigningKind, "*"},
		{"lit-litaction://QmHash", CodeExecutionKind, "QmHash"},
		{"lit-accesscontrolcondition://aa/bb", AccessControlConditionKind, "aa/bb"},
		{"lit-ratelimitincrease://42", RateLimitIncreaseKind, "42"},
		{"lit-custom://thing", CustomKind, "thing"},
	}

	for _, tt := range tests {
		t.Run("Success_"+string(tt.kind), func(t *testing.T) {
			r, err := ParseResourceURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, r.Kind())
			assert.Equal(t, tt.identifier, r.Identifier())
			assert.Equal(t, tt.uri, r.URI())
		})
	}

	t.Run("Error_UnknownScheme", func(t *testing.T) {
		_, err := ParseResourceURI("https://example.com")
		assert.ErrorIs(t, err, ErrInvalidResource)
	})

	t.Run("Error_MissingIdentifier", func(t *testing.T) {
		_, err := ParseResourceURI("lit-pkp://")
		assert.ErrorIs(t, err, ErrInvalidResource)
	})
}

func TestMatches(t *testing.T) {
	wildcard := MustMakeResource(PKPSigningKind, Wildcard)
	keyA := MustMakeResource(PKPSigningKind, "0xA")
	keyB := MustMakeResource(PKPSigningKind, "0xB")
	action := MustMakeResource(CodeExecutionKind, "0xA")
	prefix := MustMakeResource(PKPSigningKind, "0x")

	assert.True(t, Matches(keyA, wildcard), "wildcard matches any identifier of the same kind")
	assert.True(t, Matches(wildcard, wildcard))
	assert.True(t, Matches(keyA, keyA))
	assert.False(t, Matches(keyA, keyB))
	assert.False(t, Matches(action, wildcard), "wildcard never crosses kinds")
	assert.False(t, Matches(keyA, prefix), "no prefix matching")
	assert.False(t, Matches(wildcard, keyA), "a concrete pattern does not match a wildcard request")
}

func TestNewAbilityRequest(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		req, err := NewAbilityRequest(MustMakeResource(PKPSigningKind, Wildcard), PKPSigningAbility)
		require.NoError(t, err)
		assert.Equal(t, "lit-pkp://*#pkp-signing", req.String())
	})

	t.Run("Success_ConditionSigning", func(t *testing.T) {
		_, err := NewAbilityRequest(MustMakeResource(AccessControlConditionKind, "id"), ConditionSigningAbility)
		assert.NoError(t, err)
	})

	t.Run("Error_KindMismatch", func(t *testing.T) {
		_, err := NewAbilityRequest(MustMakeResource(PKPSigningKind, Wildcard), CodeExecutionAbility)
		assert.ErrorIs(t, err, ErrInvalidAbility)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("Error_UnknownAbility", func(t *testing.T) {
		_, err := NewAbilityRequest(MustMakeResource(PKPSigningKind, Wildcard), Ability("sign-everything"))
		assert.ErrorIs(t, err, ErrInvalidAbility)
	})

	t.Run("Error_ZeroResource", func(t *testing.T) {
		_, err := NewAbilityRequest(Resource{}, PKPSigningAbility)
		assert.ErrorIs(t, err, ErrInvalidResource)
	})
}

func TestCovers(t *testing.T) {
	anyPKP := MustAbilityRequest(MustMakeResource(PKPSigningKind, Wildcard), PKPSigningAbility)
	onePKP := MustAbilityRequest(MustMakeResource(PKPSigningKind, "0xA"), PKPSigningAbility)
	otherPKP := MustAbilityRequest(MustMakeResource(PKPSigningKind, "0xB"), PKPSigningAbility)
	decrypt := MustAbilityRequest(MustMakeResource(AccessControlConditionKind, "0xA"), ConditionDecryptionAbility)
	condSign := MustAbilityRequest(MustMakeResource(AccessControlConditionKind, "0xA"), ConditionSigningAbility)

	assert.True(t, Covers(anyPKP, onePKP))
	assert.False(t, Covers(onePKP, anyPKP))
	assert.False(t, Covers(onePKP, otherPKP))
	assert.False(t, Covers(decrypt, condSign), "ability must be equal")

	t.Run("CoverageIgnoresOrder", func(t *testing.T) {
		granted := []AbilityRequest{decrypt, anyPKP}
		reordered := []AbilityRequest{anyPKP, decrypt}
		required := []AbilityRequest{onePKP, decrypt}

		_, missing := Uncovered(granted, required)
		assert.False(t, missing)
		_, missing = Uncovered(reordered, required)
		assert.False(t, missing)
	})

	t.Run("UncoveredReportsFirstMissing", func(t *testing.T) {
		missing, ok := Uncovered([]AbilityRequest{onePKP}, []AbilityRequest{onePKP, otherPKP, decrypt})
		assert.True(t, ok)
		assert.Equal(t, otherPKP, missing)
	})
}

func TestAbilityRequestJSON(t *testing.T) {
	t.Run("Success_RoundTrip", func(t *testing.T) {
		req := MustAbilityRequest(MustMakeResource(CodeExecutionKind, Wildcard), CodeExecutionAbility)

		data, err := json.Marshal(req)
		require.NoError(t, err)
		assert.JSONEq(t, `{"resource":"lit-litaction://*","ability":"lit-action-execution"}`, string(data))

		var decoded AbilityRequest
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, req, decoded)
		assert.True(t, decoded.Resource.IsWildcard())
	})

	t.Run("Error_Mismatch", func(t *testing.T) {
		var decoded AbilityRequest
		err := json.Unmarshal([]byte(`{"resource":"lit-pkp://*","ability":"lit-action-execution"}`), &decoded)
		assert.ErrorIs(t, err, ErrInvalidAbility)
	})
}

func TestAbilityAction(t *testing.T) {
	namespace, name := PKPSigningAbility.Action()
	assert.Equal(t, "Threshold", namespace)
	assert.Equal(t, "Signing", name)

	namespace, name = RateLimitIncreaseAbility.Action()
	assert.Equal(t, "Auth", namespace)
	assert.Equal(t, "Auth", name)
}
