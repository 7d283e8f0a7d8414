// Package domain defines the resource model shared by capability statements,
// delegation grants and remote operation envelopes.
//
// A resource is a (kind, identifier) pair rendered as a URI such as
// "lit-pkp://*". An ability is an action that may be performed on a resource
// kind. Coverage between an ability a session holds and an ability an
// operation needs is decided here and nowhere else.
package domain

// Kind enumerates the resource families a capability can target.
type Kind string

const (
	// PKPSigningKind targets programmable key pairs the network signs with.
	PKPSigningKind Kind = "pkp"

	// CodeExecutionKind targets code the network executes.
	CodeExecutionKind Kind = "lit-action"

	// AccessControlConditionKind targets a condition set bound to a ciphertext.
	AccessControlConditionKind Kind = "access-control-condition"

	// RateLimitIncreaseKind targets capacity credits that raise request quotas.
	RateLimitIncreaseKind Kind = "rate-limit-increase"

	// CustomKind targets application defined resources.
	CustomKind Kind = "custom"
)

// Ability enumerates the actions a capability can authorize.
type Ability string

const (
	// PKPSigningAbility authorizes a threshold signature with a PKP.
	PKPSigningAbility Ability = "pkp-signing"

	// CodeExecutionAbility authorizes executing a code action.
	CodeExecutionAbility Ability = "lit-action-execution"

	// ConditionDecryptionAbility authorizes releasing a decryption key share.
	ConditionDecryptionAbility Ability = "access-control-condition-decryption"

	// ConditionSigningAbility authorizes signing gated by a condition set.
	ConditionSigningAbility Ability = "access-control-condition-signing"

	// RateLimitIncreaseAbility authorizes spending capacity credits.
	RateLimitIncreaseAbility Ability = "rate-limit-increase-auth"

	// CustomAbility authorizes an application defined invocation.
	CustomAbility Ability = "custom-invocation"
)

// Wildcard is the identifier that matches every identifier of the same kind.
const Wildcard = "*"

var kindPrefixes = map[Kind]string{
	PKPSigningKind:             "lit-pkp://",
	CodeExecutionKind:          "lit-litaction://",
	AccessControlConditionKind: "lit-accesscontrolcondition://",
	RateLimitIncreaseKind:      "lit-ratelimitincrease://",
	CustomKind:                 "lit-custom://",
}

var abilityKinds = map[Ability]Kind{
	PKPSigningAbility:          PKPSigningKind,
	CodeExecutionAbility:       CodeExecutionKind,
	ConditionDecryptionAbility: AccessControlConditionKind,
	ConditionSigningAbility:    AccessControlConditionKind,
	RateLimitIncreaseAbility:   RateLimitIncreaseKind,
	CustomAbility:              CustomKind,
}

// abilityActions holds the namespace and action name shown to the signer in the
// human readable part of a capability statement.
var abilityActions = map[Ability][2]string{
	PKPSigningAbility:          {"Threshold", "Signing"},
	CodeExecutionAbility:       {"Threshold", "Execution"},
	ConditionDecryptionAbility: {"Threshold", "Decryption"},
	ConditionSigningAbility:    {"Threshold", "Signing"},
	RateLimitIncreaseAbility:   {"Auth", "Auth"},
	CustomAbility:              {"Custom", "Invocation"},
}

// Prefix returns the URI prefix of the kind, or an empty string for unknown kinds.
func (k Kind) Prefix() string {
	return kindPrefixes[k]
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindPrefixes[k]
	return ok
}

// Valid reports whether a is a known ability.
func (a Ability) Valid() bool {
	_, ok := abilityKinds[a]
	return ok
}

// Kind returns the resource kind the ability applies to.
func (a Ability) Kind() Kind {
	return abilityKinds[a]
}

// Action returns the namespace and name used when rendering the ability for a human signer.
func (a Ability) Action() (namespace, name string) {
	action := abilityActions[a]
	return action[0], action[1]
}

// ParseKind converts a kind name to a Kind.
func ParseKind(value string) (Kind, error) {
	kind := Kind(value)
	if !kind.Valid() {
		return "", ErrInvalidResource
	}
	return kind, nil
}

// ParseAbility converts an ability name to an Ability.
func ParseAbility(value string) (Ability, error) {
	ability := Ability(value)
	if !ability.Valid() {
		return "", ErrInvalidAbility
	}
	return ability, nil
}
