package domain

import (
	"encoding/json"
	"fmt"

	"github.com/allisson/sessionsig/internal/errors"
)

// AbilityRequest pairs a resource with the ability requested on it. Values
// built through NewAbilityRequest always have an ability valid for the
// resource kind.
type AbilityRequest struct {
	Resource Resource
	Ability  Ability
}

// NewAbilityRequest validates that ability applies to the kind of resource.
func NewAbilityRequest(resource Resource, ability Ability) (AbilityRequest, error) {
	if resource.IsZero() {
		return AbilityRequest{}, errors.Field(ErrInvalidResource, "resource", "must not be empty")
	}
	if !ability.Valid() {
		return AbilityRequest{}, errors.Field(ErrInvalidAbility, "ability", fmt.Sprintf("unknown ability %q", ability))
	}
	if ability.Kind() != resource.Kind() {
		return AbilityRequest{}, errors.Field(
			ErrInvalidAbility,
			"ability",
			fmt.Sprintf("%q does not apply to %s resources", ability, resource.Kind()),
		)
	}
	return AbilityRequest{Resource: resource, Ability: ability}, nil
}

// MustAbilityRequest is like NewAbilityRequest but panics on error.
func MustAbilityRequest(resource Resource, ability Ability) AbilityRequest {
	req, err := NewAbilityRequest(resource, ability)
	if err != nil {
		panic(err)
	}
	return req
}

// ParseAbilityRequest builds a request from a resource URI and an ability name.
func ParseAbilityRequest(uri, ability string) (AbilityRequest, error) {
	resource, err := ParseResourceURI(uri)
	if err != nil {
		return AbilityRequest{}, err
	}
	parsedAbility, err := ParseAbility(ability)
	if err != nil {
		return AbilityRequest{}, errors.Field(err, "ability", fmt.Sprintf("unknown ability %q", ability))
	}
	return NewAbilityRequest(resource, parsedAbility)
}

// String renders the request as "uri#ability".
func (a AbilityRequest) String() string {
	return a.Resource.URI() + "#" + string(a.Ability)
}

type abilityRequestJSON struct {
	Resource string `json:"resource"`
	Ability  string `json:"ability"`
}

// MarshalJSON encodes the request as {"resource": uri, "ability": name}.
func (a AbilityRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(abilityRequestJSON{Resource: a.Resource.URI(), Ability: string(a.Ability)})
}

// UnmarshalJSON decodes and validates a request.
func (a *AbilityRequest) UnmarshalJSON(data []byte) error {
	var raw abilityRequestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseAbilityRequest(raw.Resource, raw.Ability)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Covers reports whether holding granted authorizes required: the abilities
// are equal and the required resource is matched by the granted resource.
func Covers(granted, required AbilityRequest) bool {
	return granted.Ability == required.Ability && Matches(required.Resource, granted.Resource)
}

// CoveredBy reports whether required is covered by at least one of granted.
func CoveredBy(required AbilityRequest, granted []AbilityRequest) bool {
	for _, g := range granted {
		if Covers(g, required) {
			return true
		}
	}
	return false
}

// Uncovered returns the first request in required that granted does not cover.
func Uncovered(granted, required []AbilityRequest) (AbilityRequest, bool) {
	for _, r := range required {
		if !CoveredBy(r, granted) {
			return r, true
		}
	}
	return AbilityRequest{}, false
}
