package domain

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/allisson/sessionsig/internal/errors"
)

// Resource identifies a target of a capability. The zero value is not a valid
// resource; use MakeResource, WildcardResource or ParseResourceURI.
type Resource struct {
	kind       Kind
	identifier string
	wildcard   bool
}

// MakeResource validates and builds a resource. An identifier equal to
// Wildcard yields a wildcard resource.
func MakeResource(kind Kind, identifier string) (Resource, error) {
	if !kind.Valid() {
		return Resource{}, errors.Field(ErrInvalidResource, "kind", fmt.Sprintf("unknown kind %q", kind))
	}
	if identifier == "" {
		return Resource{}, errors.Field(ErrInvalidResource, "identifier", "must not be empty")
	}
	if strings.ContainsFunc(identifier, unicode.IsControl) {
		return Resource{}, errors.Field(ErrInvalidResource, "identifier", "must not contain control characters")
	}

	return Resource{kind: kind, identifier: identifier, wildcard: identifier == Wildcard}, nil
}

// MustMakeResource is like MakeResource but panics on error. Intended for
// package level values and tests.
func MustMakeResource(kind Kind, identifier string) Resource {
	r, err := MakeResource(kind, identifier)
	if err != nil {
		panic(err)
	}
	return r
}

// WildcardResource returns the resource matching every identifier of kind.
func WildcardResource(kind Kind) (Resource, error) {
	return MakeResource(kind, Wildcard)
}

// ParseResourceURI is the inverse of Resource.URI.
func ParseResourceURI(uri string) (Resource, error) {
	for _, kind := range kindOrder {
		prefix := kind.Prefix()
		if identifier, ok := strings.CutPrefix(uri, prefix); ok {
			return MakeResource(kind, identifier)
		}
	}
	return Resource{}, errors.Field(ErrInvalidResource, "uri", fmt.Sprintf("unknown scheme in %q", uri))
}

// kindOrder fixes the lookup order used by ParseResourceURI.
var kindOrder = []Kind{
	PKPSigningKind,
	CodeExecutionKind,
	AccessControlConditionKind,
	RateLimitIncreaseKind,
	CustomKind,
}

// Kind returns the resource kind.
func (r Resource) Kind() Kind {
	return r.kind
}

// Identifier returns the resource identifier.
func (r Resource) Identifier() string {
	return r.identifier
}

// IsWildcard reports whether r matches every identifier of its kind.
func (r Resource) IsWildcard() bool {
	return r.wildcard
}

// IsZero reports whether r is the zero value.
func (r Resource) IsZero() bool {
	return r.kind == "" && r.identifier == ""
}

// URI renders the resource as prefix followed by identifier.
func (r Resource) URI() string {
	return r.kind.Prefix() + r.identifier
}

// String implements fmt.Stringer.
func (r Resource) String() string {
	return r.URI()
}

// MarshalText encodes the resource as its URI.
func (r Resource) MarshalText() ([]byte, error) {
	if r.IsZero() {
		return nil, errors.Field(ErrInvalidResource, "uri", "zero resource")
	}
	return []byte(r.URI()), nil
}

// UnmarshalText decodes a resource URI.
func (r *Resource) UnmarshalText(text []byte) error {
	parsed, err := ParseResourceURI(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Matches reports whether resource is matched by pattern: same kind and either
// pattern is a wildcard or the identifiers are identical. No prefix or glob
// matching is performed.
func Matches(resource, pattern Resource) bool {
	if resource.kind != pattern.kind {
		return false
	}
	if pattern.wildcard {
		return true
	}
	return resource.identifier == pattern.identifier
}
