package service

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	capabilityDomain "github.com/allisson/sessionsig/internal/capability/domain"
	"github.com/allisson/sessionsig/internal/codec"
	"github.com/allisson/sessionsig/internal/errors"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
)

const (
	// RecapPrefix prefixes the encoded capability resource.
	RecapPrefix = "urn:recap:"

	// SessionURIPrefix prefixes the delegate key in the URI line.
	SessionURIPrefix = "lit:session:"

	recapVersion = 1
)

// recap is the machine readable, authoritative ability list. It is encoded as
// a CBOR array so the byte string depends only on field order, never on map
// iteration.
type recap struct {
	_         struct{} `cbor:",toarray"`
	Version   uint
	Abilities []recapAbility
	Proofs    []string
}

type recapAbility struct {
	_       struct{} `cbor:",toarray"`
	URI     string
	Ability string
}

// Encode renders statement to its canonical bytes: an EIP-4361 style message
// whose Resources section carries the CBOR recap. Lines are joined with "\n"
// and there is no trailing newline. Equal statements always produce identical
// bytes.
func Encode(statement *capabilityDomain.Statement) ([]byte, error) {
	if err := Validate(statement); err != nil {
		return nil, err
	}

	recapURI, err := EncodeRecap(statement.Abilities, statement.Proofs)
	if err != nil {
		return nil, err
	}

	lines := []string{
		statement.Domain + " wants you to sign in with your Ethereum account:",
		statement.Subject,
		"",
		humanStatement(statement),
		"",
		"URI: " + SessionURIPrefix + statement.DelegateKey,
		"Version: 1",
		"Chain ID: " + strconv.FormatUint(statement.ChainID, 10),
		"Nonce: " + statement.Nonce,
		"Issued At: " + capabilityDomain.FormatTime(statement.NotBefore),
		"Expiration Time: " + capabilityDomain.FormatTime(statement.NotAfter),
		"Resources:",
		"- " + recapURI,
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// humanStatement derives the sentence shown to a human signer from the ability list.
func humanStatement(statement *capabilityDomain.Statement) string {
	var b strings.Builder
	if statement.ExtraStatement != "" {
		b.WriteString(statement.ExtraStatement)
		b.WriteString(" ")
	}
	b.WriteString("I further authorize the stated URI to perform the following actions on my behalf:")
	for i, ability := range statement.Abilities {
		namespace, name := ability.Ability.Action()
		fmt.Fprintf(&b, " (%d) '%s': '%s' for '%s'.", i+1, namespace, name, ability.Resource.URI())
	}
	return b.String()
}

// EncodeRecap encodes abilities and proofs, in order, as a recap URI.
func EncodeRecap(abilities []resourceDomain.AbilityRequest, proofs []string) (string, error) {
	payload := recap{
		Version:   recapVersion,
		Abilities: make([]recapAbility, 0, len(abilities)),
		Proofs:    make([]string, 0, len(proofs)),
	}
	for _, ability := range abilities {
		payload.Abilities = append(payload.Abilities, recapAbility{
			URI:     ability.Resource.URI(),
			Ability: string(ability.Ability),
		})
	}
	payload.Proofs = append(payload.Proofs, proofs...)

	data, err := codec.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode recap: %w", err)
	}
	return RecapPrefix + base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeRecap is the inverse of EncodeRecap.
func DecodeRecap(uri string) ([]resourceDomain.AbilityRequest, []string, error) {
	encoded, ok := strings.CutPrefix(uri, RecapPrefix)
	if !ok {
		return nil, nil, errors.Field(capabilityDomain.ErrInvalidRecap, "uri", "missing recap prefix")
	}
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, errors.Field(capabilityDomain.ErrInvalidRecap, "uri", "not base64url")
	}

	var payload recap
	if err := codec.Unmarshal(data, &payload); err != nil {
		return nil, nil, errors.Field(capabilityDomain.ErrInvalidRecap, "uri", err.Error())
	}
	if payload.Version != recapVersion {
		return nil, nil, errors.Field(
			capabilityDomain.ErrInvalidRecap,
			"version",
			fmt.Sprintf("unsupported version %d", payload.Version),
		)
	}

	abilities := make([]resourceDomain.AbilityRequest, 0, len(payload.Abilities))
	for _, entry := range payload.Abilities {
		ability, err := resourceDomain.ParseAbilityRequest(entry.URI, entry.Ability)
		if err != nil {
			return nil, nil, err
		}
		abilities = append(abilities, ability)
	}
	return abilities, payload.Proofs, nil
}
