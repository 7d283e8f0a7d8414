// Package service canonicalizes access condition sets and binds them to
// ciphertext so that encrypt-time and decrypt-time requests name the same
// resource byte for byte.
package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/jellydator/validation"

	conditionDomain "github.com/allisson/sessionsig/internal/condition/domain"
	"github.com/allisson/sessionsig/internal/errors"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	customValidation "github.com/allisson/sessionsig/internal/validation"
)

// maxDepth bounds group nesting.
const maxDepth = 8

var comparators = []any{"=", "==", "!=", ">", ">=", "<", "<=", "contains"}

// ParseConditions decodes caller JSON in any key order or spacing and
// returns the normalized, validated set.
func ParseConditions(data []byte) (conditionDomain.Set, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, errors.Field(conditionDomain.ErrInvalidCondition, "conditions", "must be a JSON array")
	}

	var set conditionDomain.Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, errors.Field(conditionDomain.ErrInvalidCondition, "conditions", err.Error())
	}

	normalized := Normalize(set)
	if err := Validate(normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// Normalize returns a deep copy of set with comparators trimmed, operators
// trimmed and lower-cased, and nil parameter lists replaced by empty ones.
// Operand order is preserved.
func Normalize(set conditionDomain.Set) conditionDomain.Set {
	normalized := make(conditionDomain.Set, 0, len(set))
	for _, node := range set {
		switch {
		case node.Condition != nil:
			condition := *node.Condition
			condition.Parameters = append([]string{}, condition.Parameters...)
			condition.ReturnValueTest.Comparator = strings.TrimSpace(condition.ReturnValueTest.Comparator)
			normalized = append(normalized, conditionDomain.Predicate(condition))
		case node.Group != nil:
			normalized = append(normalized, conditionDomain.GroupOf(Normalize(node.Group)...))
		default:
			operator := conditionDomain.Operator(strings.ToLower(strings.TrimSpace(string(node.Operator))))
			normalized = append(normalized, conditionDomain.Op(operator))
		}
	}
	return normalized
}

// Validate checks the structure of set: a non-empty alternation of operands
// and operators that starts and ends with an operand, with valid predicates.
func Validate(set conditionDomain.Set) error {
	return validateSet(set, "conditions", 0)
}

func validateSet(set conditionDomain.Set, path string, depth int) error {
	if depth > maxDepth {
		return errors.Field(conditionDomain.ErrInvalidCondition, path, fmt.Sprintf("nesting deeper than %d", maxDepth))
	}
	if len(set) == 0 {
		return errors.Field(conditionDomain.ErrInvalidCondition, path, "must not be empty")
	}
	if len(set)%2 == 0 {
		return errors.Field(conditionDomain.ErrInvalidCondition, path, "must start and end with a condition")
	}

	for i, node := range set {
		nodePath := fmt.Sprintf("%s[%d]", path, i)
		expectOperator := i%2 == 1

		switch {
		case expectOperator && !node.IsOperator():
			return errors.Field(conditionDomain.ErrInvalidCondition, nodePath, "expected an operator")
		case !expectOperator && node.IsOperator():
			return errors.Field(conditionDomain.ErrInvalidCondition, nodePath, "expected a condition")
		case node.IsOperator():
			if node.Operator != conditionDomain.AndOperator && node.Operator != conditionDomain.OrOperator {
				return errors.Field(conditionDomain.ErrInvalidCondition, nodePath+".operator", "must be and or or")
			}
		case node.IsGroup():
			if err := validateSet(node.Group, nodePath, depth+1); err != nil {
				return err
			}
		case node.Condition != nil:
			if err := validateCondition(node.Condition); err != nil {
				return errors.Field(conditionDomain.ErrInvalidCondition, nodePath, err.Error())
			}
		default:
			return errors.Field(conditionDomain.ErrInvalidCondition, nodePath, "empty node")
		}
	}
	return nil
}

func validateCondition(c *conditionDomain.Condition) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Chain,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(1, 64),
		),
		validation.Field(&c.ContractAddress, customValidation.NoWhitespace),
		validation.Field(&c.StandardContractType, customValidation.NoWhitespace),
		validation.Field(&c.Method, customValidation.NoWhitespace),
		validation.Field(&c.Parameters, validation.Each(customValidation.SingleLine)),
		validation.Field(&c.ReturnValueTest, validation.By(validateReturnValueTest)),
	)
}

func validateReturnValueTest(value any) error {
	test, ok := value.(conditionDomain.ReturnValueTest)
	if !ok {
		return validation.NewError("validation_return_value_test_type", "must be a return value test")
	}
	return validation.ValidateStruct(&test,
		validation.Field(&test.Comparator, validation.Required, validation.In(comparators...)),
		validation.Field(&test.Value, customValidation.SingleLine),
	)
}

// Canonicalize returns the canonical string of set: compact JSON with a fixed
// key order and no HTML escaping. Logically equivalent sets whose operands
// are ordered differently produce different strings.
func Canonicalize(set conditionDomain.Set) (string, error) {
	normalized := Normalize(set)
	if err := Validate(normalized); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(normalized); err != nil {
		return "", errors.Field(conditionDomain.ErrInvalidCondition, "conditions", err.Error())
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// HashContent returns the hex SHA-256 of data.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// BindToCiphertext returns the resource identifier naming content under a
// condition set: hex(sha256(canonical)) + "/" + contentHash.
func BindToCiphertext(canonical, contentHash string) (string, error) {
	if strings.TrimSpace(canonical) == "" {
		return "", errors.Field(conditionDomain.ErrInvalidCondition, "conditions", "must not be empty")
	}
	if err := validation.Validate(contentHash, validation.Required, customValidation.HexDigest); err != nil {
		return "", errors.Field(conditionDomain.ErrInvalidCondition, "content_hash", err.Error())
	}
	return HashContent([]byte(canonical)) + "/" + strings.ToLower(contentHash), nil
}

// ResourceID canonicalizes set and binds it to contentHash.
func ResourceID(set conditionDomain.Set, contentHash string) (string, error) {
	canonical, err := Canonicalize(set)
	if err != nil {
		return "", err
	}
	return BindToCiphertext(canonical, contentHash)
}

// DecryptionRequest returns the ability request a session needs to decrypt
// content bound to set and contentHash.
func DecryptionRequest(set conditionDomain.Set, contentHash string) (resourceDomain.AbilityRequest, error) {
	id, err := ResourceID(set, contentHash)
	if err != nil {
		return resourceDomain.AbilityRequest{}, err
	}
	resource, err := resourceDomain.MakeResource(resourceDomain.AccessControlConditionKind, id)
	if err != nil {
		return resourceDomain.AbilityRequest{}, err
	}
	return resourceDomain.NewAbilityRequest(resource, resourceDomain.ConditionDecryptionAbility)
}
