// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/base64"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/sessionsig/internal/errors"
)

// MaxContentBytes bounds decoded content accepted for server side hashing.
const MaxContentBytes = 1 << 20

var (
	// hexDigestRegex matches a 32-byte digest in lowercase or uppercase hex
	hexDigestRegex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

	// ethereumAddressRegex matches a 20-byte 0x-prefixed hex address
	ethereumAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// SingleLine validates that a string contains no line or paragraph separators
var SingleLine = validation.NewStringRuleWithError(
	func(s string) bool {
		return !strings.ContainsAny(s, "\r\n\u0085\u2028\u2029")
	},
	validation.NewError("validation_single_line", "must not contain line breaks"),
)

// HexDigest validates a 64 character hex string such as a SHA-256 digest
var HexDigest = validation.NewStringRuleWithError(
	hexDigestRegex.MatchString,
	validation.NewError("validation_hex_digest", "must be a 64 character hex digest"),
)

// EthereumAddress validates a 0x-prefixed 20-byte hex address
var EthereumAddress = validation.NewStringRuleWithError(
	ethereumAddressRegex.MatchString,
	validation.NewError("validation_ethereum_address", "must be a 0x-prefixed 40 character hex address"),
)

// Base64Content validates standard base64 that decodes to at most MaxContentBytes
var Base64Content = validation.NewStringRuleWithError(
	func(s string) bool {
		if base64.StdEncoding.DecodedLen(len(s)) > MaxContentBytes+2 {
			return false
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		return err == nil && len(decoded) <= MaxContentBytes
	},
	validation.NewError("validation_base64_content", "must be base64 encoded and at most 1 MiB once decoded"),
)
