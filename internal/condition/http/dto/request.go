// Package dto provides data transfer objects for the condition HTTP API.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/sessionsig/internal/validation"
)

// ResourceRequest asks the server to canonicalize a condition set and bind it
// to content. Exactly one of ContentHash or Content must be set.
type ResourceRequest struct {
	Conditions  json.RawMessage `json:"conditions"`
	ContentHash string          `json:"content_hash,omitempty"`
	// Content is base64 encoded plaintext, hashed server side.
	Content string `json:"content,omitempty"`
}

// Validate checks if the resource request is valid.
func (r *ResourceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Conditions, validation.Required),
		validation.Field(&r.ContentHash,
			validation.When(r.Content == "", validation.Required),
			validation.When(r.Content != "", validation.Empty),
			customValidation.HexDigest,
		),
		validation.Field(&r.Content, customValidation.Base64Content),
	)
}
