package dto

import (
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
)

// ResourceResponse names the resource a condition set and content bind to,
// and the ability a session needs to decrypt it.
type ResourceResponse struct {
	Canonical   string                        `json:"canonical"`
	ContentHash string                        `json:"content_hash"`
	ResourceID  string                        `json:"resource_id"`
	Ability     resourceDomain.AbilityRequest `json:"ability"`
}
