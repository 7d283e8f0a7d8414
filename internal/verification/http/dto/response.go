package dto

import (
	"time"

	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	verificationDomain "github.com/allisson/sessionsig/internal/verification/domain"
)

// VerificationResponse is returned for a statement or envelope that verified.
type VerificationResponse struct {
	Valid      bool                            `json:"valid"`
	Subject    string                          `json:"subject"`
	SessionKey string                          `json:"session_key"`
	Abilities  []resourceDomain.AbilityRequest `json:"abilities"`
	NotBefore  time.Time                       `json:"not_before"`
	NotAfter   time.Time                       `json:"not_after"`
	GrantID    string                          `json:"grant_id,omitempty"`
	Issuer     string                          `json:"issuer,omitempty"`
	VerifiedAt time.Time                       `json:"verified_at"`
}

// MapResultToResponse converts a verification result to an API response.
func MapResultToResponse(result *verificationDomain.Result, verifiedAt time.Time) VerificationResponse {
	return VerificationResponse{
		Valid:      true,
		Subject:    result.Subject,
		SessionKey: result.SessionKey,
		Abilities:  result.Abilities,
		NotBefore:  result.NotBefore,
		NotAfter:   result.NotAfter,
		GrantID:    result.GrantID,
		Issuer:     result.Issuer,
		VerifiedAt: verifiedAt,
	}
}
