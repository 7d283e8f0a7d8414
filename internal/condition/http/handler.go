// Package http provides the HTTP handler that turns a condition set into the
// resource identifier and ability a decrypting session must hold.
package http

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/allisson/sessionsig/internal/condition/http/dto"
	conditionService "github.com/allisson/sessionsig/internal/condition/service"
	"github.com/allisson/sessionsig/internal/httputil"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	customValidation "github.com/allisson/sessionsig/internal/validation"
)

// ConditionHandler handles HTTP requests for condition canonicalization.
type ConditionHandler struct {
	logger *slog.Logger
}

// NewConditionHandler creates a new condition handler.
func NewConditionHandler(logger *slog.Logger) *ConditionHandler {
	return &ConditionHandler{logger: logger}
}

// ResourceHandler canonicalizes a condition set and binds it to content.
// POST /v1/conditions/resource
// Returns 200 OK with the canonical string, resource identifier and ability.
func (h *ConditionHandler) ResourceHandler(c *gin.Context) {
	var req dto.ResourceRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	set, err := conditionService.ParseConditions(req.Conditions)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	canonical, err := conditionService.Canonicalize(set)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	contentHash := req.ContentHash
	if req.Content != "" {
		content, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
		contentHash = conditionService.HashContent(content)
	}

	resourceID, err := conditionService.BindToCiphertext(canonical, contentHash)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	resource, err := resourceDomain.MakeResource(resourceDomain.AccessControlConditionKind, resourceID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ResourceResponse{
		Canonical:   canonical,
		ContentHash: strings.ToLower(contentHash),
		ResourceID:  resourceID,
		Ability: resourceDomain.MustAbilityRequest(resource,
			resourceDomain.ConditionDecryptionAbility),
	})
}
