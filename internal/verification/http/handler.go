// Package http provides HTTP handlers that verify signed statements and
// envelopes the way a network node does.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/sessionsig/internal/httputil"
	customValidation "github.com/allisson/sessionsig/internal/validation"
	"github.com/allisson/sessionsig/internal/verification/http/dto"
	verificationService "github.com/allisson/sessionsig/internal/verification/service"
)

// VerificationHandler handles HTTP requests for statement and envelope
// verification. Validity windows are always checked against the server clock.
type VerificationHandler struct {
	verifier verificationService.Verifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewVerificationHandler creates a new verification handler.
func NewVerificationHandler(verifier verificationService.Verifier, logger *slog.Logger) *VerificationHandler {
	return &VerificationHandler{
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

// VerifySessionHandler verifies a signed statement against required abilities.
// POST /v1/sessions/verify
// Returns 200 OK with the verified subject and window.
func (h *VerificationHandler) VerifySessionHandler(c *gin.Context) {
	var req dto.VerifySessionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	at := h.now().UTC()
	result, err := h.verifier.VerifyStatement(c.Request.Context(), req.Signed, req.Required, at)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapResultToResponse(result, at))
}

// VerifyEnvelopeHandler verifies a session-key-signed request envelope.
// POST /v1/envelopes/verify
// Returns 200 OK with the verified subject and window. Delegation quotas are
// consumed when enforcement is enabled.
func (h *VerificationHandler) VerifyEnvelopeHandler(c *gin.Context) {
	var req dto.VerifyEnvelopeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	at := h.now().UTC()
	result, err := h.verifier.VerifyEnvelope(c.Request.Context(), req.Envelope, at)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapResultToResponse(result, at))
}
