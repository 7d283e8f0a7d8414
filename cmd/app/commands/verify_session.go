package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
	verificationService "github.com/allisson/sessionsig/internal/verification/service"
)

// RunVerifySession verifies a signed statement the way a node would. input is
// either the json output of create-session or a bare signed statement. When
// required is empty, the abilities of the statement itself are required.
// A zero at verifies against the current time.
func RunVerifySession(
	ctx context.Context,
	verifier verificationService.Verifier,
	logger *slog.Logger,
	io IOTuple,
	input []byte,
	required []resourceDomain.AbilityRequest,
	at time.Time,
	format string,
) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	signed, err := decodeSignedStatement(input)
	if err != nil {
		return err
	}
	if len(required) == 0 {
		required = signed.Statement.Abilities
	}
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	result, err := verifier.VerifyStatement(ctx, signed, required, at)
	if err != nil {
		logger.Warn("session verification failed", slog.Any("error", err))
		return fmt.Errorf("session is not valid: %w", err)
	}

	if format == "json" {
		return outputJSON(io.Writer, result)
	}

	_, _ = fmt.Fprintln(io.Writer, "Session is valid")
	_, _ = fmt.Fprintf(io.Writer, "Subject:     %s\n", result.Subject)
	_, _ = fmt.Fprintf(io.Writer, "Session key: %s\n", result.SessionKey)
	_, _ = fmt.Fprintf(io.Writer, "Expires:     %s\n", result.NotAfter.Format(time.RFC3339))
	for _, ability := range result.Abilities {
		_, _ = fmt.Fprintf(io.Writer, "Ability:     %s\n", ability.String())
	}
	if result.GrantID != "" {
		_, _ = fmt.Fprintf(io.Writer, "Delegation:  %s (issuer %s)\n", result.GrantID, result.Issuer)
	}
	return nil
}

func decodeSignedStatement(input []byte) (*sessionDomain.SignedStatement, error) {
	var wrapped createdSession
	if err := json.Unmarshal(input, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse signed statement: %w", err)
	}
	if wrapped.Signed != nil {
		return wrapped.Signed, nil
	}

	var signed sessionDomain.SignedStatement
	if err := json.Unmarshal(input, &signed); err != nil {
		return nil, fmt.Errorf("failed to parse signed statement: %w", err)
	}
	if signed.Statement == nil {
		return nil, fmt.Errorf("input does not contain a signed statement")
	}
	return &signed, nil
}
