package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	delegationDomain "github.com/allisson/sessionsig/internal/delegation/domain"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
	sessionDomain "github.com/allisson/sessionsig/internal/session/domain"
	sessionUseCase "github.com/allisson/sessionsig/internal/session/usecase"
)

// SessionRequestFile is the YAML document read by create-session.
//
//	lifetime: 1h
//	statement: "Sign in to the example dapp."
//	abilities:
//	  - resource: lit-pkp://*
//	    ability: pkp-signing
type SessionRequestFile struct {
	Lifetime  time.Duration `yaml:"lifetime"`
	NotBefore time.Time     `yaml:"not_before"`
	Statement string        `yaml:"statement"`
	Abilities []struct {
		Resource string `yaml:"resource"`
		Ability  string `yaml:"ability"`
	} `yaml:"abilities"`
	// DelegationIssuer overrides the issuer the grant is verified against.
	DelegationIssuer string `yaml:"delegation_issuer"`
}

// createdSession is the json output of RunCreateSession. verify-session
// accepts it as input.
type createdSession struct {
	SessionID  string                         `json:"session_id"`
	SessionKey string                         `json:"session_key"`
	NotBefore  time.Time                      `json:"not_before"`
	NotAfter   time.Time                      `json:"not_after"`
	Signed     *sessionDomain.SignedStatement `json:"signed"`
}

// ParseSessionRequest decodes a YAML request file into an authority request.
func ParseSessionRequest(data []byte) (*sessionUseCase.Request, error) {
	var file SessionRequestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse session request: %w", err)
	}
	if len(file.Abilities) == 0 {
		return nil, fmt.Errorf("session request must list at least one ability")
	}

	abilities := make([]resourceDomain.AbilityRequest, 0, len(file.Abilities))
	for i, entry := range file.Abilities {
		request, err := resourceDomain.ParseAbilityRequest(entry.Resource, entry.Ability)
		if err != nil {
			return nil, fmt.Errorf("abilities[%d]: %w", i, err)
		}
		abilities = append(abilities, request)
	}

	return &sessionUseCase.Request{
		Abilities:        abilities,
		Lifetime:         file.Lifetime,
		NotBefore:        file.NotBefore,
		ExtraStatement:   file.Statement,
		DelegationIssuer: file.DelegationIssuer,
	}, nil
}

// RunCreateSession authorizes a session for the abilities listed in
// requestYAML and prints the signed statement. delegationJSON is an optional
// grant produced by issue-delegation. The session key never leaves the
// process and is destroyed before returning.
func RunCreateSession(
	ctx context.Context,
	authority sessionUseCase.Authority,
	logger *slog.Logger,
	io IOTuple,
	requestYAML []byte,
	delegationJSON []byte,
	format string,
) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	req, err := ParseSessionRequest(requestYAML)
	if err != nil {
		return err
	}
	if len(delegationJSON) > 0 {
		var grant delegationDomain.Grant
		if err := json.Unmarshal(delegationJSON, &grant); err != nil {
			return fmt.Errorf("failed to parse delegation grant: %w", err)
		}
		req.Delegation = &grant
	}

	session, err := authority.Authorize(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to authorize session: %w", err)
	}
	defer session.Destroy()

	statement := session.Statement()
	logger.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.String("subject", statement.Subject),
	)

	output := createdSession{
		SessionID:  session.ID.String(),
		SessionKey: session.SessionKey(),
		NotBefore:  statement.NotBefore,
		NotAfter:   statement.NotAfter,
		Signed:     &session.Signed,
	}
	if format == "json" {
		return outputJSON(io.Writer, output)
	}
	outputSessionText(io.Writer, output)
	return nil
}

func outputSessionText(writer io.Writer, output createdSession) {
	_, _ = fmt.Fprintf(writer, "Session ID:  %s\n", output.SessionID)
	_, _ = fmt.Fprintf(writer, "Session key: %s\n", output.SessionKey)
	_, _ = fmt.Fprintf(writer, "Subject:     %s\n", output.Signed.Statement.Subject)
	_, _ = fmt.Fprintf(writer, "Valid:       %s - %s\n",
		output.NotBefore.Format(time.RFC3339), output.NotAfter.Format(time.RFC3339))
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, string(output.Signed.SignedMessage))
}
