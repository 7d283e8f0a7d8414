package commands

import (
	"fmt"
	"log/slog"
	"strings"

	conditionService "github.com/allisson/sessionsig/internal/condition/service"
)

// encodedConditions is the json output of RunEncodeConditions.
type encodedConditions struct {
	Canonical   string `json:"canonical"`
	ContentHash string `json:"content_hash"`
	ResourceID  string `json:"resource_id"`
	Resource    string `json:"resource"`
	Ability     string `json:"ability"`
}

// RunEncodeConditions canonicalizes a JSON condition set and binds it to
// content. Exactly one of content and contentHash must be set; content is
// hashed with SHA-256.
func RunEncodeConditions(
	logger *slog.Logger,
	io IOTuple,
	conditionsJSON []byte,
	content []byte,
	contentHash string,
	format string,
) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if (content == nil) == (contentHash == "") {
		return fmt.Errorf("exactly one of content or content hash is required")
	}

	set, err := conditionService.ParseConditions(conditionsJSON)
	if err != nil {
		return fmt.Errorf("invalid conditions: %w", err)
	}
	canonical, err := conditionService.Canonicalize(set)
	if err != nil {
		return fmt.Errorf("invalid conditions: %w", err)
	}
	if content != nil {
		contentHash = conditionService.HashContent(content)
	}
	contentHash = strings.ToLower(contentHash)

	request, err := conditionService.DecryptionRequest(set, contentHash)
	if err != nil {
		return err
	}

	logger.Debug("conditions encoded", slog.String("resource", request.Resource.URI()))

	output := encodedConditions{
		Canonical:   canonical,
		ContentHash: contentHash,
		ResourceID:  request.Resource.Identifier(),
		Resource:    request.Resource.URI(),
		Ability:     string(request.Ability),
	}
	if format == "json" {
		return outputJSON(io.Writer, output)
	}

	_, _ = fmt.Fprintf(io.Writer, "Canonical:    %s\n", output.Canonical)
	_, _ = fmt.Fprintf(io.Writer, "Content hash: %s\n", output.ContentHash)
	_, _ = fmt.Fprintf(io.Writer, "Resource:     %s\n", output.Resource)
	_, _ = fmt.Fprintf(io.Writer, "Ability:      %s\n", output.Ability)
	return nil
}
