package commands

import (
	"context"
	"fmt"
	"log/slog"

	delegationService "github.com/allisson/sessionsig/internal/delegation/service"
	signerService "github.com/allisson/sessionsig/internal/signer/service"
)

// RunIssueDelegation signs a capacity delegation grant with issuer and writes
// it as json. The output is accepted by create-session --delegation.
func RunIssueDelegation(
	ctx context.Context,
	issuer signerService.Signer,
	logger *slog.Logger,
	io IOTuple,
	input delegationService.IssueInput,
) error {
	grant, err := delegationService.Issue(ctx, issuer, input)
	if err != nil {
		return fmt.Errorf("failed to issue delegation: %w", err)
	}

	grantID, err := delegationService.GrantID(grant)
	if err != nil {
		return fmt.Errorf("failed to compute grant id: %w", err)
	}

	logger.Info("delegation issued",
		slog.String("grant_id", grantID),
		slog.String("issuer", grant.Issuer),
		slog.Int("delegatees", len(grant.Delegatees)),
		slog.Time("expiry", grant.Expiry),
	)

	return outputJSON(io.Writer, grant)
}
