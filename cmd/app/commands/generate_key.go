package commands

import (
	"fmt"
	"log/slog"

	signerService "github.com/allisson/sessionsig/internal/signer/service"
)

// generatedKey is the json output of RunGenerateKey.
type generatedKey struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

// RunGenerateKey creates a secp256k1 root key and prints its address and the
// hex private key. The key can be passed to create-session and
// issue-delegation through --private-key or ROOT_PRIVATE_KEY.
//
// Security: the private key is written to the output in clear. Use it for
// development and tests only.
func RunGenerateKey(logger *slog.Logger, io IOTuple, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}

	signer, err := signerService.GenerateLocalKeySigner()
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	logger.Info("root key generated", slog.String("address", signer.Address()))

	output := generatedKey{Address: signer.Address(), PrivateKey: signer.PrivateKeyHex()}
	if format == "json" {
		return outputJSON(io.Writer, output)
	}

	_, _ = fmt.Fprintf(io.Writer, "ADDRESS=\"%s\"\n", output.Address)
	_, _ = fmt.Fprintf(io.Writer, "ROOT_PRIVATE_KEY=\"%s\"\n", output.PrivateKey)
	return nil
}
