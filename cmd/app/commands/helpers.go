// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/allisson/sessionsig/internal/app"
	resourceDomain "github.com/allisson/sessionsig/internal/resource/domain"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// checkFormat returns an error unless format is "text" or "json".
func checkFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
}

// outputJSON writes v as indented JSON.
func outputJSON(writer io.Writer, v any) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// ParseAbilityFlag parses "<resource-uri>#<ability>", for example
// "lit-pkp://*#pkp-signing".
func ParseAbilityFlag(value string) (resourceDomain.AbilityRequest, error) {
	idx := strings.LastIndex(value, "#")
	if idx <= 0 || idx == len(value)-1 {
		return resourceDomain.AbilityRequest{}, fmt.Errorf(
			"invalid ability %q (expected <resource-uri>#<ability>)", value,
		)
	}
	return resourceDomain.ParseAbilityRequest(value[:idx], value[idx+1:])
}

// ParseAbilityFlags parses every value with ParseAbilityFlag.
func ParseAbilityFlags(values []string) ([]resourceDomain.AbilityRequest, error) {
	requests := make([]resourceDomain.AbilityRequest, 0, len(values))
	for _, value := range values {
		request, err := ParseAbilityFlag(value)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}
