package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allisson/sessionsig/cmd/app/commands"
	"github.com/allisson/sessionsig/internal/app"
	"github.com/allisson/sessionsig/internal/config"
	delegationService "github.com/allisson/sessionsig/internal/delegation/service"
	signerService "github.com/allisson/sessionsig/internal/signer/service"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

// readOptionalFile returns nil when path is empty.
func readOptionalFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func getSessionCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-session",
			Usage: "Authorize a session key with a root key signature",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "request",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "YAML file with lifetime, statement and abilities",
				},
				&cli.StringFlag{
					Name:    "delegation",
					Aliases: []string{"d"},
					Usage:   "JSON grant produced by issue-delegation",
				},
				&cli.StringFlag{
					Name:     "private-key",
					Required: true,
					Sources:  cli.EnvVars("ROOT_PRIVATE_KEY"),
					Usage:    "Hex secp256k1 root key",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				request, err := os.ReadFile(cmd.String("request"))
				if err != nil {
					return fmt.Errorf("failed to read request: %w", err)
				}
				delegation, err := readOptionalFile(cmd.String("delegation"))
				if err != nil {
					return err
				}

				signer, err := signerService.NewLocalKeySignerFromHex(cmd.String("private-key"))
				if err != nil {
					return err
				}
				authority, err := container.SessionAuthority(signer)
				if err != nil {
					return err
				}

				return commands.RunCreateSession(
					ctx,
					authority,
					container.Logger(),
					commands.DefaultIO(),
					request,
					delegation,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "verify-session",
			Usage: "Verify a signed session statement against required abilities",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "input",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "JSON output of create-session or a bare signed statement",
				},
				&cli.StringSliceFlag{
					Name:    "ability",
					Aliases: []string{"a"},
					Usage:   "Required ability as <resource>#<ability>; defaults to the statement abilities",
				},
				&cli.StringFlag{
					Name:  "at",
					Usage: "Verification time in RFC3339; defaults to now",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				input, err := os.ReadFile(cmd.String("input"))
				if err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				required, err := commands.ParseAbilityFlags(cmd.StringSlice("ability"))
				if err != nil {
					return err
				}
				var at time.Time
				if value := cmd.String("at"); value != "" {
					at, err = time.Parse(time.RFC3339, value)
					if err != nil {
						return fmt.Errorf("invalid --at: %w", err)
					}
				}

				verifier, err := container.Verifier()
				if err != nil {
					return err
				}

				return commands.RunVerifySession(
					ctx,
					verifier,
					container.Logger(),
					commands.DefaultIO(),
					input,
					required,
					at,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "issue-delegation",
			Usage: "Issue a signed capacity delegation grant",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "private-key",
					Required: true,
					Sources:  cli.EnvVars("ISSUER_PRIVATE_KEY"),
					Usage:    "Hex secp256k1 key of the capacity owner",
				},
				&cli.StringSliceFlag{
					Name:  "delegatee",
					Usage: "Address allowed to use the grant (repeatable); empty means anyone",
				},
				&cli.IntFlag{
					Name:  "max-uses",
					Usage: "Maximum number of uses; 0 means unlimited",
				},
				&cli.StringFlag{
					Name:  "capacity-token-id",
					Usage: "Capacity credit token id",
				},
				&cli.IntFlag{
					Name:  "requests-per-kilosecond",
					Usage: "Rate limit granted to delegatees",
				},
				&cli.DurationFlag{
					Name:  "expires-in",
					Value: 24 * time.Hour,
					Usage: "Grant lifetime",
				},
				&cli.StringSliceFlag{
					Name:    "ability",
					Aliases: []string{"a"},
					Usage:   "Restrict the grant to <resource>#<ability> (repeatable)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				abilities, err := commands.ParseAbilityFlags(cmd.StringSlice("ability"))
				if err != nil {
					return err
				}
				maxUses, rate := cmd.Int("max-uses"), cmd.Int("requests-per-kilosecond")
				if maxUses < 0 || rate < 0 {
					return fmt.Errorf("--max-uses and --requests-per-kilosecond must not be negative")
				}

				issuer, err := signerService.NewLocalKeySignerFromHex(cmd.String("private-key"))
				if err != nil {
					return err
				}

				return commands.RunIssueDelegation(
					ctx,
					issuer,
					container.Logger(),
					commands.DefaultIO(),
					delegationService.IssueInput{
						Delegatees:            cmd.StringSlice("delegatee"),
						MaxUses:               uint64(maxUses),
						CapacityTokenID:       cmd.String("capacity-token-id"),
						RequestsPerKilosecond: uint64(rate),
						Abilities:             abilities,
						Expiry:                time.Now().Add(cmd.Duration("expires-in")),
					},
				)
			},
		},
		{
			Name:  "encode-conditions",
			Usage: "Canonicalize access control conditions and derive the decryption resource",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "conditions",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "JSON file with the condition set",
				},
				&cli.StringFlag{
					Name:  "content",
					Usage: "File whose SHA-256 binds the conditions",
				},
				&cli.StringFlag{
					Name:  "content-hash",
					Usage: "Hex SHA-256 of the content, instead of --content",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				conditions, err := os.ReadFile(cmd.String("conditions"))
				if err != nil {
					return fmt.Errorf("failed to read conditions: %w", err)
				}
				var content []byte
				if path := cmd.String("content"); path != "" {
					content, err = os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("failed to read content: %w", err)
					}
					if content == nil {
						content = []byte{}
					}
				}

				return commands.RunEncodeConditions(
					container.Logger(),
					commands.DefaultIO(),
					conditions,
					content,
					cmd.String("content-hash"),
					cmd.String("format"),
				)
			},
		},
	}
}
