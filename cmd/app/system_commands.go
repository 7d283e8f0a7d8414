package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/sessionsig/cmd/app/commands"
	"github.com/allisson/sessionsig/internal/app"
	"github.com/allisson/sessionsig/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the verification HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "generate-key",
			Usage: "Generate a new secp256k1 root key and print its address",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunGenerateKey(container.Logger(), commands.DefaultIO(), cmd.String("format"))
			},
		},
	}
}
