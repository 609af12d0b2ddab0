package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"threejsmcp/internal/app"
	"threejsmcp/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "threejsmcp",
		Usage: "Sketchfab model search and download bridge",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
		},
		Commands: []*cli.Command{
			startCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "serve the model query tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
			},
			&cli.StringFlag{
				Name:  "transport",
				Usage: "tool transport (stdio|http)",
				Value: string(app.DefaultConfigTransport),
			},
			&cli.StringFlag{
				Name:  "server--host",
				Usage: "server host (http transport)",
				Value: app.DefaultConfigServerHost,
			},
			&cli.IntFlag{
				Name:  "server--port",
				Usage: "server port (http transport)",
				Value: int(app.DefaultConfigServerPort),
			},
			&cli.StringFlag{
				Name:  "upstream--base-url",
				Usage: "Sketchfab API base URL",
				Value: app.DefaultConfigUpstreamBaseURL,
			},
			&cli.StringFlag{
				Name:  "upstream--token-url",
				Usage: "Sketchfab OAuth2 token endpoint",
				Value: app.DefaultConfigUpstreamTokenURL,
			},
			&cli.StringFlag{
				Name:  "auth--storage",
				Usage: "credential storage backend (file|keyring)",
			},
			&cli.StringFlag{
				Name:  "auth--file",
				Usage: "path to the credential file (file storage)",
			},
			&cli.StringFlag{
				Name:  "auth--access-token",
				Usage: "Sketchfab OAuth2 access token for authentication",
			},
			&cli.StringFlag{
				Name:  "auth--refresh-token",
				Usage: "Sketchfab OAuth2 refresh token for renewing access",
			},
			&cli.StringFlag{
				Name:  "auth--client-id",
				Usage: "Sketchfab OAuth2 client ID",
			},
			&cli.StringFlag{
				Name:  "auth--client-secret",
				Usage: "Sketchfab OAuth2 client secret",
			},
		},
		Action: startAction,
	}
}

func startAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	err = observability.Instrument(cfg.LogLevel, string(cfg.LogFormat))
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting", "transport", string(cfg.Transport))

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
