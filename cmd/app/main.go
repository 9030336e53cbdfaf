package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/mcpserver"
	pkgconfig "github.com/starford/ansuz/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runAssemble(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg)

	svc, _, err := internal.NewService(cfg, logger)
	if err != nil {
		return err
	}

	text, err := svc.RenderedContext(ctx, cmd.StringSlice("attached"), cmd.StringSlice("agent"))
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	fmt.Println(text)
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout stays clean for the MCP transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, _, err := internal.NewService(cfg, logger)
	if err != nil {
		return err
	}

	return mcpserver.New(svc).ServeStdio()
}

func main() {
	configFlag := func() *cli.StringFlag {
		return &cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		}
	}

	cmd := &cli.Command{
		Name:   "ansuz",
		Usage:  "Documentation context assembler: builds a link graph over Markdown docs and hands ordered context to AI agents",
		Action: runServe,
		Flags:  []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server and rebuild watcher",
				Action: runServe,
				Flags:  []cli.Flag{configFlag()},
			},
			{
				Name:   "assemble",
				Usage:  "Assemble context once and print it to stdout",
				Action: runAssemble,
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringSliceFlag{
						Name:    "attached",
						Aliases: []string{"a"},
						Usage:   "File the user has open (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:    "agent",
						Aliases: []string{"g"},
						Usage:   "Document selected by description (repeatable)",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP stdio transport",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag()},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
