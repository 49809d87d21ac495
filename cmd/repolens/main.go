// Repolens ingests GitHub repositories or ZIP archives into memory and
// answers questions about them.
//
// Usage:
//
//	# Start the HTTP API
//	repolens serve
//
//	# Ingest a repository and print its summary
//	GITHUB_TOKEN=ghp_... repolens ingest acme/widget
//
//	# Search a local checkout
//	repolens search --dir . "where is the router"
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	noColor    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "repolens",
		Short: "Explore GitHub repositories and ZIP archives",
		Long: `repolens pulls the text files of a repository into memory, ranks them
against questions, and runs a lightweight static analysis over single files.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/repolens/config.yaml)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newSearchCmd(),
		newAnalyzeCmd(),
		newReadmeCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "repolens by Fyrsmith Labs\n")
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", buildDate)
}

// app bundles what every command needs.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
}

// setup loads configuration and starts logging and telemetry. Call close
// when done.
//
// Telemetry comes first so the logger can bridge into the OTEL log
// provider when it is enabled.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logCfg, err := logging.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg, version), zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := logging.NewLogger(logCfg, global.GetLoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if tel.Health().Degraded {
		logger.Warn(ctx, "telemetry degraded, continuing without export")
	}

	return &app{cfg: cfg, logger: logger, telemetry: tel}, nil
}

func (a *app) close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync() // Best-effort sync on shutdown
}
