package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the repolens HTTP API.

Configuration is read from ~/.config/repolens/config.yaml and environment
variables such as SERVER_HTTP_PORT and GITHUB_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

// runServe starts the server and blocks until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func runServe(ctx context.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	srv, err := newServer(ctx, a)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	a.logger.Info(ctx, "starting repolens",
		zap.String("version", version),
		zap.Int("port", a.cfg.Server.Port),
		zap.Bool("github_token", a.cfg.GitHub.Token.IsSet()),
		zap.Duration("shutdown_timeout", a.cfg.Server.ShutdownTimeout),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info(ctx, "shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	a.logger.Info(ctx, "server shutdown complete")
	return nil
}
