package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repolens/internal/archive"
	"github.com/fyrsmithlabs/repolens/internal/assistant"
	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/ghclient"
	httpapi "github.com/fyrsmithlabs/repolens/internal/http"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/project"
	"github.com/fyrsmithlabs/repolens/internal/search"
)

func newIngestor(cfg *config.Config, logger *zap.Logger) *ingest.Ingestor {
	retry := ghclient.DefaultRetryConfig()
	retry.MaxAttempts = cfg.GitHub.MaxAttempts
	retry.Backoff = cfg.GitHub.Backoff
	retry.ResetBuffer = cfg.GitHub.ResetBuffer
	retry.MaxRateLimitWait = cfg.GitHub.MaxRateLimitWait

	connect := ingest.GitHub(ghclient.Options{
		BaseURL:         cfg.GitHub.BaseURL,
		Retry:           retry,
		ListingInterval: cfg.GitHub.ListingInterval,
		UserAgent:       "repolens/" + version,
		Logger:          logger.Named("github"),
	})
	return ingest.New(connect, ingest.OptionsFromConfig(cfg.Ingest), logger.Named("ingest"))
}

func newExtractor(cfg *config.Config, logger *zap.Logger) *archive.Extractor {
	return archive.New(archive.OptionsFromConfig(cfg.Upload, cfg.Ingest), logger.Named("archive"))
}

func newEngine(cfg *config.Config) search.Engine {
	return search.Engine{MaxResults: cfg.Search.MaxResults, LineScan: cfg.Search.LineScan}
}

func newAssistant(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*assistant.Assistant, error) {
	chain, err := assistant.ChainFromConfig(ctx, cfg.Assistant, logger.Named("assistant"))
	if err != nil {
		return nil, fmt.Errorf("failed to configure completion backends: %w", err)
	}
	return assistant.New(chain, assistant.Options{
		PromptChars: cfg.Assistant.PromptChars,
		Engine:      newEngine(cfg),
	}, logger.Named("assistant")), nil
}

// newServer wires every service behind the HTTP API.
func newServer(ctx context.Context, a *app) (*httpapi.Server, error) {
	logger := a.logger.Underlying()

	asst, err := newAssistant(ctx, a.cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("completion backends configured", zap.Int("count", asst.Backends()))

	deps := httpapi.Deps{
		Ingester:  newIngestor(a.cfg, logger),
		Extractor: newExtractor(a.cfg, logger),
		Assistant: asst,
		Store:     project.NewStore(a.cfg.Projects.MaxEntries, a.cfg.Projects.TTL),
		Engine:    newEngine(a.cfg),
	}
	return httpapi.NewServer(deps, logger.Named("http"), &httpapi.Config{
		Host:            a.cfg.Server.Host,
		Port:            a.cfg.Server.Port,
		MaxArchiveBytes: a.cfg.Upload.MaxArchiveBytes,
		DefaultToken:    a.cfg.GitHub.Token,
	})
}

// parseRepoArg splits owner/repo, tolerating a github.com prefix and a
// .git suffix.
func parseRepoArg(s string) (owner, repo string, err error) {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://", "http://", "www.", "github.com/"} {
		s = strings.TrimPrefix(s, prefix)
	}
	owner, repo, ok := strings.Cut(strings.Trim(s, "/"), "/")
	repo = strings.TrimSuffix(repo, ".git")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository must be owner/repo, got %q", s)
	}
	return owner, repo, nil
}
