// Package config provides configuration loading for repolens.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then environment variables. See LoadWithFile for the precedence rules.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete repolens configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Log           LogConfig           `koanf:"log"`
	GitHub        GitHubConfig        `koanf:"github"`
	Ingest        IngestConfig        `koanf:"ingest"`
	Search        SearchConfig        `koanf:"search"`
	Projects      ProjectsConfig      `koanf:"projects"`
	Upload        UploadConfig        `koanf:"upload"`
	Assistant     AssistantConfig     `koanf:"assistant"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`

	// OTLPEndpoint is the collector address, host:port.
	OTLPEndpoint string `koanf:"otlp_endpoint"`

	// OTLPProtocol is "grpc" or "http/protobuf".
	OTLPProtocol string `koanf:"otlp_protocol"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`

	// SampleRate is the trace sampling ratio in (0, 1].
	SampleRate      float64       `koanf:"sample_rate"`
	MetricsInterval time.Duration `koanf:"metrics_interval"`
}

// LogConfig selects the log level and encoder.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// GitHubConfig holds GitHub REST API access settings.
type GitHubConfig struct {
	// Token is the default credential used when a request does not carry its own.
	Token Secret `koanf:"token"`

	// BaseURL overrides https://api.github.com/ (GitHub Enterprise, tests).
	BaseURL string `koanf:"base_url"`

	MaxAttempts      int           `koanf:"max_attempts"`
	Backoff          time.Duration `koanf:"backoff"`
	ResetBuffer      time.Duration `koanf:"reset_buffer"`
	// MaxRateLimitWait caps a single rate-limit wait. Zero leaves the wait
	// bounded only by the ingestion timeout.
	MaxRateLimitWait time.Duration `koanf:"max_rate_limit_wait"`

	// ListingInterval spaces directory listings during manual traversal.
	ListingInterval time.Duration `koanf:"listing_interval"`
}

// IngestConfig holds batching and budget settings for repository ingestion.
//
// The batch numbers encode GitHub's current rate-limit budget and are meant to
// be tuned, not treated as fixed.
type IngestConfig struct {
	AuthBatchSize  int           `koanf:"auth_batch_size"`
	AuthBatchDelay time.Duration `koanf:"auth_batch_delay"`
	AnonBatchSize  int           `koanf:"anon_batch_size"`
	AnonBatchDelay time.Duration `koanf:"anon_batch_delay"`
	MaxFileBytes   int           `koanf:"max_file_bytes"`
	Timeout        time.Duration `koanf:"timeout"`
}

// SearchConfig holds relevance ranking caps.
type SearchConfig struct {
	MaxResults int `koanf:"max_results"`
	LineScan   int `koanf:"line_scan"`
}

// ProjectsConfig bounds the in-memory project cache.
type ProjectsConfig struct {
	MaxEntries int           `koanf:"max_entries"`
	TTL        time.Duration `koanf:"ttl"`
}

// UploadConfig bounds ZIP archive uploads.
type UploadConfig struct {
	MaxArchiveBytes int64 `koanf:"max_archive_bytes"`
	MaxEntries      int   `koanf:"max_entries"`
	MaxTotalBytes   int64 `koanf:"max_total_bytes"`
}

// AssistantConfig configures the completion backends, tried in order.
type AssistantConfig struct {
	OpenAI OpenAIConfig `koanf:"openai"`
	Gemini GeminiConfig `koanf:"gemini"`

	// PromptChars bounds the search context injected into a prompt.
	PromptChars int `koanf:"prompt_chars"`
}

// OpenAIConfig configures an OpenAI-compatible completion endpoint.
type OpenAIConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// GeminiConfig configures the Gemini API backend.
type GeminiConfig struct {
	Model  string `koanf:"model"`
	APIKey Secret `koanf:"api_key"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Any batch size or retry bound is not positive
//   - Service name is empty (when telemetry is enabled)
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	if p := c.Observability.OTLPProtocol; p != "grpc" && p != "http/protobuf" {
		return fmt.Errorf("otlp protocol must be 'grpc' or 'http/protobuf', got %q", p)
	}
	if r := c.Observability.SampleRate; r <= 0 || r > 1 {
		return fmt.Errorf("sample rate must be in (0, 1], got %v", r)
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}

	if c.GitHub.MaxAttempts < 1 {
		return fmt.Errorf("github max_attempts must be >= 1, got %d", c.GitHub.MaxAttempts)
	}
	if c.GitHub.MaxRateLimitWait < 0 {
		return fmt.Errorf("github max_rate_limit_wait must not be negative, got %s", c.GitHub.MaxRateLimitWait)
	}
	if c.Ingest.AuthBatchSize < 1 || c.Ingest.AnonBatchSize < 1 {
		return fmt.Errorf("ingest batch sizes must be >= 1 (auth=%d, anon=%d)",
			c.Ingest.AuthBatchSize, c.Ingest.AnonBatchSize)
	}
	if c.Ingest.MaxFileBytes < 1 {
		return fmt.Errorf("ingest max_file_bytes must be >= 1, got %d", c.Ingest.MaxFileBytes)
	}

	if c.Search.MaxResults < 1 || c.Search.LineScan < 0 {
		return fmt.Errorf("invalid search caps: max_results=%d line_scan=%d",
			c.Search.MaxResults, c.Search.LineScan)
	}

	if c.Upload.MaxArchiveBytes <= 0 {
		return errors.New("upload max_archive_bytes must be positive")
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9191
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "repolens"
	}
	if cfg.Observability.OTLPEndpoint == "" {
		cfg.Observability.OTLPEndpoint = "localhost:4317"
		cfg.Observability.OTLPInsecure = true
	}
	if cfg.Observability.OTLPProtocol == "" {
		cfg.Observability.OTLPProtocol = "grpc"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}
	if cfg.Observability.MetricsInterval == 0 {
		cfg.Observability.MetricsInterval = 15 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	// GitHub defaults mirror the observed API behavior: 3 attempts, 1s
	// linear backoff, reset time plus a 1s buffer.
	if cfg.GitHub.MaxAttempts == 0 {
		cfg.GitHub.MaxAttempts = 3
	}
	if cfg.GitHub.Backoff == 0 {
		cfg.GitHub.Backoff = time.Second
	}
	if cfg.GitHub.ResetBuffer == 0 {
		cfg.GitHub.ResetBuffer = time.Second
	}
	if cfg.GitHub.ListingInterval == 0 {
		cfg.GitHub.ListingInterval = 500 * time.Millisecond
	}

	if cfg.Ingest.AuthBatchSize == 0 {
		cfg.Ingest.AuthBatchSize = 8
	}
	if cfg.Ingest.AuthBatchDelay == 0 {
		cfg.Ingest.AuthBatchDelay = 800 * time.Millisecond
	}
	if cfg.Ingest.AnonBatchSize == 0 {
		cfg.Ingest.AnonBatchSize = 4
	}
	if cfg.Ingest.AnonBatchDelay == 0 {
		cfg.Ingest.AnonBatchDelay = 1500 * time.Millisecond
	}
	if cfg.Ingest.MaxFileBytes == 0 {
		cfg.Ingest.MaxFileBytes = 100_000
	}
	if cfg.Ingest.Timeout == 0 {
		cfg.Ingest.Timeout = 10 * time.Minute
	}

	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 10
	}
	if cfg.Search.LineScan == 0 {
		cfg.Search.LineScan = 30
	}

	if cfg.Projects.MaxEntries == 0 {
		cfg.Projects.MaxEntries = 64
	}
	if cfg.Projects.TTL == 0 {
		cfg.Projects.TTL = 2 * time.Hour
	}

	if cfg.Upload.MaxArchiveBytes == 0 {
		cfg.Upload.MaxArchiveBytes = 50 << 20
	}
	if cfg.Upload.MaxEntries == 0 {
		cfg.Upload.MaxEntries = 20_000
	}
	if cfg.Upload.MaxTotalBytes == 0 {
		cfg.Upload.MaxTotalBytes = 200 << 20
	}

	if cfg.Assistant.PromptChars == 0 {
		cfg.Assistant.PromptChars = 12_000
	}
	if cfg.Assistant.Gemini.Model == "" {
		cfg.Assistant.Gemini.Model = "gemini-2.5-flash"
	}
}
