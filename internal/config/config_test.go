package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8, cfg.Ingest.AuthBatchSize)
	assert.Equal(t, 4, cfg.Ingest.AnonBatchSize)
	assert.Equal(t, 100_000, cfg.Ingest.MaxFileBytes)
	assert.Equal(t, 3, cfg.GitHub.MaxAttempts)
	assert.Zero(t, cfg.GitHub.MaxRateLimitWait)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"bad shutdown", func(c *Config) { c.Server.ShutdownTimeout = -1 }, "shutdown timeout"},
		{"telemetry without name", func(c *Config) {
			c.Observability.EnableTelemetry = true
			c.Observability.ServiceName = ""
		}, "service name"},
		{"bad otlp protocol", func(c *Config) { c.Observability.OTLPProtocol = "udp" }, "otlp protocol"},
		{"bad sample rate", func(c *Config) { c.Observability.SampleRate = 1.5 }, "sample rate"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"zero attempts", func(c *Config) { c.GitHub.MaxAttempts = 0 }, "max_attempts"},
		{"negative rate limit wait", func(c *Config) { c.GitHub.MaxRateLimitWait = -time.Second }, "max_rate_limit_wait"},
		{"zero batch", func(c *Config) { c.Ingest.AnonBatchSize = 0 }, "batch sizes"},
		{"zero file cap", func(c *Config) { c.Ingest.MaxFileBytes = 0 }, "max_file_bytes"},
		{"zero results", func(c *Config) { c.Search.MaxResults = 0 }, "search caps"},
		{"zero archive", func(c *Config) { c.Upload.MaxArchiveBytes = 0 }, "max_archive_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecret_NeverLeaks(t *testing.T) {
	s := Secret("ghp_supersecret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "supersecret")
	assert.Equal(t, "ghp_supersecret", s.Value())
	assert.True(t, s.IsSet())

	b, err := json.Marshal(struct{ Token Secret }{s})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "supersecret")

	var empty Secret
	assert.False(t, empty.IsSet())
	assert.Equal(t, "", empty.String())
}
