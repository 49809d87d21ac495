// Package telemetry wires the OpenTelemetry trace and metric SDKs to an OTLP
// collector.
//
// Instrumented packages use the global otel providers; New replaces them
// when telemetry is enabled and leaves the no-op defaults otherwise.
// Telemetry failures never stop the service: a provider that cannot be
// built marks the instance degraded and its signal stays no-op.
package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/config"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	Endpoint       string
	Protocol       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string

	// SampleRate is the parent-based trace sampling ratio.
	SampleRate float64

	MetricsInterval time.Duration
	ShutdownTimeout time.Duration
}

// NewDefaultConfig returns local-collector defaults with telemetry off.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:         false,
		Endpoint:        "localhost:4317",
		Protocol:        "grpc",
		Insecure:        true,
		ServiceName:     "repolens",
		ServiceVersion:  "dev",
		SampleRate:      1.0,
		MetricsInterval: 15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// FromAppConfig derives telemetry settings from the observability section.
func FromAppConfig(cfg *config.Config, version string) *Config {
	obs := cfg.Observability
	out := NewDefaultConfig()
	out.Enabled = obs.EnableTelemetry
	out.Endpoint = obs.OTLPEndpoint
	out.Protocol = obs.OTLPProtocol
	out.Insecure = obs.OTLPInsecure
	out.ServiceName = obs.ServiceName
	out.SampleRate = obs.SampleRate
	out.MetricsInterval = obs.MetricsInterval
	if version != "" {
		out.ServiceVersion = version
	}
	if cfg.Server.ShutdownTimeout > 0 {
		out.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	return out
}

// Validate checks configuration for errors. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}
	if c.Protocol != "grpc" && c.Protocol != "http/protobuf" {
		return fmt.Errorf("protocol must be grpc or http/protobuf, got %q", c.Protocol)
	}

	// Plaintext export is only allowed to a collector on this host.
	if c.Insecure && !c.isLocalEndpoint() {
		return fmt.Errorf("insecure connections to remote endpoints are not allowed; set insecure=false for TLS or use a local endpoint (localhost/127.0.0.1)")
	}

	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1, got %f", c.SampleRate)
	}
	if c.MetricsInterval <= 0 {
		return fmt.Errorf("metrics interval must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// isLocalEndpoint checks if the endpoint is a loopback address.
func (c *Config) isLocalEndpoint() bool {
	host := stripScheme(c.Endpoint)

	if strings.HasPrefix(host, "[") {
		// [::1]:4317 or [::1]
		if idx := strings.Index(host, "]:"); idx != -1 {
			host = host[1:idx]
		} else if strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	} else if strings.Count(host, ":") == 1 {
		host = host[:strings.LastIndex(host, ":")]
	}

	return host == "localhost" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(host, "::1:")
}
