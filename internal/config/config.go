// Package config provides configuration loading for authd.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. The collector endpoint is taken from the
// conventional OTEL_EXPORTER_OTLP_ENDPOINT variable; with telemetry
// enabled (the default) its absence is a fatal startup error.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/authd/internal/logging"
	"github.com/fyrsmithlabs/authd/internal/telemetry"
)

// Config holds the complete authd configuration.
type Config struct {
	Service   ServiceConfig    `koanf:"service"`
	Server    ServerConfig     `koanf:"server"`
	Telemetry telemetry.Config `koanf:"telemetry"`
	Logging   logging.Config   `koanf:"logging"`
}

// ServiceConfig identifies this process. These values become the
// resource identity attached to every emitted signal and are immutable
// after process start.
type ServiceConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	// TableName surfaces in the success payload. Optional; omitted from
	// responses when unset.
	TableName string `koanf:"table_name"`
}

// ServerConfig holds the HTTP front configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// RateLimit caps accepted requests per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// NewDefaultConfig returns configuration with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "auth-service-19987",
			Version:     "0.1.0",
			Environment: "production",
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       0,
			RateBurst:       0,
		},
		Telemetry: *telemetry.NewDefaultConfig(),
		Logging:   *logging.NewDefaultConfig(),
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Service name is empty
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Rate limit is negative or has no burst
//   - Telemetry or logging config is invalid (including a missing
//     collector endpoint while telemetry is enabled)
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.Service.Environment == "" {
		return fmt.Errorf("service environment is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("rate burst must be >= 1 when rate limit enabled")
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}
