package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// endpointEnvVar is the conventional OTLP endpoint variable. It maps
	// to telemetry.endpoint as a special case so operators can configure
	// authd the same way they configure any OTLP-speaking process.
	endpointEnvVar = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SERVER_PORT, TELEMETRY_ENDPOINT, etc.)
//  2. YAML config file (the configPath parameter; skipped when empty
//     or the file does not exist)
//  3. Hardcoded defaults (NewDefaultConfig)
//
// # Security Considerations
//
// File Permissions: the configuration file must have 0600 or 0400
// permissions. World-readable files are rejected.
//
// File Size Limit: configuration files larger than 1MB are rejected.
//
// # Environment Variable Mapping
//
// Environment variables use underscore separation and are uppercased.
// The transformer maps SECTION_FIELD_NAME to section.field_name:
//
//	SERVER_PORT              -> server.port
//	SERVICE_TABLE_NAME       -> service.table_name
//	TELEMETRY_PROTOCOL       -> telemetry.protocol
//	OTEL_EXPORTER_OTLP_ENDPOINT -> telemetry.endpoint (special case)
//
// # Fatal conditions
//
// Load returns an error when validation fails, including the one
// non-recoverable startup condition: telemetry enabled (the default)
// with no collector endpoint configured.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Load from YAML file if one was given and exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			// Open once and validate through the same file descriptor to
			// avoid a TOCTOU race between stat and read.
			f, err := os.Open(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return nil, fmt.Errorf("failed to stat config file: %w", err)
			}

			if err := validateConfigFileProperties(info); err != nil {
				return nil, fmt.Errorf("config file validation failed: %w", err)
			}

			content, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}

			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	// Override with environment variables
	if err := k.Load(env.Provider("", ".", transformEnvVar), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal over defaults: keys absent from file and environment
	// keep their default values.
	cfg := NewDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The service section is the source of truth for resource identity.
	cfg.Telemetry.ServiceName = cfg.Service.Name
	cfg.Telemetry.ServiceVersion = cfg.Service.Version
	cfg.Telemetry.Environment = cfg.Service.Environment

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// transformEnvVar maps an environment variable name to a config key.
//
// Strategy: split on the first underscore only (section.field_name
// pattern), with the conventional OTLP endpoint variable special-cased.
//
// Examples:
//
//	SERVER_PORT            -> server.port
//	SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout
//	LOGGING_FORMAT         -> logging.format
func transformEnvVar(s string) string {
	if s == endpointEnvVar {
		return "telemetry.endpoint"
	}

	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)

	if len(parts) == 1 {
		// No underscore: simple field (unlikely for config)
		return lower
	}

	return parts[0] + "." + parts[1]
}

// validateConfigFileProperties checks file permissions and size.
// Takes FileInfo from an already-opened file descriptor to avoid a
// TOCTOU race.
func validateConfigFileProperties(info os.FileInfo) error {
	// Check file permissions (must be 0600 or 0400)
	// Skip on Windows (different permission model)
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	// Check file size (max 1MB)
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}
