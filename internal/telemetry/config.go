// Package telemetry provides OpenTelemetry instrumentation for authd.
package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool           `koanf:"enabled"`
	Endpoint       string         `koanf:"endpoint"`
	Protocol       string         `koanf:"protocol"` // "grpc" (default) or "http/protobuf"
	ServiceName    string         `koanf:"service_name"`
	ServiceVersion string         `koanf:"service_version"`
	Environment    string         `koanf:"environment"`
	Insecure       bool           `koanf:"insecure"` // Use insecure connection (no TLS)
	TLSSkipVerify  bool           `koanf:"tls_skip_verify"`
	Sampling       SamplingConfig `koanf:"sampling"`
	Traces         TracesConfig   `koanf:"traces"`
	Metrics        MetricsConfig  `koanf:"metrics"`
	Logs           LogsConfig     `koanf:"logs"`
	Retry          RetryConfig    `koanf:"retry"`
	Shutdown       ShutdownConfig `koanf:"shutdown"`
}

// SamplingConfig controls trace sampling behavior.
type SamplingConfig struct {
	Rate float64 `koanf:"rate"` // 0.0-1.0, default 1.0
}

// TracesConfig controls the span batch processor. Finished spans
// accumulate in a bounded queue and are exported when the batch fills
// or the batch timeout elapses, whichever comes first. A full queue
// drops new spans instead of blocking the request path.
type TracesConfig struct {
	MaxQueueSize       int           `koanf:"max_queue_size"`
	BatchTimeout       time.Duration `koanf:"batch_timeout"`
	ExportTimeout      time.Duration `koanf:"export_timeout"`
	MaxExportBatchSize int           `koanf:"max_export_batch_size"`
}

// MetricsConfig controls the periodic metric reader.
type MetricsConfig struct {
	Enabled        bool          `koanf:"enabled"`
	ExportInterval time.Duration `koanf:"export_interval"`
	ExportTimeout  time.Duration `koanf:"export_timeout"`
}

// LogsConfig controls the log record batch processor.
type LogsConfig struct {
	Enabled            bool          `koanf:"enabled"`
	MaxQueueSize       int           `koanf:"max_queue_size"`
	ExportInterval     time.Duration `koanf:"export_interval"`
	ExportTimeout      time.Duration `koanf:"export_timeout"`
	MaxExportBatchSize int           `koanf:"max_export_batch_size"`
}

// RetryConfig bounds the exporters' delivery retries. Failed batches
// are retried with backoff until max_elapsed_time, then dropped.
type RetryConfig struct {
	Enabled         bool          `koanf:"enabled"`
	InitialInterval time.Duration `koanf:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval"`
	MaxElapsedTime  time.Duration `koanf:"max_elapsed_time"`
}

// ShutdownConfig controls graceful shutdown behavior.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// NewDefaultConfig returns production-ready telemetry defaults.
// Telemetry is enabled by default; the endpoint has no default and is
// normally supplied via OTEL_EXPORTER_OTLP_ENDPOINT. Batch sizes and
// intervals mirror the OTLP SDK defaults but stay explicit so operators
// can tune the export discipline without touching code.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		Endpoint:       "",
		Protocol:       "grpc",
		ServiceName:    "auth-service-19987",
		ServiceVersion: "0.1.0",
		Environment:    "production",
		Insecure:       true, // Insecure by default for local collectors; set false for production TLS
		Sampling: SamplingConfig{
			Rate: 1.0,
		},
		Traces: TracesConfig{
			MaxQueueSize:       2048,
			BatchTimeout:       5 * time.Second,
			ExportTimeout:      30 * time.Second,
			MaxExportBatchSize: 512,
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			ExportInterval: 15 * time.Second,
			ExportTimeout:  30 * time.Second,
		},
		Logs: LogsConfig{
			Enabled:            true,
			MaxQueueSize:       2048,
			ExportInterval:     time.Second,
			ExportTimeout:      30 * time.Second,
			MaxExportBatchSize: 512,
		},
		Retry: RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     30 * time.Second,
			MaxElapsedTime:  time.Minute,
		},
		Shutdown: ShutdownConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil // No validation needed if disabled
	}

	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled (set OTEL_EXPORTER_OTLP_ENDPOINT)")
	}

	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}

	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version is required when telemetry is enabled")
	}

	if c.Environment == "" {
		return fmt.Errorf("environment is required when telemetry is enabled")
	}

	switch c.Protocol {
	case "grpc", "http/protobuf":
	default:
		return fmt.Errorf("protocol must be %q or %q, got %q", "grpc", "http/protobuf", c.Protocol)
	}

	// Security: Prevent insecure connections to remote endpoints
	if c.Insecure && !c.isLocalEndpoint() {
		return fmt.Errorf("insecure connections to remote endpoints are not allowed; set insecure=false for TLS or use a local endpoint (localhost/127.0.0.1)")
	}

	if c.Sampling.Rate < 0 || c.Sampling.Rate > 1 {
		return fmt.Errorf("sampling.rate must be between 0 and 1, got %f", c.Sampling.Rate)
	}

	if c.Traces.MaxQueueSize <= 0 {
		return fmt.Errorf("traces.max_queue_size must be positive")
	}
	if c.Traces.BatchTimeout <= 0 {
		return fmt.Errorf("traces.batch_timeout must be positive")
	}
	if c.Traces.ExportTimeout <= 0 {
		return fmt.Errorf("traces.export_timeout must be positive")
	}
	if c.Traces.MaxExportBatchSize <= 0 {
		return fmt.Errorf("traces.max_export_batch_size must be positive")
	}
	if c.Traces.MaxExportBatchSize > c.Traces.MaxQueueSize {
		return fmt.Errorf("traces.max_export_batch_size must not exceed traces.max_queue_size")
	}

	if c.Metrics.Enabled {
		if c.Metrics.ExportInterval <= 0 {
			return fmt.Errorf("metrics.export_interval must be positive when metrics enabled")
		}
		if c.Metrics.ExportTimeout <= 0 {
			return fmt.Errorf("metrics.export_timeout must be positive when metrics enabled")
		}
	}

	if c.Logs.Enabled {
		if c.Logs.MaxQueueSize <= 0 {
			return fmt.Errorf("logs.max_queue_size must be positive")
		}
		if c.Logs.ExportInterval <= 0 {
			return fmt.Errorf("logs.export_interval must be positive when logs enabled")
		}
		if c.Logs.ExportTimeout <= 0 {
			return fmt.Errorf("logs.export_timeout must be positive when logs enabled")
		}
		if c.Logs.MaxExportBatchSize <= 0 {
			return fmt.Errorf("logs.max_export_batch_size must be positive")
		}
		if c.Logs.MaxExportBatchSize > c.Logs.MaxQueueSize {
			return fmt.Errorf("logs.max_export_batch_size must not exceed logs.max_queue_size")
		}
	}

	if c.Retry.Enabled {
		if c.Retry.InitialInterval <= 0 {
			return fmt.Errorf("retry.initial_interval must be positive when retry enabled")
		}
		if c.Retry.MaxInterval <= 0 {
			return fmt.Errorf("retry.max_interval must be positive when retry enabled")
		}
		if c.Retry.MaxInterval < c.Retry.InitialInterval {
			return fmt.Errorf("retry.max_interval must not be less than retry.initial_interval")
		}
		if c.Retry.MaxElapsedTime <= 0 {
			return fmt.Errorf("retry.max_elapsed_time must be positive when retry enabled")
		}
	}

	if c.Shutdown.Timeout <= 0 {
		return fmt.Errorf("shutdown.timeout must be positive")
	}

	return nil
}

// isLocalEndpoint checks if the endpoint is a local address. Endpoints
// may arrive with a scheme (http://collector:4317) when taken from
// OTEL_EXPORTER_OTLP_ENDPOINT, so the scheme is stripped first.
func (c *Config) isLocalEndpoint() bool {
	host := stripScheme(c.Endpoint)

	// Handle IPv6 addresses (may be bracketed like [::1]:4317)
	if strings.HasPrefix(host, "[") {
		// Bracketed IPv6: [::1]:4317
		if idx := strings.Index(host, "]:"); idx != -1 {
			host = host[1:idx] // Extract between [ and ]
		} else if strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1] // [::1] without port
		}
	} else if strings.Count(host, ":") == 1 {
		// IPv4 or hostname with port: localhost:4317
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}
	}
	// For IPv6 without brackets (::1, ::1:4317), we check the full string

	// Check for common local addresses
	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(stripScheme(c.Endpoint), "::1")
}
