// Authd runs the instrumented authentication service.
//
// The binary loads configuration, installs telemetry, and serves the
// HTTP front until SIGINT or SIGTERM, then drains and flushes within
// the configured shutdown budget.
//
// Usage:
//
//	# Start with defaults (requires an OTLP endpoint)
//	OTEL_EXPORTER_OTLP_ENDPOINT=localhost:4317 authd
//
//	# Start with a config file
//	authd -config /etc/authd/config.yaml
//
//	# Disable telemetry export entirely
//	TELEMETRY_ENABLED=false authd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/authd/internal/auth"
	"github.com/fyrsmithlabs/authd/internal/config"
	authhttp "github.com/fyrsmithlabs/authd/internal/http"
	"github.com/fyrsmithlabs/authd/internal/logging"
	"github.com/fyrsmithlabs/authd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  authd            Start the auth service\n")
			fmt.Fprintf(os.Stderr, "  authd version    Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("authd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the service and blocks until the context is cancelled.
//
// Initialization order matters: configuration first (the only fatal
// telemetry condition lives there), then telemetry so the logger can
// bridge into it, then the handler and the HTTP front. Exporter
// failures degrade telemetry to no-ops instead of stopping the
// service.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if err := tel.Install(); err != nil {
		return fmt.Errorf("failed to install telemetry: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting authd",
		zap.String("version", version),
		zap.String("service", cfg.Service.Name),
		zap.String("environment", cfg.Service.Environment),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		zap.Bool("telemetry_enabled", tel.IsEnabled()),
	)
	if health := tel.Health(); health.Degraded {
		logger.Warn(ctx, "telemetry degraded, exporters replaced with no-ops",
			zap.Strings("reasons", health.Reasons))
	}

	handler, err := auth.NewHandler(auth.HandlerConfig{
		Authenticator: auth.Healthy(),
		Tracer:        tel.Tracer("authd.handler"),
		Metrics:       auth.NewMetrics(tel.Meter("authd.handler"), logger.Underlying()),
		Logger:        logger,
		ServiceName:   cfg.Service.Name,
		TableName:     cfg.Service.TableName,
	})
	if err != nil {
		return fmt.Errorf("failed to create handler: %w", err)
	}

	srv, err := authhttp.NewServer(handler, logger, &authhttp.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		// Bind failures land here before any shutdown.
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http shutdown failed", zap.Error(err))
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(shutdownCtx, "server stopped with error", zap.Error(err))
	}

	// Final flush is bounded by the telemetry shutdown budget; a slow
	// collector delays exit by at most that much.
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "telemetry shutdown failed", zap.Error(err))
	}

	return nil
}
