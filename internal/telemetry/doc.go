// Package telemetry provides OpenTelemetry instrumentation for authd.
//
// # Overview
//
// This package owns the process-wide TracerProvider, MeterProvider, and
// LoggerProvider, the immutable resource identity attached to every
// emitted signal, and the batch export discipline that ships telemetry
// to an OTLP collector without ever blocking the request path.
//
// # Usage
//
// Create a telemetry instance once at process start and install it:
//
//	cfg := telemetry.NewDefaultConfig()
//	cfg.Endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tel.Install(); err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
// Use tracer and meter:
//
//	tracer := tel.Tracer("authd.handler")
//	ctx, span := tracer.Start(ctx, "auth_handler")
//	defer span.End()
//
//	meter := tel.Meter("authd.handler")
//	counter, _ := meter.Int64Counter("auth.requests")
//	counter.Add(ctx, 1)
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  service_name: "auth-service-19987"
//	  environment: "production"
//	  sampling:
//	    rate: 1.0  # 100% in dev, lower in prod
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//
// # Error Handling
//
// Telemetry failures never affect request outcomes. Exporter
// construction errors degrade the instance to no-op providers and are
// reported via Health; delivery failures are retried by the exporters
// and then dropped. Only missing configuration is fatal, and that is
// raised at startup before any request can run.
//
// # Testing
//
// Use TestTelemetry for tests:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("test")
//	_, span := tracer.Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
