package auth

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Metrics holds the handler's instruments. Instrument creation failures
// are logged and leave the instrument nil; recording methods skip nil
// instruments so a degraded meter never breaks request handling.
type Metrics struct {
	logger *zap.Logger

	requests metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the handler instrument set on the given meter.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{logger: logger}

	var err error
	m.requests, err = meter.Int64Counter(
		"auth.requests",
		metric.WithDescription("Total authentication requests received"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn("failed to create auth.requests counter", zap.Error(err))
	}

	m.errors, err = meter.Int64Counter(
		"auth.errors",
		metric.WithDescription("Total authentication requests that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		logger.Warn("failed to create auth.errors counter", zap.Error(err))
	}

	m.duration, err = meter.Float64Histogram(
		"auth.duration",
		metric.WithDescription("Authentication request duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	)
	if err != nil {
		logger.Warn("failed to create auth.duration histogram", zap.Error(err))
	}

	return m
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(ctx context.Context, method, path string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
	))
}

// RecordError increments the error counter with the error's kind.
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	if m == nil || m.errors == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", errorType),
	))
}

// RecordDuration records one duration sample in milliseconds.
func (m *Metrics) RecordDuration(ctx context.Context, ms float64, method, status string) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Record(ctx, ms, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
}
