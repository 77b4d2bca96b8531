package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/authd/internal/logging"
)

const spanName = "auth_handler"

// HandlerConfig wires the handler's dependencies. Authenticator,
// Tracer, Metrics, and Logger all have safe fallbacks; ServiceName is
// required because it appears in every span and success payload.
type HandlerConfig struct {
	Authenticator Authenticator
	Tracer        trace.Tracer
	Metrics       *Metrics
	Logger        *logging.Logger
	ServiceName   string
	TableName     string
}

// Handler runs one instrumented invocation at a time: span, request
// log, request counter, domain operation, duration sample. It is safe
// for concurrent use.
type Handler struct {
	authenticator Authenticator
	tracer        trace.Tracer
	metrics       *Metrics
	logger        *logging.Logger
	service       string
	table         string
}

// NewHandler validates the config and builds a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.ServiceName == "" {
		return nil, errors.New("auth: service name is required")
	}
	h := &Handler{
		authenticator: cfg.Authenticator,
		tracer:        cfg.Tracer,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		service:       cfg.ServiceName,
		table:         cfg.TableName,
	}
	if h.authenticator == nil {
		h.authenticator = Healthy()
	}
	if h.tracer == nil {
		h.tracer = noop.NewTracerProvider().Tracer("authd.handler")
	}
	if h.logger == nil {
		h.logger = logging.NewNopLogger()
	}
	return h, nil
}

// Handle processes one invocation. On success it returns a 200
// response whose body is a serialized Payload. On failure it annotates
// the error (error counter, span status, error log) and returns it
// unchanged, leaving the failure response to the caller.
func (h *Handler) Handle(ctx context.Context, evt Event) (Response, error) {
	start := time.Now()
	method := evt.Method()
	path := evt.RequestPath()

	ctx, span := h.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("service.name", h.service),
	))
	defer span.End()

	h.logger.Info(ctx, "processing authentication request",
		zap.String("method", method),
		zap.String("path", path),
	)
	h.metrics.RecordRequest(ctx, method, path)

	if err := h.authenticator.Authenticate(ctx, evt); err != nil {
		h.fail(ctx, span, err, start, method)
		return Response{}, err
	}

	elapsed := durationMillis(start)
	h.metrics.RecordDuration(ctx, elapsed, method, "200")
	h.logger.Info(ctx, "authentication request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Float64("duration_ms", elapsed),
	)

	body, err := json.Marshal(Payload{
		Message:   "Auth service healthy",
		Service:   h.service,
		Table:     h.table,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.fail(ctx, span, err, start, method)
		return Response{}, err
	}

	return Response{StatusCode: http.StatusOK, Body: string(body)}, nil
}

// fail annotates the span, error counter, duration histogram, and log
// stream for a failed invocation. The caller still owns the error.
func (h *Handler) fail(ctx context.Context, span trace.Span, err error, start time.Time, method string) {
	kind := KindOf(err)

	h.metrics.RecordError(ctx, kind)
	h.metrics.RecordDuration(ctx, durationMillis(start), method, "500")

	h.logger.Error(ctx, "authentication request failed",
		zap.String("error_type", kind),
		zap.Error(err),
	)

	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String("error.message", err.Error()),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func durationMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
