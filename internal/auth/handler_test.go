package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/authd/internal/logging"
	"github.com/fyrsmithlabs/authd/internal/telemetry"
)

type handlerFixture struct {
	handler   *Handler
	telemetry *telemetry.TestTelemetry
	logs      *logging.TestLogger
}

func newHandlerFixture(t *testing.T, authenticator Authenticator) *handlerFixture {
	t.Helper()

	tt := telemetry.NewTestTelemetry()
	tl := logging.NewTestLogger()

	metrics := NewMetrics(tt.Meter("authd.handler"), nil)
	handler, err := NewHandler(HandlerConfig{
		Authenticator: authenticator,
		Tracer:        tt.Tracer("authd.handler"),
		Metrics:       metrics,
		Logger:        tl.Logger,
		ServiceName:   "auth-service-19987",
		TableName:     "auth-tokens",
	})
	require.NoError(t, err)

	return &handlerFixture{handler: handler, telemetry: tt, logs: tl}
}

func (f *handlerFixture) collectMetrics(t *testing.T) map[string]metricdata.Metrics {
	t.Helper()
	rm, err := f.telemetry.MetricReader.Collect(context.Background())
	require.NoError(t, err)
	return metricsByName(rm)
}

func TestHandler_Success(t *testing.T) {
	f := newHandlerFixture(t, Healthy())

	resp, err := f.handler.Handle(context.Background(), Event{HTTPMethod: "POST", Path: "/invoke"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload Payload
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &payload))
	assert.Equal(t, "Auth service healthy", payload.Message)
	assert.Equal(t, "auth-service-19987", payload.Service)
	assert.Equal(t, "auth-tokens", payload.Table)
	assert.NotZero(t, payload.Timestamp)

	f.telemetry.AssertSpanExists(t, "auth_handler")
	f.telemetry.AssertSpanAttribute(t, "auth_handler", "http.method", "POST")
	f.telemetry.AssertSpanAttribute(t, "auth_handler", "http.path", "/invoke")
	f.telemetry.AssertSpanAttribute(t, "auth_handler", "service.name", "auth-service-19987")

	span := f.telemetry.SpanByName("auth_handler")
	require.NotNil(t, span)
	assert.NotEqual(t, codes.Error, span.Status().Code)

	f.logs.AssertLogged(t, zapcore.InfoLevel, "processing authentication request")
	f.logs.AssertLogged(t, zapcore.InfoLevel, "authentication request completed")

	metrics := f.collectMetrics(t)

	requests, ok := metrics["auth.requests"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, requests.DataPoints, 1)
	assert.Equal(t, int64(1), requests.DataPoints[0].Value)

	hist, ok := metrics["auth.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	status, found := hist.DataPoints[0].Attributes.Value(attribute.Key("status"))
	require.True(t, found)
	assert.Equal(t, "200", status.AsString())

	_, errorsRecorded := metrics["auth.errors"]
	assert.False(t, errorsRecorded, "success path must not record errors")
}

func TestHandler_DefaultEventFields(t *testing.T) {
	f := newHandlerFixture(t, Healthy())

	_, err := f.handler.Handle(context.Background(), Event{})
	require.NoError(t, err)

	f.telemetry.AssertSpanAttribute(t, "auth_handler", "http.method", "GET")
	f.telemetry.AssertSpanAttribute(t, "auth_handler", "http.path", "/")
}

func TestHandler_DomainErrorPassesThrough(t *testing.T) {
	cause := NewError(KindInvalidInput, "bad token")
	f := newHandlerFixture(t, AuthenticatorFunc(func(context.Context, Event) error {
		return cause
	}))

	resp, err := f.handler.Handle(context.Background(), Event{HTTPMethod: "POST", Path: "/invoke"})
	require.Error(t, err)
	assert.Same(t, cause, err, "domain error must be returned unchanged")
	assert.Zero(t, resp.StatusCode, "failed invocation must not produce a success response")

	span := f.telemetry.SpanByName("auth_handler")
	require.NotNil(t, span, "span must be closed even on failure")
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "bad token", span.Status().Description)
	f.telemetry.AssertSpanAttribute(t, "auth_handler", "error", true)
	f.telemetry.AssertSpanAttribute(t, "auth_handler", "error.message", "bad token")
	require.NotEmpty(t, span.Events(), "error must be recorded as a span event")

	f.logs.AssertLogged(t, zapcore.ErrorLevel, "authentication request failed")
	f.logs.AssertField(t, "authentication request failed", "error_type", KindInvalidInput)

	metrics := f.collectMetrics(t)

	errs, ok := metrics["auth.errors"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, errs.DataPoints, 1)
	kind, found := errs.DataPoints[0].Attributes.Value(attribute.Key("error_type"))
	require.True(t, found)
	assert.Equal(t, KindInvalidInput, kind.AsString())

	hist, ok := metrics["auth.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	status, found := hist.DataPoints[0].Attributes.Value(attribute.Key("status"))
	require.True(t, found)
	assert.Equal(t, "500", status.AsString())
}

func TestHandler_ContextCancellationClassifiedAsTimeout(t *testing.T) {
	f := newHandlerFixture(t, AuthenticatorFunc(func(ctx context.Context, _ Event) error {
		return context.DeadlineExceeded
	}))

	_, err := f.handler.Handle(context.Background(), Event{})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	metrics := f.collectMetrics(t)
	errs, ok := metrics["auth.errors"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, errs.DataPoints, 1)
	kind, found := errs.DataPoints[0].Attributes.Value(attribute.Key("error_type"))
	require.True(t, found)
	assert.Equal(t, KindTimeout, kind.AsString())
}

func TestHandler_SpanClosedOnPanic(t *testing.T) {
	f := newHandlerFixture(t, AuthenticatorFunc(func(context.Context, Event) error {
		panic("authenticator blew up")
	}))

	assert.Panics(t, func() {
		_, _ = f.handler.Handle(context.Background(), Event{})
	})

	span := f.telemetry.SpanByName("auth_handler")
	require.NotNil(t, span, "span must be closed even when the domain operation panics")
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(HandlerConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service name")
}

func TestNewHandler_Defaults(t *testing.T) {
	h, err := NewHandler(HandlerConfig{ServiceName: "auth-service-19987"})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), Event{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_ConcurrentInvocations(t *testing.T) {
	f := newHandlerFixture(t, Healthy())

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, err := f.handler.Handle(context.Background(), Event{})
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Len(t, f.telemetry.Spans(), 8)
}

var errSentinel = errors.New("sentinel")

func TestHandler_PlainErrorClassifiedInternal(t *testing.T) {
	f := newHandlerFixture(t, AuthenticatorFunc(func(context.Context, Event) error {
		return errSentinel
	}))

	_, err := f.handler.Handle(context.Background(), Event{})
	require.ErrorIs(t, err, errSentinel)

	f.logs.AssertField(t, "authentication request failed", "error_type", KindInternal)
}

// Exporter doubles simulating a collector that went away: construction
// works, every export attempt fails.

var errCollectorDown = errors.New("collector unreachable")

type offlineSpanExporter struct{}

func (offlineSpanExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	return errCollectorDown
}
func (offlineSpanExporter) Shutdown(context.Context) error { return nil }

type offlineMetricExporter struct{}

func (offlineMetricExporter) Temporality(sdkmetric.InstrumentKind) metricdata.Temporality {
	return metricdata.CumulativeTemporality
}

func (offlineMetricExporter) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(kind)
}

func (offlineMetricExporter) Export(context.Context, *metricdata.ResourceMetrics) error {
	return errCollectorDown
}
func (offlineMetricExporter) ForceFlush(context.Context) error { return errCollectorDown }
func (offlineMetricExporter) Shutdown(context.Context) error   { return nil }

func TestHandler_SucceedsWhileExportSinkUnavailable(t *testing.T) {
	cfg := telemetry.NewDefaultConfig()
	cfg.Endpoint = "localhost:4317"
	// No otel log bridge in this test; zap stays on the observer core.
	cfg.Logs.Enabled = false

	tel, err := telemetry.New(context.Background(), cfg,
		telemetry.WithSpanExporter(offlineSpanExporter{}),
		telemetry.WithMetricExporter(offlineMetricExporter{}),
	)
	require.NoError(t, err)
	defer func() { _ = tel.Shutdown(context.Background()) }()

	handler, err := NewHandler(HandlerConfig{
		Authenticator: Healthy(),
		Tracer:        tel.Tracer("authd.handler"),
		Metrics:       NewMetrics(tel.Meter("authd.handler"), nil),
		Logger:        logging.NewTestLogger().Logger,
		ServiceName:   "auth-service-19987",
	})
	require.NoError(t, err)

	// Invocations complete normally while every export fails behind
	// them; the dead sink is invisible on the request path.
	for i := 0; i < 3; i++ {
		resp, err := handler.Handle(context.Background(), Event{HTTPMethod: "POST", Path: "/invoke"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var payload Payload
		require.NoError(t, json.Unmarshal([]byte(resp.Body), &payload))
		assert.Equal(t, "Auth service healthy", payload.Message)
	}

	// The failure surfaces only on the explicit flush path.
	err = tel.ForceFlush(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errCollectorDown)
}
