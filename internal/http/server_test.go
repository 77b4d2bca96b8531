package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/authd/internal/auth"
	"github.com/fyrsmithlabs/authd/internal/logging"
	"github.com/fyrsmithlabs/authd/internal/telemetry"
)

type serverFixture struct {
	server    *Server
	telemetry *telemetry.TestTelemetry
	logs      *logging.TestLogger
	calls     *atomic.Int64
}

func newServerFixture(t *testing.T, authenticator auth.Authenticator, cfg *Config) *serverFixture {
	t.Helper()

	tt := telemetry.NewTestTelemetry()
	tl := logging.NewTestLogger()

	calls := &atomic.Int64{}
	counted := auth.AuthenticatorFunc(func(ctx context.Context, evt auth.Event) error {
		calls.Add(1)
		if authenticator == nil {
			return nil
		}
		return authenticator.Authenticate(ctx, evt)
	})

	handler, err := auth.NewHandler(auth.HandlerConfig{
		Authenticator: counted,
		Tracer:        tt.Tracer("authd.handler"),
		Metrics:       auth.NewMetrics(tt.Meter("authd.handler"), nil),
		Logger:        tl.Logger,
		ServiceName:   "auth-service-19987",
		TableName:     "auth-tokens",
	})
	require.NoError(t, err)

	server, err := NewServer(handler, tl.Logger, cfg)
	require.NoError(t, err)

	return &serverFixture{server: server, telemetry: tt, logs: tl, calls: calls}
}

func (f *serverFixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.echo.ServeHTTP(rec, req)
	return rec
}

func TestServer_InvokeSuccess(t *testing.T) {
	f := newServerFixture(t, nil, nil)

	rec := f.do(http.MethodPost, "/invoke", `{"httpMethod":"POST","path":"/invoke"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload auth.Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "Auth service healthy", payload.Message)
	assert.Equal(t, "auth-service-19987", payload.Service)

	f.telemetry.AssertSpanExists(t, "auth_handler")
	f.telemetry.AssertSpanAttribute(t, "auth_handler", "http.method", "POST")
	assert.Equal(t, int64(1), f.calls.Load())
}

func TestServer_InvokeEmptyBodyUsesDefaults(t *testing.T) {
	f := newServerFixture(t, nil, nil)

	rec := f.do(http.MethodPost, "/invoke", "")
	require.Equal(t, http.StatusOK, rec.Code)

	f.telemetry.AssertSpanAttribute(t, "auth_handler", "http.method", "GET")
	f.telemetry.AssertSpanAttribute(t, "auth_handler", "http.path", "/")
}

func TestServer_WildcardMapsMethodAndPath(t *testing.T) {
	f := newServerFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/some/arbitrary/path", "")
	require.Equal(t, http.StatusOK, rec.Code)

	f.telemetry.AssertSpanAttribute(t, "auth_handler", "http.method", "GET")
	f.telemetry.AssertSpanAttribute(t, "auth_handler", "http.path", "/some/arbitrary/path")
}

func TestServer_HandlerErrorBecomesInternalServerError(t *testing.T) {
	f := newServerFixture(t, auth.AuthenticatorFunc(func(context.Context, auth.Event) error {
		return auth.NewError(auth.KindInvalidInput, "bad token")
	}), nil)

	rec := f.do(http.MethodPost, "/invoke", `{"httpMethod":"POST"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The front owns the failure response; neither the handler's error
	// text nor its success payload shape appear in it.
	body := rec.Body.String()
	assert.NotContains(t, body, "Auth service healthy")
	assert.NotContains(t, body, "bad token")
}

func TestServer_InvalidBodyRejected(t *testing.T) {
	f := newServerFixture(t, nil, nil)

	rec := f.do(http.MethodPost, "/invoke", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int64(0), f.calls.Load(), "handler must not run for malformed input")
}

func TestServer_Health(t *testing.T) {
	f := newServerFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(0), f.calls.Load(), "health must not invoke the handler")
}

func TestServer_MetricsEndpoint(t *testing.T) {
	f := newServerFixture(t, nil, nil)

	f.do(http.MethodGet, "/health", "")
	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "authd_http_requests_total")
}

func TestServer_RateLimit(t *testing.T) {
	f := newServerFixture(t, nil, &Config{
		Host:      "127.0.0.1",
		Port:      8080,
		RateLimit: 1,
		RateBurst: 1,
	})

	first := f.do(http.MethodPost, "/invoke", "")
	require.Equal(t, http.StatusOK, first.Code)

	second := f.do(http.MethodPost, "/invoke", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, int64(1), f.calls.Load(), "rate-limited request must not reach the handler")
}

func TestServer_InvocationIDReachesHandlerLogs(t *testing.T) {
	f := newServerFixture(t, nil, nil)

	rec := f.do(http.MethodPost, "/invoke", "")
	require.Equal(t, http.StatusOK, rec.Code)
	requestID := rec.Header().Get("X-Request-Id")
	require.NotEmpty(t, requestID)

	f.logs.AssertLogged(t, zapcore.InfoLevel, "processing authentication request")
	f.logs.AssertField(t, "processing authentication request", "invocation_id", requestID)
}

func TestServer_MalformedClientRequestIDNotPropagated(t *testing.T) {
	f := newServerFixture(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(""))
	req.Header.Set("X-Request-Id", "bad id with spaces")
	rec := httptest.NewRecorder()
	f.server.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, entry := range f.logs.FilterMessage("processing authentication request").All() {
		for _, field := range entry.Context {
			assert.NotEqual(t, "invocation_id", field.Key)
		}
	}
}

func TestNewServer_Validation(t *testing.T) {
	tl := logging.NewTestLogger()

	_, err := NewServer(nil, tl.Logger, nil)
	assert.ErrorContains(t, err, "handler")

	handler, err := auth.NewHandler(auth.HandlerConfig{ServiceName: "auth-service-19987"})
	require.NoError(t, err)

	_, err = NewServer(handler, nil, nil)
	assert.ErrorContains(t, err, "logger")
}

func TestServer_StartAndShutdown(t *testing.T) {
	f := newServerFixture(t, nil, &Config{Host: "127.0.0.1", Port: 0})

	done := make(chan error, 1)
	go func() {
		done <- f.server.Start()
	}()

	require.Eventually(t, func() bool {
		return f.server.echo.ListenerAddr() != nil
	}, 5*time.Second, 10*time.Millisecond, "server never started listening")

	require.NoError(t, f.server.Shutdown(context.Background()))

	err := <-done
	if err != nil {
		assert.ErrorIs(t, err, http.ErrServerClosed)
	}
}
