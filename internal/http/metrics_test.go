package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontMetrics_Middleware(t *testing.T) {
	m := NewFrontMetrics()

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/invoke", func(c echo.Context) error {
		return assert.AnError
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/invoke", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	ok := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/health", "200", "success"))
	assert.Equal(t, 2.0, ok)

	failed := testutil.ToFloat64(m.requests.WithLabelValues("POST", "/invoke", "500", "error"))
	assert.Equal(t, 1.0, failed)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight), "in-flight gauge must return to zero")
}

func TestFrontMetrics_ScrapeEndpoint(t *testing.T) {
	m := NewFrontMetrics()
	m.requests.WithLabelValues("GET", "/health", "200", "success").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "authd_http_requests_total"), "scrape output missing request counter: %s", body)
	assert.True(t, strings.Contains(body, "authd_http_in_flight_requests"), "scrape output missing in-flight gauge")
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", outcome(http.StatusOK))
	assert.Equal(t, "success", outcome(http.StatusNoContent))
	assert.Equal(t, "rejected", outcome(http.StatusBadRequest))
	assert.Equal(t, "rejected", outcome(http.StatusTooManyRequests))
	assert.Equal(t, "error", outcome(http.StatusInternalServerError))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/invoke", normalizePath("/invoke"))
	assert.Equal(t, "/*", normalizePath("/*"))
}
