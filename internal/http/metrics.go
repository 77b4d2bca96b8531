package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FrontMetrics holds the front's pull-side instruments, scraped from
// GET /metrics. They describe the HTTP ingress itself; the handler's
// own instruments go out over OTLP instead.
type FrontMetrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewFrontMetrics creates the instrument set on its own registry, so
// multiple servers in one process (tests included) never collide.
func NewFrontMetrics() *FrontMetrics {
	m := &FrontMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authd_http_requests_total",
			Help: "Total HTTP requests served, labeled by method, endpoint, status, and outcome.",
		}, []string{"method", "endpoint", "status", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, labeled by method and endpoint.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "endpoint"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "authd_http_in_flight_requests",
			Help: "Number of HTTP requests currently being served.",
		}),
	}

	m.registry.MustRegister(m.requests, m.duration, m.inFlight)
	return m
}

// Handler returns the scrape endpoint for this instrument set.
func (m *FrontMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware returns an Echo middleware recording request metrics.
func (m *FrontMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			m.inFlight.Inc()
			err := next(c)
			m.inFlight.Dec()

			method := c.Request().Method
			endpoint := normalizePath(c.Path())
			status := responseStatus(c, err)

			m.requests.WithLabelValues(
				method,
				endpoint,
				strconv.Itoa(status),
				outcome(status),
			).Inc()
			m.duration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// responseStatus resolves the status a request will be answered with.
// Errors returned up the middleware chain have not reached the error
// handler yet, so the written status is stale for them.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func outcome(status int) string {
	switch {
	case status >= 500:
		return "error"
	case status >= 400:
		return "rejected"
	default:
		return "success"
	}
}

// normalizePath bounds metric cardinality. Routed paths are already
// route templates ("/invoke", "/*"); only the empty path needs fixing.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
