// Package http is the host-runtime stand-in: a small Echo front that
// maps HTTP requests onto handler invocations. It owns the failure
// response for handler errors, exposes liveness and Prometheus scrape
// endpoints, and optionally rate-limits inbound requests.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/authd/internal/auth"
	"github.com/fyrsmithlabs/authd/internal/logging"
)

// Server fronts an auth.Handler with HTTP.
type Server struct {
	echo    *echo.Echo
	handler *auth.Handler
	logger  *logging.Logger
	metrics *FrontMetrics
	limiter *rate.Limiter
	config  *Config
}

// Config holds HTTP server configuration. RateLimit is requests per
// second; zero disables limiting.
type Config struct {
	Host      string
	Port      int
	RateLimit float64
	RateBurst int
}

// NewServer creates the HTTP front for the given handler.
func NewServer(handler *auth.Handler, logger *logging.Logger, cfg *Config) (*Server, error) {
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		handler: handler,
		logger:  logger,
		metrics: NewFrontMetrics(),
		config:  cfg,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.invocationIDMiddleware())
	e.Use(s.rateLimitMiddleware())
	e.Use(s.requestLogMiddleware())
	e.Use(s.metrics.Middleware())

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	s.echo.POST("/invoke", s.handleInvoke)
	s.echo.Any("/*", s.handleAny)
}

// invocationIDMiddleware propagates the request id into the context so
// handler logs carry it as invocation_id.
func (s *Server) invocationIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Client-supplied request ids are untrusted input.
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if logging.ValidInvocationID(id) {
				req := c.Request()
				ctx := logging.WithInvocationID(req.Context(), id)
				c.SetRequest(req.WithContext(ctx))
			}
			return next(c)
		}
	}
}

// rateLimitMiddleware rejects requests above the configured rate with
// 429 before they reach the handler. No-op when limiting is disabled.
func (s *Server) rateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.limiter != nil && !s.limiter.Allow() {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

func (s *Server) requestLogMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			s.logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", responseStatus(c, err)),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleInvoke runs one invocation from an explicit Event payload. A
// handler error is returned to Echo so the front produces its own 500
// response; the handler's error content never masquerades as success.
func (s *Server) handleInvoke(c echo.Context) error {
	var evt auth.Event
	if err := c.Bind(&evt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return s.invoke(c, evt)
}

// handleAny maps any other method and path onto an Event, so a plain
// GET / behaves like the original ingress mapping.
func (s *Server) handleAny(c echo.Context) error {
	return s.invoke(c, auth.Event{
		HTTPMethod: c.Request().Method,
		Path:       c.Request().URL.Path,
	})
}

func (s *Server) invoke(c echo.Context, evt auth.Event) error {
	resp, err := s.handler.Handle(c.Request().Context(), evt)
	if err != nil {
		return err
	}
	return c.JSONBlob(resp.StatusCode, []byte(resp.Body))
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully drains and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
