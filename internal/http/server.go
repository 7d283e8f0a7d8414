// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	conditionHTTP "github.com/allisson/sessionsig/internal/condition/http"
	"github.com/allisson/sessionsig/internal/config"
	"github.com/allisson/sessionsig/internal/metrics"
	operationUseCase "github.com/allisson/sessionsig/internal/operation/usecase"
	verificationHTTP "github.com/allisson/sessionsig/internal/verification/http"
)

// readinessProbe is wrapped on every readiness check to prove the key
// wrapper is reachable.
var readinessProbe = []byte("readiness")

// Server represents the HTTP server.
type Server struct {
	wrapper operationUseCase.KeyWrapper
	server  *http.Server
	router  *gin.Engine
	logger  *slog.Logger
}

// NewServer creates a new HTTP server. wrapper may be nil when no key URI is
// configured; the server then reports not ready.
func NewServer(
	wrapper operationUseCase.KeyWrapper,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		wrapper: wrapper,
		logger:  logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter registers middleware and routes.
func (s *Server) SetupRouter(
	cfg *config.Config,
	verificationHandler *verificationHTTP.VerificationHandler,
	conditionHandler *conditionHTTP.ConditionHandler,
	metricsProvider *metrics.Provider,
) {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if cfg.MetricsEnabled && metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace, "/health", "/ready"))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	{
		v1.POST("/sessions/verify", verificationHandler.VerifySessionHandler)
		v1.POST("/envelopes/verify", verificationHandler.VerifyEnvelopeHandler)
		v1.POST("/conditions/resource", conditionHandler.ResourceHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready once the key wrapper accepts a probe.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{"kms": "ok"}
	if err := s.checkKeyWrapper(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.String("component", "kms"), slog.Any("error", err))
		components["kms"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

func (s *Server) checkKeyWrapper(ctx context.Context) error {
	if s.wrapper == nil {
		return fmt.Errorf("key wrapper not configured")
	}
	_, err := s.wrapper.Encrypt(ctx, readinessProbe)
	return err
}
