package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aescanero/dualrate/internal/application/workers"
	"github.com/aescanero/dualrate/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router *gin.Engine
	server *http.Server
	pair   *workers.Pair
	store  ports.StatusStore
	logger *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port int
	Pair *workers.Pair
	// Store may be nil, which disables the run endpoints
	Store ports.StatusStore
	// Gatherer defaults to the global Prometheus registry
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))

	s := &Server{
		router: router,
		pair:   cfg.Pair,
		store:  cfg.Store,
		logger: cfg.Logger,
	}

	s.setupRoutes(cfg.Gatherer)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	metrics := promhttp.Handler()
	if gatherer != nil {
		metrics = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	s.router.GET("/metrics", gin.WrapH(metrics))

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/workers", s.handleListWorkers)
		v1.GET("/workers/:id", s.handleGetWorker)

		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:id", s.handleGetRun)
	}
}

// SetupWebSocket mounts the live output stream
func (s *Server) SetupWebSocket(handler interface{ HandleOutputStream(*gin.Context) }) {
	s.router.GET("/api/v1/output/ws", handler.HandleOutputStream)
}

// Handler returns the underlying http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
