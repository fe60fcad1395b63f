package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
)

// Server is the pipeline's HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	logger *logging.Logger
}

// NewServer creates the HTTP server with routes and middleware wired.
func NewServer(cfg config.HTTPConfig, serviceName string, handlers *Handlers, logger *logging.Logger, collector *metrics.Collector, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestContextMiddleware())
	router.Use(TracingMiddleware(serviceName))
	router.Use(RequestLoggerMiddleware(logger.WithComponent("http")))
	router.Use(MetricsMiddleware(collector))

	router.GET("/health", handlers.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.POST("/mappings", handlers.CreateMapping)
		api.POST("/quality-evaluations", handlers.EvaluateQuality)
		api.GET("/lineage/:mapping_id", handlers.GetLineage)
	}

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		router: router,
		logger: logger.WithComponent("http_server"),
	}
}

// Start runs the server. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting",
		logging.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server stopping")
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
