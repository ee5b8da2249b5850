package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/driftwatch/driftwatch/internal/drift"
	"github.com/driftwatch/driftwatch/internal/sink"
)

// Config holds the server configuration
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	EnableCORS      bool
	EnableAuth      bool
	EnableMetrics   bool
	EnableRateLimit bool
	RateLimitRPS    int
	JWTSecret       string
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:          "0.0.0.0",
		Port:          8090,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		EnableCORS:    true,
		EnableMetrics: true,
		RateLimitRPS:  100,
	}
}

// Server exposes the drift engine over HTTP: record ingestion, recent
// results, engine status, health checks and Prometheus metrics.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *Config
	eval       *drift.Evaluator
	results    *sink.Memory
	middleware *MiddlewareManager
	metrics    *Metrics
	logger     *zap.Logger
}

// New creates a server around the evaluator. results is the memory sink the
// results endpoint reads; it must be registered with the evaluator's emitter.
func New(config *Config, eval *drift.Evaluator, results *sink.Memory, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		router:  router,
		config:  config,
		eval:    eval,
		results: results,
		metrics: NewMetrics(),
		logger:  logger,
	}

	s.middleware = NewMiddlewareManager(config, s.metrics, logger)
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.middleware.Logger())

	if s.config.EnableCORS {
		s.router.Use(s.middleware.CORS())
	}
	if s.config.EnableRateLimit {
		s.router.Use(s.middleware.RateLimit())
	}
	if s.config.EnableMetrics {
		s.router.Use(s.middleware.Metrics())
	}

	s.router.Use(s.middleware.Security())
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/ready", s.readinessCheck)

	if s.config.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		records := v1.Group("/records")
		if s.config.EnableAuth {
			records.Use(s.middleware.Auth())
		}
		{
			records.POST("", s.ingestRecord)
			records.POST("/batch", s.ingestBatch)
		}

		v1.GET("/results", s.getResults)
		v1.GET("/status", s.getStatus)
		v1.GET("/config", s.getConfig)
	}
}

// Start starts the server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP API", zap.String("addr", s.httpServer.Addr))

	if s.config.EnableMetrics {
		for _, collector := range s.metrics.GetCollectors() {
			if err := prometheus.Register(collector); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					return fmt.Errorf("register metrics: %w", err)
				}
			}
		}
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API")
	return s.httpServer.Shutdown(ctx)
}

// healthCheck returns the health status of the service
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "driftwatch",
		"timestamp": time.Now().Unix(),
	})
}

// readinessCheck reports whether the engine can accept records
func (s *Server) readinessCheck(c *gin.Context) {
	ready := s.eval != nil
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"ready":     ready,
		"timestamp": time.Now().Unix(),
	})
}
