package httpservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/alphaflow/blobkit/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// Server wraps a Gin engine and its http.Server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
	port       int
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	ServiceName  string
	Logger       logging.Logger

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
	// MaxBodySize caps request bodies, uploads included. Zero means 64MB.
	MaxBodySize int64

	SlowRequestThresholdMs int64
	Telemetry              middleware.TelemetryClient
	Alerts                 middleware.AlertSender
}

// DefaultMaxBodySize bounds a single uploaded blob.
const DefaultMaxBodySize = 64 << 20

// Handler registers routes on the engine.
type Handler interface {
	Register(router *gin.Engine)
}

// NewServer builds the middleware chain and registers handlers.
func NewServer(cfg ServerConfig, handlers ...Handler) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "blobkit"
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(RecoveryMiddleware(cfg.Logger))
	router.Use(middleware.Tracing(cfg.Logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.ContextLogger(cfg.Logger, cfg.ServiceName))
	router.Use(LoggingMiddleware(cfg.Logger))
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))
	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimitMiddleware(RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst}))
	}
	router.Use(RequestSizeLimitMiddleware(cfg.MaxBodySize, cfg.Logger))
	router.Use(middleware.Observe(cfg.SlowRequestThresholdMs, cfg.Telemetry, cfg.Alerts, cfg.Logger))
	router.Use(middleware.ErrorHandler())

	for _, handler := range handlers {
		handler.Register(router)
	}

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: cfg.Logger,
		port:   cfg.Port,
	}, nil
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", logging.NewField("port", s.port))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}
