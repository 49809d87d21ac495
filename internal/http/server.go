// Package http provides the repolens HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/assistant"
	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/fyrsmithlabs/repolens/internal/ingest"
	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/fyrsmithlabs/repolens/internal/project"
	"github.com/fyrsmithlabs/repolens/internal/search"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RepositoryIngester pulls a GitHub repository into memory.
type RepositoryIngester interface {
	Ingest(ctx context.Context, owner, repo, token string) (*ingest.Result, error)
}

// ArchiveExtractor reads an uploaded ZIP archive.
type ArchiveExtractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) (*ingest.Result, error)
}

// Answerer answers questions about a project and writes its README.
type Answerer interface {
	Answer(ctx context.Context, p *project.Project, question string) (*assistant.Answer, error)
	AnswerFile(ctx context.Context, p *project.Project, path, message string) (*assistant.FileAnswer, error)
	Readme(ctx context.Context, p *project.Project) (*assistant.Readme, error)
}

// Deps are the services behind the API.
type Deps struct {
	Ingester  RepositoryIngester
	Extractor ArchiveExtractor
	Assistant Answerer
	Store     *project.Store
	Engine    search.Engine
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// MaxArchiveBytes bounds an upload request body.
	MaxArchiveBytes int64

	// DefaultToken is used for ingestions that carry no token of their own.
	DefaultToken config.Secret
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	deps    Deps
	logger  *zap.Logger
	config  *Config
	metrics *HTTPMetrics
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if deps.Ingester == nil || deps.Extractor == nil || deps.Assistant == nil || deps.Store == nil {
		return nil, fmt.Errorf("ingester, extractor, assistant and store are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}
	if cfg.MaxArchiveBytes <= 0 {
		cfg.MaxArchiveBytes = 50 << 20
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		deps:    deps,
		logger:  logger,
		config:  cfg,
		metrics: NewHTTPMetrics(logger),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.metrics.MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), requestID)))

			err := next(c)
			if err != nil {
				// Let echo write the response so the status is known below.
				c.Error(err)
			}

			logger.Info("http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", requestID),
			)
			return nil
		}
	})

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/ingest", s.handleIngest)
	v1.POST("/upload", s.handleUpload)

	projects := v1.Group("/projects/:id")
	projects.GET("/tree", s.handleTree)
	projects.POST("/search", s.handleSearch)
	projects.POST("/chat", s.handleChat)
	projects.POST("/chat/file", s.handleFileChat)
	projects.POST("/readme", s.handleReadme)
	projects.POST("/analyze", s.handleAnalyze)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Projects: s.deps.Store.Len()})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
