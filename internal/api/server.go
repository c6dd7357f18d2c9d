// Package api exposes extraction, scanning and export over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/docscan/internal/batch"
	"github.com/gmsas95/docscan/internal/config"
	"github.com/gmsas95/docscan/internal/export"
	"github.com/gmsas95/docscan/internal/extract"
	"github.com/gmsas95/docscan/internal/metrics"
	"github.com/gmsas95/docscan/internal/security"
	"github.com/gmsas95/docscan/internal/store"
)

// Version is reported by /api/health
var Version = "dev"

// Server handles the HTTP API
type Server struct {
	app       *fiber.App
	config    *config.Config
	store     *store.Store
	scanner   batch.Scanner
	extractor *extract.Extractor
	exporter  *export.Exporter
	validator *security.InputValidator
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// New creates a new API server
func New(cfg *config.Config, st *store.Store, scanner batch.Scanner, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Default()
	}

	bodyLimit := cfg.Server.MaxUploadMB << 20
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           seconds(cfg.Server.ReadTimeout, 30),
		WriteTimeout:          seconds(cfg.Server.WriteTimeout, 30),
		IdleTimeout:           120 * time.Second,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	s := &Server{
		app:       app,
		config:    cfg,
		store:     st,
		scanner:   scanner,
		extractor: extract.NewExtractor(),
		exporter:  export.NewExporter(cfg.Export),
		validator: security.NewInputValidator(),
		metrics:   m,
		logger:    logger,
	}

	s.setupRoutes()
	return s
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// App returns the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the server
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.logger.Info("API listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
