package api

import (
	"strings"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	origins := s.config.Server.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	api := s.app.Group("/api")

	api.Post("/extract", s.handleExtract)
	api.Post("/extract/batch", s.handleExtractBatch)
	api.Post("/scan", s.handleScan)
	api.Post("/export/whatsapp", s.handleExportWhatsApp)

	// history holds guest ID data
	history := api.Group("/batches", s.authMiddleware())
	history.Get("/", s.handleListBatches)
	history.Get("/:id", s.handleGetBatch)
	history.Get("/:id/xlsx", s.handleBatchXLSX)
}
