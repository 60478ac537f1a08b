// Package web exposes the conversation pipeline over HTTP. It is the caller
// layer: it owns request parsing and response shaping and delegates every
// turn to the orchestrator service.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/voxpipe/voxpipe/pkg/fallback"
	"github.com/voxpipe/voxpipe/pkg/memory"
	"github.com/voxpipe/voxpipe/pkg/orchestrator"
)

// Server is the HTTP API server.
type Server struct {
	app     *fiber.App
	addr    string
	service *orchestrator.Service
	store   memory.Store
	manager *fallback.Manager
	logger  *slog.Logger
}

// NewServer wires the API routes.
func NewServer(addr string, service *orchestrator.Service, store memory.Store, manager *fallback.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:    addr,
		service: service,
		store:   store,
		manager: manager,
		logger:  logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voxpipe",
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024, // audio uploads
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/health/reset", s.handleHealthReset)
	api.Post("/sessions", s.handleCreateSession)
	api.Post("/sessions/:id/turns", s.handleTurn)
	api.Get("/sessions/:id/history", s.handleHistory)
	api.Get("/sessions/:id/preferences", s.handleGetPreferences)
	api.Put("/sessions/:id/preferences/:key", s.handleSetPreference)

	s.app = app
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
