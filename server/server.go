// Package server exposes a small HTTP API for inspecting and managing
// saved conversation histories.
package server

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/scribe/pkg/history"
	"github.com/papercomputeco/scribe/pkg/wire"
)

// Config is the inspection server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080").
	ListenAddr string
}

// errorResponse is the JSON body returned for failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

// historyResponse is the JSON body for one document's history.
type historyResponse struct {
	Document string      `json:"document"`
	Turns    []wire.Turn `json:"turns"`
}

// Server serves the history inspection API.
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// New creates a Server.
func New(config Config, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
	app.Get("/models", s.handleModels)
	app.Get("/history", s.handleGetHistory)
	app.Delete("/history", s.handleDeleteHistory)

	return s
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting inspection server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handleModels returns the known model catalog.
func (s *Server) handleModels(c *fiber.Ctx) error {
	return c.JSON(wire.AvailableModels())
}

// handleGetHistory returns the saved turns for the document named by the
// `document` query parameter.
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	document := c.Query("document")
	if document == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "document query parameter is required"})
	}

	h := history.New(s.logger)
	h.SetDocument(document)

	return c.JSON(historyResponse{
		Document: document,
		Turns:    h.Turns(),
	})
}

// handleDeleteHistory removes the saved history for a document.
func (s *Server) handleDeleteHistory(c *fiber.Ctx) error {
	document := c.Query("document")
	if document == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "document query parameter is required"})
	}

	path := history.SidecarPath(document)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to delete history file",
			zap.String("path", path),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to delete history"})
	}

	return c.JSON(map[string]string{"status": "deleted"})
}
