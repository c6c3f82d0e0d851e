package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/mnemo/pkg/memory"
)

// Server is the API server for the mnemo memory service
type Server struct {
	config  Config
	service *memory.Service
	logger  *zap.Logger
	app     *fiber.App
}

// NewServer creates a new API server. When mcpHandler is non-nil it is
// mounted at /mcp.
func NewServer(config Config, service *memory.Service, mcpHandler http.Handler, logger *zap.Logger) (*Server, error) {
	if service == nil {
		return nil, errors.New("memory service is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Keys taken from the path outlive the request in published events.
		// The path is routed undecoded so an escaped "/" stays inside :key.
		Immutable: true,
	})

	s := &Server{
		config:  config,
		service: service,
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/memories", s.handleList)
	app.Get("/memories/:key", s.handleRecall)
	app.Put("/memories/:key", s.handleRemember)
	app.Delete("/memories/:key", s.handleForget)

	if mcpHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(mcpHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
