package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/flexyearn/flexyearn/internal/middleware"
	"github.com/flexyearn/flexyearn/internal/routes"
	"github.com/flexyearn/flexyearn/internal/session"
)

// Server wraps the Fiber application and the live session registry.
type Server struct {
	app      *fiber.App
	address  string
	sessions *session.Manager
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(deps routes.Deps, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      deps.Cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	sessions, err := routes.Setup(app, deps)
	if err != nil {
		return nil, err
	}

	return &Server{app: app, address: deps.Cfg.Address(), sessions: sessions}, nil
}

// Sessions exposes the session registry for housekeeping jobs.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// App returns the underlying Fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.address)
}

// Shutdown stops accepting requests, then tears down the live sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.sessions.Close()
	return err
}
