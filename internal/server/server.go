package server

import (
	"context"
	"fmt"
	"net/http"

	logging "github.com/ipfs/go-log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rigwatch/custodian/internal/api"
	"github.com/rigwatch/custodian/internal/config"
	"github.com/rigwatch/custodian/internal/controller"
)

var log = logging.Logger("server")

// Server is the HTTP front of the controller.
type Server struct {
	echo   *echo.Echo
	config *config.Config
}

// New creates the server and registers the API routes.
func New(cfg *config.Config, ctrl *controller.Controller) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if ctrl == nil {
		return nil, fmt.Errorf("controller cannot be nil")
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.ReadHeaderTimeout = cfg.Server.ReadTimeout
	e.Server.IdleTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	api.RegisterRoutes(e, ctrl)

	return &Server{echo: e, config: cfg}, nil
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	addr := s.config.Server.Address()
	log.Infow("starting HTTP server", "addr", addr)

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server start failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Infow("shutting down server")
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Echo returns the underlying Echo instance, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
