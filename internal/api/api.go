// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package api serves the weather session over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/wneessen/weather-session/internal/logger"
	"github.com/wneessen/weather-session/internal/presenter"
	"github.com/wneessen/weather-session/internal/session"
	"github.com/wneessen/weather-session/internal/settings"
	"github.com/wneessen/weather-session/internal/weather"
)

const (
	appName      = "weather-session"
	readTimeout  = 10 * time.Second
	eventBuffer  = 8
	pingInterval = 15 * time.Second
)

var validate = validator.New()

// Session is the part of the orchestrator served by the API.
type Session interface {
	State() session.State
	// Subscribe delivers the current state first, then every published state
	Subscribe(buffer int) (<-chan session.State, func())
	Resolve(ctx context.Context, query session.Query, units weather.UnitSystem) session.State
	Submit(ctx context.Context, query session.Query, units weather.UnitSystem) session.State
	RefreshQuery() session.Query
	RetryQuery() session.Query
}

// Registry lists and removes saved locations.
type Registry interface {
	List() []weather.LocationRef
	Get(id int64) (weather.LocationRef, bool)
	Remove(id int64) bool
}

// Renderer renders a state for display.
type Renderer interface {
	Render(state session.State, theme settings.Theme) (presenter.Output, error)
}

type Server struct {
	app       *fiber.App
	ctx       context.Context
	session   Session
	registry  Registry
	prefs     *settings.Store
	presenter Renderer
	log       *logger.Logger
}

// New creates the server. Resolutions started by requests run with ctx, canceling it
// also ends open event streams.
func New(ctx context.Context, sess Session, reg Registry, prefs *settings.Store, pres Renderer,
	log *logger.Logger,
) (*Server, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if reg == nil {
		return nil, errors.New("location registry is required")
	}
	if prefs == nil {
		return nil, errors.New("settings store is required")
	}
	if pres == nil {
		return nil, errors.New("presenter is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	srv := &Server{
		ctx:       ctx,
		session:   sess,
		registry:  reg,
		prefs:     prefs,
		presenter: pres,
		log:       log.With(slog.String("component", "api")),
	}
	srv.app = fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           readTimeout,
		ErrorHandler:          ErrorHandler,
	})
	srv.app.Use(recover.New())
	srv.app.Use(srv.requestLog)
	srv.registerRoutes()
	return srv, nil
}

// App returns the fiber app of the server.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve serves the API on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("starting HTTP API", slog.String("listen", ln.Addr().String()))
	if err := s.app.Listener(ln); err != nil {
		return fmt.Errorf("failed to serve HTTP API: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// ErrorHandler renders every error as JSON. Validation errors are client errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var (
		fiberErr     *fiber.Error
		validateErrs validator.ValidationErrors
	)
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.As(err, &validateErrs):
		code = fiber.StatusBadRequest
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func (s *Server) requestLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
	}
	s.log.Debug("handled request", slog.String("method", c.Method()), slog.String("path", c.Path()),
		slog.Int("status", status), slog.Duration("duration", time.Since(start)))
	return err
}
