// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/wneessen/weather-session/internal/logger"
	"github.com/wneessen/weather-session/internal/session"
	"github.com/wneessen/weather-session/internal/settings"
	"github.com/wneessen/weather-session/internal/weather"
)

// resolveRequest selects either a city or a coordinate pair.
type resolveRequest struct {
	City      string   `json:"city" validate:"omitempty,max=200"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

func (r resolveRequest) query() (session.Query, error) {
	city := strings.TrimSpace(r.City)
	hasCoords := r.Latitude != nil || r.Longitude != nil
	switch {
	case city != "" && hasCoords:
		return session.Query{}, fiber.NewError(fiber.StatusBadRequest, "either city or coordinates are allowed, not both")
	case city != "":
		return session.CityQuery(city), nil
	case r.Latitude != nil && r.Longitude != nil:
		return session.CoordinatesQuery(weather.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}), nil
	case hasCoords:
		return session.Query{}, fiber.NewError(fiber.StatusBadRequest, "latitude and longitude are both required")
	default:
		return session.Query{}, fiber.NewError(fiber.StatusBadRequest, "city or coordinates are required")
	}
}

type unitsRequest struct {
	Units string `json:"units" validate:"required,max=16"`
}

type themeRequest struct {
	Theme string `json:"theme" validate:"required,max=16"`
}

type settingsResponse struct {
	Units   weather.UnitSystem `json:"units"`
	Theme   settings.Theme     `json:"theme"`
	Changed bool               `json:"changed"`
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	v1 := s.app.Group("/api/v1")
	v1.Get("/session", s.getSession)
	v1.Get("/session/view", s.getView)
	v1.Get("/session/events", s.streamEvents)
	v1.Post("/session/resolve", s.resolve)
	v1.Post("/session/refresh", s.refresh)
	v1.Post("/session/retry", s.retry)
	v1.Post("/session/locate", s.locate)

	v1.Get("/locations", s.listLocations)
	v1.Post("/locations/:id/resolve", s.recallLocation)
	v1.Delete("/locations/:id", s.removeLocation)

	v1.Get("/settings", s.getSettings)
	v1.Put("/settings/units", s.putUnits)
	v1.Put("/settings/theme", s.putTheme)
}

func (s *Server) getSession(c *fiber.Ctx) error {
	return c.JSON(s.session.State())
}

func (s *Server) getView(c *fiber.Ctx) error {
	out, err := s.presenter.Render(s.session.State(), s.prefs.Theme())
	if err != nil {
		return fmt.Errorf("failed to render session state: %w", err)
	}
	return c.JSON(out)
}

func (s *Server) resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	query, err := req.query()
	if err != nil {
		return err
	}
	return s.start(c, query)
}

func (s *Server) refresh(c *fiber.Ctx) error {
	return s.start(c, s.session.RefreshQuery())
}

func (s *Server) retry(c *fiber.Ctx) error {
	return s.start(c, s.session.RetryQuery())
}

func (s *Server) locate(c *fiber.Ctx) error {
	return s.start(c, session.DeviceQuery())
}

// start resolves the query in the background and answers with the loading state. With
// wait=true it blocks and answers with the terminal state.
func (s *Server) start(c *fiber.Ctx, query session.Query) error {
	units := s.prefs.Units()
	if c.QueryBool("wait") {
		return c.JSON(s.session.Resolve(s.ctx, query, units))
	}
	return c.Status(fiber.StatusAccepted).JSON(s.session.Submit(s.ctx, query, units))
}

func (s *Server) listLocations(c *fiber.Ctx) error {
	return c.JSON(s.registry.List())
}

func (s *Server) recallLocation(c *fiber.Ctx) error {
	id, err := locationID(c)
	if err != nil {
		return err
	}
	ref, ok := s.registry.Get(id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "location not found")
	}
	return s.start(c, session.CoordinatesQuery(ref.Coordinates()))
}

func (s *Server) removeLocation(c *fiber.Ctx) error {
	id, err := locationID(c)
	if err != nil {
		return err
	}
	if !s.registry.Remove(id) {
		return fiber.NewError(fiber.StatusNotFound, "location not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getSettings(c *fiber.Ctx) error {
	return c.JSON(settingsResponse{Units: s.prefs.Units(), Theme: s.prefs.Theme()})
}

func (s *Server) putUnits(c *fiber.Ctx) error {
	var req unitsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	units, err := weather.ParseUnitSystem(req.Units)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	changed := s.prefs.SetUnits(units)
	return c.JSON(settingsResponse{Units: units, Theme: s.prefs.Theme(), Changed: changed})
}

func (s *Server) putTheme(c *fiber.Ctx) error {
	var req themeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	theme, err := settings.ParseTheme(req.Theme)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	changed := s.prefs.SetTheme(theme)
	return c.JSON(settingsResponse{Units: s.prefs.Units(), Theme: theme, Changed: changed})
}

// streamEvents sends the current state and every following state change as server-sent
// events until the client goes away or the server shuts down. The subscription delivers
// the current state first.
func (s *Server) streamEvents(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	states, unsubscribe := s.session.Subscribe(eventBuffer)
	log := s.log
	done := s.ctx.Done()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case <-done:
				return
			case state, ok := <-states:
				if !ok {
					return
				}
				if err := writeEvent(w, state); err != nil {
					log.Debug("event stream closed", logger.Err(err))
					return
				}
			case <-ping.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeEvent(w *bufio.Writer, state session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if _, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

func locationID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid location id")
	}
	return id, nil
}
