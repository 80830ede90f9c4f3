// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package session implements the weather session orchestrator. It sequences the
// provider requests of a resolution, reconciles successful results into the location
// registry and publishes the session state to its subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wneessen/weather-session/internal/i18n"
	"github.com/wneessen/weather-session/internal/logger"
	"github.com/wneessen/weather-session/internal/normalizer"
	"github.com/wneessen/weather-session/internal/weather"
	"github.com/wneessen/weather-session/internal/weather/provider/openweathermap"
)

const DefaultFallbackCity = "New York"

// Provider is the weather provider client used by the orchestrator.
type Provider interface {
	FetchCurrentByCity(ctx context.Context, city string, units weather.UnitSystem) (*openweathermap.RawCurrent, error)
	FetchCurrentByCoords(ctx context.Context, lat, lon float64, units weather.UnitSystem) (*openweathermap.RawCurrent, error)
	FetchForecastByCoords(ctx context.Context, lat, lon float64, units weather.UnitSystem) (*openweathermap.RawForecast, error)
}

// Registry receives the location of every successful resolution.
type Registry interface {
	Add(ref weather.LocationRef) bool
}

// Preferences provides the active unit system.
type Preferences interface {
	Units() weather.UnitSystem
}

// Locator obtains the device location.
type Locator interface {
	Locate(ctx context.Context) (weather.Coordinates, error)
}

type Options struct {
	// FallbackCity is resolved on activation and whenever no better query is known
	FallbackCity string
	// Retry defaults to NoRetry
	Retry RetryPolicy
	// Translator localizes failure messages, the untranslated message ids are used if nil
	Translator i18n.Translator
	// Locator resolves device queries, which fail with a permission error if nil
	Locator Locator
}

// Orchestrator owns the session state. Every resolution is fenced by a sequence number:
// only the most recently issued resolution may publish its terminal state.
type Orchestrator struct {
	provider   Provider
	normalizer *normalizer.Normalizer
	registry   Registry
	prefs      Preferences
	locator    Locator
	retry      RetryPolicy
	translator i18n.Translator
	fallback   string
	log        *logger.Logger

	mu          sync.Mutex
	state       State
	seq         uint64
	activated   bool
	lastGood    *weather.Coordinates
	lastQuery   *Query
	subscribers map[chan State]struct{}

	inflight sync.WaitGroup
}

// resolution identifies one run of the fetch, normalize and register pipeline.
type resolution struct {
	seq   uint64
	id    string
	query Query
	units weather.UnitSystem
	log   *logger.Logger
}

func New(provider Provider, norm *normalizer.Normalizer, reg Registry, prefs Preferences, log *logger.Logger,
	opts Options,
) (*Orchestrator, error) {
	if provider == nil {
		return nil, fmt.Errorf("weather provider is required")
	}
	if norm == nil {
		return nil, fmt.Errorf("normalizer is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("location registry is required")
	}
	if prefs == nil {
		return nil, fmt.Errorf("preferences are required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.FallbackCity == "" {
		opts.FallbackCity = DefaultFallbackCity
	}
	if opts.Retry == nil {
		opts.Retry = NoRetry{}
	}
	if opts.Translator == nil {
		opts.Translator = i18n.Source{}
	}

	return &Orchestrator{
		provider:    provider,
		normalizer:  norm,
		registry:    reg,
		prefs:       prefs,
		locator:     opts.Locator,
		retry:       opts.Retry,
		translator:  opts.Translator,
		fallback:    opts.FallbackCity,
		log:         log,
		state:       State{Status: Idle, Units: prefs.Units()},
		subscribers: make(map[chan State]struct{}),
	}, nil
}

// State returns the current session state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe returns a channel that receives the current state immediately and every
// published state afterward. A subscriber that falls behind loses intermediate states,
// never the latest one. The returned function unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)
	o.mu.Lock()
	o.subscribers[ch] = struct{}{}
	ch <- o.state
	o.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subscribers, ch)
			close(ch)
			o.mu.Unlock()
		})
	}
	return ch, unsub
}

// Activate performs the fallback resolution the first time it is called. Later calls
// return the current state and false.
func (o *Orchestrator) Activate(ctx context.Context) (State, bool) {
	o.mu.Lock()
	if o.activated {
		state := o.state
		o.mu.Unlock()
		return state, false
	}
	o.activated = true
	o.mu.Unlock()

	return o.Resolve(ctx, CityQuery(o.fallback), o.prefs.Units()), true
}

// Resolve runs a resolution for query and blocks until it ended. The returned state is the
// outcome of this resolution. It only became the session state if no newer resolution was
// issued in the meantime.
func (o *Orchestrator) Resolve(ctx context.Context, query Query, units weather.UnitSystem) State {
	res := o.begin(query, units)
	return o.run(ctx, res)
}

// Submit starts a resolution in the background and returns the published loading state.
func (o *Orchestrator) Submit(ctx context.Context, query Query, units weather.UnitSystem) State {
	res := o.begin(query, units)
	loading := o.State()
	o.inflight.Go(func() {
		o.run(ctx, res)
	})
	return loading
}

// Wait blocks until all submitted resolutions finished.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// Refresh re-resolves the last successfully resolved location, or the fallback city.
func (o *Orchestrator) Refresh(ctx context.Context) State {
	return o.Resolve(ctx, o.RefreshQuery(), o.prefs.Units())
}

// Retry re-runs the last attempted query, or the fallback city if nothing was attempted.
func (o *Orchestrator) Retry(ctx context.Context) State {
	return o.Resolve(ctx, o.RetryQuery(), o.prefs.Units())
}

// ResolveDevice resolves the current device location.
func (o *Orchestrator) ResolveDevice(ctx context.Context) State {
	return o.Resolve(ctx, DeviceQuery(), o.prefs.Units())
}

// RefreshQuery returns the coordinates of the last successful resolution, or the
// fallback city if none succeeded yet.
func (o *Orchestrator) RefreshQuery() Query {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refreshQuery()
}

// RetryQuery returns the last attempted query, or the fallback city.
func (o *Orchestrator) RetryQuery() Query {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastQuery != nil {
		return *o.lastQuery
	}
	return CityQuery(o.fallback)
}

// UnitsChanged re-resolves the session for the new unit system against the last good
// coordinates, or the fallback city. Nothing happens while the session is idle; the next
// resolution picks up the new units. It reports whether a resolution was submitted.
func (o *Orchestrator) UnitsChanged(ctx context.Context, units weather.UnitSystem) (State, bool) {
	o.mu.Lock()
	if o.state.Status == Idle {
		state := o.state
		o.mu.Unlock()
		return state, false
	}
	query := o.refreshQuery()
	o.mu.Unlock()

	o.log.Debug("unit system changed, re-resolving session", slog.String("units", units.String()),
		slog.String("query", query.String()))
	return o.Submit(ctx, query, units), true
}

func (o *Orchestrator) refreshQuery() Query {
	if o.lastGood != nil {
		return CoordinatesQuery(*o.lastGood)
	}
	return CityQuery(o.fallback)
}

// begin issues a new resolution and publishes its loading state.
func (o *Orchestrator) begin(query Query, units weather.UnitSystem) resolution {
	id := uuid.NewString()
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	o.activated = true
	stored := query
	o.lastQuery = &stored
	res := resolution{
		seq:   o.seq,
		id:    id,
		query: query,
		units: units,
		log:   o.log.With(slog.String("resolution", id)),
	}
	o.publishLocked(State{
		Status:       Loading,
		Query:        &stored,
		Units:        units,
		ResolutionID: id,
		UpdatedAt:    time.Now(),
	})
	res.log.Debug("resolution started", slog.String("query", query.String()),
		slog.String("units", units.String()))
	return res
}

// run executes the resolution pipeline and publishes its terminal state.
func (o *Orchestrator) run(ctx context.Context, res resolution) State {
	query := res.query
	if query.Device {
		coords, err := o.locate(ctx)
		if err != nil {
			return o.fail(res, err)
		}
		query = CoordinatesQuery(coords)
	}

	var (
		cond     weather.CurrentConditions
		forecast []weather.ForecastPoint
		err      error
	)
	for attempt := 0; ; attempt++ {
		cond, forecast, err = o.fetch(ctx, query, res.units)
		if err == nil {
			break
		}
		delay, retry := o.retry.Backoff(attempt, err)
		if !retry || o.superseded(res) {
			return o.fail(res, err)
		}
		res.log.Warn("resolution attempt failed, retrying", slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay), logger.Err(err))
		if !sleepOrDone(ctx, delay) {
			return o.fail(res, err)
		}
	}

	if o.registry.Add(cond.Ref()) {
		res.log.Info("saved new location", slog.Int64("id", cond.ID), slog.String("name", cond.Location))
	}

	return o.complete(res, State{
		Status:       Ready,
		Conditions:   &cond,
		Forecast:     forecast,
		Query:        &query,
		Units:        res.units,
		ResolutionID: res.id,
		UpdatedAt:    time.Now(),
	})
}

// fetch requests and normalizes the current conditions, then the forecast for the
// coordinates the provider returned. Both must succeed.
func (o *Orchestrator) fetch(ctx context.Context, query Query, units weather.UnitSystem) (weather.CurrentConditions,
	[]weather.ForecastPoint, error,
) {
	var (
		raw *openweathermap.RawCurrent
		err error
	)
	if query.Coordinates != nil {
		raw, err = o.provider.FetchCurrentByCoords(ctx, query.Coordinates.Latitude, query.Coordinates.Longitude, units)
	} else {
		raw, err = o.provider.FetchCurrentByCity(ctx, query.City, units)
	}
	if err != nil {
		return weather.CurrentConditions{}, nil, fmt.Errorf("failed to fetch current conditions: %w", err)
	}
	cond, err := o.normalizer.Current(raw, units)
	if err != nil {
		return weather.CurrentConditions{}, nil, fmt.Errorf("failed to normalize current conditions: %w", err)
	}

	rawForecast, err := o.provider.FetchForecastByCoords(ctx, cond.Coordinates.Latitude, cond.Coordinates.Longitude,
		units)
	if err != nil {
		return weather.CurrentConditions{}, nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	forecast, err := o.normalizer.Forecast(rawForecast, units)
	if err != nil {
		return weather.CurrentConditions{}, nil, fmt.Errorf("failed to normalize forecast: %w", err)
	}

	return cond, forecast, nil
}

func (o *Orchestrator) locate(ctx context.Context) (weather.Coordinates, error) {
	if o.locator == nil {
		return weather.Coordinates{}, weather.ErrPermissionDenied
	}
	coords, err := o.locator.Locate(ctx)
	if err != nil {
		return coords, fmt.Errorf("failed to locate device: %w", err)
	}
	return coords, nil
}

func (o *Orchestrator) fail(res resolution, err error) State {
	res.log.Error("resolution failed", slog.String("query", res.query.String()), logger.Err(err))
	return o.complete(res, State{
		Status:       Failed,
		Message:      o.message(err),
		Query:        &res.query,
		Units:        res.units,
		ResolutionID: res.id,
		UpdatedAt:    time.Now(),
	})
}

// complete publishes the terminal state unless a newer resolution was issued.
func (o *Orchestrator) complete(res resolution, state State) State {
	o.mu.Lock()
	defer o.mu.Unlock()

	if res.seq != o.seq {
		res.log.Debug("discarding outcome of superseded resolution", slog.String("status", state.Status.String()))
		return state
	}
	if state.Status == Ready {
		coords := state.Conditions.Coordinates
		o.lastGood = &coords
	}
	o.publishLocked(state)
	return state
}

func (o *Orchestrator) superseded(res resolution) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return res.seq != o.seq
}

// publishLocked stores and broadcasts the state. Broadcasting under the lock keeps the
// delivery order equal to the publication order.
func (o *Orchestrator) publishLocked(state State) {
	o.state = state
	for ch := range o.subscribers {
		select {
		case ch <- state:
			continue
		default:
		}
		// Drop the oldest pending state so the subscriber always ends up with the latest.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}

func (o *Orchestrator) message(err error) string {
	var transErr *weather.TransportError
	switch {
	case errors.Is(err, weather.ErrPermissionDenied):
		return o.translator.Get(i18n.MsgPermissionDenied)
	case errors.Is(err, weather.ErrLocationFixTimeout):
		return o.translator.Get(i18n.MsgFixTimeout)
	case errors.As(err, &transErr) && transErr.Message != "":
		return transErr.Message
	default:
		return o.translator.Get(i18n.MsgFetchFailed)
	}
}
