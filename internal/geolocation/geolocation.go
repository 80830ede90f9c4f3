// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geolocation determines the device location by querying a set of location
// sources concurrently.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/wneessen/weather-session/internal/logger"
	"github.com/wneessen/weather-session/internal/weather"
)

const (
	AccuracyCountry = 300000
	AccuracyRegion  = 100000
	AccuracyCity    = 15000
	AccuracyZip     = 3000
	AccuracyUnknown = 1000000
	TruncPrecision  = 4

	DefaultFixTimeout = 15 * time.Second
	DefaultAccuracy   = AccuracyRegion
)

// Source provides a single location fix. A source that is refused access to the location
// returns an error wrapping weather.ErrPermissionDenied.
type Source interface {
	Name() string
	Lookup(ctx context.Context) (Result, error)
}

// Result is a location fix reported by a Source.
type Result struct {
	Lat, Lon       float64
	AccuracyMeters float64
	Source         string
	At             time.Time
}

// Coordinates returns the coordinate pair of the fix.
func (r Result) Coordinates() weather.Coordinates {
	return weather.Coordinates{Latitude: r.Lat, Longitude: r.Lon}
}

type Options struct {
	// Disabled means the user refused access to the device location
	Disabled bool
	// FixTimeout is the budget for obtaining a fix
	FixTimeout time.Duration
	// Accuracy is the worst accepted accuracy in meters
	Accuracy float64
}

// Locator obtains the device location from its sources.
type Locator struct {
	sources    []Source
	disabled   bool
	fixTimeout time.Duration
	accuracy   float64
	log        *logger.Logger
}

// outcome is what a single source lookup produced.
type outcome struct {
	source string
	result Result
	err    error
}

func New(log *logger.Logger, sources []Source, opts Options) *Locator {
	if opts.FixTimeout <= 0 {
		opts.FixTimeout = DefaultFixTimeout
	}
	if opts.Accuracy <= 0 {
		opts.Accuracy = DefaultAccuracy
	}
	return &Locator{
		sources:    sources,
		disabled:   opts.Disabled,
		fixTimeout: opts.FixTimeout,
		accuracy:   opts.Accuracy,
		log:        log,
	}
}

// Sources returns the names of the configured sources.
func (l *Locator) Sources() []string {
	names := make([]string, 0, len(l.sources))
	for _, source := range l.sources {
		names = append(names, source.Name())
	}
	return names
}

// Locate queries all sources concurrently and returns the first fix that is accurate
// enough. If no such fix arrives within the fix timeout it fails with
// weather.ErrLocationFixTimeout, or with weather.ErrPermissionDenied if a source was
// refused access to the location.
func (l *Locator) Locate(ctx context.Context) (weather.Coordinates, error) {
	if l.disabled || len(l.sources) == 0 {
		return weather.Coordinates{}, weather.ErrPermissionDenied
	}

	ctx, cancel := context.WithTimeout(ctx, l.fixTimeout)
	defer cancel()

	outcomes := make(chan outcome, len(l.sources))
	for _, source := range l.sources {
		go func() {
			result, err := l.lookup(ctx, source)
			outcomes <- outcome{source: source.Name(), result: result, err: err}
		}()
	}

	denied := false
	for pending := len(l.sources); pending > 0; pending-- {
		select {
		case <-ctx.Done():
			return weather.Coordinates{}, l.timeout(ctx, denied)
		case out := <-outcomes:
			switch {
			case errors.Is(out.err, weather.ErrPermissionDenied):
				denied = true
				l.log.Debug("location source was denied access", slog.String("source", out.source))
			case out.err != nil:
				l.log.Debug("location source failed", slog.String("source", out.source), logger.Err(out.err))
			case !l.accepts(out.result):
				l.log.Debug("location fix is not accurate enough", slog.String("source", out.source),
					slog.Float64("accuracy", out.result.AccuracyMeters))
			default:
				l.log.Info("device location determined", slog.String("source", out.source),
					slog.Float64("accuracy", out.result.AccuracyMeters))
				return out.result.Coordinates(), nil
			}
		}
	}
	if ctx.Err() != nil {
		return weather.Coordinates{}, l.timeout(ctx, denied)
	}
	if denied {
		return weather.Coordinates{}, weather.ErrPermissionDenied
	}
	return weather.Coordinates{}, fmt.Errorf("no location source provided a fix: %w", weather.ErrLocationFixTimeout)
}

// lookup calls the source and recovers from a panicking source.
func (l *Locator) lookup(ctx context.Context, source Source) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("location source %s panicked: %v", source.Name(), r)
		}
	}()
	return source.Lookup(ctx)
}

func (l *Locator) accepts(r Result) bool {
	if !r.Coordinates().Valid() {
		return false
	}
	acc := r.AccuracyMeters
	if acc <= 0 {
		acc = AccuracyUnknown
	}
	return acc <= l.accuracy
}

func (l *Locator) timeout(ctx context.Context, denied bool) error {
	if denied {
		return weather.ErrPermissionDenied
	}
	if errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
		return fmt.Errorf("no location fix within %s: %w", l.fixTimeout, weather.ErrLocationFixTimeout)
	}
	return ctx.Err()
}

// Truncate truncates x to the given number of decimal places.
func Truncate(x float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Trunc(x*p) / p
}
