// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package normalizer maps raw OpenWeatherMap payloads into the internal weather model.
// Normalization is pure: it never converts units, it only rounds and reformats.
package normalizer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/wneessen/weather-session/internal/weather"
	"github.com/wneessen/weather-session/internal/weather/provider/openweathermap"
)

const (
	DefaultIconBaseURL = "https://openweathermap.org/img/wn"

	// TimeFormat is the wall-clock format of sunrise, sunset and forecast times
	TimeFormat = "15:04"

	// Unavailable is rendered for a sun event that does not happen on the given day
	Unavailable = "-"
)

type Normalizer struct {
	loc      *time.Location
	iconBase string
}

// New returns a Normalizer formatting times in loc and building icon references from iconBase.
func New(loc *time.Location, iconBase string) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	if iconBase == "" {
		iconBase = DefaultIconBaseURL
	}
	return &Normalizer{loc: loc, iconBase: strings.TrimRight(iconBase, "/")}
}

// Current normalizes a current weather payload.
func (n *Normalizer) Current(raw *openweathermap.RawCurrent, units weather.UnitSystem) (weather.CurrentConditions, error) {
	var cond weather.CurrentConditions
	switch {
	case raw == nil:
		return cond, &weather.NormalizationError{Field: "payload"}
	case raw.ID == nil:
		return cond, &weather.NormalizationError{Field: "id"}
	case raw.Name == nil:
		return cond, &weather.NormalizationError{Field: "name"}
	case raw.Coord == nil || raw.Coord.Lat == nil || raw.Coord.Lon == nil:
		return cond, &weather.NormalizationError{Field: "coord"}
	case raw.Main == nil || raw.Main.Temp == nil:
		return cond, &weather.NormalizationError{Field: "main.temp"}
	case raw.Main.FeelsLike == nil:
		return cond, &weather.NormalizationError{Field: "main.feels_like"}
	case len(raw.Weather) == 0:
		return cond, &weather.NormalizationError{Field: "weather"}
	}

	coords := weather.Coordinates{Latitude: *raw.Coord.Lat, Longitude: *raw.Coord.Lon}
	cond = weather.CurrentConditions{
		ID:            *raw.ID,
		Location:      *raw.Name,
		Temperature:   Round(*raw.Main.Temp),
		FeelsLike:     Round(*raw.Main.FeelsLike),
		Description:   raw.Weather[0].Description,
		ConditionCode: raw.Weather[0].ID,
		IconRef:       n.icon(raw.Weather[0].Icon, "@4x"),
		Humidity:      deref(raw.Main.Humidity),
		Pressure:      deref(raw.Main.Pressure),
		Coordinates:   coords,
		Units:         units,
	}
	if raw.Wind != nil {
		cond.WindSpeed = deref(raw.Wind.Speed)
	}
	if raw.Dt != nil {
		cond.ObservedAt = time.Unix(*raw.Dt, 0).In(n.loc)
	}

	var sunriseAt, sunsetAt *int64
	if raw.Sys != nil {
		cond.Country = raw.Sys.Country
		sunriseAt, sunsetAt = raw.Sys.Sunrise, raw.Sys.Sunset
	}
	cond.Sunrise, cond.Sunset = n.sunEvents(coords, raw.Dt, sunriseAt, sunsetAt)

	return cond, nil
}

// Forecast normalizes a forecast payload into at most weather.MaxForecastPoints points
// in provider order.
func (n *Normalizer) Forecast(raw *openweathermap.RawForecast, units weather.UnitSystem) ([]weather.ForecastPoint, error) {
	if raw == nil || len(raw.List) == 0 {
		return nil, &weather.NormalizationError{Field: "list"}
	}

	items := raw.List
	if len(items) > weather.MaxForecastPoints {
		items = items[:weather.MaxForecastPoints]
	}
	points := make([]weather.ForecastPoint, 0, len(items))
	for i, item := range items {
		switch {
		case item.Dt == nil:
			return nil, &weather.NormalizationError{Field: fmt.Sprintf("list[%d].dt", i)}
		case item.Main == nil || item.Main.Temp == nil:
			return nil, &weather.NormalizationError{Field: fmt.Sprintf("list[%d].main.temp", i)}
		case len(item.Weather) == 0:
			return nil, &weather.NormalizationError{Field: fmt.Sprintf("list[%d].weather", i)}
		}
		points = append(points, weather.ForecastPoint{
			Time:          n.clock(*item.Dt),
			Timestamp:     time.Unix(*item.Dt, 0).In(n.loc),
			Temperature:   Round(*item.Main.Temp),
			IconRef:       n.icon(item.Weather[0].Icon, ""),
			Description:   item.Weather[0].Description,
			ConditionCode: item.Weather[0].ID,
			Units:         units,
		})
	}

	return points, nil
}

// Round rounds half-up to the nearest integer, so -2.5 becomes -2.
func Round(val float64) int {
	return int(math.Floor(val + 0.5))
}

func (n *Normalizer) clock(unix int64) string {
	return time.Unix(unix, 0).In(n.loc).Format(TimeFormat)
}

func (n *Normalizer) icon(code, variant string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s.png", n.iconBase, code, variant)
}

// sunEvents formats the provider's sunrise and sunset. Missing values are derived from the
// coordinates for the observation day. At high latitudes the sun may not rise or set at all,
// which go-sunrise reports as zero times.
func (n *Normalizer) sunEvents(coords weather.Coordinates, dt, sunriseAt, sunsetAt *int64) (string, string) {
	riseStr, setStr := Unavailable, Unavailable
	if (sunriseAt == nil || sunsetAt == nil) && dt != nil {
		day := time.Unix(*dt, 0).UTC()
		rise, set := sunrise.SunriseSunset(coords.Latitude, coords.Longitude, day.Year(), day.Month(), day.Day())
		riseStr, setStr = n.sunClock(rise), n.sunClock(set)
	}
	if sunriseAt != nil {
		riseStr = n.clock(*sunriseAt)
	}
	if sunsetAt != nil {
		setStr = n.clock(*sunsetAt)
	}
	return riseStr, setStr
}

func (n *Normalizer) sunClock(val time.Time) string {
	if val.IsZero() {
		return Unavailable
	}
	return val.In(n.loc).Format(TimeFormat)
}

func deref(val *float64) float64 {
	if val == nil {
		return 0
	}
	return *val
}
