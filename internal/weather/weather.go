// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"fmt"
	"strings"
	"time"
)

// MaxForecastPoints is the number of 3-hourly forecast entries requested and kept.
const MaxForecastPoints = 8

// UnitSystem selects the measurement system used for provider requests and display labels.
type UnitSystem string

const (
	Metric   UnitSystem = "metric"
	Imperial UnitSystem = "imperial"
)

// ParseUnitSystem parses a unit system name case-insensitively.
func ParseUnitSystem(val string) (UnitSystem, error) {
	switch UnitSystem(strings.ToLower(strings.TrimSpace(val))) {
	case Metric:
		return Metric, nil
	case Imperial:
		return Imperial, nil
	default:
		return "", fmt.Errorf("invalid unit system: %q", val)
	}
}

func (u UnitSystem) String() string {
	return string(u)
}

// TemperatureUnit returns the display label for temperatures.
func (u UnitSystem) TemperatureUnit() string {
	if u == Imperial {
		return "°F"
	}
	return "°C"
}

// SpeedUnit returns the display label for wind speeds.
func (u UnitSystem) SpeedUnit() string {
	if u == Imperial {
		return "mph"
	}
	return "m/s"
}

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid checks if the coordinate is valid according to the EPSG logic
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// LocationRef identifies a saved location. ID is the provider city id and defines identity.
type LocationRef struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coordinates returns the position of the location.
func (l LocationRef) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// CurrentConditions is the normalized current weather for one location.
type CurrentConditions struct {
	ID            int64       `json:"id"`
	Location      string      `json:"location"`
	Country       string      `json:"country"`
	Temperature   int         `json:"temperature"`
	FeelsLike     int         `json:"feels_like"`
	Description   string      `json:"description"`
	ConditionCode int         `json:"condition_code"`
	IconRef       string      `json:"icon"`
	Humidity      float64     `json:"humidity"`
	WindSpeed     float64     `json:"wind_speed"`
	Pressure      float64     `json:"pressure"`
	Sunrise       string      `json:"sunrise"`
	Sunset        string      `json:"sunset"`
	Coordinates   Coordinates `json:"coordinates"`
	Units         UnitSystem  `json:"units"`
	ObservedAt    time.Time   `json:"observed_at"`
}

// Ref derives the saved-location reference from the conditions.
func (c CurrentConditions) Ref() LocationRef {
	return LocationRef{
		ID:        c.ID,
		Name:      c.Location,
		Latitude:  c.Coordinates.Latitude,
		Longitude: c.Coordinates.Longitude,
	}
}

// Condition returns the condition group of the current weather.
func (c CurrentConditions) Condition() Condition {
	return ConditionFor(c.ConditionCode, c.Description)
}

// ForecastPoint is one normalized forecast entry.
type ForecastPoint struct {
	Time          string     `json:"time"`
	Timestamp     time.Time  `json:"timestamp"`
	Temperature   int        `json:"temperature"`
	IconRef       string     `json:"icon"`
	Description   string     `json:"description"`
	ConditionCode int        `json:"condition_code"`
	Units         UnitSystem `json:"units"`
}

// Condition returns the condition group of the forecast entry.
func (f ForecastPoint) Condition() Condition {
	return ConditionFor(f.ConditionCode, f.Description)
}
