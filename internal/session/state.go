// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/wneessen/weather-session/internal/weather"
)

// Status is the tag of the session state.
type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Failed
)

var statusNames = map[Status]string{
	Idle:    "idle",
	Loading: "loading",
	Ready:   "ready",
	Failed:  "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// Terminal reports whether the status ends a resolution.
func (s Status) Terminal() bool {
	return s == Ready || s == Failed
}

func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown status: %d", s)
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status: %q", text)
}

// Query selects the location of a resolution: a city name, a coordinate pair or the
// current device location.
type Query struct {
	City        string               `json:"city,omitempty"`
	Coordinates *weather.Coordinates `json:"coordinates,omitempty"`
	Device      bool                 `json:"device,omitempty"`
}

func CityQuery(city string) Query {
	return Query{City: city}
}

func CoordinatesQuery(coords weather.Coordinates) Query {
	return Query{Coordinates: &coords}
}

func DeviceQuery() Query {
	return Query{Device: true}
}

func (q Query) String() string {
	switch {
	case q.Device:
		return "device location"
	case q.Coordinates != nil:
		return q.Coordinates.String()
	default:
		return q.City
	}
}

// State is a snapshot of the session. Ready carries conditions and forecast, Failed only
// a message. Snapshots are never modified after they were published.
type State struct {
	Status       Status                     `json:"status"`
	Conditions   *weather.CurrentConditions `json:"conditions,omitempty"`
	Forecast     []weather.ForecastPoint    `json:"forecast,omitempty"`
	Message      string                     `json:"message,omitempty"`
	Query        *Query                     `json:"query,omitempty"`
	Units        weather.UnitSystem         `json:"units,omitempty"`
	ResolutionID string                     `json:"resolution_id,omitempty"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}
