// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package normalizer

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/wneessen/weather-session/internal/weather"
	"github.com/wneessen/weather-session/internal/weather/provider/openweathermap"
)

const (
	testCurrent       = "../../testdata/openweathermap/current_new_york.json"
	testCurrentNoTemp = "../../testdata/openweathermap/current_missing_temp.json"
	testForecast      = "../../testdata/openweathermap/forecast_new_york.json"
	testForecastTen   = "../../testdata/openweathermap/forecast_ten_items.json"
	testForecastEmpty = "../../testdata/openweathermap/forecast_empty.json"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{15.4, 15},
		{15.5, 16},
		{15.6, 16},
		{-0.4, 0},
		{-2.5, -2},
		{-2.51, -3},
		{0, 0},
	}
	for _, tc := range tests {
		if got := Round(tc.in); got != tc.want {
			t.Errorf("Round(%v): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults are applied", func(t *testing.T) {
		norm := New(nil, "")
		if norm.loc != time.Local {
			t.Errorf("expected local zone, got %s", norm.loc)
		}
		if norm.iconBase != DefaultIconBaseURL {
			t.Errorf("expected default icon base, got %s", norm.iconBase)
		}
	})
	t.Run("trailing slash of the icon base is removed", func(t *testing.T) {
		norm := New(time.UTC, "https://example.com/icons/")
		if norm.iconBase != "https://example.com/icons" {
			t.Errorf("unexpected icon base: %s", norm.iconBase)
		}
	})
}

func TestNormalizer_Current(t *testing.T) {
	norm := New(newYork(t), "")
	t.Run("new york payload is normalized", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawCurrent](t, testCurrent)
		cond, err := norm.Current(raw, weather.Metric)
		if err != nil {
			t.Fatalf("failed to normalize current conditions: %s", err)
		}
		want := weather.CurrentConditions{
			ID:            5128581,
			Location:      "New York",
			Country:       "US",
			Temperature:   15,
			FeelsLike:     15,
			Description:   "clear sky",
			ConditionCode: 800,
			IconRef:       "https://openweathermap.org/img/wn/01d@4x.png",
			Humidity:      62,
			WindSpeed:     3.6,
			Pressure:      1021,
			Sunrise:       "07:04",
			Sunset:        "18:17",
			Coordinates:   weather.Coordinates{Latitude: 40.7143, Longitude: -74.006},
			Units:         weather.Metric,
		}
		if !cond.ObservedAt.Equal(time.Unix(1760446800, 0)) {
			t.Errorf("unexpected observation time: %s", cond.ObservedAt)
		}
		cond.ObservedAt = time.Time{}
		if cond != want {
			t.Errorf("unexpected conditions:\n got: %+v\nwant: %+v", cond, want)
		}
	})
	t.Run("normalization is deterministic", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawCurrent](t, testCurrent)
		first, err := norm.Current(raw, weather.Imperial)
		if err != nil {
			t.Fatalf("failed to normalize current conditions: %s", err)
		}
		second, err := norm.Current(raw, weather.Imperial)
		if err != nil {
			t.Fatalf("failed to normalize current conditions: %s", err)
		}
		if first != second {
			t.Errorf("expected identical results, got %+v and %+v", first, second)
		}
		if first.Units != weather.Imperial {
			t.Errorf("expected imperial units, got %s", first.Units)
		}
		if first.Temperature != 15 {
			t.Errorf("expected no unit conversion, got %d", first.Temperature)
		}
	})
	t.Run("missing temperature fails", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawCurrent](t, testCurrentNoTemp)
		_, err := norm.Current(raw, weather.Metric)
		assertField(t, err, "main.temp")
	})

	missing := []struct {
		field  string
		mutate func(*openweathermap.RawCurrent)
	}{
		{"id", func(r *openweathermap.RawCurrent) { r.ID = nil }},
		{"name", func(r *openweathermap.RawCurrent) { r.Name = nil }},
		{"coord", func(r *openweathermap.RawCurrent) { r.Coord = nil }},
		{"coord", func(r *openweathermap.RawCurrent) { r.Coord.Lon = nil }},
		{"main.temp", func(r *openweathermap.RawCurrent) { r.Main = nil }},
		{"main.feels_like", func(r *openweathermap.RawCurrent) { r.Main.FeelsLike = nil }},
		{"weather", func(r *openweathermap.RawCurrent) { r.Weather = nil }},
	}
	for _, tc := range missing {
		t.Run("missing "+tc.field+" fails", func(t *testing.T) {
			raw := loadJSON[openweathermap.RawCurrent](t, testCurrent)
			tc.mutate(raw)
			_, err := norm.Current(raw, weather.Metric)
			assertField(t, err, tc.field)
		})
	}
	t.Run("nil payload fails", func(t *testing.T) {
		_, err := norm.Current(nil, weather.Metric)
		assertField(t, err, "payload")
	})
	t.Run("missing optional fields default to zero", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawCurrent](t, testCurrent)
		raw.Wind = nil
		raw.Main.Humidity = nil
		cond, err := norm.Current(raw, weather.Metric)
		if err != nil {
			t.Fatalf("failed to normalize current conditions: %s", err)
		}
		if cond.WindSpeed != 0 || cond.Humidity != 0 {
			t.Errorf("expected zero wind speed and humidity, got %f and %f", cond.WindSpeed, cond.Humidity)
		}
	})
	t.Run("missing sun times are derived from the coordinates", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawCurrent](t, testCurrent)
		raw.Sys.Sunrise, raw.Sys.Sunset = nil, nil
		cond, err := norm.Current(raw, weather.Metric)
		if err != nil {
			t.Fatalf("failed to normalize current conditions: %s", err)
		}
		rise, set := sunrise.SunriseSunset(40.7143, -74.006, 2025, time.October, 14)
		if want := rise.In(newYork(t)).Format(TimeFormat); cond.Sunrise != want {
			t.Errorf("expected derived sunrise %s, got %s", want, cond.Sunrise)
		}
		if want := set.In(newYork(t)).Format(TimeFormat); cond.Sunset != want {
			t.Errorf("expected derived sunset %s, got %s", want, cond.Sunset)
		}
	})
	t.Run("polar night renders unavailable sun times", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawCurrent](t, testCurrent)
		lat, lon := 78.2232, 15.6267
		dt := time.Date(2025, time.December, 21, 12, 0, 0, 0, time.UTC).Unix()
		raw.Coord = &openweathermap.RawCoord{Lat: &lat, Lon: &lon}
		raw.Dt = &dt
		raw.Sys = &openweathermap.RawSys{Country: "SJ"}
		cond, err := norm.Current(raw, weather.Metric)
		if err != nil {
			t.Fatalf("failed to normalize current conditions: %s", err)
		}
		if cond.Sunrise != Unavailable || cond.Sunset != Unavailable {
			t.Errorf("expected unavailable sun times, got %s and %s", cond.Sunrise, cond.Sunset)
		}
	})
	t.Run("missing sun times without observation time are unavailable", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawCurrent](t, testCurrent)
		raw.Sys = nil
		raw.Dt = nil
		cond, err := norm.Current(raw, weather.Metric)
		if err != nil {
			t.Fatalf("failed to normalize current conditions: %s", err)
		}
		if cond.Sunrise != Unavailable || cond.Sunset != Unavailable {
			t.Errorf("expected unavailable sun times, got %s and %s", cond.Sunrise, cond.Sunset)
		}
		if cond.Country != "" {
			t.Errorf("expected empty country, got %s", cond.Country)
		}
	})
}

func TestNormalizer_Forecast(t *testing.T) {
	norm := New(newYork(t), "https://example.com/icons")
	t.Run("new york forecast is normalized", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawForecast](t, testForecast)
		points, err := norm.Forecast(raw, weather.Metric)
		if err != nil {
			t.Fatalf("failed to normalize forecast: %s", err)
		}
		if len(points) != 8 {
			t.Fatalf("expected 8 forecast points, got %d", len(points))
		}
		wantTimes := []string{"11:00", "14:00", "17:00", "20:00", "23:00", "02:00", "05:00", "08:00"}
		wantTemps := []int{16, 15, 13, 12, 13, 18, 20, 18}
		for i, point := range points {
			if point.Time != wantTimes[i] {
				t.Errorf("point %d: expected time %s, got %s", i, wantTimes[i], point.Time)
			}
			if point.Temperature != wantTemps[i] {
				t.Errorf("point %d: expected temperature %d, got %d", i, wantTemps[i], point.Temperature)
			}
			if point.Units != weather.Metric {
				t.Errorf("point %d: expected metric units, got %s", i, point.Units)
			}
			if i > 0 && point.Timestamp.Before(points[i-1].Timestamp) {
				t.Errorf("point %d is before its predecessor", i)
			}
		}
		if points[0].IconRef != "https://example.com/icons/01d.png" {
			t.Errorf("unexpected forecast icon: %s", points[0].IconRef)
		}
		if points[5].Description != "light rain" || points[5].ConditionCode != 500 {
			t.Errorf("unexpected forecast condition: %+v", points[5])
		}
	})
	t.Run("forecast keeps provider order", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawForecast](t, testForecast)
		raw.List[0], raw.List[1] = raw.List[1], raw.List[0]
		points, err := norm.Forecast(raw, weather.Metric)
		if err != nil {
			t.Fatalf("failed to normalize forecast: %s", err)
		}
		if points[0].Time != "14:00" || points[1].Time != "11:00" {
			t.Errorf("expected provider order to be kept, got %s, %s", points[0].Time, points[1].Time)
		}
	})
	t.Run("more than eight items are truncated", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawForecast](t, testForecastTen)
		points, err := norm.Forecast(raw, weather.Metric)
		if err != nil {
			t.Fatalf("failed to normalize forecast: %s", err)
		}
		if len(points) != weather.MaxForecastPoints {
			t.Errorf("expected %d forecast points, got %d", weather.MaxForecastPoints, len(points))
		}
	})
	t.Run("empty forecast list fails", func(t *testing.T) {
		raw := loadJSON[openweathermap.RawForecast](t, testForecastEmpty)
		_, err := norm.Forecast(raw, weather.Metric)
		assertField(t, err, "list")
	})
	t.Run("nil forecast fails", func(t *testing.T) {
		_, err := norm.Forecast(nil, weather.Metric)
		assertField(t, err, "list")
	})

	missing := []struct {
		field  string
		mutate func(*openweathermap.RawForecast)
	}{
		{"list[2].dt", func(r *openweathermap.RawForecast) { r.List[2].Dt = nil }},
		{"list[0].main.temp", func(r *openweathermap.RawForecast) { r.List[0].Main.Temp = nil }},
		{"list[7].main.temp", func(r *openweathermap.RawForecast) { r.List[7].Main = nil }},
		{"list[4].weather", func(r *openweathermap.RawForecast) { r.List[4].Weather = nil }},
	}
	for _, tc := range missing {
		t.Run("missing "+tc.field+" fails", func(t *testing.T) {
			raw := loadJSON[openweathermap.RawForecast](t, testForecast)
			tc.mutate(raw)
			points, err := norm.Forecast(raw, weather.Metric)
			assertField(t, err, tc.field)
			if points != nil {
				t.Errorf("expected no partial forecast, got %d points", len(points))
			}
		})
	}
}

func assertField(t *testing.T, err error, field string) {
	t.Helper()
	var normErr *weather.NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected normalization error, got %v", err)
	}
	if normErr.Field != field {
		t.Errorf("expected missing field %q, got %q", field, normErr.Field)
	}
}

func loadJSON[T any](t *testing.T, path string) *T {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture: %s", err)
	}
	target := new(T)
	if err = json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal fixture: %s", err)
	}
	return target
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data not available: %s", err)
	}
	return loc
}
