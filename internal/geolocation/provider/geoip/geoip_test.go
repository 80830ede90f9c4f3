// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoip

import (
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"strings"
	"testing"

	"github.com/wneessen/weather-session/internal/geolocation"
	"github.com/wneessen/weather-session/internal/http"
	"github.com/wneessen/weather-session/internal/logger"
	"github.com/wneessen/weather-session/internal/testhelper"
)

const (
	testFile        = "../../../../testdata/geolocation/geoip.json"
	testFileCountry = "../../../../testdata/geolocation/geoip_country.json"
	testLat         = 40.7185
	testLon         = -74.0025
)

func TestNewGeolocationGeoIPProvider(t *testing.T) {
	t.Run("new GeoIP provider succeeds", func(t *testing.T) {
		provider, err := NewGeolocationGeoIPProvider(http.New(testLogger()))
		if err != nil {
			t.Fatalf("failed to create GeoIP provider: %s", err)
		}
		if !strings.EqualFold(provider.Name(), name) {
			t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
		}
	})
	t.Run("GeoIP provider without http client fails", func(t *testing.T) {
		if _, err := NewGeolocationGeoIPProvider(nil); err == nil {
			t.Fatal("expected provider to fail")
		}
	})
}

func TestGeolocationGeoIPProvider_Lookup(t *testing.T) {
	t.Run("lookup with zip code is zip code accurate", func(t *testing.T) {
		var requested string
		provider := testProvider(t, func(req *stdhttp.Request) (*stdhttp.Response, error) {
			requested = req.URL.String()
			return testhelper.FileResponse(t, testFile), nil
		})
		result, err := provider.Lookup(t.Context())
		if err != nil {
			t.Fatalf("lookup failed: %s", err)
		}
		if requested != APIEndpoint {
			t.Errorf("expected request to %s, got %s", APIEndpoint, requested)
		}
		if result.Lat != testLat || result.Lon != testLon {
			t.Errorf("expected truncated coordinates %f,%f, got %f,%f", testLat, testLon, result.Lat, result.Lon)
		}
		if result.AccuracyMeters != geolocation.AccuracyZip {
			t.Errorf("expected accuracy to be %d, got %f", geolocation.AccuracyZip, result.AccuracyMeters)
		}
		if result.Source != name {
			t.Errorf("expected source to be %s, got %s", name, result.Source)
		}
	})
	t.Run("lookup with country only is country accurate", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.FileResponse(t, testFileCountry), nil
		})
		result, err := provider.Lookup(t.Context())
		if err != nil {
			t.Fatalf("lookup failed: %s", err)
		}
		if result.AccuracyMeters != geolocation.AccuracyCountry {
			t.Errorf("expected accuracy to be %d, got %f", geolocation.AccuracyCountry, result.AccuracyMeters)
		}
	})
	t.Run("lookup fails with broken JSON", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return testhelper.JSONResponse(200, "NOT_JSON"), nil
		})
		if _, err := provider.Lookup(t.Context()); err == nil {
			t.Fatal("expected lookup to fail")
		}
	})
	t.Run("lookup fails on network errors", func(t *testing.T) {
		provider := testProvider(t, func(*stdhttp.Request) (*stdhttp.Response, error) {
			return nil, errors.New("intentionally failing")
		})
		if _, err := provider.Lookup(t.Context()); err == nil {
			t.Fatal("expected lookup to fail")
		}
	})
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name   string
		result APIResult
		want   float64
	}{
		{"empty", APIResult{}, geolocation.AccuracyUnknown},
		{"country", APIResult{CountryCode: "US"}, geolocation.AccuracyCountry},
		{"region", APIResult{CountryCode: "US", RegionCode: "NY"}, geolocation.AccuracyRegion},
		{"city", APIResult{CountryCode: "US", RegionCode: "NY", City: "New York"}, geolocation.AccuracyCity},
		{"zip", APIResult{CountryCode: "US", ZipCode: "10013"}, geolocation.AccuracyZip},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := accuracy(&tc.result); got != tc.want {
				t.Errorf("expected accuracy %f, got %f", tc.want, got)
			}
		})
	}
}

func testProvider(t *testing.T, fn func(*stdhttp.Request) (*stdhttp.Response, error)) *GeolocationGeoIPProvider {
	t.Helper()
	client := http.New(testLogger())
	client.Transport = testhelper.MockRoundTripper{Fn: fn}
	provider, err := NewGeolocationGeoIPProvider(client)
	if err != nil {
		t.Fatalf("failed to create GeoIP provider: %s", err)
	}
	return provider
}

func testLogger() *logger.Logger {
	return logger.NewLogger(slog.LevelError, io.Discard)
}
