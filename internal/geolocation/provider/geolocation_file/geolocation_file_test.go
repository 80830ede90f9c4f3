// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geolocation_file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wneessen/weather-session/internal/geolocation"
)

const (
	testFile = "../../../../testdata/geolocation/geolocation"
	testLat  = 40.7185
	testLon  = -74.0025
)

func TestNewGeolocationFileProvider(t *testing.T) {
	t.Run("new geolocation file provider succeeds", func(t *testing.T) {
		provider := NewGeolocationFileProvider(testFile)
		if provider == nil {
			t.Fatal("expected provider to be non-nil")
		}
	})
}

func TestGeolocationFileProvider_Name(t *testing.T) {
	provider := NewGeolocationFileProvider(testFile)
	if !strings.EqualFold(provider.Name(), name) {
		t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
	}
}

func TestGeolocationFileProvider_readFile(t *testing.T) {
	t.Run("read file succeeds", func(t *testing.T) {
		provider := NewGeolocationFileProvider(testFile)
		lat, lon, err := provider.readFile()
		if err != nil {
			t.Fatalf("failed to read file: %s", err)
		}
		if lat != testLat {
			t.Errorf("expected latitude to be %f, got %f", testLat, lat)
		}
		if lon != testLon {
			t.Errorf("expected longitude to be %f, got %f", testLon, lon)
		}
	})
	t.Run("read of non-existent file fails", func(t *testing.T) {
		provider := NewGeolocationFileProvider("non-existent.txt")
		if _, _, err := provider.readFile(); err == nil {
			t.Error("expected error, but didn't get one")
		}
	})
	t.Run("coordinates with spaces are parsed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "geolocation")
		if err := os.WriteFile(path, []byte("\n  51.5072 , -0.1276  \n"), 0o600); err != nil {
			t.Fatalf("failed to write test file: %s", err)
		}
		lat, lon, err := NewGeolocationFileProvider(path).readFile()
		if err != nil {
			t.Fatalf("failed to read file: %s", err)
		}
		if lat != 51.5072 || lon != -0.1276 {
			t.Errorf("unexpected coordinates: %f,%f", lat, lon)
		}
	})

	tests := []struct {
		name string
		file string
	}{
		{"file without coordinates", testFile + "_nocoord"},
		{"broken latitude", testFile + "_brokenlat"},
		{"broken longitude", testFile + "_brokenlon"},
	}
	for _, tc := range tests {
		t.Run("reading "+tc.name+" fails", func(t *testing.T) {
			_, _, err := NewGeolocationFileProvider(tc.file).readFile()
			if !errors.Is(err, ErrNoCoordinates) {
				t.Errorf("expected error to be %s, got %v", ErrNoCoordinates, err)
			}
		})
	}
}

func TestGeolocationFileProvider_Lookup(t *testing.T) {
	t.Run("lookup succeeds", func(t *testing.T) {
		provider := NewGeolocationFileProvider(testFile)
		result, err := provider.Lookup(t.Context())
		if err != nil {
			t.Fatalf("lookup failed: %s", err)
		}
		if result.Lat != testLat || result.Lon != testLon {
			t.Errorf("unexpected coordinates: %f,%f", result.Lat, result.Lon)
		}
		if result.AccuracyMeters != geolocation.AccuracyZip {
			t.Errorf("expected accuracy to be %d, got %f", geolocation.AccuracyZip, result.AccuracyMeters)
		}
		if result.Source != provider.Name() {
			t.Errorf("expected source to be %s, got %s", provider.Name(), result.Source)
		}
		if result.At.IsZero() {
			t.Error("expected fix time to be set")
		}
	})
	t.Run("lookup fails when reading fails", func(t *testing.T) {
		provider := NewGeolocationFileProvider(testFile)
		provider.locateFn = func() (float64, float64, error) {
			return 0, 0, errors.New("intentionally failing")
		}
		if _, err := provider.Lookup(t.Context()); err == nil {
			t.Error("expected lookup to fail")
		}
	})
	t.Run("lookup with canceled context fails", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := NewGeolocationFileProvider(testFile).Lookup(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context cancellation, got %v", err)
		}
	})
}
