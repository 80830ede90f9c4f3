// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stratoberry/go-gpsd"
)

const (
	testLat = 40.7185
	testLon = -74.0025

	versionReport = `{"class":"VERSION","release":"3.25","rev":"3.25","proto_major":3,"proto_minor":15}`
	noFixReport   = `{"class":"TPV","device":"/dev/ttyACM0","mode":1}`
	fixReport     = `{"class":"TPV","device":"/dev/ttyACM0","mode":3,"lat":40.718512,"lon":-74.002599,"alt":12.5,"eph":8.4}`
)

func TestNewGeolocationGPSDProvider(t *testing.T) {
	provider := NewGeolocationGPSDProvider()
	if provider == nil {
		t.Fatal("expected provider to be non-nil")
	}
	if !strings.EqualFold(provider.Name(), name) {
		t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
	}
	if provider.addr != "localhost:2947" {
		t.Errorf("expected default gpsd address, got %s", provider.addr)
	}
}

func TestGeolocationGPSDProvider_Lookup(t *testing.T) {
	t.Run("first report with a fix is returned", func(t *testing.T) {
		provider := NewGeolocationGPSDProvider()
		provider.addr = fakeGPSD(t, true, versionReport, noFixReport, fixReport)

		result, err := provider.Lookup(t.Context())
		if err != nil {
			t.Fatalf("lookup failed: %s", err)
		}
		if result.Lat != testLat {
			t.Errorf("expected latitude to be %f, got %f", testLat, result.Lat)
		}
		if result.Lon != testLon {
			t.Errorf("expected longitude to be %f, got %f", testLon, result.Lon)
		}
		if result.AccuracyMeters != 8.4 {
			t.Errorf("expected accuracy to be %f, got %f", 8.4, result.AccuracyMeters)
		}
		if result.Source != name {
			t.Errorf("expected source to be %s, got %s", name, result.Source)
		}
	})
	t.Run("connection ending without fix fails", func(t *testing.T) {
		provider := NewGeolocationGPSDProvider()
		provider.addr = fakeGPSD(t, false, versionReport, noFixReport)
		if _, err := provider.Lookup(t.Context()); err == nil {
			t.Fatal("expected lookup to fail")
		}
	})
	t.Run("lookup gives up when the context ends", func(t *testing.T) {
		provider := NewGeolocationGPSDProvider()
		provider.addr = fakeGPSD(t, true, versionReport, noFixReport)
		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()
		if _, err := provider.Lookup(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", err)
		}
	})
	t.Run("unreachable gpsd fails", func(t *testing.T) {
		listener, err := net.Listen("tcp4", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %s", err)
		}
		addr := listener.Addr().String()
		_ = listener.Close()

		provider := NewGeolocationGPSDProvider()
		provider.addr = addr
		if _, err = provider.Lookup(t.Context()); err == nil {
			t.Fatal("expected lookup to fail")
		}
	})
}

func TestHorizontalAccuracyMeters(t *testing.T) {
	tests := []struct {
		name string
		tpv  gpsd.TPVReport
		want float64
	}{
		{"eph", gpsd.TPVReport{Mode: gpsd.Mode3D, Eph: 4.2, Epx: 3, Epy: 4}, 4.2},
		{"epx and epy", gpsd.TPVReport{Mode: gpsd.Mode3D, Epx: 3, Epy: 4}, 5},
		{"3D fallback", gpsd.TPVReport{Mode: gpsd.Mode3D}, fallbackAccuracy3DFix},
		{"2D fallback", gpsd.TPVReport{Mode: gpsd.Mode2D}, fallbackAccuracy2DFix},
		{"no fix", gpsd.TPVReport{Mode: gpsd.NoFix}, fallbackAccuracyNoFix},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := horizontalAccuracyMeters(&tc.tpv); got != tc.want {
				t.Errorf("expected accuracy %f, got %f", tc.want, got)
			}
		})
	}
}

// fakeGPSD serves the given report lines to a single client. If keepOpen is set the
// connection stays open until the client closes it.
func fakeGPSD(t *testing.T, keepOpen bool, lines ...string) string {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %s", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		for _, line := range lines {
			if _, err = io.WriteString(conn, line+"\n"); err != nil {
				return
			}
		}
		if keepOpen {
			_, _ = io.Copy(io.Discard, conn)
		}
	}()
	return listener.Addr().String()
}
