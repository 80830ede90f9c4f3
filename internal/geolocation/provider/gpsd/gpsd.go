// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/weather-session/internal/geolocation"
)

const (
	host        = "localhost"
	port        = "2947"
	dialTimeout = time.Second * 2
	name        = "gpsd"

	fallbackAccuracy3DFix = 10  // ~10 m typical consumer GPS in open sky
	fallbackAccuracy2DFix = 25  // worse than 3D, but still accurate enough
	fallbackAccuracyNoFix = 1e6 // effectively unusable
)

// GeolocationGPSDProvider reads the first usable TPV report from a local gpsd.
type GeolocationGPSDProvider struct {
	name string
	addr string
}

func NewGeolocationGPSDProvider() *GeolocationGPSDProvider {
	return &GeolocationGPSDProvider{
		name: name,
		addr: net.JoinHostPort(host, port),
	}
}

func (p *GeolocationGPSDProvider) Name() string {
	return p.name
}

// Lookup connects to gpsd, watches the report stream and returns the first TPV report with
// at least a 2D fix.
func (p *GeolocationGPSDProvider) Lookup(ctx context.Context) (geolocation.Result, error) {
	session, err := gpsd.DialTimeout(p.addr, dialTimeout)
	if err != nil {
		return geolocation.Result{}, fmt.Errorf("failed to connect to gpsd at %q: %w", p.addr, err)
	}

	fixes := make(chan *gpsd.TPVReport, 1)
	session.AddFilter("TPV", func(r interface{}) {
		tpv, ok := r.(*gpsd.TPVReport)
		if !ok || tpv == nil || tpv.Mode < gpsd.Mode2D {
			return
		}
		select {
		case fixes <- tpv:
		default:
		}
	})
	done := session.Watch()
	watching := true
	defer func() {
		_ = session.Close()
		// The watcher reports its end on an unbuffered channel.
		if watching {
			go func() { <-done }()
		}
	}()

	select {
	case <-ctx.Done():
		return geolocation.Result{}, ctx.Err()
	case <-done:
		watching = false
		return geolocation.Result{}, fmt.Errorf("gpsd connection ended before a fix was reported")
	case tpv := <-fixes:
		return geolocation.Result{
			Lat:            geolocation.Truncate(tpv.Lat, geolocation.TruncPrecision),
			Lon:            geolocation.Truncate(tpv.Lon, geolocation.TruncPrecision),
			AccuracyMeters: horizontalAccuracyMeters(tpv),
			Source:         p.name,
			At:             time.Now(),
		}, nil
	}
}

func horizontalAccuracyMeters(tpv *gpsd.TPVReport) float64 {
	switch {
	case tpv.Eph > 0:
		return tpv.Eph
	case tpv.Epx > 0 && tpv.Epy > 0:
		// sqrt(epx² + epy²)
		return math.Hypot(tpv.Epx, tpv.Epy)
	}
	switch tpv.Mode {
	case gpsd.Mode3D:
		return fallbackAccuracy3DFix
	case gpsd.Mode2D:
		return fallbackAccuracy2DFix
	default:
		return fallbackAccuracyNoFix
	}
}
