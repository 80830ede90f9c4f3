// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geolocation_file

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/weather-session/internal/geolocation"
)

const (
	name = "geolocation_file"
)

var ErrNoCoordinates = fmt.Errorf("no valid coordinates found in geolocation file")

// GeolocationFileProvider reads the device location from a user maintained file. The first
// line in the form "lat,lon" is used, lines starting with # are ignored.
type GeolocationFileProvider struct {
	name     string
	path     string
	locateFn func() (lat, lon float64, err error)
}

func NewGeolocationFileProvider(path string) *GeolocationFileProvider {
	provider := &GeolocationFileProvider{
		name: name,
		path: path,
	}
	provider.locateFn = provider.readFile
	return provider
}

func (p *GeolocationFileProvider) Name() string {
	return p.name
}

// Lookup returns the coordinates stored in the file. They are considered zip code accurate.
func (p *GeolocationFileProvider) Lookup(ctx context.Context) (geolocation.Result, error) {
	if err := ctx.Err(); err != nil {
		return geolocation.Result{}, err
	}
	lat, lon, err := p.locateFn()
	if err != nil {
		return geolocation.Result{}, err
	}
	return geolocation.Result{
		Lat:            lat,
		Lon:            lon,
		AccuracyMeters: geolocation.AccuracyZip,
		Source:         p.name,
		At:             time.Now(),
	}, nil
}

func (p *GeolocationFileProvider) readFile() (lat, lon float64, err error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read geolocation file %q: %w", p.path, err)
	}
	for line := range strings.Lines(string(data)) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		latVal, lonVal, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		lat, err = strconv.ParseFloat(strings.TrimSpace(latVal), 64)
		if err != nil {
			continue
		}
		lon, err = strconv.ParseFloat(strings.TrimSpace(lonVal), 64)
		if err != nil {
			continue
		}
		return lat, lon, nil
	}
	return 0, 0, ErrNoCoordinates
}
