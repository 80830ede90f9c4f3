// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoip

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/weather-session/internal/geolocation"
	"github.com/wneessen/weather-session/internal/http"
)

const (
	APIEndpoint   = "https://reallyfreegeoip.org/json/"
	LookupTimeout = time.Second * 5
	name          = "geoip"
)

// GeolocationGeoIPProvider locates the device by the public IP address.
type GeolocationGeoIPProvider struct {
	name     string
	http     *http.Client
	endpoint string
}

type APIResult struct {
	IP          string  `json:"ip"`
	CountryCode string  `json:"country_code"`
	Country     string  `json:"country_name"`
	RegionCode  string  `json:"region_code,omitempty"`
	Region      string  `json:"region_name,omitempty"`
	City        string  `json:"city,omitempty"`
	ZipCode     string  `json:"zip_code,omitempty"`
	TimeZone    string  `json:"time_zone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MetroCode   int     `json:"metro_code"`
}

func NewGeolocationGeoIPProvider(http *http.Client) (*GeolocationGeoIPProvider, error) {
	if http == nil {
		return nil, fmt.Errorf("http client is required")
	}
	return &GeolocationGeoIPProvider{
		name:     name,
		http:     http,
		endpoint: APIEndpoint,
	}, nil
}

func (p *GeolocationGeoIPProvider) Name() string {
	return p.name
}

// Lookup asks the GeoIP API for the location of the public IP address. The accuracy is
// derived from the most specific field the API returned.
func (p *GeolocationGeoIPProvider) Lookup(ctx context.Context) (geolocation.Result, error) {
	ctxHttp, cancelHttp := context.WithTimeout(ctx, LookupTimeout)
	defer cancelHttp()

	result := new(APIResult)
	if _, err := p.http.Get(ctxHttp, p.endpoint, result, nil, nil); err != nil {
		return geolocation.Result{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	return geolocation.Result{
		Lat:            geolocation.Truncate(result.Latitude, geolocation.TruncPrecision),
		Lon:            geolocation.Truncate(result.Longitude, geolocation.TruncPrecision),
		AccuracyMeters: accuracy(result),
		Source:         p.name,
		At:             time.Now(),
	}, nil
}

func accuracy(result *APIResult) float64 {
	switch {
	case result.ZipCode != "":
		return geolocation.AccuracyZip
	case result.City != "":
		return geolocation.AccuracyCity
	case result.RegionCode != "":
		return geolocation.AccuracyRegion
	case result.CountryCode != "":
		return geolocation.AccuracyCountry
	default:
		return geolocation.AccuracyUnknown
	}
}
