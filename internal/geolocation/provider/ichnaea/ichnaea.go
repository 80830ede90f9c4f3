// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package ichnaea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mdlayher/wifi"

	"github.com/wneessen/weather-session/internal/geolocation"
	"github.com/wneessen/weather-session/internal/http"
)

const (
	APIEndpoint   = "https://api.beacondb.net/v1/geolocate"
	LookupTimeout = time.Second * 5
	name          = "ichnaea"
)

// Scanner lists the WiFi access points in range.
type Scanner interface {
	AccessPoints(ctx context.Context) ([]WirelessNetwork, error)
}

// GeolocationICHNAEAProvider locates the device with an Ichnaea compatible geolocation
// API (beacondb) from the nearby WiFi access points and the public IP address.
type GeolocationICHNAEAProvider struct {
	name     string
	http     *http.Client
	scanner  Scanner
	endpoint string
}

type APIResult struct {
	Location struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

type WirelessNetwork struct {
	LastSeen       int64  `json:"age"`
	MACAddress     string `json:"macAddress"`
	SignalStrength int32  `json:"signalStrength"`
}

type request struct {
	ConsiderIP   bool              `json:"considerIp"`
	Accesspoints []WirelessNetwork `json:"wifiAccessPoints,omitempty"`
}

// NewGeolocationICHNAEAProvider returns a provider that scans with the given scanner. A nil
// scanner uses the nl80211 WiFi interfaces of the host.
func NewGeolocationICHNAEAProvider(http *http.Client, scanner Scanner) (*GeolocationICHNAEAProvider, error) {
	if http == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if scanner == nil {
		scanner = WiFiScanner{}
	}
	return &GeolocationICHNAEAProvider{
		name:     name,
		http:     http,
		scanner:  scanner,
		endpoint: APIEndpoint,
	}, nil
}

func (p *GeolocationICHNAEAProvider) Name() string {
	return p.name
}

// Lookup sends the visible access points to the geolocation API. If scanning fails the
// request falls back to the IP address alone.
func (p *GeolocationICHNAEAProvider) Lookup(ctx context.Context) (geolocation.Result, error) {
	aps, err := p.scanner.AccessPoints(ctx)
	if err != nil {
		aps = nil
	}

	bodyBuffer := bytes.NewBuffer(nil)
	if err = json.NewEncoder(bodyBuffer).Encode(request{ConsiderIP: true, Accesspoints: aps}); err != nil {
		return geolocation.Result{}, fmt.Errorf("failed to encode wifi list to JSON: %w", err)
	}

	ctxHttp, cancelHttp := context.WithTimeout(ctx, LookupTimeout)
	defer cancelHttp()
	result := new(APIResult)
	if _, err = p.http.Post(ctxHttp, p.endpoint, result, bodyBuffer,
		map[string]string{"Content-Type": "application/json"}); err != nil {
		return geolocation.Result{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	return geolocation.Result{
		Lat:            geolocation.Truncate(result.Location.Latitude, geolocation.TruncPrecision),
		Lon:            geolocation.Truncate(result.Location.Longitude, geolocation.TruncPrecision),
		AccuracyMeters: geolocation.Truncate(result.Accuracy, geolocation.TruncPrecision),
		Source:         p.name,
		At:             time.Now(),
	}, nil
}

// WiFiScanner lists the access points known to the station interfaces of the host.
type WiFiScanner struct{}

func (WiFiScanner) AccessPoints(ctx context.Context) ([]WirelessNetwork, error) {
	wlan, err := wifi.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create wifi client: %w", err)
	}
	defer func() { _ = wlan.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = wlan.SetDeadline(deadline)
	}

	ifaces, err := wlan.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var list []WirelessNetwork
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		aps, err := wlan.AccessPoints(iface)
		if err != nil {
			continue
		}
		list = append(list, accessPoints(aps)...)
	}
	return list, nil
}

// accessPoints converts the scan results, skipping hidden networks and networks that
// opted out of location services.
func accessPoints(aps []*wifi.BSS) []WirelessNetwork {
	var list []WirelessNetwork
	for _, ap := range aps {
		if ap.SSID == "" || ap.SSID[0] == '\x00' || strings.HasSuffix(ap.SSID, "_nomap") {
			continue
		}
		list = append(list, WirelessNetwork{
			SignalStrength: ap.Signal / 100,
			MACAddress:     ap.BSSID.String(),
			LastSeen:       ap.LastSeen.Milliseconds(),
		})
	}
	return list
}
