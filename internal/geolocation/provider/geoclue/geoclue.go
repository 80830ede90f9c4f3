// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoclue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/weather-session/internal/geolocation"
	"github.com/wneessen/weather-session/internal/weather"
)

const (
	name      = "geoclue"
	DesktopID = "weather-session"

	geoclueDest     = "org.freedesktop.GeoClue2"
	managerPath     = dbus.ObjectPath("/org/freedesktop/GeoClue2/Manager")
	managerIface    = "org.freedesktop.GeoClue2.Manager"
	clientIface     = "org.freedesktop.GeoClue2.Client"
	locationIface   = "org.freedesktop.GeoClue2.Location"
	locationUpdated = clientIface + ".LocationUpdated"
	noLocation      = dbus.ObjectPath("/")

	errAccessDenied = "org.freedesktop.DBus.Error.AccessDenied"

	// GeoClue accuracy levels
	AccuracyLevelCity  uint32 = 4
	AccuracyLevelExact uint32 = 8
)

// Conn is the subset of *dbus.Conn used by the provider.
type Conn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// GeolocationGeoClueProvider asks the GeoClue2 service on the D-Bus system bus for the
// device location. GeoClue enforces the location permission of the user, a refusal is
// reported as weather.ErrPermissionDenied.
type GeolocationGeoClueProvider struct {
	name      string
	level     uint32
	connectFn func(ctx context.Context) (Conn, error)
}

func NewGeolocationGeoClueProvider() *GeolocationGeoClueProvider {
	return &GeolocationGeoClueProvider{
		name:      name,
		level:     AccuracyLevelExact,
		connectFn: connectSystemBus,
	}
}

func (p *GeolocationGeoClueProvider) Name() string {
	return p.name
}

// Lookup creates a GeoClue client, starts it and waits for the first location update.
func (p *GeolocationGeoClueProvider) Lookup(ctx context.Context) (result geolocation.Result, err error) {
	conn, err := p.connectFn(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close system bus: %w", closeErr))
		}
	}()

	var clientPath dbus.ObjectPath
	manager := conn.Object(geoclueDest, managerPath)
	if err = manager.CallWithContext(ctx, managerIface+".GetClient", 0).Store(&clientPath); err != nil {
		return result, fmt.Errorf("failed to get geoclue client: %w", mapError(err))
	}
	client := conn.Object(geoclueDest, clientPath)
	if err = client.SetProperty(clientIface+".DesktopId", dbus.MakeVariant(DesktopID)); err != nil {
		return result, fmt.Errorf("failed to set desktop id: %w", mapError(err))
	}
	if err = client.SetProperty(clientIface+".RequestedAccuracyLevel", dbus.MakeVariant(p.level)); err != nil {
		return result, fmt.Errorf("failed to set requested accuracy level: %w", mapError(err))
	}

	if err = conn.AddMatchSignalContext(ctx, dbus.WithMatchObjectPath(clientPath),
		dbus.WithMatchInterface(clientIface), dbus.WithMatchMember("LocationUpdated")); err != nil {
		return result, fmt.Errorf("failed to subscribe to location updates: %w", err)
	}
	signals := make(chan *dbus.Signal, 4)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	if err = client.CallWithContext(ctx, clientIface+".Start", 0).Err; err != nil {
		return result, fmt.Errorf("failed to start geoclue client: %w", mapError(err))
	}
	defer client.Call(clientIface+".Stop", 0)

	// The client may already know a location from an earlier session.
	if variant, propErr := client.GetProperty(clientIface + ".Location"); propErr == nil {
		if path, ok := variant.Value().(dbus.ObjectPath); ok && path != noLocation && path.IsValid() {
			return p.location(conn, path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return result, fmt.Errorf("system bus connection closed")
			}
			if sig.Path != clientPath || sig.Name != locationUpdated || len(sig.Body) < 2 {
				continue
			}
			path, ok := sig.Body[1].(dbus.ObjectPath)
			if !ok || path == noLocation {
				continue
			}
			return p.location(conn, path)
		}
	}
}

func (p *GeolocationGeoClueProvider) location(conn Conn, path dbus.ObjectPath) (geolocation.Result, error) {
	obj := conn.Object(geoclueDest, path)
	lat, err := floatProperty(obj, "Latitude")
	if err != nil {
		return geolocation.Result{}, err
	}
	lon, err := floatProperty(obj, "Longitude")
	if err != nil {
		return geolocation.Result{}, err
	}
	acc, err := floatProperty(obj, "Accuracy")
	if err != nil {
		return geolocation.Result{}, err
	}
	return geolocation.Result{
		Lat:            geolocation.Truncate(lat, geolocation.TruncPrecision),
		Lon:            geolocation.Truncate(lon, geolocation.TruncPrecision),
		AccuracyMeters: acc,
		Source:         p.name,
		At:             time.Now(),
	}, nil
}

func floatProperty(obj dbus.BusObject, prop string) (float64, error) {
	variant, err := obj.GetProperty(locationIface + "." + prop)
	if err != nil {
		return 0, fmt.Errorf("failed to get location %s: %w", prop, err)
	}
	val, ok := variant.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("location %s has unexpected type %s", prop, variant.Signature())
	}
	return val, nil
}

// mapError maps a D-Bus access denied error to weather.ErrPermissionDenied.
func mapError(err error) error {
	var (
		dbusErr    dbus.Error
		dbusErrPtr *dbus.Error
	)
	switch {
	case errors.As(err, &dbusErr) && dbusErr.Name == errAccessDenied,
		errors.As(err, &dbusErrPtr) && dbusErrPtr.Name == errAccessDenied:
		return fmt.Errorf("%w: %s", weather.ErrPermissionDenied, err)
	default:
		return err
	}
}

func connectSystemBus(ctx context.Context) (Conn, error) {
	return dbus.ConnectSystemBus(dbus.WithContext(ctx))
}
