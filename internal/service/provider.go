// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"

	"github.com/wneessen/weather-session/internal/geolocation"
	"github.com/wneessen/weather-session/internal/geolocation/provider/geoclue"
	"github.com/wneessen/weather-session/internal/geolocation/provider/geoip"
	"github.com/wneessen/weather-session/internal/geolocation/provider/geolocation_file"
	"github.com/wneessen/weather-session/internal/geolocation/provider/gpsd"
	"github.com/wneessen/weather-session/internal/geolocation/provider/ichnaea"
	"github.com/wneessen/weather-session/internal/logger"
	"github.com/wneessen/weather-session/internal/weather/provider/openweathermap"
)

// selectGeolocationSources returns the enabled device location sources. An empty list is
// valid, device queries then fail like a denied permission.
func (s *Service) selectGeolocationSources() ([]geolocation.Source, error) {
	conf := s.config.GeoLocation
	if conf.Disable {
		return nil, nil
	}
	var sources []geolocation.Source

	if !conf.DisableGeolocationFile {
		sources = append(sources, geolocation_file.NewGeolocationFileProvider(conf.File))
	}

	if !conf.DisableGeoClue {
		sources = append(sources, geoclue.NewGeolocationGeoClueProvider())
	}

	if !conf.DisableGPSD {
		sources = append(sources, gpsd.NewGeolocationGPSDProvider())
	}

	if !conf.DisableGeoIP {
		gip, err := geoip.NewGeolocationGeoIPProvider(s.http)
		if err != nil {
			return nil, fmt.Errorf("failed to create GeoIP provider: %w", err)
		}
		sources = append(sources, gip)
	}

	if !conf.DisableICHNAEA {
		mls, err := ichnaea.NewGeolocationICHNAEAProvider(s.http, nil)
		if err != nil {
			s.logger.Error("failed to create ICHNAEA provider", logger.Err(err))
		} else {
			sources = append(sources, mls)
		}
	}

	return sources, nil
}

func (s *Service) newWeatherProvider() (*openweathermap.Client, error) {
	return openweathermap.New(s.http, s.logger, openweathermap.Options{
		APIKey:      s.config.Provider.APIKey,
		BaseURL:     s.config.Provider.BaseURL,
		Timeout:     s.config.Provider.Timeout,
		MaxFailures: s.config.Provider.Breaker.MaxFailures,
		OpenTimeout: s.config.Provider.Breaker.OpenTimeout,
	})
}
