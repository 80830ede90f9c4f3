// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wneessen/weather-session/internal/http"
	"github.com/wneessen/weather-session/internal/logger"
	"github.com/wneessen/weather-session/internal/weather"
)

const (
	name               = "openweathermap"
	DefaultBaseURL     = "https://api.openweathermap.org/data/2.5"
	DefaultTimeout     = time.Second * 10
	DefaultMaxFailures = 5
	DefaultOpenTimeout = time.Second * 30
)

// Options configures the provider client. Zero values fall back to the defaults.
type Options struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Client performs the OpenWeatherMap requests. Every call issues exactly one request
// unless the circuit breaker is open, in which case it fails without a request.
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     *logger.Logger
	breaker *gobreaker.CircuitBreaker
}

func New(client *http.Client, log *logger.Logger, opts Options) (*Client, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = DefaultOpenTimeout
	}

	provider := &Client{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		http:    client,
		log:     log.With(slog.String("provider", name)),
	}
	maxFailures := opts.MaxFailures
	provider.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			provider.log.Warn("circuit breaker state changed", slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return provider, nil
}

func (c *Client) Name() string {
	return name
}

// FetchCurrentByCity requests the current conditions for a city name.
func (c *Client) FetchCurrentByCity(ctx context.Context, city string, units weather.UnitSystem) (*RawCurrent, error) {
	query := url.Values{}
	query.Set("q", city)
	raw := new(RawCurrent)
	if err := c.fetch(ctx, "/weather", query, units, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// FetchCurrentByCoords requests the current conditions for a position.
func (c *Client) FetchCurrentByCoords(ctx context.Context, lat, lon float64, units weather.UnitSystem) (*RawCurrent, error) {
	query := coordQuery(lat, lon)
	raw := new(RawCurrent)
	if err := c.fetch(ctx, "/weather", query, units, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// FetchForecastByCoords requests the next 3-hourly forecast entries for a position.
func (c *Client) FetchForecastByCoords(ctx context.Context, lat, lon float64, units weather.UnitSystem) (*RawForecast, error) {
	query := coordQuery(lat, lon)
	query.Set("cnt", strconv.Itoa(weather.MaxForecastPoints))
	raw := new(RawForecast)
	if err := c.fetch(ctx, "/forecast", query, units, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// fetch runs a single GET through the circuit breaker. Only network failures, rate
// limiting and server errors count as breaker failures. Client errors such as an
// unknown city are handed back through the result so they don't open the breaker.
func (c *Client) fetch(ctx context.Context, path string, query url.Values, units weather.UnitSystem, target any) error {
	query.Set("appid", c.apiKey)
	query.Set("units", units.String())
	endpoint := c.baseURL + path

	result, err := c.breaker.Execute(func() (interface{}, error) {
		code, err := c.http.GetWithTimeout(ctx, endpoint, target, query, nil, c.timeout)
		if err == nil {
			return nil, nil
		}
		// Malformed 2xx payloads are normalization failures
		var decodeErr *http.DecodeError
		if errors.As(err, &decodeErr) {
			c.log.Debug("failed to decode provider payload", slog.String("path", path), logger.Err(err))
			return &weather.NormalizationError{Field: "payload"}, nil
		}
		transErr := &weather.TransportError{StatusCode: code, Err: err}
		var statusErr *http.StatusError
		if errors.As(err, &statusErr) {
			transErr.Message = providerMessage(statusErr.Body)
		}
		if ctx.Err() != nil || !transErr.Temporary() {
			return transErr, nil
		}
		return nil, transErr
	})
	if err != nil {
		var transErr *weather.TransportError
		if errors.As(err, &transErr) {
			return transErr
		}
		c.log.Debug("request rejected by circuit breaker", slog.String("path", path), logger.Err(err))
		return &weather.TransportError{Err: err}
	}
	switch resErr := result.(type) {
	case *weather.TransportError:
		return resErr
	case *weather.NormalizationError:
		return resErr
	}
	return nil
}

func coordQuery(lat, lon float64) url.Values {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return query
}

func providerMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	res := new(errorBody)
	if err := json.Unmarshal(body, res); err != nil {
		return ""
	}
	return res.Message
}
