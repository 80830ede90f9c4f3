// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv = "WEATHERSESSION"

	DefaultTextTpl    = "{{.Icon}} {{.Temperature}}{{.TempUnit}}"
	DefaultTooltipTpl = "{{loc \"Location\"}}: {{.Location}}, {{.Country}}\n" +
		"{{loc \"Condition\"}}: {{.Description}}\n" +
		"{{loc \"Feels like\"}}: {{.FeelsLike}}{{.TempUnit}}\n" +
		"{{loc \"Humidity\"}}: {{.Humidity}}%\n" +
		"{{loc \"Wind\"}}: {{.WindSpeed}} {{.SpeedUnit}}\n" +
		"{{loc \"Sunrise\"}}: {{.Sunrise}} / {{loc \"Sunset\"}}: {{.Sunset}}\n" +
		"{{loc \"Moonphase\"}}: {{.MoonphaseIcon}} {{.Moonphase}}" +
		"{{range .Forecast}}\n{{.Time}}{{iconSpace .Icon}}{{.Temperature}}{{$.TempUnit}}{{end}}"
)

// Config represents the application's configuration structure.
type Config struct {
	// Allowed values: metric, imperial
	Units string `fig:"units" default:"metric"`
	// Allowed values: light, dark
	Theme    string     `fig:"theme" default:"light"`
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`
	// IANA time zone name used for wall-clock strings, empty means the system zone
	Timezone string `fig:"timezone"`

	Provider struct {
		APIKey      string        `fig:"apikey"`
		BaseURL     string        `fig:"base_url" default:"https://api.openweathermap.org/data/2.5"`
		IconBaseURL string        `fig:"icon_base_url" default:"https://openweathermap.org/img/wn"`
		Timeout     time.Duration `fig:"timeout" default:"10s"`
		Breaker     struct {
			MaxFailures uint32        `fig:"max_failures" default:"5"`
			OpenTimeout time.Duration `fig:"open_timeout" default:"30s"`
		} `fig:"breaker"`
	} `fig:"provider"`

	Session struct {
		FallbackCity           string `fig:"fallback_city" default:"New York"`
		// Do not refresh the session when the system wakes up from sleep
		DisableRefreshOnResume bool   `fig:"disable_refresh_on_resume"`

		Retry struct {
			// 0 disables automatic retries
			MaxRetries     int           `fig:"max_retries" default:"0"`
			InitialBackoff time.Duration `fig:"initial_backoff" default:"1s"`
			MaxBackoff     time.Duration `fig:"max_backoff" default:"30s"`
		} `fig:"retry"`
	} `fig:"session"`

	GeoLocation struct {
		// Disable denies access to the device location altogether
		Disable                bool          `fig:"disable"`
		FixTimeout             time.Duration `fig:"fix_timeout" default:"15s"`
		Accuracy               float64       `fig:"accuracy" default:"100000"`
		File                   string        `fig:"file"`
		DisableGeolocationFile bool          `fig:"disable_geolocation_file"`
		DisableGeoIP           bool          `fig:"disable_geoip"`
		DisableGPSD            bool          `fig:"disable_gpsd"`
		DisableICHNAEA         bool          `fig:"disable_ichnaea"`
		DisableGeoClue         bool          `fig:"disable_geoclue"`
	} `fig:"geolocation"`

	Server struct {
		Disable bool   `fig:"disable"`
		Listen  string `fig:"listen" default:"127.0.0.1:8089"`
	} `fig:"server"`

	Output struct {
		Stdout   bool          `fig:"stdout"`
		Interval time.Duration `fig:"interval" default:"30s"`
	} `fig:"output"`

	Templates struct {
		Text    string `fig:"text"`
		Tooltip string `fig:"tooltip"`
	} `fig:"templates"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	c.Units = strings.ToLower(c.Units)
	if c.Units != "metric" && c.Units != "imperial" {
		return fmt.Errorf("invalid units: %s", c.Units)
	}
	c.Theme = strings.ToLower(c.Theme)
	if c.Theme != "light" && c.Theme != "dark" {
		return fmt.Errorf("invalid theme: %s", c.Theme)
	}
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}

	if c.Provider.BaseURL == "" {
		return errors.New("provider base URL must not be empty")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("invalid provider timeout: %s", c.Provider.Timeout)
	}
	if c.Provider.Breaker.MaxFailures < 1 {
		return fmt.Errorf("invalid circuit breaker max failures: %d", c.Provider.Breaker.MaxFailures)
	}
	if c.Provider.Breaker.OpenTimeout <= 0 {
		return fmt.Errorf("invalid circuit breaker open timeout: %s", c.Provider.Breaker.OpenTimeout)
	}

	if strings.TrimSpace(c.Session.FallbackCity) == "" {
		return errors.New("session fallback city must not be empty")
	}
	if c.Session.Retry.MaxRetries < 0 {
		return fmt.Errorf("invalid max retries: %d", c.Session.Retry.MaxRetries)
	}
	if c.Session.Retry.MaxRetries > 0 {
		if c.Session.Retry.InitialBackoff <= 0 || c.Session.Retry.MaxBackoff < c.Session.Retry.InitialBackoff {
			return fmt.Errorf("invalid retry backoff: initial %s, max %s", c.Session.Retry.InitialBackoff,
				c.Session.Retry.MaxBackoff)
		}
	}

	if c.GeoLocation.FixTimeout <= 0 {
		return fmt.Errorf("invalid location fix timeout: %s", c.GeoLocation.FixTimeout)
	}
	if c.GeoLocation.Accuracy <= 0 {
		return fmt.Errorf("invalid location accuracy: %f", c.GeoLocation.Accuracy)
	}
	if c.GeoLocation.File == "" {
		home, _ := os.UserHomeDir()
		c.GeoLocation.File = filepath.Join(home, ".config", "weather-session", "geolocation")
	}

	if !c.Server.Disable {
		if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
			return fmt.Errorf("invalid server listen address %q: %w", c.Server.Listen, err)
		}
	}
	if c.Output.Stdout && c.Output.Interval < time.Second {
		return fmt.Errorf("invalid output interval: %s", c.Output.Interval)
	}

	if c.Templates.Text == "" {
		c.Templates.Text = DefaultTextTpl
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = DefaultTooltipTpl
	}

	return nil
}

// Location returns the configured display time zone, falling back to the local system zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
