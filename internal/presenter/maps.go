// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"github.com/vorlif/spreak/localize"

	"github.com/wneessen/weather-session/internal/settings"
	"github.com/wneessen/weather-session/internal/weather"
)

// Icon codes of the provider. The last letter marks day (d) or night (n).
var iconCodes = map[string]string{
	"01d": "☀️",
	"01n": "🌙",
	"02d": "🌤️",
	"02n": "☁️",
	"03d": "⛅",
	"03n": "☁️",
	"04d": "☁️",
	"04n": "☁️",
	"09d": "🌧️",
	"09n": "🌧️",
	"10d": "🌦️",
	"10n": "🌧️",
	"11d": "⛈️",
	"11n": "⛈️",
	"13d": "❄️",
	"13n": "❄️",
	"50d": "🌫️",
	"50n": "🌫️",
}

// Used when the provider sends no or an unknown icon code.
var conditionIcons = map[weather.Condition]string{
	weather.ConditionThunderstorm:    "⛈️",
	weather.ConditionDrizzle:         "🌦️",
	weather.ConditionRain:            "🌧️",
	weather.ConditionSnow:            "❄️",
	weather.ConditionAtmosphere:      "🌫️",
	weather.ConditionClear:           "☀️",
	weather.ConditionFewClouds:       "🌤️",
	weather.ConditionScatteredClouds: "⛅",
	weather.ConditionBrokenClouds:    "☁️",
	weather.ConditionUnknown:         "🌡️",
}

var moonPhaseIcons = map[string]string{
	"New Moon":        "🌑",
	"Waxing Crescent": "🌒",
	"First Quarter":   "🌓",
	"Waxing Gibbous":  "🌔",
	"Full Moon":       "🌕",
	"Waning Gibbous":  "🌖",
	"Third Quarter":   "🌗",
	"Waning Crescent": "🌘",
}

const (
	loadingIcon = "⏳"
	failedIcon  = "⚠️"
)

var i18nVars = map[string]localize.MsgID{
	"location":        "Location",
	"condition":       "Condition",
	"temperature":     "Temperature",
	"temp":            "Temperature",
	"feels like":      "Feels like",
	"apparent":        "Feels like",
	"humidity":        "Humidity",
	"wind":            "Wind",
	"pressure":        "Pressure",
	"sunrise":         "Sunrise",
	"sunset":          "Sunset",
	"moonphase":       "Moonphase",
	"loading":         "Loading",
	"updated":         "Updated",
	"new moon":        "New moon",
	"waxing crescent": "Waxing crescent",
	"first quarter":   "First quarter",
	"waxing gibbous":  "Waxing gibbous",
	"full moon":       "Full moon",
	"waning gibbous":  "Waning gibbous",
	"third quarter":   "Third quarter",
	"waning crescent": "Waning crescent",
}

// Palette holds the colors of a theme.
type Palette struct {
	Background string `json:"background"`
	Text       string `json:"text"`
	Primary    string `json:"primary"`
	Surface    string `json:"surface"`
}

var palettes = map[settings.Theme]Palette{
	settings.ThemeLight: {Background: "#f8f9fa", Text: "#121212", Primary: "#6200ee", Surface: "#ffffff"},
	settings.ThemeDark:  {Background: "#121212", Text: "#ffffff", Primary: "#BB86FC", Surface: "#1e1e1e"},
}

// PaletteFor returns the colors of the theme. Unknown themes use the light palette.
func PaletteFor(theme settings.Theme) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes[settings.ThemeLight]
}

func conditionIcon(iconRef string, cond weather.Condition) string {
	if icon, ok := iconCodes[iconRef]; ok {
		return icon
	}
	return conditionIcons[cond]
}
