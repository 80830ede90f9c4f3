// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import "strings"

// Condition is a coarse weather condition group derived from the provider condition code.
type Condition string

const (
	ConditionUnknown         Condition = "unknown"
	ConditionThunderstorm    Condition = "thunderstorm"
	ConditionDrizzle         Condition = "drizzle"
	ConditionRain            Condition = "rain"
	ConditionSnow            Condition = "snow"
	ConditionAtmosphere      Condition = "mist"
	ConditionClear           Condition = "clear"
	ConditionFewClouds       Condition = "few-clouds"
	ConditionScatteredClouds Condition = "scattered-clouds"
	ConditionBrokenClouds    Condition = "broken-clouds"
)

// Gradient is a two-stop background color gradient.
type Gradient struct {
	From string `json:"from"`
	To   string `json:"to"`
}

var (
	// ErrorGradient is the background of a failed session.
	ErrorGradient = Gradient{From: "#FF6B6B", To: "#FF4136"}
	// DefaultGradient is the background used while loading and for unknown conditions.
	DefaultGradient = Gradient{From: "#87CEEB", To: "#1E90FF"}
)

var gradients = map[Condition]Gradient{
	ConditionClear:           {From: "#87CEEB", To: "#1E90FF"},
	ConditionFewClouds:       {From: "#87CEEB", To: "#4682B4"},
	ConditionScatteredClouds: {From: "#B0C4DE", To: "#778899"},
	ConditionBrokenClouds:    {From: "#708090", To: "#2F4F4F"},
	ConditionDrizzle:         {From: "#4682B4", To: "#1E4E8C"},
	ConditionRain:            {From: "#4682B4", To: "#1E4E8C"},
	ConditionThunderstorm:    {From: "#483D8B", To: "#191970"},
	ConditionSnow:            {From: "#F0F8FF", To: "#B0E0E6"},
	ConditionAtmosphere:      {From: "#B0C4DE", To: "#708090"},
}

// conditionCodes lists every OpenWeatherMap condition code per group
var conditionCodes = map[Condition][]int{
	ConditionThunderstorm:    {200, 201, 202, 210, 211, 212, 221, 230, 231, 232},
	ConditionDrizzle:         {300, 301, 302, 310, 311, 312, 313, 314, 321},
	ConditionRain:            {500, 501, 502, 503, 504, 511, 520, 521, 522, 531},
	ConditionSnow:            {600, 601, 602, 611, 612, 613, 615, 616, 620, 621, 622},
	ConditionAtmosphere:      {701, 711, 721, 731, 741, 751, 761, 762, 771, 781},
	ConditionClear:           {800},
	ConditionFewClouds:       {801},
	ConditionScatteredClouds: {802},
	ConditionBrokenClouds:    {803, 804},
}

var codeTable = func() map[int]Condition {
	table := make(map[int]Condition)
	for cond, codes := range conditionCodes {
		for _, code := range codes {
			table[code] = cond
		}
	}
	return table
}()

// descriptionKeywords is checked in order, so more specific phrases come first
var descriptionKeywords = []struct {
	keyword   string
	condition Condition
}{
	{"thunderstorm", ConditionThunderstorm},
	{"drizzle", ConditionDrizzle},
	{"shower rain", ConditionRain},
	{"rain", ConditionRain},
	{"sleet", ConditionSnow},
	{"snow", ConditionSnow},
	{"mist", ConditionAtmosphere},
	{"fog", ConditionAtmosphere},
	{"haze", ConditionAtmosphere},
	{"smoke", ConditionAtmosphere},
	{"dust", ConditionAtmosphere},
	{"few clouds", ConditionFewClouds},
	{"scattered clouds", ConditionScatteredClouds},
	{"broken clouds", ConditionBrokenClouds},
	{"overcast", ConditionBrokenClouds},
	{"clear", ConditionClear},
}

// ConditionFromCode maps a provider condition code to its group.
func ConditionFromCode(code int) Condition {
	if cond, ok := codeTable[code]; ok {
		return cond
	}
	return ConditionUnknown
}

// ConditionFromDescription matches a free-text description against known keywords.
func ConditionFromDescription(desc string) Condition {
	desc = strings.ToLower(desc)
	for _, kw := range descriptionKeywords {
		if strings.Contains(desc, kw.keyword) {
			return kw.condition
		}
	}
	return ConditionUnknown
}

// ConditionFor uses the code table and falls back to the description only for unknown codes.
func ConditionFor(code int, desc string) Condition {
	if cond := ConditionFromCode(code); cond != ConditionUnknown {
		return cond
	}
	return ConditionFromDescription(desc)
}

// Background returns the background gradient of the condition.
func (c Condition) Background() Gradient {
	if g, ok := gradients[c]; ok {
		return g
	}
	return DefaultGradient
}
