// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"
)

// iconColumns is the terminal width reserved for an icon in aligned tooltip rows.
const iconColumns = 3

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"timeFormat":    p.timeFormat,
		"localizedTime": p.localizedTime,
		"floatFormat":   floatFormat,
		"iconSpace":     iconSpace,
		"loc":           p.loc,
		"lc":            strings.ToLower,
		"uc":            strings.ToUpper,
	}
}

func (p *Presenter) loc(val string) string {
	if raw, ok := i18nVars[strings.ToLower(val)]; ok {
		return p.localizer.Get(raw)
	}
	return val
}

func (p *Presenter) localizedTime(val time.Time) string {
	return p.humanizer.FormatTime(val.In(p.location), humanize.TimeFormat)
}

func (p *Presenter) timeFormat(val time.Time, layout string) string {
	return val.In(p.location).Format(layout)
}

func floatFormat(val float64, precision int) string {
	pow := math.Pow(10, float64(precision))
	return fmt.Sprintf("%.*f", precision, math.Trunc(val*pow)/pow)
}

// iconSpace surrounds the icon with spaces so that rows with icons of different width line up.
func iconSpace(icon string) string {
	pad := iconColumns - runewidth.StringWidth(icon)
	if pad < 1 {
		pad = 1
	}
	return " " + icon + strings.Repeat(" ", pad)
}
