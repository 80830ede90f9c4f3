// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/humanize/locale/es"
	"github.com/vorlif/humanize/locale/fr"
	"github.com/vorlif/humanize/locale/it"
	"github.com/vorlif/humanize/locale/nl"
	"github.com/vorlif/spreak"
	"github.com/wneessen/go-moonphase"

	"github.com/wneessen/weather-session/internal/config"
	"github.com/wneessen/weather-session/internal/session"
	"github.com/wneessen/weather-session/internal/settings"
	"github.com/wneessen/weather-session/internal/weather"
)

const baseClass = "weather-session"

var humanizers = humanize.MustNew(humanize.WithLocale(de.New(), es.New(), fr.New(), it.New(), nl.New()))

// Output is the rendered view of a session state.
type Output struct {
	Text       string           `json:"text"`
	Tooltip    string           `json:"tooltip"`
	Classes    []string         `json:"class"`
	Background weather.Gradient `json:"background"`
	Palette    Palette          `json:"palette"`
}

// TemplateContext is the data the text and tooltip templates are executed with.
type TemplateContext struct {
	Location    string
	Country     string
	Latitude    float64
	Longitude   float64
	Description string
	Condition   string
	Icon        string

	Temperature int
	FeelsLike   int
	Humidity    float64
	WindSpeed   float64
	Pressure    float64
	TempUnit    string
	SpeedUnit   string

	Sunrise       string
	Sunset        string
	Moonphase     string
	MoonphaseIcon string
	UpdateTime    time.Time

	Forecast []ForecastView
}

// ForecastView is one forecast entry with its presentation fields.
type ForecastView struct {
	Time        string
	Timestamp   time.Time
	Temperature int
	Description string
	Condition   string
	Icon        string
}

type Presenter struct {
	text      *template.Template
	tooltip   *template.Template
	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
	location  *time.Location
	now       func() time.Time
}

// New parses the configured templates. The localizer translates labels and selects the
// language of localized times.
func New(conf *config.Config, localizer *spreak.Localizer) (*Presenter, error) {
	if conf == nil {
		return nil, errors.New("config is required")
	}
	if localizer == nil {
		return nil, errors.New("localizer is required")
	}
	p := &Presenter{
		localizer: localizer,
		humanizer: humanizers.CreateHumanizer(localizer.Language()),
		location:  conf.Location(),
		now:       time.Now,
	}

	var err error
	p.text, err = template.New("text").Funcs(p.templateFuncMap()).Parse(conf.Templates.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	p.tooltip, err = template.New("tooltip").Funcs(p.templateFuncMap()).Parse(conf.Templates.Tooltip)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tooltip template: %w", err)
	}
	return p, nil
}

// Render renders the state for the given theme. Only ready states run the templates.
func (p *Presenter) Render(state session.State, theme settings.Theme) (Output, error) {
	out := Output{
		Classes:    []string{baseClass, state.Status.String()},
		Background: weather.DefaultGradient,
		Palette:    PaletteFor(theme),
	}

	switch state.Status {
	case session.Loading:
		out.Text = loadingIcon
		out.Tooltip = p.loc("Loading") + "…"
	case session.Failed:
		out.Text = failedIcon
		out.Tooltip = state.Message
		out.Background = weather.ErrorGradient
	case session.Ready:
		if state.Conditions == nil {
			return out, errors.New("ready state without conditions")
		}
		cond := state.Conditions.Condition()
		out.Classes = append(out.Classes, string(cond))
		out.Background = cond.Background()

		ctx := p.BuildContext(state)
		var buf bytes.Buffer
		if err := p.text.Execute(&buf, ctx); err != nil {
			return out, fmt.Errorf("failed to render text template: %w", err)
		}
		out.Text = buf.String()
		buf.Reset()
		if err := p.tooltip.Execute(&buf, ctx); err != nil {
			return out, fmt.Errorf("failed to render tooltip template: %w", err)
		}
		out.Tooltip = buf.String()
	}

	out.Classes = append(out.Classes, theme.String())
	return out, nil
}

// BuildContext returns the template data of a ready state.
func (p *Presenter) BuildContext(state session.State) TemplateContext {
	cur := state.Conditions
	if cur == nil {
		return TemplateContext{}
	}
	moon := moonphase.New(p.now())
	phase := moon.PhaseName()
	cond := cur.Condition()

	ctx := TemplateContext{
		Location:      cur.Location,
		Country:       cur.Country,
		Latitude:      cur.Coordinates.Latitude,
		Longitude:     cur.Coordinates.Longitude,
		Description:   cur.Description,
		Condition:     string(cond),
		Icon:          conditionIcon(cur.IconRef, cond),
		Temperature:   cur.Temperature,
		FeelsLike:     cur.FeelsLike,
		Humidity:      cur.Humidity,
		WindSpeed:     cur.WindSpeed,
		Pressure:      cur.Pressure,
		TempUnit:      cur.Units.TemperatureUnit(),
		SpeedUnit:     cur.Units.SpeedUnit(),
		Sunrise:       cur.Sunrise,
		Sunset:        cur.Sunset,
		Moonphase:     p.loc(phase),
		MoonphaseIcon: moonPhaseIcons[phase],
		UpdateTime:    state.UpdatedAt,
		Forecast:      make([]ForecastView, 0, len(state.Forecast)),
	}
	for _, point := range state.Forecast {
		pointCond := point.Condition()
		ctx.Forecast = append(ctx.Forecast, ForecastView{
			Time:        point.Time,
			Timestamp:   point.Timestamp,
			Temperature: point.Temperature,
			Description: point.Description,
			Condition:   string(pointCond),
			Icon:        conditionIcon(point.IconRef, pointCond),
		})
	}
	return ctx
}
