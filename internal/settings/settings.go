// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package settings holds the process-scoped user preferences.
package settings

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wneessen/weather-session/internal/weather"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme parses a theme name case-insensitively.
func ParseTheme(val string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(val))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("invalid theme: %q", val)
	}
}

func (t Theme) String() string {
	return string(t)
}

// Store is the preference store. Listeners registered with OnUnitsChanged are called
// synchronously, outside the lock, after the unit system actually changed.
type Store struct {
	mu        sync.RWMutex
	units     weather.UnitSystem
	theme     Theme
	listeners []func(weather.UnitSystem)
}

func New(units weather.UnitSystem, theme Theme) *Store {
	return &Store{units: units, theme: theme}
}

func (s *Store) Units() weather.UnitSystem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.units
}

// SetUnits stores the unit system and reports whether it changed.
func (s *Store) SetUnits(units weather.UnitSystem) bool {
	s.mu.Lock()
	if s.units == units {
		s.mu.Unlock()
		return false
	}
	s.units = units
	listeners := append([]func(weather.UnitSystem){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(units)
	}
	return true
}

func (s *Store) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme stores the theme and reports whether it changed.
func (s *Store) SetTheme(theme Theme) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == theme {
		return false
	}
	s.theme = theme
	return true
}

// OnUnitsChanged registers fn to be called with the new unit system on every change.
func (s *Store) OnUnitsChanged(fn func(weather.UnitSystem)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
