// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package settings

import (
	"testing"

	"github.com/wneessen/weather-session/internal/weather"
)

func TestParseTheme(t *testing.T) {
	tests := []struct {
		in      string
		want    Theme
		wantErr bool
	}{
		{"light", ThemeLight, false},
		{"Dark", ThemeDark, false},
		{"sepia", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTheme(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected parsing to fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to parse theme: %s", err)
			}
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestStore_SetUnits(t *testing.T) {
	t.Run("listeners are notified on change only", func(t *testing.T) {
		store := New(weather.Metric, ThemeLight)
		var notified []weather.UnitSystem
		store.OnUnitsChanged(func(units weather.UnitSystem) {
			if store.Units() != units {
				t.Errorf("expected store to carry the new units during notification")
			}
			notified = append(notified, units)
		})

		if store.SetUnits(weather.Metric) {
			t.Error("expected setting the same units to report no change")
		}
		if !store.SetUnits(weather.Imperial) {
			t.Error("expected setting new units to report a change")
		}
		if store.Units() != weather.Imperial {
			t.Errorf("expected imperial units, got %s", store.Units())
		}
		if len(notified) != 1 || notified[0] != weather.Imperial {
			t.Errorf("expected exactly one notification with imperial, got %v", notified)
		}
	})
}

func TestStore_SetTheme(t *testing.T) {
	store := New(weather.Metric, ThemeLight)
	if store.SetTheme(ThemeLight) {
		t.Error("expected setting the same theme to report no change")
	}
	if !store.SetTheme(ThemeDark) {
		t.Error("expected setting a new theme to report a change")
	}
	if store.Theme() != ThemeDark {
		t.Errorf("expected dark theme, got %s", store.Theme())
	}
}
