// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package i18n

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/Xuanwo/go-locale"
	"github.com/vorlif/spreak"
	"github.com/vorlif/spreak/localize"
	"golang.org/x/text/language"
)

// User-visible failure messages published with a failed session state
const (
	MsgFetchFailed      localize.MsgID = "Failed to fetch weather"
	MsgPermissionDenied localize.MsgID = "Permission to access location was denied. " +
		"Please enable location services in your settings."
	MsgFixTimeout localize.MsgID = "Unable to determine your location in time"
)

//go:embed locale/*
var locales embed.FS

// Translator looks up the localized text for a message id. *spreak.Localizer satisfies it.
type Translator interface {
	Get(localize.MsgID) string
}

// Source is a Translator that returns message ids untranslated.
type Source struct{}

func (Source) Get(id localize.MsgID) string { return id }

func New(loc string) (*spreak.Localizer, error) {
	tag := language.Make(loc)
	var err error
	if loc == "" {
		tag, err = locale.Detect()
		if err != nil {
			tag = language.English // Unable to detect locale, fallback to English
		}
	}

	localeFS, err := fs.Sub(locales, "locale")
	if err != nil {
		return nil, fmt.Errorf("failed to load locales: %w", err)
	}

	bundle, err := spreak.NewBundle(
		spreak.WithSourceLanguage(language.English),
		spreak.WithFallbackLanguage(language.English),
		spreak.WithDomainFs("", localeFS),
		spreak.WithLanguage(tag),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create i18n bundle: %w", err)
	}
	return spreak.NewLocalizer(bundle, tag), nil
}
