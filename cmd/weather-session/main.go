// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the weather-session service.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wneessen/weather-session/internal/config"
	"github.com/wneessen/weather-session/internal/i18n"
	"github.com/wneessen/weather-session/internal/logger"
	"github.com/wneessen/weather-session/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	log := logger.New(slog.LevelError)

	// A .env file in the working directory may provide the WEATHERSESSION_ variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error("failed to load .env file", logger.Err(err))
		os.Exit(1)
	}

	confRead := false
	confPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	conf, err := config.New()
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}

	if *confPath != "" {
		conf, err = config.NewFromFile(filepath.Dir(*confPath), filepath.Base(*confPath))
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
		confRead = true
	}

	if path, file := findConfigFile(); !confRead && (path != "" && file != "") {
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
	}

	log = logger.New(conf.LogLevel)
	t, err := i18n.New(conf.Locale)
	if err != nil {
		log.Error("failed to initialize localizer", logger.Err(err))
		os.Exit(1)
	}

	serv, err := service.New(conf, log, t)
	if err != nil {
		log.Error("failed to initialize weather-session service", logger.Err(err))
		os.Exit(1)
	}

	log.Info("starting weather-session service", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date), slog.String("locale", t.Language().String()))
	if err = serv.Run(ctx); err != nil {
		log.Error("weather-session service failed", logger.Err(err))
	}
	log.Info("shutting down weather-session service")
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	for _, ext := range []string{"toml", "yaml", "yml", "json"} {
		path := filepath.Join(homedir, ".config", "weather-session", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
