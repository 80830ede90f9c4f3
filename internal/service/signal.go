// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// HandleSignals refreshes the session on SIGUSR1 and logs the current state on SIGUSR2.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGUSR1:
				s.refresh(ctx)
			case syscall.SIGUSR2:
				s.logState()
			}
		}
	}
}

func (s *Service) logState() {
	state := s.orchestrator.State()
	attrs := []any{
		slog.String("status", state.Status.String()),
		slog.String("units", state.Units.String()),
		slog.Int("saved_locations", s.registry.Len()),
	}
	if state.Query != nil {
		attrs = append(attrs, slog.String("query", state.Query.String()))
	}
	if state.Conditions != nil {
		attrs = append(attrs, slog.String("location", state.Conditions.Location),
			slog.Float64("latitude", state.Conditions.Coordinates.Latitude),
			slog.Float64("longitude", state.Conditions.Coordinates.Longitude))
	}
	if state.Message != "" {
		attrs = append(attrs, slog.String("message", state.Message))
	}
	s.logger.Info("current session state", attrs...)
}
