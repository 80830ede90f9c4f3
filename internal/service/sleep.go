// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/weather-session/internal/logger"
)

const (
	login1Interface = "org.freedesktop.login1.Manager"
	login1Member    = "PrepareForSleep"
	sleepSignal     = login1Interface + "." + login1Member

	resumeDebounce     = 2 * time.Second
	signalBufferSize   = 8
	busReconnectDelay  = 5 * time.Second
	networkWakeupDelay = 10 * time.Second
)

// busConn is the subset of *dbus.Conn used to watch for sleep and resume.
type busConn interface {
	AddMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

func connectSystemBus(ctx context.Context) (busConn, error) {
	return dbus.ConnectSystemBus(dbus.WithContext(ctx))
}

// monitorSleepResume refreshes the session whenever logind reports a resume from sleep.
// A lost bus connection is re-established until ctx is canceled.
func (s *Service) monitorSleepResume(ctx context.Context) {
	var lastResume time.Time
	for {
		if err := s.watchSleep(ctx, &lastResume); err != nil {
			s.logger.Debug("sleep monitoring interrupted", logger.Err(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(busReconnectDelay):
		}
	}
}

// watchSleep subscribes to the logind sleep signal and handles it until the connection or
// ctx ends.
func (s *Service) watchSleep(ctx context.Context, lastResume *time.Time) error {
	conn, err := s.connectBus(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Error("failed to close system bus connection", logger.Err(err))
		}
	}()

	if err = conn.AddMatchSignalContext(ctx, dbus.WithMatchInterface(login1Interface),
		dbus.WithMatchMember(login1Member)); err != nil {
		return err
	}
	signals := make(chan *dbus.Signal, signalBufferSize)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)
	s.logger.Debug("watching for resume from sleep", slog.String("signal", sleepSignal))

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if !resumed(sig) {
				continue
			}
			now := time.Now()
			if now.Sub(*lastResume) < resumeDebounce {
				continue
			}
			*lastResume = now
			s.handleResume(ctx)
		}
	}
}

// resumed reports whether the signal announces the end of a sleep.
func resumed(sig *dbus.Signal) bool {
	if sig == nil || sig.Name != sleepSignal || len(sig.Body) != 1 {
		return false
	}
	sleeping, ok := sig.Body[0].(bool)
	return ok && !sleeping
}

func (s *Service) handleResume(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.wakeupDelay):
	}
	s.logger.Debug("resumed from sleep, refreshing session")
	s.refresh(ctx)
}
