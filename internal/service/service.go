// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"

	"github.com/wneessen/weather-session/internal/api"
	"github.com/wneessen/weather-session/internal/config"
	"github.com/wneessen/weather-session/internal/geolocation"
	"github.com/wneessen/weather-session/internal/http"
	"github.com/wneessen/weather-session/internal/logger"
	"github.com/wneessen/weather-session/internal/normalizer"
	"github.com/wneessen/weather-session/internal/presenter"
	"github.com/wneessen/weather-session/internal/registry"
	"github.com/wneessen/weather-session/internal/session"
	"github.com/wneessen/weather-session/internal/settings"
	"github.com/wneessen/weather-session/internal/weather"
)

const (
	outputJobName   = "session_output_job"
	shutdownTimeout = 10 * time.Second
	printerBuffer   = 16
)

type Service struct {
	config       *config.Config
	logger       *logger.Logger
	localizer    *spreak.Localizer
	http         *http.Client
	registry     *registry.Registry
	prefs        *settings.Store
	locator      *geolocation.Locator
	orchestrator *session.Orchestrator
	presenter    *presenter.Presenter
	scheduler    gocron.Scheduler
	SignalSrc    signalSource
	connectBus   func(ctx context.Context) (busConn, error)
	wakeupDelay  time.Duration

	outputLock sync.Mutex
	output     io.Writer
}

// New wires the weather session from the configuration. Nothing is requested before Run.
func New(conf *config.Config, log *logger.Logger, localizer *spreak.Localizer) (*Service, error) {
	if conf == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if localizer == nil {
		return nil, errors.New("localizer is required")
	}

	units, err := weather.ParseUnitSystem(conf.Units)
	if err != nil {
		return nil, err
	}
	theme, err := settings.ParseTheme(conf.Theme)
	if err != nil {
		return nil, err
	}

	serv := &Service{
		config:      conf,
		logger:      log,
		localizer:   localizer,
		http:        http.New(log),
		registry:    registry.New(),
		prefs:       settings.New(units, theme),
		SignalSrc:   stdLibSignalSource{},
		connectBus:  connectSystemBus,
		wakeupDelay: networkWakeupDelay,
		output:      os.Stdout,
	}

	provider, err := serv.newWeatherProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to create weather provider: %w", err)
	}
	sources, err := serv.selectGeolocationSources()
	if err != nil {
		return nil, fmt.Errorf("failed to create geolocation sources: %w", err)
	}
	serv.locator = geolocation.New(log.With(slog.String("component", "geolocation")), sources,
		geolocation.Options{
			Disabled:   conf.GeoLocation.Disable,
			FixTimeout: conf.GeoLocation.FixTimeout,
			Accuracy:   conf.GeoLocation.Accuracy,
		})

	serv.orchestrator, err = session.New(provider, normalizer.New(conf.Location(), conf.Provider.IconBaseURL),
		serv.registry, serv.prefs, log.With(slog.String("component", "session")), session.Options{
			FallbackCity: conf.Session.FallbackCity,
			Retry:        retryPolicy(conf),
			Translator:   localizer,
			Locator:      serv.locator,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create session orchestrator: %w", err)
	}

	serv.presenter, err = presenter.New(conf, localizer)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	return serv, nil
}

// Run activates the session and serves it until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	s.prefs.OnUnitsChanged(func(units weather.UnitSystem) {
		if _, started := s.orchestrator.UnitsChanged(ctx, units); started {
			s.logger.Info("unit system changed, resolving again", slog.String("units", units.String()))
		}
	})

	var server *api.Server
	if !s.config.Server.Disable {
		var err error
		server, err = api.New(ctx, s.orchestrator, s.registry, s.prefs, s.presenter, s.logger)
		if err != nil {
			return fmt.Errorf("failed to create HTTP API: %w", err)
		}
		ln, err := net.Listen("tcp", s.config.Server.Listen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Listen, err)
		}
		defer func() { _ = ln.Close() }()
		wg.Go(func() {
			if err := server.Serve(ln); err != nil && ctx.Err() == nil {
				s.logger.Error("HTTP API stopped", logger.Err(err))
			}
		})
	}

	if s.config.Output.Stdout {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		s.scheduler = scheduler
		if err = s.createScheduledJob(ctx, s.config.Output.Interval, s.printCurrent, outputJobName); err != nil {
			_ = scheduler.Shutdown()
			return err
		}
		s.scheduler.Start()

		states, unsubscribe := s.orchestrator.Subscribe(printerBuffer)
		defer unsubscribe()
		wg.Go(func() { s.printStates(ctx, states) })
	}

	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	wg.Go(func() {
		defer s.SignalSrc.Stop(sigChan)
		s.HandleSignals(ctx, sigChan)
	})

	if !s.config.Session.DisableRefreshOnResume {
		wg.Go(func() { s.monitorSleepResume(ctx) })
	}

	wg.Go(func() {
		state, _ := s.orchestrator.Activate(ctx)
		s.logger.Debug("session activated", slog.String("status", state.Status.String()))
	})

	<-ctx.Done()
	var errs []error
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down HTTP API: %w", err))
		}
	}
	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down scheduler: %w", err))
		}
	}
	// The signal and resume handlers may still submit until they returned
	wg.Wait()
	s.orchestrator.Wait()
	return errors.Join(errs...)
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// printStates prints every published state until the subscription ends.
func (s *Service) printStates(ctx context.Context, states <-chan session.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			s.printState(state)
		}
	}
}

// printCurrent re-prints the current state. It never refreshes the data.
func (s *Service) printCurrent(context.Context) {
	s.printState(s.orchestrator.State())
}

// printState renders the state and writes it as one JSON line to the output. An idle
// session has nothing to show.
func (s *Service) printState(state session.State) {
	if state.Status == session.Idle {
		return
	}
	out, err := s.presenter.Render(state, s.prefs.Theme())
	if err != nil {
		s.logger.Error("failed to render session state", logger.Err(err))
		return
	}

	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	if err = json.NewEncoder(s.output).Encode(out); err != nil {
		s.logger.Error("failed to encode session output", logger.Err(err))
	}
}

// refresh resolves the refresh query in the background unless the session was never
// activated.
func (s *Service) refresh(ctx context.Context) {
	if s.orchestrator.State().Status == session.Idle {
		return
	}
	query := s.orchestrator.RefreshQuery()
	s.logger.Debug("refreshing session", slog.String("query", query.String()))
	s.orchestrator.Submit(ctx, query, s.prefs.Units())
}

func retryPolicy(conf *config.Config) session.RetryPolicy {
	if conf.Session.Retry.MaxRetries < 1 {
		return session.NoRetry{}
	}
	return session.ExponentialBackoff{
		MaxRetries: conf.Session.Retry.MaxRetries,
		Initial:    conf.Session.Retry.InitialBackoff,
		Max:        conf.Session.Retry.MaxBackoff,
	}
}
