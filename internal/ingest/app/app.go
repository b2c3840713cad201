/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package app wires the ingest core's components (C1-C7) into a single
// Application Root (C9): the file sink, the bounded command channel, the
// rotation scheduler, the network listener selected by
// config.Settings.Protocol, and the shutdown coordinator that brings all
// of them down together. It also exposes a Health aggregator (C11) with
// no network endpoint of its own.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	afield "dirpx.dev/dlogd/apis/field"
	"dirpx.dev/dlogd/apis/field/fields"
	"dirpx.dev/dlogd/apis/health"
	"dirpx.dev/dlogd/apis/metrics"
	"dirpx.dev/dlogd/internal/config"
	"dirpx.dev/dlogd/internal/diagnostics"
	"dirpx.dev/dlogd/internal/ingest/channel"
	"dirpx.dev/dlogd/internal/ingest/filesink"
	"dirpx.dev/dlogd/internal/ingest/listener"
	"dirpx.dev/dlogd/internal/ingest/rotation"
	"dirpx.dev/dlogd/internal/ingest/shutdown"
	"dirpx.dev/dlogd/runtime/logger"
)

// shutdownGrace bounds how long Wait waits for the listener, scheduler
// and file sink goroutines to exit before giving up.
const shutdownGrace = 5 * time.Second

// App is the running ingest daemon: one bound listener, one command
// channel, one rotation scheduler and one file sink, coordinated by a
// single shutdown.Coordinator.
type App struct {
	settings config.Settings
	metric   metrics.Sink
	diag     *logger.Logger

	coord  *shutdown.Coordinator
	ch     *channel.Channel
	sink   *filesink.Sink
	health *health.Aggregator

	runErr chan error
}

// New constructs and starts the ingest core described by settings. It
// returns once the file sink's live file is open and every long-running
// component has been launched; it does not block waiting for shutdown.
func New(settings config.Settings, metric metrics.Sink) (*App, error) {
	if metric == nil {
		metric = metrics.Noop{}
	}

	diag, err := diagnostics.New(settings)
	if err != nil {
		return nil, fmt.Errorf("app: building diagnostics logger: %w", err)
	}

	sink, err := filesink.Open(filesink.Options{
		Path:        settings.LivePath(),
		StartingMsg: settings.StartingMsg,
		EndingMsg:   settings.EndingMsg,
		Metric:      metric,
	})
	if err != nil {
		return nil, fmt.Errorf("app: opening live file: %w", err)
	}

	ch := channel.New(settings.BufferBound, settings.Backpressure, metric)
	coord := shutdown.New()

	a := &App{
		settings: settings,
		metric:   metric,
		diag:     diag,
		coord:    coord,
		ch:       ch,
		sink:     sink,
		health:   health.NewAggregator(),
		runErr:   make(chan error, 3),
	}

	a.health.Add("file_sink", health.CheckFunc(a.checkFileSink))
	a.health.Add("command_channel", health.CheckFunc(a.checkChannel))

	a.diag.Info(context.Background(), "ingest core starting",
		afield.New(fields.Service, "dlogd"),
		afield.New(fields.Component, "app"),
		afield.New("addr", settings.Addr()),
		afield.New("protocol", settings.Protocol.String()),
		afield.New("live_path", settings.LivePath()))

	a.coord.Go(func() {
		err := a.sink.Run(context.Background(), a.ch.Receive(), a.coord.Stop())
		a.reportTerminal("file_sink", err)
	})

	a.coord.Go(func() {
		sched := rotation.New(rotation.Options{
			Policy:      settings.RotationPolicyImpl(),
			LivePath:    settings.LivePath(),
			MaxRetained: settings.RotationCount,
			Sender:      a.ch,
			Metric:      metric,
		})
		err := sched.Run(context.Background(), a.coord.Stop())
		a.reportTerminal("rotation_scheduler", err)
	})

	a.coord.Go(func() {
		err := a.runListener()
		a.reportTerminal("listener", err)
	})

	return a, nil
}

// runListener binds the protocol selected by settings.Protocol and blocks
// until it returns (on shutdown or an unrecoverable network error).
func (a *App) runListener() error {
	switch a.settings.Protocol {
	case config.ProtocolTCP:
		return listener.RunTCP(listener.TCPOptions{
			Addr:           a.settings.Addr(),
			MaxConnections: a.settings.MaxConnections,
			Debug:          a.settings.Debug,
			Sender:         a.ch,
			Metric:         a.metric,
		}, a.coord.Stop())
	default:
		return listener.RunUDP(context.Background(), listener.UDPOptions{
			Addr:    a.settings.Addr(),
			Threads: a.settings.Threads,
			Debug:   a.settings.Debug,
			Sender:  a.ch,
			Metric:  a.metric,
		}, a.coord.Stop())
	}
}

// reportTerminal records a component's exit. A non-nil err before
// shutdown was requested is unexpected: it triggers a full shutdown of
// the remaining components rather than leaving a half-running daemon.
func (a *App) reportTerminal(component string, err error) {
	select {
	case <-a.coord.Stop():
		// Shutdown already in progress; this exit is expected.
		return
	default:
	}

	if err != nil {
		a.diag.Error(context.Background(), "component exited unexpectedly",
			afield.New(fields.Component, component), afield.New("error", err.Error()))
		select {
		case a.runErr <- fmt.Errorf("app: %s exited: %w", component, err):
		default:
		}
	}
	a.coord.Broadcast()
}

// Wait blocks until a component terminates unexpectedly or ctx is
// cancelled, whichever happens first. A cancelled ctx triggers a
// graceful shutdown and Wait returns nil once every component has
// exited, or an error if the grace period elapses first.
func (a *App) Wait(ctx context.Context) error {
	defer a.diag.Close(context.Background())

	select {
	case err := <-a.runErr:
		a.coord.Broadcast()
		a.ch.Close()
		a.coord.Wait(shutdownGrace)
		return err
	case <-ctx.Done():
		a.diag.Info(context.Background(), "shutdown requested")
		a.coord.Broadcast()
		a.ch.Close()
		if !a.coord.Wait(shutdownGrace) {
			return errors.New("app: shutdown grace period exceeded")
		}
		a.diag.Info(context.Background(), "shutdown complete")
		return nil
	}
}

// Health runs every registered checker and returns the aggregated
// report. There is no network endpoint for it; callers (tests, an
// operator tool, or a future exporter) call this directly.
func (a *App) Health(ctx context.Context) health.Report {
	return a.health.Run(ctx)
}

func (a *App) checkFileSink(_ context.Context) (health.Result, error) {
	return health.Result{
		Status:  health.StatusHealthy,
		Details: map[string]any{"path": a.settings.LivePath()},
	}, nil
}

func (a *App) checkChannel(_ context.Context) (health.Result, error) {
	details := map[string]any{
		"len":                 a.ch.Len(),
		"backpressure_events": a.ch.BackpressureEvents(),
		"dropped":             a.ch.Dropped(),
	}
	if a.ch.Dropped() > 0 {
		return health.Result{Status: health.StatusDegraded, Details: details}, nil
	}
	return health.Result{Status: health.StatusHealthy, Details: details}, nil
}
