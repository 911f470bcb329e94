// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/keelrobotics/keel/cmd/keel/internal/format"
	"github.com/keelrobotics/keel/pkg/config"
	"github.com/keelrobotics/keel/pkg/event"
	"github.com/keelrobotics/keel/pkg/hook"
	"github.com/keelrobotics/keel/pkg/logging"
	"github.com/keelrobotics/keel/pkg/metrics"
	"github.com/keelrobotics/keel/pkg/paths"
	"github.com/keelrobotics/keel/pkg/trace"
	"github.com/keelrobotics/keel/pkg/vehicle"
)

const shutdownTimeout = 5 * time.Second

type runOptions struct {
	duration time.Duration
	trace    bool
	noWatch  bool
}

func newRunCommand(s *session) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the simulated vehicle until interrupted",
		GroupID: "vehicle",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if opts.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.duration)
				defer cancel()
			}
			return runVehicle(ctx, cmd, s, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print hub events to stdout; -v adds estimates, -vv device samples")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not reload the config file on change")

	return cmd
}

func runVehicle(ctx context.Context, cmd *cobra.Command, s *session, opts runOptions) error {
	cfg := s.manager.Get()
	out := format.FromCommand(cmd)
	hooks := hook.NewManager()

	lockPath := cfg.Vehicle.LockFile
	if lockPath == "" {
		lockPath = paths.LockFile()
	}
	lock, err := vehicle.AcquireLock(lockPath)
	if err != nil {
		return err
	}
	hooks.Register(hook.Shutdown, "lock", lock.Release)

	shutdown := func() error {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return hooks.Trigger(sctx, hook.Shutdown)
	}

	v, err := vehicle.New(cfg, vehicle.Env{
		Hub:      s.hub,
		Observer: s.observer,
		Logger:   log.Logger,
	})
	if err != nil {
		return errors.Join(err, shutdown())
	}
	v.RegisterHooks(hooks)

	if cfg.Metrics.Enabled {
		registerMetricsServer(hooks, cfg.Metrics.Addr, s)
	}

	if err := attachTrace(hooks, cmd, s, opts.trace); err != nil {
		return errors.Join(err, shutdown())
	}

	if err := hooks.Trigger(ctx, hook.Start); err != nil {
		return errors.Join(err, shutdown())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return v.Run(gctx) })
	if !opts.noWatch {
		if w := newConfigWatcher(gctx, s, v); w != nil {
			g.Go(func() error { return ignoreDone(w.Start(gctx)) })
		}
	}
	runErr := g.Wait()

	log.Info().Str("vehicle", v.Name()).Msg("shutting down")
	err = errors.Join(runErr, shutdown())
	if err == nil {
		_ = out.PrintSummary(fmt.Sprintf("vehicle %s stopped", v.Name()))
	}
	return err
}

// registerMetricsServer serves /metrics between the start and shutdown
// hooks. Listening happens in the start hook so a busy port fails the run.
func registerMetricsServer(hooks *hook.Manager, addr string, s *session) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(s.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger := logging.Component("metrics")

	hooks.Register(hook.Start, "metrics", func(context.Context) error {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("metrics listen %s: %w", addr, err)
		}
		logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		return nil
	})
	hooks.Register(hook.Shutdown, "metrics", srv.Shutdown)
}

// attachTrace subscribes the console trace, or the log trace when the
// console one is off.
func attachTrace(hooks *hook.Manager, cmd *cobra.Command, s *session, console bool) error {
	var sub trace.Subscriber
	if console {
		noColor, _ := cmd.Flags().GetBool("no-color")
		sub = trace.NewConsoleSubscriber(trace.LevelFromVerbosity(s.verbosity), cmd.OutOrStdout(), !noColor && !color.NoColor)
	} else {
		sub = trace.NewLogSubscriber(log.Logger)
	}

	conns, err := trace.Attach(s.hub, sub)
	if err != nil {
		return err
	}
	hooks.Register(hook.Shutdown, "trace", func(context.Context) error {
		trace.Detach(conns)
		return nil
	})
	return nil
}

// newConfigWatcher returns nil when there is no config file to watch.
func newConfigWatcher(ctx context.Context, s *session, v *vehicle.Vehicle) *config.Watcher {
	path := s.manager.FilePath()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		log.Debug().Str("file", path).Msg("config file absent, not watching")
		return nil
	}

	w, err := config.NewWatcher(s.manager, func(cfg config.Config) {
		logging.ConfigureGlobal(logging.ParseLevel(cfg.Log.Level))
		v.Apply(cfg)
		if err := s.hub.Publish(ctx, event.TypeConfigReloaded, event.New(event.Text(path))); err != nil {
			log.Warn().Err(err).Msg("config.reloaded not published")
		}
	}, log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
		return nil
	}
	return w
}

func ignoreDone(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
