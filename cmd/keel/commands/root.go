// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/keelrobotics/keel/pkg/appctx"
	"github.com/keelrobotics/keel/pkg/config"
	"github.com/keelrobotics/keel/pkg/event"
	"github.com/keelrobotics/keel/pkg/logging"
	"github.com/keelrobotics/keel/pkg/metrics"
	"github.com/keelrobotics/keel/pkg/paths"
)

const cliExecutable = "keel"

// session holds what PersistentPreRunE builds for the subcommands.
type session struct {
	manager   *config.Manager
	hub       *event.Hub
	registry  *prometheus.Registry
	observer  event.Observer
	verbosity int
}

// NewCommand constructs the top-level keel CLI command, wiring global flags,
// configuration loading and the process hub.
func NewCommand() *cobra.Command {
	var (
		configFile string
		debug      bool
		s          = &session{}
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Keel runs a simulated vehicle around an in-process event bus",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			manager := config.NewManager()
			if err := manager.LoadDefaults(configFile, cmd.Flags(), debug); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg := manager.Get()
			if err := config.CheckRequires(cfg); err != nil {
				return err
			}
			if err := logging.ConfigureGlobalLogging(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			if err := s.open(manager, cfg); err != nil {
				return err
			}

			ctx := appctx.WithConfig(cmd.Context(), manager)
			ctx = appctx.WithHub(ctx, s.hub)

			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}

			log.Debug().
				Str("config", manager.FilePath()).
				Bool("strict_types", cfg.Bus.StrictTypes).
				Msg("keel initialized")
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			s.close()
			return nil
		},
	}

	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", paths.ConfigFile(), "Configuration file path")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Shorthand for --log.level=debug")
	cmd.PersistentFlags().CountVarP(&s.verbosity, "verbosity", "v", "Increase trace verbosity (repeatable)")
	cmd.PersistentFlags().StringP("output", "o", "table", "Output format: table, json or yaml")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddGroup(&cobra.Group{ID: "vehicle", Title: "Vehicle Commands"})
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands"})

	cmd.AddCommand(newRunCommand(s))
	cmd.AddCommand(newTypesCommand(s))
	cmd.AddCommand(newConfigCommand(s))
	cmd.AddCommand(newVersionCommand(cliExecutable))

	return cmd
}

// open builds the metrics registry and the hub for cfg.
func (s *session) open(manager *config.Manager, cfg config.Config) error {
	s.manager = manager
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []event.Option{event.WithLogger(logging.Component("bus"))}
	if cfg.Bus.StrictTypes {
		opts = append(opts, event.WithTypes(event.SystemTypes()))
	}
	if cfg.Bus.Metrics {
		obs, err := metrics.NewBusObserver(s.registry)
		if err != nil {
			return fmt.Errorf("register bus metrics: %w", err)
		}
		s.observer = obs
		opts = append(opts, event.WithObserver(obs))
	}

	s.hub = event.NewHub(opts...)
	return nil
}

func (s *session) close() {
	if s.hub != nil {
		s.hub.Close()
	}
}
