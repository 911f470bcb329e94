// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"github.com/spf13/cobra"

	"github.com/keelrobotics/keel/cmd/keel/internal/format"
)

func newConfigCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Inspect the effective configuration",
		GroupID: "core",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration (defaults, file, env, flags)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := format.FromCommand(cmd)
			if out.Mode() == format.ModeJSON {
				return out.PrintJSON(s.manager.Raw())
			}
			return out.PrintYAML(s.manager.Raw())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte(s.manager.FilePath() + "\n"))
			return err
		},
	})

	return cmd
}
