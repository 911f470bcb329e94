// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/keelrobotics/keel/cmd/keel/internal/format"
	"github.com/keelrobotics/keel/pkg/version"
)

func newVersionCommand(cliExecutable string) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Print version information",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			out := format.FromCommand(cmd)

			switch out.Mode() {
			case format.ModeJSON:
				return out.PrintJSON(info)
			case format.ModeYAML:
				return out.PrintYAML(info)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s version: %s\n", cliExecutable, info.Version)
			if short {
				return nil
			}
			fmt.Fprintf(w, "Commit: %s\n", info.Commit)
			fmt.Fprintf(w, "Build Date: %s\n", info.BuildDate)
			fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(w, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")

	return cmd
}
