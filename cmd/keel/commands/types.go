// Copyright 2025 Keel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/keelrobotics/keel/cmd/keel/internal/format"
	"github.com/keelrobotics/keel/pkg/event"
	"github.com/keelrobotics/keel/pkg/trace"
)

func newTypesCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:     "types",
		Short:   "List the system event types",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := format.FromCommand(cmd)

			types := event.SystemTypes().List()
			slices.Sort(types)

			rows := make([][]string, 0, len(types))
			for _, t := range types {
				rows = append(rows, []string{
					t.String(),
					t.Group(),
					trace.LevelOf(t).String(),
					strconv.Itoa(s.hub.SubscriberCount(t)),
				})
			}

			if err := out.PrintTable([]string{"Type", "Group", "Trace", "Subscribers"}, rows); err != nil {
				return err
			}
			return out.PrintSummary(fmt.Sprintf("%d event types", len(rows)))
		},
	}
}
