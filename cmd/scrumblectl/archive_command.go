package main

import (
	"fmt"

	"github.com/spf13/cobra"

	api "Scrumble"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Deactivate every active matchup whose end time has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), func(svc *api.Services) error {
				n, err := svc.Engine.ArchiveEnded(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Archived %d matchups\n", n)
				return nil
			})
		},
	}
}
