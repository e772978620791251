package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	api "Scrumble"
	"Scrumble/seed"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load entries and matchups from a seed JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer fh.Close()

			data, err := seed.Decode(fh)
			if err != nil {
				return err
			}

			return ctx.withServices(cmd.Context(), func(svc *api.Services) error {
				res, err := seed.Load(cmd.Context(), svc.Store, svc.Engine, data, svc.Logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d entries and %d matchups\n", res.Entries, res.Matchups)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "docs/seed-data.json", "Seed data file")
	return cmd
}
