package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"Scrumble/loadgen"
)

func newLoadCommand() *cobra.Command {
	var opts loadgen.Options
	var base string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Send synthetic matchup or vote traffic to a running API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Base = loadgen.ResolveBase(base)
			report, err := loadgen.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Synthetic load complete")
			fmt.Fprintf(out, "  base: %s\n", report.Base)
			fmt.Fprintf(out, "  mode: %s\n", report.Mode)
			fmt.Fprintf(out, "  total: %d\n", report.Total)
			fmt.Fprintf(out, "  successes: %d\n", report.Successes)
			fmt.Fprintf(out, "  failures: %d\n", report.Failures)
			fmt.Fprintf(out, "  elapsed: %.2fs\n", report.Elapsed.Seconds())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&base, "base", "", "API base URL (defaults to SCRUMBLE_API_BASE)")
	flags.StringVar(&opts.Mode, "mode", loadgen.ModeMatchup, "Traffic to send: matchup or vote")
	flags.DurationVar(&opts.Duration, "duration", 10*time.Second, "How long to run")
	flags.Float64Var(&opts.RPS, "rps", 1, "Requests per second")
	flags.StringVar(&opts.MatchupID, "matchup-id", "", "Matchup to vote on (defaults to the first listed)")
	flags.StringVar(&opts.FingerprintPrefix, "fingerprint-prefix", "synthetic", "Fingerprint prefix for votes")
	flags.BoolVar(&opts.RandomSide, "random-side", false, "Pick vote sides at random")
	return cmd
}
